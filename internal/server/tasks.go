package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamboard/internal/models"
	"teamboard/internal/tasks"
)

type taskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Category    *string   `json:"category"`
	Assignees   *[]string `json:"assignees"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleListTasks returns tasks newest first, narrowed by query filters.
func (s *Server) handleListTasks(c *gin.Context) {
	f := tasks.Filter{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.Priority(c.Query("priority")),
		Assignee: c.Query("assignee"),
		Category: c.Query("category"),
	}
	if f.Status != "" && !f.Status.Valid() {
		s.respondError(c, http.StatusBadRequest, tasks.ErrInvalidStatus)
		return
	}
	if f.Priority != "" && !f.Priority.Valid() {
		s.respondError(c, http.StatusBadRequest, tasks.ErrInvalidPriority)
		return
	}

	list := s.app.Tasks.Find(f)
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list, "count": len(list)})
}

// handleCreateTask adds a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	create := tasks.CreateRequest{
		Title:       getString(req.Title),
		Description: getString(req.Description),
		Status:      models.TaskStatus(getString(req.Status)),
		Priority:    models.Priority(getString(req.Priority)),
		Category:    getString(req.Category),
	}
	if req.Assignees != nil {
		create.Assignees = *req.Assignees
	}

	task, err := s.app.Tasks.Add(c.Request.Context(), create)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.app.Tasks.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask merges the supplied fields into a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	patch := tasks.Patch{
		ID:          c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Assignees:   req.Assignees,
	}
	if req.Status != nil {
		st := models.TaskStatus(*req.Status)
		patch.Status = &st
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}

	task, found, err := s.app.Tasks.Update(c.Request.Context(), patch)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleUpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if !s.bindJSON(c, &req) {
		return
	}

	task, found, err := s.app.Tasks.UpdateStatus(c.Request.Context(), c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	found, err := s.app.Tasks.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "task")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleClearCompleted(c *gin.Context) {
	removed, err := s.app.Tasks.ClearCompleted(c.Request.Context())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"removed": removed})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
