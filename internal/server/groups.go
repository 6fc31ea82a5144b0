package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamboard/internal/groups"
	"teamboard/internal/models"
)

type groupRequest struct {
	Name      *string   `json:"name"`
	MemberIDs *[]string `json:"memberIds"`
	TaskIDs   *[]string `json:"taskIds"`
}

func (s *Server) resolveGroup(g models.Group) groups.View {
	return groups.Resolve(g, s.app.Members, s.app.Tasks)
}

// handleListGroups returns all groups with their members and tasks joined.
func (s *Server) handleListGroups(c *gin.Context) {
	all := s.app.Groups.All()
	views := make([]groups.View, len(all))
	for i, g := range all {
		views[i] = s.resolveGroup(g)
	}
	respondSuccess(c, http.StatusOK, gin.H{"groups": views})
}

// handleCreateGroup creates a new group.
func (s *Server) handleCreateGroup(c *gin.Context) {
	var req groupRequest
	if !s.bindJSON(c, &req) {
		return
	}

	g := models.Group{Name: getString(req.Name)}
	if req.MemberIDs != nil {
		g.MemberIDs = *req.MemberIDs
	}
	if req.TaskIDs != nil {
		g.TaskIDs = *req.TaskIDs
	}

	created, err := s.app.Groups.Add(c.Request.Context(), g)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"group": s.resolveGroup(created)})
}

func (s *Server) handleGetGroup(c *gin.Context) {
	g, ok := s.app.Groups.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "group")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"group": s.resolveGroup(g)})
}

// handleUpdateGroup renames a group or replaces its member and task lists.
func (s *Server) handleUpdateGroup(c *gin.Context) {
	var req groupRequest
	if !s.bindJSON(c, &req) {
		return
	}

	g, found, err := s.app.Groups.Update(c.Request.Context(), c.Param("id"), groups.Patch{
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
		TaskIDs:   req.TaskIDs,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "group")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"group": s.resolveGroup(g)})
}

// handleDeleteGroup removes a group but not its members or tasks.
func (s *Server) handleDeleteGroup(c *gin.Context) {
	found, err := s.app.Groups.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "group")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleGetGroupColor(c *gin.Context) {
	g, ok := s.app.Groups.Get(c.Param("id"))
	if !ok {
		respondNotFound(c, "group")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"color": s.app.GroupColors.Color(g.Name)})
}

func (s *Server) handleSetGroupColor(c *gin.Context) {
	color, ok := s.bindColor(c)
	if !ok {
		return
	}
	g, found := s.app.Groups.Get(c.Param("id"))
	if !found {
		respondNotFound(c, "group")
		return
	}
	s.app.GroupColors.Set(g.Name, color)
	respondSuccess(c, http.StatusOK, gin.H{"color": color})
}
