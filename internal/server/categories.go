package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teamboard/internal/categories"
	"teamboard/internal/models"
)

type categoryRequest struct {
	Name string `json:"name"`
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondCategoryError reports an upstream failure with its user-facing
// message.
func (s *Server) respondCategoryError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, categories.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.logger.Warn("category API call failed", "path", c.FullPath(), "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleListCategories(c *gin.Context) {
	store := s.app.Categories
	respondSuccess(c, http.StatusOK, gin.H{
		"categories": store.Categories(),
		"count":      store.Count(),
		"loading":    store.Loading(),
		"error":      store.Err(),
	})
}

func (s *Server) handleReloadCategories(c *gin.Context) {
	if err := s.app.Categories.Load(c.Request.Context()); err != nil {
		s.respondCategoryError(c, err)
		return
	}
	s.handleListCategories(c)
}

func (s *Server) handleGetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cat, found := s.app.Categories.Get(id)
	if !found {
		respondNotFound(c, "category")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"category": cat})
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if !s.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.respondError(c, http.StatusBadRequest, errors.New("category name is required"))
		return
	}

	cat, err := s.app.Categories.Add(c.Request.Context(), models.Category{Name: name})
	if err != nil {
		s.respondCategoryError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"category": cat})
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !s.bindJSON(c, &req) {
		return
	}

	cat, err := s.app.Categories.Update(c.Request.Context(), models.Category{ID: id, Name: strings.TrimSpace(req.Name)})
	if err != nil {
		s.respondCategoryError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"category": cat})
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.app.Categories.Delete(c.Request.Context(), id); err != nil {
		s.respondCategoryError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
