package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamboard/internal/colors"
	"teamboard/internal/storage"
)

// colorCache picks the member or group colour cache named by the :scope
// parameter.
func (s *Server) colorCache(c *gin.Context) (*colors.Service, bool) {
	switch c.Param("scope") {
	case "members":
		return s.app.MemberColors, true
	case "groups":
		return s.app.GroupColors, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be members or groups"})
	return nil, false
}

func (s *Server) handleListColors(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"members": s.app.MemberColors.Assigned(),
		"groups":  s.app.GroupColors.Assigned(),
	})
}

// handleGetAssignedColor reports a cached colour without assigning one.
func (s *Server) handleGetAssignedColor(c *gin.Context) {
	cache, ok := s.colorCache(c)
	if !ok {
		return
	}
	color, found := cache.Existing(c.Param("name"))
	if !found {
		respondNotFound(c, "color assignment")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"color": color})
}

// handleClearColors drops every cached assignment. Colours pinned on a
// member record are kept.
func (s *Server) handleClearColors(c *gin.Context) {
	s.app.MemberColors.Clear()
	s.app.GroupColors.Clear()
	respondSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleStorageKeys(c *gin.Context) {
	lister, ok := s.app.KV.(storage.Lister)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "storage backend cannot list keys"})
		return
	}
	keys, err := lister.Keys(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"driver": s.app.Config.Storage.Driver, "keys": keys})
}
