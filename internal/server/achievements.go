package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teamboard/internal/achievements"
)

const defaultRecentAchievements = 5

// handleRecentAchievements returns the latest unlocks across the team.
func (s *Server) handleRecentAchievements(c *gin.Context) {
	limit := defaultRecentAchievements
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	respondSuccess(c, http.StatusOK, gin.H{"achievements": s.app.Achievements.Recent(limit)})
}

func (s *Server) handleAchievementDefinitions(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"definitions": achievements.Catalog()})
}

func (s *Server) handleMarkAchievementSeen(c *gin.Context) {
	found, err := s.app.Achievements.MarkSeen(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	if !found {
		respondNotFound(c, "achievement")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "seen"})
}

// handleResetAchievements drops every earned record. Nothing is re-awarded
// until the next task or member change, or a restart.
func (s *Server) handleResetAchievements(c *gin.Context) {
	if err := s.app.Achievements.Reset(c.Request.Context()); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reset"})
}
