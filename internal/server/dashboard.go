package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleDashboard(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"summary": s.app.Dashboard.Summary()})
}

func (s *Server) handleSession(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"session": s.app.Session.State()})
}

func (s *Server) handleSessionReset(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"session": s.app.Session.Reset()})
}

func (s *Server) handleSessionDismiss(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"session": s.app.Session.DismissBreak()})
}
