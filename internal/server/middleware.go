package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teamboard/internal/auth"
	"teamboard/internal/metrics"
)

const ctxUserID = "user_id"

// observeRequests records request latency by route template.
func observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// authenticate validates a bearer token when one is sent. With
// auth.require_token set, requests without a valid token are rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	required := s.app.Config.Auth.RequireToken
	return func(c *gin.Context) {
		raw := auth.ExtractToken(c.GetHeader("Authorization"))
		if raw == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			c.Next()
			return
		}

		claims, err := s.app.Auth.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserID, claims.Subject)
		c.Next()
	}
}

func (s *Server) requireCategories(c *gin.Context) {
	if s.app.Categories == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "category API not configured"})
		return
	}
	c.Next()
}
