package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"teamboard/internal/app"
	"teamboard/internal/auth"
	"teamboard/internal/groups"
	"teamboard/internal/sharedfiles"
	"teamboard/internal/tasks"
	"teamboard/internal/team"
)

// Server provides HTTP handlers for the team board backend.
type Server struct {
	engine    *gin.Engine
	app       *app.App
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(a *app.App, staticDir string) *Server {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))
	router.Use(observeRequests())

	srv := &Server{
		engine:    router,
		app:       a,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/register", s.handleRegister)
	}

	protected := api.Group("", s.authenticate())
	{
		protected.POST("/auth/logout", s.handleLogout)
		protected.GET("/auth/me", s.handleMe)

		taskRoutes := protected.Group("/tasks")
		{
			taskRoutes.GET("", s.handleListTasks)
			taskRoutes.POST("", s.handleCreateTask)
			taskRoutes.DELETE("/completed", s.handleClearCompleted)
			taskRoutes.GET("/:id", s.handleGetTask)
			taskRoutes.PUT("/:id", s.handleUpdateTask)
			taskRoutes.PUT("/:id/status", s.handleUpdateTaskStatus)
			taskRoutes.DELETE("/:id", s.handleDeleteTask)
		}

		members := protected.Group("/members")
		{
			members.GET("", s.handleListMembers)
			members.POST("", s.handleCreateMember)
			members.DELETE("", s.handleDeleteMembersByName)
			members.GET("/:id", s.handleGetMember)
			members.PUT("/:id", s.handleUpdateMember)
			members.DELETE("/:id", s.handleDeleteMember)
			members.GET("/:id/color", s.handleGetMemberColor)
			members.PUT("/:id/color", s.handleSetMemberColor)
			members.GET("/:id/stats", s.handleMemberStats)
			members.GET("/:id/achievements", s.handleMemberAchievements)
			members.GET("/:id/files", s.handleMemberFiles)
		}

		groupRoutes := protected.Group("/groups")
		{
			groupRoutes.GET("", s.handleListGroups)
			groupRoutes.POST("", s.handleCreateGroup)
			groupRoutes.GET("/:id", s.handleGetGroup)
			groupRoutes.PUT("/:id", s.handleUpdateGroup)
			groupRoutes.DELETE("/:id", s.handleDeleteGroup)
			groupRoutes.GET("/:id/color", s.handleGetGroupColor)
			groupRoutes.PUT("/:id/color", s.handleSetGroupColor)
		}

		achievementRoutes := protected.Group("/achievements")
		{
			achievementRoutes.GET("", s.handleRecentAchievements)
			achievementRoutes.DELETE("", s.handleResetAchievements)
			achievementRoutes.GET("/definitions", s.handleAchievementDefinitions)
			achievementRoutes.POST("/:id/seen", s.handleMarkAchievementSeen)
		}

		protected.GET("/dashboard", s.handleDashboard)

		sessionRoutes := protected.Group("/session")
		{
			sessionRoutes.GET("", s.handleSession)
			sessionRoutes.POST("/reset", s.handleSessionReset)
			sessionRoutes.POST("/dismiss", s.handleSessionDismiss)
		}

		files := protected.Group("/files")
		{
			files.GET("", s.handleListFiles)
			files.POST("", s.handleCreateFile)
			files.DELETE("/:id", s.handleDeleteFile)
		}

		colorRoutes := protected.Group("/colors")
		{
			colorRoutes.GET("", s.handleListColors)
			colorRoutes.DELETE("", s.handleClearColors)
			colorRoutes.GET("/:scope/:name", s.handleGetAssignedColor)
		}

		protected.GET("/storage/keys", s.handleStorageKeys)

		categoryRoutes := protected.Group("/categories", s.requireCategories)
		{
			categoryRoutes.GET("", s.handleListCategories)
			categoryRoutes.POST("", s.handleCreateCategory)
			categoryRoutes.POST("/reload", s.handleReloadCategories)
			categoryRoutes.GET("/:id", s.handleGetCategory)
			categoryRoutes.PUT("/:id", s.handleUpdateCategory)
			categoryRoutes.DELETE("/:id", s.handleDeleteCategory)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var validationErrors = []error{
	tasks.ErrEmptyTitle,
	tasks.ErrInvalidStatus,
	tasks.ErrInvalidPriority,
	team.ErrEmptyName,
	groups.ErrEmptyName,
	groups.ErrTooManyMembers,
	groups.ErrTooManyTasks,
	sharedfiles.ErrEmptyName,
	sharedfiles.ErrNegativeSize,
	auth.ErrEmptyName,
}

// statusFor maps a store error to an HTTP status.
func statusFor(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, team.ErrDuplicateID), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondStoreError picks the status from the error itself.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

func respondNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// bindJSON decodes the body into dst, answering 400 on failure.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}
