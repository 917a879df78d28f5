// Package api exposes plan creation, task listings and progress
// reconciliation over HTTP with JSON bodies and RFC 7807 errors.
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/progress"
)

const maxBodyBytes = 1 << 20

// Server routes HTTP requests to the plan service and progress updater.
type Server struct {
	plans    *planner.Service
	progress *progress.Updater
	origins  []string
	logger   zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins sets the CORS origins. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates a Server.
func NewServer(plans *planner.Service, updater *progress.Updater, opts ...Option) *Server {
	s := &Server{
		plans:    plans,
		progress: updater,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS and access logging.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.cors())
	r.NoRoute(func(c *gin.Context) {
		abortProblem(c, &ProblemDetail{Status: http.StatusNotFound, Instance: c.Request.URL.Path})
	})

	routes := r.Group("/api")
	routes.POST("/create", s.handleCreatePlan)
	routes.GET("/status/:plan_id", s.handlePlanStatus)
	routes.GET("/plans/user/:user_id", s.handleUserPlans)

	routes.GET("/tasks/:plan_id", s.handlePlanTasks)
	routes.GET("/tasks/user/:user_id", s.handleUserTasks)
	routes.PATCH("/tasks/:task_id", s.handleEditTask)

	routes.POST("/progress", s.handleLogProgress)
	routes.POST("/progress/ai-update", s.handleAIUpdate)
	routes.POST("/progress/bulk-ai-update", s.handleBulkAIUpdate)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	var h http.Handler = r
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(h)
	h = hlog.NewHandler(s.logger)(h)
	return h
}

func (s *Server) allowOrigin(origin string) bool {
	return origin != "" && (slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin))
}

// cors answers preflight requests and sets the allow headers for
// configured origins.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !s.allowOrigin(origin) {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bindJSON reads the request body into v, answering 400 itself on
// failure.
func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		abortBadRequest(c, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
