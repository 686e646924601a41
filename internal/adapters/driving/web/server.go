// Package web is the HTTP control surface: a small JSON API for manual
// triggers and status checks, plus a single-page dashboard.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// Server is the control-surface HTTP server.
type Server struct {
	syncOrch  driving.SyncOrchestrator
	tokens    driving.TokenService
	health    driving.HealthReporter
	publisher driven.Publisher
	history   driven.SchedulerStore
	baseTopic string

	router *gin.Engine
	srv    *http.Server
}

// NewServer creates the control surface. The scheduler store may be nil, in
// which case the history endpoint reports empty results.
func NewServer(
	syncOrch driving.SyncOrchestrator,
	tokens driving.TokenService,
	health driving.HealthReporter,
	publisher driven.Publisher,
	history driven.SchedulerStore,
	baseTopic string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		syncOrch:  syncOrch,
		tokens:    tokens,
		health:    health,
		publisher: publisher,
		history:   history,
		baseTopic: baseTopic,
		router:    router,
	}

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/", s.handleDashboard)
	router.GET("/health", s.handleHealth)
	router.GET("/token/status", s.handleTokenStatus)
	router.GET("/history", s.handleHistory)

	router.POST("/sync/tasks", s.handleSyncTasks)
	router.POST("/refresh/token", s.handleRefreshToken)
	router.POST("/publish", s.handlePublish)

	return s
}

// Start begins serving on addr. It returns once the listener closes;
// http.ErrServerClosed is swallowed as the normal shutdown outcome.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	logger.Info("Control surface listening on %s", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
