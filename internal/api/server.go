// Package api exposes the orchestration engine over HTTP. JSON in, JSON
// out; every success is 200 or 202 and every error body is {"error": msg}.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/maestro/internal/config"
	"github.com/example/maestro/internal/orchestrator"
	"github.com/example/maestro/internal/registry"
	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/internal/version"
)

// Server holds the handler dependencies.
type Server struct {
	svc     *orchestrator.Service
	reg     *registry.Registry
	tel     *telemetry.Telemetry
	cfg     *config.Config
	started time.Time
}

// NewServer creates the HTTP layer over an assembled service.
func NewServer(svc *orchestrator.Service, reg *registry.Registry, tel *telemetry.Telemetry, cfg *config.Config) *Server {
	return &Server{svc: svc, reg: reg, tel: tel, cfg: cfg, started: time.Now()}
}

// Routes builds the gin engine with all endpoints registered.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/task", s.handleSubmitTask)
	r.GET("/task/:id", s.handleGetTask)
	r.POST("/task/:id/retry", s.handleRetryTask)
	r.DELETE("/task/:id", s.handleCancelTask)
	r.GET("/tasks", s.handleListTasks)
	r.POST("/propose", s.handlePropose)

	r.GET("/models", s.handleListModels)
	r.POST("/models/:id/role", s.handleSetRole)
	r.POST("/models/:id/suggest", s.handleSuggestRole)
	r.GET("/models/:id/suggestions", s.handleListSuggestions)

	r.GET("/telemetry", s.handleTelemetry)
	r.POST("/route", s.handleRoute)

	r.GET("/config", s.handleGetConfig)
	r.POST("/config", s.handleUpdateConfig)

	r.GET("/approval/pending", s.handleApprovalPending)
	r.GET("/approval/status", s.handleApprovalStatus)
	r.POST("/approval/decide", s.handleApprovalDecide)
	r.GET("/approval/audit", s.handleApprovalAudit)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"version":       version.Get(),
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
	})
}

// errorJSON writes the uniform error body.
func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// notFoundOr maps store misses to 404 and everything else to 500.
func notFoundOr(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "not found")
		return
	}
	errorJSON(c, http.StatusInternalServerError, err.Error())
}
