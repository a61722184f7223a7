// Package api exposes the cleanup engine over a small admin HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/workspace"
)

// Cleaner is the part of the cleanup manager the API uses.
type Cleaner interface {
	Running() bool
	Status() cleanup.Status
	Policy() *cleanup.Policy
	RegisterSessionFile(path string) bool
	TriggerManualCleanup(ctx context.Context, mode cleanup.Mode) (cleanup.Result, error)
	Preview(ctx context.Context, mode cleanup.Mode) (cleanup.Result, error)
}

// Handler wires HTTP routes to the cleanup manager.
type Handler struct {
	cleaner  Cleaner
	ws       *workspace.Workspace
	gatherer prometheus.Gatherer
	logger   *logger.Logger
}

// NewHandler constructs a Handler. Relative session file paths resolve against ws.
// A nil gatherer disables /metrics.
func NewHandler(cleaner Cleaner, ws *workspace.Workspace, gatherer prometheus.Gatherer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		cleaner:  cleaner,
		ws:       ws,
		gatherer: gatherer,
		logger:   log.With(logger.Field{Key: "component", Value: "api"}),
	}
}

// NewRouter returns a gin engine with recovery, request logging and all routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/cleanup")
	api.GET("/status", h.status)
	api.POST("", h.cleanup)
	api.POST("/session-files", h.registerSessionFile)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("http request",
			logger.Field{Key: "method", Value: c.Request.Method},
			logger.Field{Key: "path", Value: c.FullPath()},
			logger.Field{Key: "status", Value: c.Writer.Status()},
			logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"monitor_running": h.cleaner.Running(),
	})
}

type configEcho struct {
	Enabled              bool  `json:"enabled"`
	CheckIntervalSeconds int   `json:"check_interval_seconds"`
	DiskThresholdMB      int64 `json:"disk_threshold_mb"`
	EmergencyThresholdMB int64 `json:"emergency_threshold_mb"`
	SessionCleanup       bool  `json:"session_cleanup"`
	IdleTimeoutMinutes   int   `json:"idle_timeout_minutes"`
	DryRun               bool  `json:"dry_run"`
}

type statusResponse struct {
	cleanup.Status
	DiskUsageMB        float64    `json:"disk_usage_mb"`
	DiskUsageFormatted string     `json:"disk_usage_formatted"`
	Config             configEcho `json:"config"`
}

func (h *Handler) status(c *gin.Context) {
	st := h.cleaner.Status()
	p := h.cleaner.Policy()

	c.JSON(http.StatusOK, statusResponse{
		Status:             st,
		DiskUsageMB:        float64(st.DiskUsageBytes) / (1024 * 1024),
		DiskUsageFormatted: cleanup.FormatSize(st.DiskUsageBytes),
		Config: configEcho{
			Enabled:              p.Enabled,
			CheckIntervalSeconds: int(p.CheckInterval / time.Second),
			DiskThresholdMB:      p.DiskThreshold / (1024 * 1024),
			EmergencyThresholdMB: p.EmergencyThreshold / (1024 * 1024),
			SessionCleanup:       p.SessionCleanup,
			IdleTimeoutMinutes:   int(p.IdleTimeout / time.Minute),
			DryRun:               p.DryRun,
		},
	})
}

type cleanupRequest struct {
	Mode   string `json:"mode"`
	DryRun bool   `json:"dry_run"`
}

type failureResponse struct {
	Path     string         `json:"path"`
	Category string         `json:"category,omitempty"`
	Reason   cleanup.Reason `json:"reason"`
	Error    string         `json:"error"`
}

type cleanupResponse struct {
	Mode                cleanup.Mode       `json:"mode"`
	DryRun              bool               `json:"dry_run"`
	Deleted             []cleanup.Deletion `json:"deleted"`
	Failed              []failureResponse  `json:"failed"`
	Skipped             int                `json:"skipped"`
	BytesFreed          int64              `json:"bytes_freed"`
	BytesFreedFormatted string             `json:"bytes_freed_formatted"`
	DurationMS          int64              `json:"duration_ms"`
}

func (h *Handler) cleanup(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	mode := cleanup.ModeNormal
	if req.Mode != "" {
		parsed, err := cleanup.ParseMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mode = parsed
	}

	run := h.cleaner.TriggerManualCleanup
	if req.DryRun {
		run = h.cleaner.Preview
	}

	res, err := run(c.Request.Context(), mode)
	if err != nil {
		if errors.Is(err, cleanup.ErrInvalidMode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("manual cleanup failed", err, logger.Field{Key: "mode", Value: string(mode)})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, toCleanupResponse(res))
}

func toCleanupResponse(res cleanup.Result) cleanupResponse {
	failed := make([]failureResponse, 0, len(res.Failed))
	for _, f := range res.Failed {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		failed = append(failed, failureResponse{Path: f.Path, Category: f.Category, Reason: f.Reason, Error: msg})
	}
	deleted := res.Deleted
	if deleted == nil {
		deleted = []cleanup.Deletion{}
	}
	return cleanupResponse{
		Mode:                res.Mode,
		DryRun:              res.DryRun,
		Deleted:             deleted,
		Failed:              failed,
		Skipped:             res.Skipped,
		BytesFreed:          res.BytesFreed,
		BytesFreedFormatted: cleanup.FormatSize(res.BytesFreed),
		DurationMS:          res.Finished.Sub(res.Started).Milliseconds(),
	}
}

type sessionFileRequest struct {
	Path string `json:"path" binding:"required"`
}

func (h *Handler) registerSessionFile(c *gin.Context) {
	var req sessionFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	path := req.Path
	if h.ws != nil {
		resolved, err := h.ws.ResolvePath(req.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		path = resolved
	}

	added := h.cleaner.RegisterSessionFile(path)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"path": path, "added": added})
}
