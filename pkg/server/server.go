// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/store"
)

// ReportService generates reputation reports.
type ReportService interface {
	Generate(ctx context.Context, target person.Target) (person.ReputationReport, error)
}

// ReportStore reads previously generated reports. Optional; without one
// the lookup routes return 404.
type ReportStore interface {
	Report(id string) (person.ReputationReport, error)
	Reports() ([]store.ReportDoc, error)
	Session(retrievalID string) (store.SessionDoc, error)
}

// Server handles HTTP requests.
type Server struct {
	service ReportService
	reports ReportStore
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithReportStore enables report and session lookup routes.
func WithReportStore(reports ReportStore) Option {
	return func(s *Server) { s.reports = reports }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server.
func New(service ReportService, opts ...Option) *Server {
	s := &Server{service: service, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router constructs the Gin engine with middleware and routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		RequestID(),
		Logging(s.logger),
		Recovery(s.logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/reports", s.generateReport)
	api.GET("/reports", s.listReports)
	api.GET("/reports/:id", s.getReport)
	api.GET("/sessions/:id", s.getSession)

	return r
}

type generateRequest struct {
	TargetPerson person.Target `json:"targetPerson" binding:"required"`
}

func (s *Server) generateReport(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.TargetPerson.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetPerson.name is required"})
		return
	}

	report, err := s.service.Generate(c.Request.Context(), req.TargetPerson)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "report generation failed",
			"target", req.TargetPerson.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) getReport(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report storage disabled"})
		return
	}

	report, err := s.reports.Report(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report lookup failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listReports(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusOK, gin.H{"reports": []any{}})
		return
	}

	docs, err := s.reports.Reports()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": docs})
}

func (s *Server) getSession(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session storage disabled"})
		return
	}

	doc, err := s.reports.Session(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}
	c.JSON(http.StatusOK, doc)
}
