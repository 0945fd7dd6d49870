// Package server exposes the invoice pipeline over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/export"
	"github.com/kynth65/ai-invoice-management/internal/processor"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

// Server wires repositories and services into HTTP handlers.
type Server struct {
	cfg      *common.Config
	invoices repository.InvoiceRepository
	tasks    repository.TaskRepository
	vendors  repository.VendorRepository
	runner   *processor.Runner
	export   *export.Service
	log      *slog.Logger
}

func New(
	cfg *common.Config,
	invoices repository.InvoiceRepository,
	tasks repository.TaskRepository,
	vendors repository.VendorRepository,
	runner *processor.Runner,
	exportSvc *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		invoices: invoices,
		tasks:    tasks,
		vendors:  vendors,
		runner:   runner,
		export:   exportSvc,
		log:      logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/healthz", s.health)

	api := r.Group("/api/v1")
	{
		invoices := api.Group("/invoices")
		{
			invoices.POST("/upload", s.uploadInvoice)
			invoices.GET("", s.listInvoices)
			invoices.GET("/export", s.exportInvoices)
			invoices.GET("/:id", s.getInvoice)
			invoices.POST("/:id/process", s.processInvoice)
			invoices.POST("/:id/mark-paid", s.markInvoicePaid)
			invoices.POST("/:id/mark-duplicate", s.markInvoiceDuplicate)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.listRecentTasks)
			tasks.GET("/stats", s.taskStats)
			tasks.GET("/queue-status", s.queueStatus)
			tasks.GET("/:id", s.getTask)
			tasks.POST("/:id/retry", s.retryTask)
			tasks.POST("/run", s.runQueue)
		}

		vendors := api.Group("/vendors")
		{
			vendors.GET("", s.listVendors)
			vendors.GET("/top", s.topVendors)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// respondError maps sentinel errors onto HTTP statuses. AppError codes
// are surfaced to the client; raw internals are not.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	if status == http.StatusInternalServerError {
		s.log.Error("http.internal_error", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
