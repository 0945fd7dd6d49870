// invoiced is the long-running service: HTTP API plus the scheduled
// task-queue runner.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/export"
	"github.com/kynth65/ai-invoice-management/internal/extractor"
	"github.com/kynth65/ai-invoice-management/internal/llm/openai"
	"github.com/kynth65/ai-invoice-management/internal/processor"
	"github.com/kynth65/ai-invoice-management/internal/repository"
	"github.com/kynth65/ai-invoice-management/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	db, err := repository.Open(cfg.Database.DSN, logger)
	if err != nil {
		logger.Error("db.open_failed", "error", err)
		os.Exit(1)
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	vendorRepo := repository.NewVendorRepository(db)

	llmClient := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	ext := extractor.New(logger)
	proc := processor.New(taskRepo, invoiceRepo, vendorRepo, ext, llmClient, llmClient, llmClient.Model(), logger)
	runner := processor.NewRunner(taskRepo, proc, logger)
	exportSvc := export.NewService(invoiceRepo, logger)

	srv := server.New(cfg, invoiceRepo, taskRepo, vendorRepo, runner, exportSvc, logger)

	sched := cron.New()
	_, err = sched.AddFunc(cfg.Queue.CronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, rerr := runner.RunOnce(ctx, cfg.Queue.MaxTasks); rerr != nil {
			logger.Error("queue.tick_failed", "error", rerr)
		}
	})
	if err != nil {
		logger.Error("queue.schedule_invalid", "schedule", cfg.Queue.CronSchedule, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("server.shutting_down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server.shutdown_error", "error", err)
	}
}
