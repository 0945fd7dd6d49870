// invoice-batch runs one queue batch (or a retention cleanup sweep) and
// exits. Meant for cron jobs and operational one-offs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/extractor"
	"github.com/kynth65/ai-invoice-management/internal/llm/openai"
	"github.com/kynth65/ai-invoice-management/internal/processor"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

func main() {
	maxTasks := flag.Int("max-tasks", 10, "maximum tasks to process in this batch")
	cleanup := flag.Bool("cleanup", false, "delete old completed and dead failed tasks instead of processing")
	days := flag.Int("days", 90, "with -cleanup, age in days before a completed task is removed")
	dryRun := flag.Bool("dry-run", false, "with -cleanup, report what would be removed without deleting")
	flag.Parse()

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

	taskRepo := repository.NewTaskRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *cleanup {
		cutoff := time.Now().UTC().AddDate(0, 0, -*days)
		if *dryRun {
			stats, err := taskRepo.Stats(ctx)
			if err != nil {
				logger.Error("cleanup.stats_failed", "error", err)
				os.Exit(1)
			}
			fmt.Printf("dry run: %d completed and %d failed tasks on record; cutoff %s\n",
				stats.Completed, stats.Failed, cutoff.Format(time.RFC3339))
			return
		}
		removed, err := taskRepo.Cleanup(ctx, cutoff)
		if err != nil {
			logger.Error("cleanup.failed", "error", err)
			os.Exit(1)
		}
		logger.Info("cleanup.done", "removed", removed, "cutoff", cutoff)
		fmt.Printf("removed %d tasks\n", removed)
		return
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
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

	attempted, err := runner.RunOnce(ctx, *maxTasks)
	if err != nil {
		logger.Error("batch.failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("processed %d tasks\n", attempted)
}
