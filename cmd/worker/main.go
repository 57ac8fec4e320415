package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/scholarship-pipeline/internal/bootstrap"
	"github.com/kirillkom/scholarship-pipeline/internal/config"
	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/observability/logging"
)

const (
	serviceName       = "scholar-worker"
	submissionTimeout = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewLogger(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, WithQueue: true})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.SubmissionWorkers)
	err = app.Queue.SubscribeProcessRequests(ctx, cfg.SubmissionWorkers, func(handlerCtx context.Context, req domain.ProcessRequest) error {
		app.Metrics.StartRequest()
		defer app.Metrics.FinishRequest()

		processCtx, cancel := context.WithTimeout(handlerCtx, submissionTimeout)
		defer cancel()
		result, err := app.ProcessUC.ProcessSubmission(processCtx, req)
		if err != nil {
			return fmt.Errorf("process %s: %w", req.Folder.FolderRef, err)
		}
		slog.Info("worker_submission_done",
			"submission_id", result.SubmissionID,
			"status", result.Status,
			"processed", result.Processed,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("worker_stopped")
}
