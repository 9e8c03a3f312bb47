package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ikonstantinov/document-research-assistant/internal/bootstrap"
	"github.com/ikonstantinov/document-research-assistant/internal/config"
	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/observability/logging"
	"github.com/ikonstantinov/document-research-assistant/internal/observability/metrics"
)

const processingTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, event domain.UploadedEvent) error {
		start := time.Now()
		workerMetrics.StartDocument()

		mediaType := event.MediaType
		if mediaType == "" {
			mediaType = "unknown"
		}
		if !event.UploadedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(event.UploadedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, processingTimeout)
		defer cancel()

		processErr := app.Processor.ProcessByID(processCtx, event.DocumentID)
		workerMetrics.FinishDocument("worker", mediaType, time.Since(start), processErr)

		if processErr == nil {
			if doc, err := app.Documents.GetByID(handlerCtx, event.DocumentID); err == nil {
				workerMetrics.ObserveDocumentSize("worker", doc.ChunkCount, doc.PageCount)
			}
		}
		return processErr
	})
	if err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker shutting down")
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
