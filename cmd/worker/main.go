package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsmelov/exam-insights/internal/config"
	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/infrastructure/queue/nats"
	"github.com/nsmelov/exam-insights/internal/observability/logging"
	"github.com/nsmelov/exam-insights/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("worker queue error: %v", err)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = queue.SubscribeAnalysisCompleted(ctx, func(_ context.Context, event domain.CompletedEvent) error {
		duration := time.Duration(event.DurationMS) * time.Millisecond
		workerMetrics.ObserveCompletedEvent("worker", event.QuestionCount, duration, nil)
		logger.Info("analysis completed",
			"result_id", event.ResultID,
			"filename", event.Filename,
			"question_count", event.QuestionCount,
			"duration_ms", event.DurationMS,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
