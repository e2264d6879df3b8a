package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/nsmelov/exam-insights/internal/adapters/http"
	"github.com/nsmelov/exam-insights/internal/bootstrap"
	"github.com/nsmelov/exam-insights/internal/config"
	"github.com/nsmelov/exam-insights/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.Analysis,
		app.Results,
		app.Sessions,
		app.Files,
		httpadapter.RouterConfig{
			MaxFilesPerJob: cfg.MaxFilesPerJob,
			MaxUploadBytes: int64(cfg.MaxFilesPerJob+1) * cfg.MaxFileBytes,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			MaxInFlight:    64,
			MetricsHandler: app.Metrics.Handler(),
			MetricsWrap: func(next http.Handler) http.Handler {
				return app.HTTPMetrics.Middleware("api", next)
			},
		},
		logger,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
