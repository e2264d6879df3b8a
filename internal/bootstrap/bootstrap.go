package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nsmelov/exam-insights/internal/config"
	"github.com/nsmelov/exam-insights/internal/core/ports"
	"github.com/nsmelov/exam-insights/internal/core/usecase"
	"github.com/nsmelov/exam-insights/internal/infrastructure/extractor"
	"github.com/nsmelov/exam-insights/internal/infrastructure/extractor/pdfdoc"
	"github.com/nsmelov/exam-insights/internal/infrastructure/extractor/plaintext"
	"github.com/nsmelov/exam-insights/internal/infrastructure/extractor/sheet"
	"github.com/nsmelov/exam-insights/internal/infrastructure/llm/openai"
	"github.com/nsmelov/exam-insights/internal/infrastructure/queue/nats"
	"github.com/nsmelov/exam-insights/internal/infrastructure/repository/memory"
	"github.com/nsmelov/exam-insights/internal/infrastructure/repository/postgres"
	"github.com/nsmelov/exam-insights/internal/infrastructure/resilience"
	"github.com/nsmelov/exam-insights/internal/infrastructure/storage/localfs"
	"github.com/nsmelov/exam-insights/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Analysis *usecase.AnalyzeUseCase
	Results  *usecase.ResultsUseCase
	Sessions *usecase.SessionsUseCase
	Files    ports.FileStore

	Metrics     *metrics.PipelineMetrics
	HTTPMetrics *metrics.HTTPMetrics

	db    *sql.DB
	queue *nats.Queue
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var (
		db          *sql.DB
		resultRepo  ports.ResultStore
		sessionRepo ports.SessionStore
	)
	// "memory" keeps development runs free of a database dependency.
	if cfg.PostgresDSN == "memory" {
		store := memory.NewStore()
		resultRepo = store
		sessionRepo = store
	} else {
		pg, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewResultRepository(pg)
		if err := repo.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		db = pg
		resultRepo = repo
		sessionRepo = postgres.NewSessionRepository(pg)
	}

	closeDB := func() {
		if db != nil {
			db.Close()
		}
	}

	files, err := localfs.New(cfg.UploadDir)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	executorCfg := resilience.DefaultConfig()
	executorCfg.RetryMaxAttempts = cfg.AnalysisRetryMaxAttempts
	executorCfg.RateLimitPerMinute = cfg.AnalysisRateLimitPerMin
	executorCfg.RateLimitBurst = cfg.AnalysisRateLimitBurst
	executor := resilience.NewExecutor(executorCfg)

	analyzer := openai.NewAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, executor)

	plain := plaintext.NewExtractor()
	dispatcher := extractor.NewDispatcher(map[string]ports.TextExtractor{
		".pdf":  pdfdoc.NewExtractor(),
		".xlsx": sheet.NewExtractor(),
		".xlsm": sheet.NewExtractor(),
		".txt":  plain,
		".md":   plain,
	})

	pipelineMetrics := metrics.NewPipelineMetrics("api")
	httpMetrics := metrics.NewHTTPMetrics("api", pipelineMetrics)

	sessionsUC := usecase.NewSessionsUseCase(sessionRepo, logger)
	resultsUC := usecase.NewResultsUseCase(resultRepo, sessionsUC, logger)
	analysisUC := usecase.NewAnalyzeUseCase(usecase.AnalyzeDeps{
		Extractor:    dispatcher,
		Analyzer:     analyzer,
		Results:      resultsUC,
		Sessions:     sessionsUC,
		Files:        files,
		Events:       queue,
		Credentials:  cfg,
		Observer:     pipelineMetrics,
		Logger:       logger,
		MaxFileBytes: cfg.MaxFileBytes,
	})

	return &App{
		Config:      cfg,
		Analysis:    analysisUC,
		Results:     resultsUC,
		Sessions:    sessionsUC,
		Files:       files,
		Metrics:     pipelineMetrics,
		HTTPMetrics: httpMetrics,
		db:          db,
		queue:       queue,
	}, nil
}

func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
