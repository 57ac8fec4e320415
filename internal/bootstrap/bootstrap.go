package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/scholarship-pipeline/internal/config"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
	"github.com/kirillkom/scholarship-pipeline/internal/core/usecase"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/extractor"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore/gdrive"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore/localfs"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/filestore/objectstore"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/queue/nats"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/resilience"
	"github.com/kirillkom/scholarship-pipeline/internal/observability/metrics"
)

type Options struct {
	Service string
	// WithQueue connects to NATS; the CLI runs without it.
	WithQueue bool
}

type App struct {
	Config   config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.PipelineMetrics

	Ledger ports.Ledger
	Files  ports.FileStore
	Queue  ports.MessageQueue

	ProcessUC  ports.SubmissionProcessor
	BatchUC    ports.BatchProcessor
	ScheduleUC ports.ProcessScheduler
	QueryUC    ports.SubmissionReader
	ReportUC   ports.ReportService

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	}
	app.Metrics = metrics.NewPipelineMetrics(opts.Service, app.Registry)

	rubrics, err := rubric.LoadFile(cfg.RubricFile)
	if err != nil {
		return nil, fmt.Errorf("load rubric: %w", err)
	}

	ledger, err := OpenLedger(cfg)
	if err != nil {
		return nil, err
	}
	app.Ledger = ledger
	app.onClose(func() { _ = ledger.Close() })

	exec := resilience.NewExecutor(resilience.WithRetries(cfg.MaxRetries, cfg.RetryBackoff()))
	store, err := openFileStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Files = filestore.WithRetry(store, exec)

	var (
		classOracle ports.ClassificationOracle
		scoreOracle ports.ScoringOracle
	)
	if cfg.OracleEnabled {
		oracleCfg := resilience.WithRetries(cfg.MaxRetries, cfg.RetryBackoff())
		oracleCfg.AttemptTimeout = cfg.OracleTimeout()
		client := ollama.New(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{
			Timeout:       cfg.OracleTimeout(),
			RatePerSecond: cfg.OracleRatePerSecond,
			Executor:      resilience.NewExecutor(oracleCfg),
		})
		oracle := ollama.NewOracle(client)
		classOracle, scoreOracle = oracle, oracle
		slog.Info("oracle_enabled", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
	}

	classifier := usecase.NewRuleClassifier(rubrics, classOracle, app.Metrics)
	grader := usecase.NewRubricGrader(rubrics, scoreOracle, app.Metrics)
	textExtractor := extractor.NewExtractor(app.Files)

	processUC := usecase.NewProcessSubmissionUseCase(ledger, app.Files, textExtractor, classifier, grader, app.Metrics, cfg.DocumentWorkers)
	app.ProcessUC = processUC
	app.BatchUC = usecase.NewBatchProcessUseCase(app.Files, processUC, cfg.SubmissionWorkers)
	app.QueryUC = usecase.NewSubmissionQueryUseCase(ledger)
	app.ReportUC = usecase.NewReportUseCase(ledger)

	if opts.WithQueue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: exec})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.ScheduleUC = usecase.NewScheduleProcessingUseCase(app.Files, queue)
		app.onClose(queue.Close)
	}

	return app, nil
}

// OpenLedger migrates and opens the configured ledger.
func OpenLedger(cfg config.Config) (*sqlstore.Ledger, error) {
	switch cfg.LedgerDriver {
	case config.LedgerPostgres:
		ledger, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return ledger, nil
	default:
		ledger, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return ledger, nil
	}
}

func openFileStore(ctx context.Context, cfg config.Config) (ports.FileStore, error) {
	switch cfg.FileStore {
	case config.FileStoreDrive:
		store, err := gdrive.New(ctx, cfg.DriveCredentialsFile, cfg.DriveRootFolderID, cfg.DriveRatePerSecond)
		if err != nil {
			return nil, fmt.Errorf("init drive file store: %w", err)
		}
		return store, nil
	case config.FileStoreMinIO:
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Prefix:    cfg.MinIOPrefix,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init minio file store: %w", err)
		}
		return store, nil
	default:
		store, err := localfs.New(cfg.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("init local file store: %w", err)
		}
		return store, nil
	}
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
