// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/api"
	"github.com/strykerlabs/webstryker/internal/classify"
	"github.com/strykerlabs/webstryker/internal/clock/system"
	"github.com/strykerlabs/webstryker/internal/config"
	"github.com/strykerlabs/webstryker/internal/crawl"
	"github.com/strykerlabs/webstryker/internal/enrich"
	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/fetch"
	"github.com/strykerlabs/webstryker/internal/id/uuid"
	"github.com/strykerlabs/webstryker/internal/logging"
	"github.com/strykerlabs/webstryker/internal/metrics"
	"github.com/strykerlabs/webstryker/internal/pipeline"
	"github.com/strykerlabs/webstryker/internal/stages"
	"github.com/strykerlabs/webstryker/internal/state"
	"github.com/strykerlabs/webstryker/internal/store/memory"
	"github.com/strykerlabs/webstryker/internal/store/postgres"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	OpLog        *logging.OperationLog
	States       *state.Registry
	Counters     *state.Counters
	Store        extraction.CompanyStore
	Orchestrator *pipeline.Orchestrator
	Batches      *pipeline.BatchRunner
	Server       *api.Server

	pgStore *postgres.Store
}

// New builds the full service graph from configuration. It fails fast when
// a critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	oplog := logging.NewOperationLog(logger, 0)
	clk := system.New()
	states := state.NewRegistry(clk)
	counters := state.NewCounters()
	ids := uuid.NewUUIDGenerator()

	var (
		store   extraction.CompanyStore
		pgStore *postgres.Store
	)
	if cfg.Database.DSN != "" {
		logger.Info("connecting to PostgreSQL")
		pgStore, err = postgres.New(ctx, postgres.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		store = pgStore
	} else {
		logger.Info("using in-memory company store")
		store = memory.New()
	}

	getter := fetch.NewCollyGetter(cfg.Extraction.UserAgent, cfg.FetchTimeout())
	fetcher := fetch.New(getter, states, oplog, extraction.FetchConfig{
		MaxRetries: cfg.Extraction.MaxRetries,
		Timeout:    cfg.FetchTimeout(),
		UserAgent:  cfg.Extraction.UserAgent,
	}, logger)

	company := stages.NewCompanyStage(oplog, logger)
	contact := stages.NewContactStage(getter, oplog, logger)
	discovery := stages.NewDiscoveryStage(oplog, logger)
	detail := stages.NewDetailStage(oplog, logger)

	crawler := crawl.New(fetcher, getter, discovery, detail, states, oplog, crawl.Config{
		MaxProducts:       cfg.Extraction.MaxProducts,
		Delay:             cfg.CrawlDelay(),
		DisableLinkFollow: !cfg.Extraction.FollowLinks,
	}, logger)

	classifier := classify.NewContextClient(classify.ContextConfig{
		Endpoint: cfg.Classifier.Endpoint,
		APIKey:   cfg.Classifier.APIKey,
		Model:    cfg.Classifier.Model,
		Timeout:  time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second,
	}, logger)
	lookup := classify.NewEntityClient(classify.EntityConfig{
		Endpoint: cfg.Entity.Endpoint,
		APIKey:   cfg.Entity.APIKey,
		Timeout:  time.Duration(cfg.Entity.TimeoutSeconds) * time.Second,
	}, logger)
	enricher := enrich.New(classifier, lookup, counters, logger)

	orchestrator := pipeline.New(states, fetcher, company, contact, crawler,
		enricher, store, counters, oplog, clk, ids, logger)
	batches := pipeline.NewBatchRunner(orchestrator, counters, ids, cfg.Batch.Concurrency, logger)
	server := api.NewServer(orchestrator, batches, states, store, counters, oplog, cfg, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		OpLog:        oplog,
		States:       states,
		Counters:     counters,
		Store:        store,
		Orchestrator: orchestrator,
		Batches:      batches,
		Server:       server,
		pgStore:      pgStore,
	}, nil
}

// Close releases service resources.
func (a *App) Close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
