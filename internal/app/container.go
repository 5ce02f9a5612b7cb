package app

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cesargomez89/pdfhunter/internal/acquire"
	"github.com/cesargomez89/pdfhunter/internal/config"
	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/crossref"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
	"github.com/cesargomez89/pdfhunter/internal/store"
	"github.com/cesargomez89/pdfhunter/internal/validate"
	"github.com/cesargomez89/pdfhunter/internal/worker"
)

// Container holds every long-lived component, wired from one configuration.
type Container struct {
	DB        *store.DB
	Registry  *sources.Registry
	Engine    *acquire.Engine
	Retries   *acquire.RetryScheduler
	Runner    *worker.BatchRunner
	Sweeper   *worker.RetrySweeper
	Projects  *ProjectService
	Batches   *BatchService
	Sources   *SourceService
	Validator *validate.Service
	Logger    *logger.Logger
}

// NewContainer opens the database, seeds the source registry and builds the
// engine with its services. Background loops are not started.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	c, err := wire(ctx, db, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func wire(ctx context.Context, db *store.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	defs := sources.DefaultSources()
	var overrides []domain.Source
	if cfg.SourcesFile != "" {
		all, touched, err := sources.LoadOverrides(cfg.SourcesFile, defs)
		if err != nil {
			return nil, err
		}
		defs, overrides = all, touched
	}

	reg := sources.NewRegistry(db, cfg.Capabilities())
	if err := reg.Seed(ctx, defs, overrides); err != nil {
		return nil, fmt.Errorf("failed to seed sources: %w", err)
	}

	metaClient := httpclient.NewClient(nil, httpclient.WithUserAgent(cfg.UserAgent))
	lookup := crossref.NewCachedClient(
		crossref.NewClient(metaClient, cfg.CrossRefURL, cfg.ContactEmail),
		db,
		constants.DefaultMetadataCacheTTL,
	)

	probes, err := sources.BuildProbes(cfg, defs, lookup)
	if err != nil {
		return nil, err
	}
	reg.Register(probes...)

	download := httpclient.NewClient(nil, httpclient.WithMaxAttempts(1), httpclient.WithUserAgent(cfg.UserAgent))
	var proxied *httpclient.Client
	if cfg.InstitutionalProxy != "" {
		u, err := url.Parse(cfg.InstitutionalProxy)
		if err != nil {
			return nil, fmt.Errorf("institutional proxy: %w", err)
		}
		proxied = httpclient.NewClient(httpclient.NewHTTPClient(constants.DefaultHTTPTimeout, u),
			httpclient.WithMaxAttempts(1),
			httpclient.WithUserAgent(cfg.UserAgent),
		)
	}

	tracker := acquire.NewTracker(db)
	retries := acquire.NewRetryScheduler(db, acquire.RetryConfig{
		MaxRetries: cfg.MaxRetries,
		MaxDelay:   cfg.MaxRetryDelay,
	})
	engine := acquire.NewEngine(acquire.EngineDeps{
		Registry: reg,
		Executor: acquire.NewExecutor(download, proxied, acquire.ExecutorConfig{
			MinBytes:        cfg.MinPDFBytes,
			MaxBytes:        cfg.MaxPDFBytes,
			VerifyStructure: cfg.VerifyPDFStructure,
		}),
		Tracker:  tracker,
		Patterns: acquire.NewPatternLearner(db),
		Retries:  retries,
		Lookup:   lookup,
		Logger:   log,
	})

	runner := worker.NewBatchRunner(engine, db, cfg.DownloadDelay, log)
	batches := NewBatchService(db, runner, cfg.DownloadsDir, cfg.StaleThreshold, log)
	sweeper := worker.NewRetrySweeper(retries, engine, batches.ProjectDir, batches.Busy, cfg.RetryPollInterval, log)

	return &Container{
		DB:        db,
		Registry:  reg,
		Engine:    engine,
		Retries:   retries,
		Runner:    runner,
		Sweeper:   sweeper,
		Projects:  NewProjectService(db, log),
		Batches:   batches,
		Sources:   NewSourceService(reg, tracker, log),
		Validator: validate.NewService(lookup, validate.Config{
			Workers:  cfg.ValidationWorkers,
			CacheTTL: cfg.ValidationCacheTTL,
			Delay:    cfg.ValidationDelay,
		}, log),
		Logger: log,
	}, nil
}

// Close interrupts running batches and closes the database.
func (c *Container) Close() error {
	c.Runner.Shutdown()
	return c.DB.Close()
}
