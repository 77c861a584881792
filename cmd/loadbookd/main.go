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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightline/loadbook/internal/async"
	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/crm"
	"github.com/freightline/loadbook/internal/export"
	"github.com/freightline/loadbook/internal/geo"
	"github.com/freightline/loadbook/internal/gmail"
	"github.com/freightline/loadbook/internal/ingest"
	"github.com/freightline/loadbook/internal/llm/openai"
	"github.com/freightline/loadbook/internal/pdftext"
	"github.com/freightline/loadbook/internal/reconcile"
	"github.com/freightline/loadbook/internal/repository"
	"github.com/freightline/loadbook/internal/sched"
	"github.com/freightline/loadbook/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store: postgres for real deployments, memory for local hacking.
	var (
		pool         *pgxpool.Pool
		loads        repository.LoadRepository
		brokers      repository.BrokerRepository
		interactions repository.InteractionRepository
		tasks        repository.TaskRepository
		health       server.HealthChecker
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory store; data will not survive restart")
		mem := repository.NewMemoryStore()
		loads = mem.Loads()
		brokers = mem.Brokers()
		interactions = mem.Interactions()
		tasks = mem.Tasks()
		health = func(context.Context) error { return nil }
	default:
		var err error
		pool, err = repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)

		if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
			logger.Error("database health check failed", "error", err)
			os.Exit(1)
		}
		if err := repository.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		loads = repository.NewLoadRepository(pool, logger)
		brokers = repository.NewBrokerRepository(pool, logger)
		interactions = repository.NewInteractionRepository(pool, logger)
		tasks = repository.NewTaskRepository(pool, logger)
		health = func(ctx context.Context) error {
			return repository.HealthCheck(ctx, pool, 3*time.Second, logger)
		}
	}

	// Pipeline components.
	textExtractor := pdftext.NewExtractor(cfg.Extract.PdftotextBin, cfg.Extract.Timeout, logger)
	llmClient := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	distance := geo.NewClient(geo.Config{
		BaseURL: cfg.Routing.BaseURL,
		APIKey:  cfg.Routing.APIKey,
		Timeout: cfg.Routing.Timeout,
	}, logger)
	mailbox := gmail.NewClient(gmail.Config{
		BaseURL: cfg.Gmail.BaseURL,
		Query:   cfg.Gmail.Query,
		MaxPDFs: cfg.Gmail.MaxPDFs,
	}, logger)

	aggregator := crm.NewAggregator(brokers, logger)
	queue := async.NewSyncQueue(func(ctx context.Context, account string) error {
		all, err := loads.ListByAccount(ctx, account)
		if err != nil {
			return err
		}
		_, _, err = aggregator.SyncFromLoads(ctx, account, all)
		return err
	}, logger)

	engine := reconcile.NewEngine(logger)
	ingestSvc := ingest.NewService(textExtractor, llmClient, distance, mailbox, loads, engine, queue, logger)
	exporter := export.NewService(logger)

	scheduler, err := sched.New(cfg.Gmail.SyncCron, common.DefaultAccount, cfg.Gmail.SyncToken, ingestSvc, logger)
	if err != nil {
		logger.Error("invalid gmail sync cron spec", "spec", cfg.Gmail.SyncCron, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := server.New(ingestSvc, loads, brokers, interactions, tasks, aggregator, exporter, health, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
