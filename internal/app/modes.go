package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
	"github.com/teejy22/liquidlab-revenue/internal/pipeline"
	"github.com/teejy22/liquidlab-revenue/internal/platform/hyperliquid"
	"github.com/teejy22/liquidlab-revenue/internal/server"
	"github.com/teejy22/liquidlab-revenue/internal/server/handler"
)

// components are the pipeline pieces shared by the modes. Both the scheduler
// jobs and the HTTP trigger endpoints drive the same instances, so the
// re-entrancy guards hold across entry points.
type components struct {
	ingestor  *pipeline.Ingestor
	preparer  *pipeline.PayoutPreparer
	reporter  *pipeline.Reporter
	scheduler *pipeline.Scheduler
}

// buildComponents wires the pipeline components from deps and registers the
// scheduler jobs. The scheduler is returned unstarted; server-only mode
// registers jobs for manual triggers without running the cron loop.
func (a *App) buildComponents(deps *Dependencies) (*components, error) {
	aggregator := pipeline.NewAggregator(deps.LedgerStore, deps.SummaryStore, deps.RevenueCache, a.logger)

	ingestor := pipeline.NewIngestor(
		deps.PlatformStore,
		deps.Venue,
		deps.LedgerStore,
		deps.CheckpointStore,
		aggregator,
		deps.Policy,
		deps.LockManager,
		deps.Notifier,
		a.cfg.Pipeline.LockTTL.Duration,
		a.cfg.Pipeline.MaxConcurrent,
		a.logger,
	)

	preparer := pipeline.NewPayoutPreparer(
		deps.PlatformStore,
		deps.SummaryStore,
		deps.PayoutStore,
		deps.PayoutExecutor,
		deps.Notifier,
		deps.LockManager,
		deps.MinPayout,
		a.cfg.Pipeline.LockTTL.Duration,
		a.logger,
	)

	var reporter *pipeline.Reporter
	if deps.BlobWriter != nil {
		reporter = pipeline.NewReporter(deps.PlatformStore, deps.LedgerStore, deps.BlobWriter, a.logger)
	}

	sched := pipeline.NewScheduler(a.logger)

	ingestJob := pipeline.Job{
		Name: "ingest",
		Run: func(ctx context.Context) error {
			_, err := ingestor.RunCycle(ctx)
			if errors.Is(err, domain.ErrIngestionRunning) {
				a.logger.Info("ingestion cycle already running, skipped")
				return nil
			}
			return err
		},
	}
	ingestCron := a.cfg.Pipeline.IngestCron
	if ingestCron == "" {
		ingestCron = "@every " + a.cfg.Pipeline.IngestInterval.Duration.String()
	}
	if err := sched.Register(ingestCron, ingestJob); err != nil {
		return nil, fmt.Errorf("app: register ingest job: %w", err)
	}
	if a.cfg.Pipeline.RunOnStartup {
		sched.RunOnStartup(ingestJob)
	}

	if err := sched.Register(a.cfg.Payout.Cron, pipeline.Job{
		Name: "payouts",
		Run: func(ctx context.Context) error {
			err := preparer.RunCycle(ctx)
			if errors.Is(err, domain.ErrPayoutRunning) {
				a.logger.Info("payout cycle already running, skipped")
				return nil
			}
			return err
		},
	}); err != nil {
		return nil, fmt.Errorf("app: register payout job: %w", err)
	}

	if reporter != nil {
		if err := sched.Register(a.cfg.Pipeline.ReportCron, pipeline.Job{
			Name: "report",
			Run:  reporter.Run,
		}); err != nil {
			return nil, fmt.Errorf("app: register report job: %w", err)
		}
	}

	return &components{
		ingestor:  ingestor,
		preparer:  preparer,
		reporter:  reporter,
		scheduler: sched,
	}, nil
}

// PipelineMode runs ingestion, aggregation, payouts, and report export on
// their schedules without the HTTP API.
func (a *App) PipelineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting pipeline mode")

	comps, err := a.buildComponents(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, comps)
	return g.Wait()
}

// ServerMode runs the HTTP API only. Scheduler jobs stay registered for the
// manual trigger endpoint but no cron loop runs.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	comps, err := a.buildComponents(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, comps)
	return g.Wait()
}

// FullMode runs the pipeline and the HTTP API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	comps, err := a.buildComponents(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, comps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, comps)
	}
	return g.Wait()
}

// startPipeline starts the scheduler and, when enabled, the live fill stream.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, comps *components) {
	if !a.cfg.Pipeline.Enabled {
		a.logger.WarnContext(ctx, "pipeline.enabled is false, scheduler not started")
		return
	}

	comps.scheduler.Start(ctx)
	g.Go(func() error {
		<-ctx.Done()
		comps.scheduler.Stop()
		return ctx.Err()
	})

	if a.cfg.Hyperliquid.WsEnabled {
		a.startFillStream(ctx, g, deps, comps)
	}
}

// startFillStream subscribes the live userFills channel for every active
// platform wallet and feeds batches through the ingestor. Checkpoints are
// not advanced for streamed fills; the next poll re-covers and dedups them.
func (a *App) startFillStream(ctx context.Context, g *errgroup.Group, deps *Dependencies, comps *components) {
	platforms, err := deps.PlatformStore.ListActive(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "fill stream: list platforms failed, stream disabled",
			slog.String("error", err.Error()),
		)
		return
	}

	// Wallet -> platform for routing inbound fills.
	byWallet := make(map[string]string, len(platforms))
	for _, p := range platforms {
		if p.WalletAddress == "" {
			continue
		}
		byWallet[strings.ToLower(p.WalletAddress)] = p.ID
	}
	if len(byWallet) == 0 {
		a.logger.InfoContext(ctx, "fill stream: no platform wallets to subscribe")
		return
	}

	ws := hyperliquid.NewWSClient(a.cfg.Hyperliquid.WsURL, func(wallet string, fills []domain.Fill) {
		platformID, ok := byWallet[strings.ToLower(wallet)]
		if !ok {
			return
		}
		ingestCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := comps.ingestor.IngestLive(ingestCtx, platformID, fills); err != nil {
			a.logger.Error("live fill ingestion failed",
				slog.String("platform_id", platformID),
				slog.String("error", err.Error()),
			)
		}
	}, a.logger)

	for wallet := range byWallet {
		if err := ws.SubscribeUserFills(wallet); err != nil {
			a.logger.ErrorContext(ctx, "fill stream: subscribe failed",
				slog.String("wallet", wallet),
				slog.String("error", err.Error()),
			)
		}
	}

	g.Go(func() error {
		return ws.Run(ctx)
	})
}

// startHTTPServer adds an HTTP server goroutine to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, comps *components) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pingerFunc(deps.PostgresPing),
			"redis":    pingerFunc(deps.RedisPing),
		}, a.logger),
		Platforms: handler.NewPlatformHandler(deps.PlatformStore, a.logger),
		Revenue:   handler.NewRevenueHandler(deps.LedgerStore, deps.SummaryStore, deps.RevenueCache, a.logger),
		Payouts:   handler.NewPayoutHandler(deps.PayoutStore, comps.preparer, comps.preparer, a.logger),
		Pipeline:  handler.NewPipelineHandler(comps.scheduler, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AdminKey:    a.cfg.Server.AdminKey,
		RateLimit:   120,
		RateWindow:  time.Minute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed",
				slog.String("error", err.Error()),
			)
		}
		return ctx.Err()
	})
}

// pingerFunc adapts a plain function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	if f == nil {
		return nil
	}
	return f(ctx)
}
