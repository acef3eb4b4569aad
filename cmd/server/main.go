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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/welldanyogia/paperboy/internal/api"
	"github.com/welldanyogia/paperboy/internal/api/middleware"
	"github.com/welldanyogia/paperboy/internal/archive"
	"github.com/welldanyogia/paperboy/internal/classifier"
	"github.com/welldanyogia/paperboy/internal/config"
	"github.com/welldanyogia/paperboy/internal/database"
	"github.com/welldanyogia/paperboy/internal/digest"
	"github.com/welldanyogia/paperboy/internal/extractor"
	"github.com/welldanyogia/paperboy/internal/feeds"
	"github.com/welldanyogia/paperboy/internal/ingest"
	"github.com/welldanyogia/paperboy/internal/jobs"
	"github.com/welldanyogia/paperboy/internal/links"
	"github.com/welldanyogia/paperboy/internal/logger"
	"github.com/welldanyogia/paperboy/internal/mail"
	"github.com/welldanyogia/paperboy/internal/metrics"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/smtp"
	"github.com/welldanyogia/paperboy/internal/storage"
	"github.com/welldanyogia/paperboy/internal/summarizer"
	"github.com/welldanyogia/paperboy/internal/websocket"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout     = 15 * time.Second
	limiterCleanupEvery = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(log)
	log.Info("starting paperboy")
	cfg.LogConfig(log)

	db, err := database.Connect(cfg.DatabaseURL,
		database.WithProduction(cfg.IsProduction()),
		database.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Repositories
	articleRepo := repository.NewArticleRepository(db)
	newsletterRepo := repository.NewNewsletterRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	digestRepo := repository.NewDigestRepository(db)
	inboundRepo := repository.NewInboundRepository(db)
	outboundRepo := repository.NewOutboundRepository(db)

	store, err := storage.NewStore(cfg.ArticlesPath, log)
	if err != nil {
		return fmt.Errorf("open article store: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sum, err := summarizer.New(cfg.Summarizer, summarizer.WithLogger(log.With("component", "summarizer")))
	if err != nil {
		return fmt.Errorf("configure summarizer: %w", err)
	}

	// Delivery stays off until a relay and device address are configured
	var (
		articleDeliverer ingest.Deliverer
		digestSender     digest.Sender
	)
	if cfg.Outbound.Enabled() {
		deliverer := mail.NewDeliverer(mail.DelivererConfig{
			Outbound: cfg.Outbound,
			Log:      outboundRepo,
			Logger:   log,
		})
		articleDeliverer = deliverer
		digestSender = deliverer
	} else {
		log.Warn("outbound delivery is not configured")
	}

	hub := websocket.NewHub(log.With("component", "websocket"))
	go hub.Run()
	defer hub.Stop()

	pool := ingest.NewPool(cfg.IngestWorkers, 0, log)
	metrics.RegisterQueueDepth(registry, pool.Pending)
	pool.Start()
	defer pool.Stop()

	svc := ingest.NewService(ingest.Config{
		Articles:    articleRepo,
		Newsletters: newsletterRepo,
		Store:       store,
		Extractor: extractor.New(extractor.Config{
			Timeout:  cfg.FetchTimeout,
			Observer: collector,
			Logger:   log.With("component", "extractor"),
		}),
		Links:      links.NewExtractor(classifier.NewHeuristics()),
		Summarizer: sum,
		Deliverer:  articleDeliverer,
		Pool:       pool,
		Events:     hub,
		Observer:   collector,
		Logger:     log,
	})

	router := ingest.NewRouter(svc)
	engine := archive.New(archive.Config{
		Repo:     archiveRepo,
		Router:   router,
		Observer: archive.Observers{collector, hub},
		Logger:   log,
	})
	processor := ingest.NewProcessor(engine, router, log)

	composer := digest.New(digest.Config{
		Articles:   articleRepo,
		Digests:    digestRepo,
		Overviewer: sum,
		Sender:     digestSender,
		Logger:     log,
	})
	importer := feeds.NewImporter(feeds.Config{
		Articles: svc,
		Timeout:  cfg.FetchTimeout,
		Logger:   log,
	})

	// Background jobs
	poller := jobs.NewInboxPoller(inboundRepo, processor, jobs.InboxPollerConfig{
		Interval: cfg.PollInterval,
		Batch:    cfg.PollBatch,
	}, log)
	scheduler := jobs.NewDigestScheduler(composer, jobs.DigestSchedulerConfig{
		Interval: cfg.DigestInterval,
	}, log)

	// SMTP listener spools into the inbound table and wakes the poller
	security := logger.NewSecurityLogger(log)
	backend := smtp.NewBackend(&smtp.BackendConfig{
		Spool:           inboundRepo,
		AcceptedDomains: cfg.AcceptedDomains,
		OnSpooled:       func(uint) { poller.Trigger() },
		Logger:          log,
		Security:        security,
	})
	smtpServer := smtp.NewSecureServer(backend, smtp.NewServerConfig(cfg))

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
	e := api.NewRouter(&api.RouterConfig{
		Config:      cfg,
		DB:          db,
		Logger:      log,
		Security:    security,
		Articles:    svc,
		Newsletters: svc,
		Archive:     engine,
		Emails:      processor,
		Feeds:       importer,
		Digests:     composer,
		Backlog:     inboundRepo,
		Hub:         hub,
		Metrics:     metrics.Handler(registry),
		Limiter:     limiter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller.Start()
	scheduler.Start()
	go cleanupLimiter(ctx, limiter)

	errCh := make(chan error, 2)
	go func() {
		log.Info("SMTP server listening", slog.String("addr", smtpServer.Addr))
		if err := smtpServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("smtp server: %w", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed, shutting down", slog.String("error", runErr.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	if err := smtpServer.Close(); err != nil {
		log.Error("smtp shutdown failed", slog.String("error", err.Error()))
	}
	poller.Stop()
	scheduler.Stop()

	log.Info("server stopped")
	return runErr
}

func cleanupLimiter(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.CleanupOldEntries(limiterCleanupEvery)
		}
	}
}
