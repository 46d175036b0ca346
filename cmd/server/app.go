package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	govhandler "aegis/internal/governance/handler"
	govmetrics "aegis/internal/governance/metrics"
	govservice "aegis/internal/governance/service"
	govstore "aegis/internal/governance/store"
	"aegis/internal/orchestrator"
	orchhandler "aegis/internal/orchestrator/handler"
	"aegis/internal/platform/config"
	"aegis/internal/platform/httpserver"
	"aegis/internal/platform/kafka"
	platformmetrics "aegis/internal/platform/metrics"
	"aegis/internal/platform/postgres"
	"aegis/internal/platform/redis"
	treasuryhandler "aegis/internal/treasury/handler"
	treasurymetrics "aegis/internal/treasury/metrics"
	"aegis/internal/treasury/models"
	treasuryservice "aegis/internal/treasury/service"
	treasurystore "aegis/internal/treasury/store"
	"aegis/pkg/platform/audit/publisher"
	auditmemory "aegis/pkg/platform/audit/store/memory"
	"aegis/pkg/platform/audit/worker"
	"aegis/pkg/platform/httputil"
	"aegis/pkg/platform/middleware/auth"
	"aegis/pkg/platform/middleware/metadata"
	"aegis/pkg/platform/middleware/ratelimit"
	"aegis/pkg/platform/middleware/request"
	"aegis/pkg/platform/middleware/requesttime"
)

// app is the wired process. On exit, stoppers end intake, workers drain, then closers
// release connections in reverse order of acquisition.
type app struct {
	router   http.Handler
	workers  []func(context.Context) error
	stoppers []func()
	closers  []func(context.Context) error
	checks   map[string]func(context.Context) error
}

func run(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	a, err := build(ctx, cfg, logger)
	if err != nil {
		a.close(logger, cfg.ShutdownTimeout)
		return err
	}

	// Workers outlive the request context so queued audit events are shipped after the
	// listener stops.
	var workers errgroup.Group
	workerCtx := context.WithoutCancel(ctx)
	for _, w := range a.workers {
		workers.Go(func() error { return w(workerCtx) })
	}

	runErr := httpserver.Run(ctx, httpserver.New(cfg.Addr, a.router), cfg.ShutdownTimeout, logger)

	for _, stop := range a.stoppers {
		stop()
	}
	if err := workers.Wait(); err != nil {
		logger.Warn("audit worker stopped with error", "error", err)
	}

	a.close(logger, cfg.ShutdownTimeout)
	return runErr
}

func (a *app) close(logger *slog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{checks: map[string]func(context.Context) error{}}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auditPublisher, err := a.auditPublisher(ctx, cfg, logger)
	if err != nil {
		return a, err
	}

	vaultStore, err := a.treasuryStore(ctx, cfg)
	if err != nil {
		return a, err
	}
	treasury := treasuryservice.New(vaultStore,
		treasuryservice.WithLogger(logger),
		treasuryservice.WithMetrics(treasurymetrics.New(reg)),
		treasuryservice.WithAuditPublisher(auditPublisher),
	)

	instanceStore, err := a.governanceStore(ctx, cfg)
	if err != nil {
		return a, err
	}
	governance := govservice.New(instanceStore,
		govservice.WithLogger(logger),
		govservice.WithMetrics(govmetrics.New(reg)),
		govservice.WithAuditPublisher(auditPublisher),
	)

	orch, err := orchestrator.New(governance, treasury, cfg.Factory(),
		orchestrator.WithLogger(logger),
		orchestrator.WithAuditPublisher(auditPublisher),
		orchestrator.WithCompensation(cfg.CompensateUnfunded),
	)
	if err != nil {
		return a, err
	}

	httpMetrics := platformmetrics.New(reg)
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recover(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(cfg.RateLimit.TrustForwarded))
	r.Use(auth.CallerIdentity(logger))
	r.Use(request.AccessLog(logger))
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", a.ready(logger))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, logger, httpMetrics.RateLimited.Inc))
		orchhandler.New(orch, logger).Register(r)
		treasuryhandler.New(treasury, logger).Register(r)
		govhandler.New(governance, logger).Register(r)
	})
	a.router = r

	logger.Info("aegis wired",
		"factory", cfg.Factory(),
		"compensate_unfunded", cfg.CompensateUnfunded,
		"treasury_store", storeKind(cfg.Postgres.URL, "postgres"),
		"governance_store", storeKind(cfg.Redis.URL, "redis"),
		"audit_sink", storeKind(firstOrEmpty(cfg.Kafka.Brokers), "kafka"),
	)
	return a, nil
}

// auditPublisher buffers into memory, or queues for a worker that ships to Kafka.
func (a *app) auditPublisher(ctx context.Context, cfg config.Server, logger *slog.Logger) (*publisher.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		pub := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
			publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
			publisher.WithLogger(logger),
		)
		a.stoppers = append(a.stoppers, pub.Close)
		return pub, nil
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}
	queue := worker.NewQueue(cfg.Audit.BufferSize)
	pub := publisher.NewPublisher(queue, publisher.WithLogger(logger))
	w := worker.NewWorker(producer, queue.Events(), logger)
	a.workers = append(a.workers, w.Run)
	a.stoppers = append(a.stoppers, pub.Close, queue.Close)
	a.closers = append(a.closers, producer.Close)
	a.checks["kafka"] = producer.Health
	return pub, nil
}

func (a *app) treasuryStore(ctx context.Context, cfg config.Server) (treasuryservice.Store, error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return treasurystore.NewInMemory(models.NewVault(cfg.Factory(), cfg.Funders()...)), nil
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	a.checks["postgres"] = db.PingContext

	store := treasurystore.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := store.Bootstrap(ctx, cfg.Factory(), cfg.Funders()...); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) governanceStore(ctx context.Context, cfg config.Server) (govservice.Store, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return govstore.NewInMemory(), nil
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.checks["redis"] = client.Health
	return govstore.NewRedis(client.Client, govstore.WithMaxRetries(cfg.Redis.MaxRetries)), nil
}

// readyCheckTimeout bounds each dependency check on /readyz.
const readyCheckTimeout = 2 * time.Second

// ready pings every configured backing service. In-memory deployments are always ready.
func (a *app) ready(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(a.checks))
		for name, check := range a.checks {
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "dependency", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
	}
}

func storeKind(url, kind string) string {
	if url == "" {
		return "memory"
	}
	return kind
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
