package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"counsel/backend/internal/config"
	"counsel/backend/internal/events"
	"counsel/backend/internal/observability/metrics"
	"counsel/backend/internal/service/ledger"
	"counsel/backend/internal/service/planner"
	"counsel/backend/internal/service/slots"
	"counsel/backend/internal/service/summary"
	"counsel/backend/internal/store"
	"counsel/backend/internal/store/memory"
	"counsel/backend/internal/store/postgres"
	grpcTransport "counsel/backend/internal/transport/grpc"
	"counsel/backend/internal/transport/httpapi"
)

type storage interface {
	store.Store
	store.Outbox
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "counsel-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "counsel-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("storage", cfg.StorageDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, ready, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		os.Exit(1)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(reg)

	slotSvc := slots.NewService(st, log)
	ledgerSvc := ledger.NewService(st, ledger.Config{
		OnePerDay: cfg.BookingOnePerDay,
		Metrics:   m,
		Logger:    log,
	})
	plannerSvc := planner.NewService(st, m, log)
	summarySvc := summary.NewService(st)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcTransport.DefaultTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(grpcTransport.Services{
		Slots:   slotSvc,
		Ledger:  ledgerSvc,
		Planner: plannerSvc,
		Summary: summarySvc,
	}, log))

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Config{
			Services: httpapi.Services{
				Slots:   slotSvc,
				Ledger:  ledgerSvc,
				Planner: plannerSvc,
				Summary: summarySvc,
			},
			Logger:         log,
			CORSOrigins:    cfg.CORSOrigins,
			RateLimit:      cfg.RateLimitPerSecond,
			RateBurst:      cfg.RateLimitBurst,
			Ready:          ready,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	handler, closeHandler, err := eventHandler(ctx, cfg, log)
	if err != nil {
		os.Exit(1)
	}
	defer closeHandler()
	deliverer := events.NewDeliverer(st, handler, log).
		WithBatchSize(cfg.OutboxBatch).
		WithInterval(cfg.OutboxInterval).
		WithMetrics(m)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return deliverer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// openStorage logs its own failures.
func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (storage, func(context.Context) error, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil, func() {}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			closeDB()
			return nil, nil, nil, err
		}
		if v, err := postgres.MigrationVersion(ctx, db); err == nil {
			log.Info("database migrated", slog.Int64("version", v))
		}
	}

	return postgres.NewStore(db), db.PingContext, closeDB, nil
}

// eventHandler publishes to Redis when configured and otherwise only logs
// outbox events.
func eventHandler(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Handler, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("redis not configured; outbox events are logged only")
		return events.LogHandler(log), func() {}, nil
	}

	client, err := events.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", slog.Any("err", err))
		return nil, nil, err
	}
	log.Info("publishing outbox events", slog.String("stream", cfg.RedisStream))
	return events.NewRedisStreamPublisher(client, cfg.RedisStream, cfg.RedisStreamMax), func() { closeRedis(log, client) }, nil
}

func closeRedis(log *slog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Warn("redis close failed", slog.Any("err", err))
	}
}

func shutdown(log *slog.Logger, g *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
