package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/evstream/cdc-service/internal/adapters/cache"
	eventadapter "github.com/evstream/cdc-service/internal/adapters/events"
	httpadapter "github.com/evstream/cdc-service/internal/adapters/http"
	"github.com/evstream/cdc-service/internal/adapters/postgres"
	"github.com/evstream/cdc-service/internal/adapters/upstream"
	"github.com/evstream/cdc-service/internal/adapters/ws"
	"github.com/evstream/cdc-service/internal/application"
	"github.com/evstream/cdc-service/internal/ports"
	"github.com/evstream/cdc-service/internal/stream"
)

// Runtime owns every client and loop in the service. Construction either
// fully succeeds or returns an error; nothing is initialized lazily.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	pipeline   *stream.Pipeline
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, logger, postgres.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.MaxDBConns,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, logger, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	repos := postgres.NewRepositories(db)

	var recentCache ports.RecentEventsCache
	var closeRedis func()
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			_ = sqlDB.Close()
			return nil, redisErr
		}
		recentCache = cache.NewRedisRecentEventsCache(redisClient, cfg.RecentEventsTTL)
		closeRedis = func() { _ = redisClient.Close() }
	}

	loggingPublisher := eventadapter.NewLoggingPublisher(logger)
	publisher := ports.EventPublisher(loggingPublisher)
	consumer := ports.EventConsumer(eventadapter.NewNoopConsumer())
	var logPinger ports.LogPinger
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(logger, cfg.KafkaBrokers, cfg.KafkaTopic)
		if pubErr != nil {
			_ = sqlDB.Close()
			if closeRedis != nil {
				closeRedis()
			}
			return nil, pubErr
		}
		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaTopic, cfg.ConsumerMaxWait)
		if conErr != nil {
			_ = kafkaPublisher.Close()
			_ = sqlDB.Close()
			if closeRedis != nil {
				closeRedis()
			}
			return nil, conErr
		}
		publisher = kafkaPublisher
		consumer = kafkaConsumer
		logPinger = kafkaPublisher
		closers = append(closers, kafkaConsumer, kafkaPublisher)
	} else {
		logger.Warn("kafka brokers not configured, using logging publisher and noop consumer")
		logPinger = loggingPublisher
	}

	var upstreamProbe ports.UpstreamProbe
	if cfg.UpstreamHealthURL != "" {
		upstreamProbe = upstream.NewHTTPProbe(cfg.UpstreamHealthURL)
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:  cfg.ServiceID,
			ProbeTimeout: cfg.ProbeTimeout,
		},
		Logger:    logger,
		Publisher: publisher,
		Events:    repos.Events,
		Cache:     recentCache,
		LogPinger: logPinger,
		Upstream:  upstreamProbe,
	})

	registry := stream.NewRegistry()
	queue := stream.NewFanoutQueue(cfg.FanoutQueueCapacity)
	broadcaster := stream.NewBroadcaster(logger, queue, registry)
	consumerWorker := eventadapter.NewConsumerWorker(logger, consumer, repos.Events, recentCache, repos.DeadLetters, queue, cfg.ConsumerBatchSize)
	pipeline := stream.NewPipeline(logger, consumerWorker, broadcaster, registry, closers...)

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler, ws.Handler(logger, registry))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		pipeline.Stop()
		_ = sqlDB.Close()
		if closeRedis != nil {
			closeRedis()
		}
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		pipeline:   pipeline,
		cleanupFn: func(ctx context.Context) {
			if closeRedis != nil {
				closeRedis()
			}
			_ = sqlDB.Close()
		},
	}, nil
}

// Run serves HTTP and gRPC with the pipeline loops running alongside, then
// tears everything down in order on signal or server failure.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.pipeline.Start(ctx)
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	r.logger.InfoContext(ctx, "cdc service started",
		"http_port", r.cfg.HTTPPort,
		"grpc_port", r.cfg.GRPCPort,
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.pipeline.Stop()
	r.cleanupFn(shutdownCtx)
	return nil
}
