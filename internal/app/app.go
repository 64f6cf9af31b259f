package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/shopcart/internal/catalog"
	"github.com/utafrali/shopcart/internal/config"
	"github.com/utafrali/shopcart/internal/event"
	handler "github.com/utafrali/shopcart/internal/handler/http"
	internalauth "github.com/utafrali/shopcart/internal/auth"
	"github.com/utafrali/shopcart/internal/repository/postgres"
	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/migrations"
	"github.com/utafrali/shopcart/pkg/database"
	"github.com/utafrali/shopcart/pkg/health"
	"github.com/utafrali/shopcart/pkg/httpclient"
	pkgkafka "github.com/utafrali/shopcart/pkg/kafka"
	"github.com/utafrali/shopcart/pkg/middleware"
	"github.com/utafrali/shopcart/pkg/tracing"
)

// App wires together all dependencies and runs the shopcart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "shopcart",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "shopcart")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis for the catalog cache; optional.
	var redisClient *redis.Client
	if cfg.CacheEnabled {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("port", cfg.RedisPort),
		)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Parse JWT expiry duration.
	expiry, err := time.ParseDuration(cfg.JWTExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT expiry %q: %w", cfg.JWTExpiry, err)
	}

	// Build the dependency graph.
	jwtManager := internalauth.NewJWTManager(cfg.JWTSecret, expiry)
	accountRepo := postgres.NewAccountRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	// Catalog gateway: remote when a base URL is configured, the local items
	// table otherwise, with an optional Redis read-through cache on top.
	var gateway catalog.Gateway
	if cfg.CatalogBaseURL != "" {
		cbClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog"),
			logger,
		)
		gateway = catalog.NewRemoteGateway(cbClient, cfg.CatalogBaseURL)
		logger.Info("using remote catalog", slog.String("base_url", cfg.CatalogBaseURL))
	} else {
		gateway = catalog.NewLocalGateway(itemRepo)
	}

	var cachedGateway *catalog.CachedGateway
	if redisClient != nil {
		cachedGateway = catalog.NewCachedGateway(
			gateway,
			redisClient,
			time.Duration(cfg.CacheTTLSeconds)*time.Second,
			logger,
		)
		gateway = cachedGateway
	}

	authService := service.NewAuthService(accountRepo, sessionRepo, jwtManager, eventProducer, logger)
	itemService := service.NewItemService(itemRepo, gateway, cachedGateway, logger)
	cartService := service.NewCartService(cartRepo, gateway, eventProducer, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, gateway, eventProducer, logger)
	orderService := service.NewOrderService(orderRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(
		authService,
		itemService,
		cartService,
		checkoutService,
		orderService,
		healthHandler,
		logger,
		handler.RouterConfig{
			CORS: middleware.CORSConfig{
				AllowedOrigins: cfg.CORSAllowedOrigins,
				Environment:    cfg.Environment,
			},
			RateLimitRPS:   cfg.AuthRateLimitRPS,
			RateLimitBurst: cfg.AuthRateLimitBurst,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
