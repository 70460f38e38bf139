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

	"github.com/residoken-wq/mini-shop-app-sub001/internal/auth"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/config"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/event"
	handler "github.com/residoken-wq/mini-shop-app-sub001/internal/handler/http"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/notify"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository/postgres"
	redisrepo "github.com/residoken-wq/mini-shop-app-sub001/internal/repository/redis"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	"github.com/residoken-wq/mini-shop-app-sub001/migrations"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/health"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/middleware"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/tracing"
)

// eventDedupTTL bounds how long a consumed event id is remembered.
const eventDedupTTL = 24 * time.Hour

// App wires together all dependencies and runs the shop server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, config.ServiceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	// Initialize Redis. Sessions live here, so it is required.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producer. An unreachable broker only degrades
	// notifications, the shop keeps serving.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := producer.Ping(ctx); err != nil {
		logger.Warn("kafka unreachable, events will be dropped until it recovers",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	orderRepo := postgres.NewOrderRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	promotionRepo := postgres.NewPromotionRepository(pool)
	carrierRepo := postgres.NewCarrierRepository(pool)
	partyRepo := postgres.NewPartyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionStore := redisrepo.NewSessionStore(redisClient)
	eventProducer := event.NewProducer(producer, logger)

	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)
	promotionService := service.NewPromotionService(promotionRepo, productRepo, logger)
	svcs := handler.Services{
		Orders:     service.NewOrderService(orderRepo, productRepo, partyRepo, carrierRepo, promotionService, eventProducer, logger),
		Catalog:    service.NewCatalogService(productRepo, carrierRepo, partyRepo, eventProducer, logger),
		Promotions: promotionService,
		Auth:       service.NewAuthService(userRepo, sessionStore, tokens, logger),
	}

	if err := svcs.Auth.EnsureSeedAdmin(ctx, cfg.SeedAdminUsername, cfg.SeedAdminPassword); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("seed admin account: %w", err)
	}

	// Notification consumers.
	consumerHandler := event.NewConsumerHandler(emailSender(cfg, logger), smsSender(cfg, logger), cfg.ShopInbox, logger)
	dedup := redisrepo.NewIdempotencyStore(redisClient, eventDedupTTL)
	consumers := event.NewConsumers(cfg.KafkaBrokers, consumerHandler, dedup, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:   config.ServiceName,
		ShopName:      cfg.ShopName,
		SessionCookie: cfg.SessionCookie,
		SecureCookie:  cfg.IsProduction(),
		CORS:          corsCfg,
		PprofCIDRs:    cfg.PprofCIDRs,

		LoginRateLimit: cfg.LoginRateLimit,
		LoginRateBurst: cfg.LoginRateBurst,
	}, svcs, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		consumers:      consumers,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func emailSender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	if !cfg.EmailEnabled() {
		logger.Info("SMTP not configured, emails are logged only")
		return notify.NewLogSender(notify.ChannelEmail, logger)
	}
	return notify.NewEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func smsSender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	if !cfg.SMSEnabled() {
		logger.Info("SMS gateway not configured, texts are logged only")
		return notify.NewLogSender(notify.ChannelSMS, logger)
	}
	return notify.NewSMSSender(notify.SMSConfig{
		APIURL: cfg.SMSAPIURL,
		APIKey: cfg.SMSAPIKey,
		Sender: cfg.SMSSender,
	}, logger)
}

// Run starts the HTTP server and Kafka consumers, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, consumer := range a.consumers {
		c := consumer
		go func() {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
			}
		}()
	}

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
// 3. Kafka consumers and producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
