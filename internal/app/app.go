package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/config"
	"github.com/anuragpardeshii/MediCare/internal/event"
	handler "github.com/anuragpardeshii/MediCare/internal/handler/http"
	"github.com/anuragpardeshii/MediCare/internal/repository/postgres"
	"github.com/anuragpardeshii/MediCare/internal/search"
	esengine "github.com/anuragpardeshii/MediCare/internal/search/elasticsearch"
	"github.com/anuragpardeshii/MediCare/internal/service"
	"github.com/anuragpardeshii/MediCare/migrations"
	"github.com/anuragpardeshii/MediCare/pkg/database"
	"github.com/anuragpardeshii/MediCare/pkg/health"
	pkgkafka "github.com/anuragpardeshii/MediCare/pkg/kafka"
	"github.com/anuragpardeshii/MediCare/pkg/middleware"
	"github.com/anuragpardeshii/MediCare/pkg/ratelimit"
	"github.com/anuragpardeshii/MediCare/pkg/tracing"
)

// App wires together all dependencies and runs the clinic API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	publisher      pkgkafka.Publisher
	limiter        ratelimit.Limiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// New creates the application, connecting to every backing service.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeBackends()
		}
	}()

	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Domain events.
	a.publisher = pkgkafka.NopPublisher{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(cfg.Kafka(), logger)
		a.publisher = pkgkafka.NewBreakerPublisher(producer, pkgkafka.DefaultBreakerConfig("kafka"), logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Auth rate limiting: shared through Redis when enabled, per instance otherwise.
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.limiter = ratelimit.NewRedis(client, cfg.AuthRateLimitPerMinute, time.Minute)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	} else {
		a.limiter = ratelimit.NewMemory(cfg.AuthRateLimitPerMinute, time.Minute)
	}

	// Doctor search. An unreachable cluster degrades to database matching
	// rather than blocking startup.
	var doctorIndex search.DoctorIndex
	if cfg.ElasticsearchEnabled {
		engine, err := esengine.New(ctx, esengine.Config{URL: cfg.ElasticsearchURL, Index: cfg.ElasticsearchIndex}, logger)
		if err != nil {
			logger.Warn("elasticsearch unavailable, doctor search will use the database",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("error", err.Error()),
			)
		} else {
			doctorIndex = engine
			healthHandler.RegisterNonCritical("elasticsearch", engine.Ping)
			logger.Info("connected to Elasticsearch", slog.String("index", cfg.ElasticsearchIndex))
		}
	}

	httpMetrics, err := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, config.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	// Build the dependency graph.
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTokenExpiry)
	cookie := auth.NewSessionCookie(tokens.Expiry(), cfg.SecureCookies())
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	userRepo := postgres.NewUserRepository(pool)
	appointmentRepo := postgres.NewAppointmentRepository(pool)
	events := event.NewProducer(a.publisher, logger)

	authService := service.NewAuthService(userRepo, hasher, tokens, events, logger)
	userService := service.NewUserService(userRepo, logger)
	if doctorIndex != nil {
		authService.WithDoctorIndex(doctorIndex)
		userService.WithDoctorIndex(doctorIndex)
		if _, err := userService.ReindexDoctors(ctx); err != nil {
			logger.Warn("doctor search reindex failed", slog.String("error", err.Error()))
		}
	}
	appointmentService := service.NewAppointmentService(appointmentRepo, events, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authService, cookie, logger),
		Users:          handler.NewUserHandler(userService, logger),
		Appointments:   handler.NewAppointmentHandler(appointmentService, logger),
		Sessions:       authService,
		Cookie:         cookie,
		Health:         healthHandler,
		Metrics:        httpMetrics,
		AuthLimiter:    a.limiter,
		TrustedProxies: cfg.TrustedProxies(),
		CORS:           middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins, cfg.Environment),
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeBackends()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in order: HTTP server (drain in-flight requests),
// tracer (flush their spans), Kafka, Redis, then PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeBackends releases whatever New managed to open.
func (a *App) closeBackends() error {
	var errs []error

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
