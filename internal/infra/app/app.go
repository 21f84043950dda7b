package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/database"
	kafkainfra "github.com/bwanakweli4ever/prozlab-backend/internal/infra/kafka"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/notify"
	redisinfra "github.com/bwanakweli4ever/prozlab-backend/internal/infra/redis"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/telemetry"
	memoryrepo "github.com/bwanakweli4ever/prozlab-backend/internal/repository/memory"
	postgresrepo "github.com/bwanakweli4ever/prozlab-backend/internal/repository/postgres"
	redisrepo "github.com/bwanakweli4ever/prozlab-backend/internal/repository/redis"
	"github.com/bwanakweli4ever/prozlab-backend/internal/transport/http/handlers"
	"github.com/bwanakweli4ever/prozlab-backend/internal/transport/http/middleware"
	"github.com/bwanakweli4ever/prozlab-backend/internal/transport/http/routes"
	"github.com/bwanakweli4ever/prozlab-backend/internal/usecase"
)

// Application owns the wired object graph and the HTTP server lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.TracingEnabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	// Store backend selection happens once at startup. A Redis deployment
	// that cannot be reached falls back to the in-memory store for the
	// process lifetime rather than retrying per request.
	var (
		store       port.KVStore
		redisClient *redisinfra.Client
		backend     = cfg.Store.Backend
	)
	if backend == config.StoreBackendRedis {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory store", zap.Error(err))
			backend = config.StoreBackendMemory
		} else {
			store = redisrepo.NewKVStore(redisClient.Client(), cfg.Redis.KeyPrefix)
		}
	}
	if store == nil {
		backend = config.StoreBackendMemory
		store = memoryrepo.NewKVStore()
	}
	log.Info("verification store selected", zap.String("backend", string(backend)))

	var (
		pool  *pgxpool.Pool
		users port.UserRepository
	)
	if cfg.Postgres.Enabled {
		pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			if redisClient != nil {
				_ = redisClient.Close()
			}
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		users = postgresrepo.NewUserRepository(pool)
	} else {
		log.Info("postgres disabled, account flags will not be persisted")
	}

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			producer = nil
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	dispatcher, emailConfigured, smsEnabled, err := buildDispatcher(ctx, cfg, log)
	if err != nil {
		if producer != nil {
			_ = producer.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	limiter := usecase.NewRateLimiter(store, cfg.RateLimit.Threshold, cfg.RateLimit.WindowDuration)

	verificationService := usecase.NewVerificationService(cfg.Verification, store, limiter, dispatcher, eventPublisher, log)
	passwordResetService := usecase.NewPasswordResetService(verificationService, users, eventPublisher, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		if producer != nil {
			_ = producer.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	// The per-IP throttle shares the verification store but keeps its own
	// key scope, so endpoint abuse and identifier abuse are counted apart.
	ipLimiter := usecase.NewRateLimiter(store, cfg.RateLimit.Threshold, cfg.RateLimit.WindowDuration)

	deps := routes.Dependencies{
		Config:    cfg,
		Logger:    log,
		Users:     users,
		IPLimiter: ipLimiter,
		Metrics:   metrics,
		Status: handlers.StatusResponse{
			Service:         cfg.App.Name,
			Environment:     cfg.App.Env,
			StoreBackend:    string(backend),
			EmailConfigured: emailConfigured,
			SMSEnabled:      smsEnabled,
			EventsEnabled:   len(cfg.Kafka.Brokers) > 0,
			DevMode:         cfg.App.IsDevelopment(),
		},
		Services: routes.ServiceSet{
			Verification:  verificationService,
			PasswordReset: passwordResetService,
		},
	}
	if pool != nil {
		deps.Database = pool
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
	}, nil
}

// buildDispatcher assembles the notification dispatcher from the configured
// channels. Development deployments with neither SMTP nor SNS configured log
// credentials instead.
func buildDispatcher(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (port.NotificationDispatcher, bool, bool, error) {
	var mail notify.EmailSender
	if cfg.SMTP.Configured() {
		mail = notify.NewSMTPSender(cfg.SMTP, log)
	}

	var sms notify.SMSSender
	if cfg.SMS.Enabled {
		sender, err := notify.NewSNSSender(ctx, cfg.SMS.Region, log)
		if err != nil {
			return nil, false, false, fmt.Errorf("init sns sender: %w", err)
		}
		sms = sender
	}

	if mail == nil && sms == nil {
		if !cfg.App.IsDevelopment() {
			log.Warn("no delivery channels configured, credentials will only be logged")
		}
		return notify.NewLoggingDispatcher(log), false, false, nil
	}

	return notify.NewDispatcher(mail, sms, cfg.Verification.BaseURL), mail != nil, sms != nil, nil
}

// Run serves HTTP until the context is cancelled, then shuts down cleanly.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	// Closing the producer flushes messages still buffered in its async
	// pipeline and stops the error monitor goroutine.
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer failed", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting verification API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if a.tracer != nil {
			_ = a.tracer.Shutdown(shutdownCtx)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
