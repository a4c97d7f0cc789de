package bootstrap

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

	"github.com/settleline/conveyor/internal/adapters/actionstep"
	cacheadapter "github.com/settleline/conveyor/internal/adapters/cache"
	eventadapter "github.com/settleline/conveyor/internal/adapters/events"
	httpadapter "github.com/settleline/conveyor/internal/adapters/http"
	"github.com/settleline/conveyor/internal/adapters/pipedrive"
	"github.com/settleline/conveyor/internal/adapters/platform"
	"github.com/settleline/conveyor/internal/adapters/postgres"
	"github.com/settleline/conveyor/internal/adapters/security"
	"github.com/settleline/conveyor/internal/application"
	"github.com/settleline/conveyor/internal/datasource"
	"github.com/settleline/conveyor/internal/ports"
	"github.com/settleline/conveyor/internal/trustlink"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping conveyor", "http_port", cfg.HTTPPort, "tenant", cfg.TenantID)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, 20)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	repos := postgres.NewRepositories(db)

	actionstepClient := actionstep.NewClient(platform.NewClient(platform.Config{
		BaseURL:     cfg.ActionstepBaseURL,
		ClientID:    cfg.ActionstepClientID,
		MaxAttempts: cfg.RetryMaxAttempts,
		BackoffBase: cfg.RetryBackoffBase,
		Token: actionstep.ClientCredentialsTokenSource(
			&http.Client{Timeout: cfg.UpstreamTimeout},
			cfg.ActionstepTokenURL,
			cfg.ActionstepClientID,
			cfg.ActionstepClientSecret,
		),
		SuppressBodyLogging: cfg.SuppressBodyLogging,
		Logger:              logger,
		HTTPClient:          &http.Client{Timeout: cfg.UpstreamTimeout},
	}))
	pipedriveClient := pipedrive.NewClient(platform.NewClient(platform.Config{
		BaseURL:             cfg.PipedriveBaseURL,
		MaxAttempts:         cfg.RetryMaxAttempts,
		BackoffBase:         cfg.RetryBackoffBase,
		Token:               pipedrive.APITokenSource(cfg.PipedriveAPIToken),
		SuppressBodyLogging: cfg.SuppressBodyLogging,
		Logger:              logger,
		HTTPClient:          &http.Client{Timeout: cfg.UpstreamTimeout},
	}))

	linkService, err := trustlink.NewService(trustlink.DeriveKeys(cfg.FeedbackSecret), cfg.FeedbackDomain)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init feedback link service: %w", err)
	}
	linkManager := trustlink.NewManager(cacheadapter.NewRedisBlobStore(redisClient))

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TenantID:                cfg.TenantID,
			ActionTypeID:            cfg.ActionTypeID,
			ClientParticipantTypeID: cfg.ClientParticipantTypeID,
			CRMStageMatterCreated:   cfg.CRMStageMatterCreated,
			TestMode:                cfg.TestMode,
			IdempotencyTTL:          cfg.IdempotencyTTL,
		},
		Matters:     repos.Matters,
		Intake:      repos.Intake,
		Corrections: repos.Corrections,
		Sources:     repos.Sources,
		Validator:   datasource.NewValidator(repos.Jobs, repos.FieldRequirements),
		Outbox:      repos.Outbox,
		Idempotency: repos.Idempotency,
		Platform:    actionstepClient,
		CRM:         pipedriveClient,
		Links:       linkManager,
		LinkService: linkService,
		Logger:      logger,
	})

	verifier, err := security.NewWebhookVerifier(cfg.WebhookSecret, cfg.WebhookAudience)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init webhook verifier: %w", err)
	}

	handler := httpadapter.NewHandler(svc, verifier)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var publisher ports.EventPublisher
	cleanupPublisher := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			"matter.created":  "conveyor.matters",
			"intake.recorded": "conveyor.intake",
		})
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		cleanupPublisher = func() { _ = kafkaPublisher.Close() }
	} else {
		logger.Warn("no kafka brokers configured, events will be logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			cleanupPublisher()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
