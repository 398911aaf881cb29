// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jobboard-backend/internal/applications"
	"jobboard-backend/internal/common/auth"
	"jobboard-backend/internal/common/aws"
	"jobboard-backend/internal/common/config"
	"jobboard-backend/internal/common/database"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/common/observability"
	"jobboard-backend/internal/joblistings"
	"jobboard-backend/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting job board backend...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("Schema migration complete")

	// --- Init Redis with retry ---
	var rd *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rd, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return rd.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rd.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	var verifier server.TokenVerifier
	if cfg.Auth.Enabled {
		kc := auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
		verifier = server.KeycloakVerifier{Client: kc}
		zapLog.Info("Keycloak token verification enabled")
	}

	var blobs server.BlobStore
	if cfg.Integrations.AWS.S3.Enabled {
		s3Client, err := aws.NewS3Client(ctx, cfg.Integrations.AWS.Region,
			cfg.Integrations.AWS.S3.Bucket, cfg.Integrations.AWS.S3.BaseURL)
		if err != nil {
			zapLog.Fatal("s3 client failed", zap.Error(err))
		}
		blobs = s3Client
		zapLog.Info("S3 media uploads enabled", zap.String("bucket", cfg.Integrations.AWS.S3.Bucket))
	}

	var emailSender applications.EmailSender
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
		zapLog.Info("SES candidate notifications enabled")
	}

	// --- Wire Services ---
	var listingCache = rd.GetClient()
	if !cfg.Cache.Enabled {
		listingCache = nil
	}

	listingRepo := joblistings.NewRepository(pg.GetDB(), log)
	listingService := joblistings.NewService(listingRepo, listingCache, joblistings.CacheOptions{
		TTL:       time.Duration(cfg.Cache.TTL) * time.Second,
		KeyPrefix: cfg.Cache.KeyPrefix,
	}, log)

	appRepo := applications.NewRepository(pg.GetDB(), log)
	notifier := applications.NewNotifier(emailSender, cfg.Integrations.AWS.SES.FromEmail, log)
	appService := applications.NewService(appRepo, applications.NewValidator(), notifier, log)

	httpServer := server.New(server.Deps{
		Config:       cfg,
		Logger:       log,
		Postgres:     pg,
		Redis:        rd,
		JobListings:  server.NewJobListingHandlers(listingService, blobs, log),
		Applications: server.NewApplicationHandlers(appService, listingService, log),
		Verifier:     verifier,
		Recorder:     obs,
	})

	// --- Expiry Sweeper ---
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.Sweeper.Enabled {
		sweeper := joblistings.NewSweeper(listingService, config.GetDuration(cfg.Sweeper.Interval), log)
		go sweeper.Run(sweeperCtx)
		zapLog.Info("Expiry sweeper started", zap.Int("interval_ms", cfg.Sweeper.Interval))
	}

	// --- HTTP Server ---
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Job board backend stopped gracefully")
}
