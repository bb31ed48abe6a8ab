package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"realty-api/internal/config"
	"realty-api/internal/db"
	"realty-api/internal/email"
	apihttp "realty-api/internal/http"
	"realty-api/internal/repository"
	"realty-api/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redisClient := newRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	jwtOpts := []service.JWTOption{service.WithIssuer(cfg.JWTIssuer)}
	authOpts := []service.AuthOption{
		service.WithOTPTTL(cfg.OTPTTL),
		service.WithMailer(newMailer(cfg, logger)),
	}
	if redisClient != nil {
		jwtOpts = append(jwtOpts, service.WithRevocationStore(service.NewRedisRevokedTokenStore(redisClient)))
		authOpts = append(authOpts, service.WithRateLimiter(
			service.NewRedisRateLimiter(redisClient, "auth:otp:", cfg.OTPTTL, cfg.OTPMaxRequests),
		))
	} else {
		logger.Warn("redis not configured; logout revocation is process-local")
		jwtOpts = append(jwtOpts, service.WithRevocationStore(service.NewMemoryRevokedTokenStore()))
		authOpts = append(authOpts, service.WithRateLimiter(
			service.NewMemoryRateLimiter(cfg.OTPTTL, cfg.OTPMaxRequests),
		))
	}

	tokens := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, jwtOpts...)
	store := repository.NewPgStore(pool)
	authSvc := service.NewAuthService(logger, store, tokens, service.NewBcryptHasher(cfg.BcryptCost), authOpts...)

	router := apihttp.NewRouter(
		logger,
		authSvc,
		apihttp.NewAuthHandler(logger, authSvc),
		apihttp.NewAdminHandler(logger, authSvc),
		pool,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRedisClient devuelve nil si redis no esta configurado o no responde.
func newRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func newMailer(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SMTPHost == "" {
		return email.NewDisabledSender("email sender not configured")
	}
	sender, err := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		UseTLS:   cfg.SMTPUseTLS,
	})
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return email.NewDisabledSender("email sender misconfigured")
	}
	return sender
}
