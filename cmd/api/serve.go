package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
	"github.com/spec-kit/account-service/internal/worker"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()
	cfg, logger := deps.cfg, deps.logger

	if cfg.Postgres.RunMigrations {
		if err := migrateUp(cfg.Postgres.DSN, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := deps.pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	hasher := auth.NewArgon2idHasher()
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		AccountRepo:   accountRepo,
		PrincipalRepo: principalRepo,
		Hasher:        hasher,
		Limiter:       service.NewRedisLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow()),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		AccountRepo: accountRepo,
		Hasher:      hasher,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	if cfg.Auth.SeedAdminPassword != "" {
		if _, err := accountService.EnsureAdmin(ctx, cfg.Auth.SeedAdminUsername, cfg.Auth.SeedAdminPassword, cfg.Auth.SeedAdminEmail); err != nil {
			logger.Error("failed to seed admin", zap.Error(err))
			return err
		}
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), logger, metrics)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": deps.pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService, authMiddleware, cfg.App.IsProduction()),
		Accounts:       handlers.NewAccountsHandler(accountService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
		return err
	case <-waitForShutdown(logger):
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
