package main

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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/waari-travel/waari-erp/cmd/waari/cli"
	"github.com/waari-travel/waari-erp/internal/app"
	"github.com/waari-travel/waari-erp/internal/auth"
	"github.com/waari-travel/waari-erp/internal/observability"
	"github.com/waari-travel/waari-erp/internal/platform/cache"
	"github.com/waari-travel/waari-erp/internal/platform/db"
	"github.com/waari-travel/waari-erp/internal/rbac"
	"github.com/waari-travel/waari-erp/internal/roles"
	"github.com/waari-travel/waari-erp/internal/shared"
	"github.com/waari-travel/waari-erp/internal/users"
	"github.com/waari-travel/waari-erp/jobs"
)

const usage = `usage: waari [serve | migrate up|down|status | jobs trigger <task> | jobs inspect]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		sub := "up"
		if len(args) > 1 {
			sub = args[1]
		}
		err = db.Migrate(ctx, cfg.PGDSN, sub)
	case "jobs":
		err = runJobs(ctx, cfg, args[1:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacRepo := rbac.NewRepository(pool)
	access := app.NewAccess(cfg, rbacRepo, metrics, logger)
	auditLogger := shared.NewAuditLogger(pool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts, cfg.OTPTTL)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	otps := auth.NewOTPStore(redisClient, cfg.OTPTTL, cfg.OTPMaxAttempts)
	authService := auth.NewService(auth.NewRepository(pool), access.Issuer, otps, jobClient, auditLogger, logger)
	rolesService := roles.NewService(roles.NewRepository(pool), auditLogger, logger)
	usersService := users.NewService(users.NewRepository(pool), auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		DB:           pool,
		AuthHandler:  auth.NewHandler(logger, authService, access.Gate, cfg.LoginRateLimit),
		RBACHandler:  rbac.NewHandler(logger, rbac.NewCatalogService(rbacRepo), access.Gate),
		RolesHandler: roles.NewHandler(logger, rolesService, access.Gate),
		UsersHandler: users.NewHandler(logger, usersService, access.Gate),
		JobHandler:   jobs.NewHandler(inspector, logger, access.Gate.Authenticated()),
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("auth_scheme", cfg.AuthScheme))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer c.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New(usage)
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		return cli.WriteStats(os.Stdout, stats)
	default:
		return errors.New(usage)
	}
}
