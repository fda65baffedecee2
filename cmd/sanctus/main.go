package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sanctus-app/sanctus/internal/app"
	"github.com/sanctus-app/sanctus/internal/audit"
	audithttp "github.com/sanctus-app/sanctus/internal/audit/http"
	"github.com/sanctus-app/sanctus/internal/auth"
	"github.com/sanctus-app/sanctus/internal/community"
	"github.com/sanctus-app/sanctus/internal/devicesync"
	"github.com/sanctus-app/sanctus/internal/finance"
	"github.com/sanctus-app/sanctus/internal/imports"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/observability"
	"github.com/sanctus-app/sanctus/internal/parishes"
	"github.com/sanctus-app/sanctus/internal/platform/cache"
	"github.com/sanctus-app/sanctus/internal/platform/db"
	"github.com/sanctus-app/sanctus/internal/rbac"
	"github.com/sanctus-app/sanctus/internal/sacraments"
	"github.com/sanctus-app/sanctus/internal/settings"
	"github.com/sanctus-app/sanctus/internal/shared"
	"github.com/sanctus-app/sanctus/internal/uploads"
	"github.com/sanctus-app/sanctus/internal/users"
	"github.com/sanctus-app/sanctus/jobs"
)

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

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, db.MigrateOptions{DSN: cfg.PGDSN, Command: "up", Logger: logger}); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL})
	if err != nil {
		logger.Error("token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService, tokens)

	rbacService := rbac.NewService(rbac.NewRepository(dbpool), rbac.NewCache(redisClient, cfg.PermissionCacheTTL), auditLogger, logger)
	rbacGate := rbac.Middleware{Service: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacGate)

	parishRepo := parishes.NewRepository(dbpool)
	parishService := parishes.NewService(parishRepo, auditLogger, logger)

	memberRepo := members.NewRepository(dbpool)
	memberService := members.NewService(memberRepo, auditLogger, logger)

	communityService := community.NewService(community.NewRepository(dbpool), memberRepo, auditLogger, logger)

	sacramentRepo := sacraments.NewRepository(dbpool)
	sacramentService := sacraments.NewService(sacramentRepo, auditLogger, logger)

	incomeRepo := finance.NewIncomeRepository(dbpool)
	expenseRepo := finance.NewExpenseRepository(dbpool)
	financeService := finance.NewService(incomeRepo, expenseRepo, finance.NewSequencer(dbpool), auditLogger, logger)
	budgetService := finance.NewBudgetService(finance.NewBudgetRepository(dbpool), auditLogger, logger)
	settingsService := settings.NewService(settings.NewRepository(dbpool), auditLogger, logger)

	userService := users.NewService(users.NewRepository(dbpool), auditLogger, logger).WithPermissions(rbacService)
	auditService := audit.NewService(audit.NewRepository(dbpool)).WithPermissions(rbacService)

	importService := imports.NewService(memberService, financeService, idempotencyStore, metrics, auditLogger, logger)

	uploadStore := uploads.NewDiskStore(cfg.UploadDir, cfg.UploadBaseURL)
	uploadService := uploads.NewService(uploadStore, parishService, memberService, cfg.UploadMaxBytes, logger)

	registry := devicesync.NewRegistry().
		Register("income_transaction", devicesync.NewApplier[finance.IncomeTransaction](incomeRepo)).
		Register("expense_voucher", devicesync.NewApplier[finance.ExpenseVoucher](expenseRepo)).
		Register("member", devicesync.NewApplier[members.Member](memberRepo)).
		Register("sacrament", devicesync.NewApplier[sacraments.Record](sacramentRepo))
	reconciler := devicesync.NewReconciler(registry, metrics, auditLogger, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Tokens:      tokens,
		Metrics:     metrics,
		DB:          dbpool,
		AuthHandler: authHandler,
		UploadFiles: uploadStore.Handler(),
		Handlers: []app.Mounter{
			parishes.NewHandler(logger, parishService),
			members.NewHandler(logger, memberService),
			community.NewHandler(logger, communityService),
			sacraments.NewHandler(logger, sacramentService),
			finance.NewHandler(logger, financeService),
			finance.NewBudgetHandler(logger, budgetService),
			settings.NewHandler(logger, settingsService),
			users.NewHandler(logger, userService),
			audithttp.NewHandler(logger, auditService),
			rbacHandler,
			app.Gated(imports.NewHandler(logger, importService, cfg.ImportMaxBytes), rbacGate.RequireAny(shared.PermImportRun)),
			uploads.NewHandler(logger, uploadService),
			app.Gated(devicesync.NewHandler(logger, reconciler, cfg.SyncMaxBytes), rbacGate.RequireAny(shared.PermSyncPush)),
			jobs.NewHandler(inspector, logger),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
