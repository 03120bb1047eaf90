package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/domain/account"
	"github.com/carelink/carelink/internal/domain/alert"
	"github.com/carelink/carelink/internal/domain/audit"
	"github.com/carelink/carelink/internal/domain/consent"
	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/domain/record"
	"github.com/carelink/carelink/internal/domain/triage"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/authz"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/middleware"
	"github.com/carelink/carelink/internal/platform/telemetry"
	"github.com/carelink/carelink/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelink-server",
		Short: "Consent-gated cross-hospital clinical record server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL())
	metrics := telemetry.New()
	metrics.RegisterWellKnown()

	// Repositories
	identityRepo := identity.NewRepo(pool)
	consentRepo := consent.NewRepo(pool)
	auditRepo := audit.NewRepo(pool)
	recordRepo := record.NewRepo(pool)
	alertRepo := alert.NewRepo(pool)
	triageRepo := triage.NewRepo(pool)
	accountRepo := account.NewRepo(pool)

	// Services
	identitySvc := identity.NewService(identityRepo)
	consentSvc := consent.NewService(consentRepo, identityRepo, logger)
	auditSvc := audit.NewService(auditRepo)
	gate := authz.NewGate(consentSvc, auditSvc, metrics, logger)

	hub := ws.NewHub()
	alertSvc := alert.NewService(alertRepo, identityRepo, hub, metrics, logger, cfg.DefaultHospitalCode)
	classifier := triage.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout(), logger)
	triageSvc := triage.NewService(triageRepo, classifier, alertSvc, metrics, logger, cfg.AlertUrgencyThreshold)
	recordSvc := record.NewService(recordRepo, identityRepo, logger)
	accountSvc := account.NewService(accountRepo, issuer, identityRepo, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Route groups. Login is the only application surface without a token.
	public := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg), auth.Middleware(issuer))
	fhirGroup := e.Group("/fhir", middleware.RateLimit(rateLimitCfg), auth.Middleware(issuer))
	wsGroup := e.Group("/ws", auth.Middleware(issuer))

	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	account.NewHandler(accountSvc).RegisterRoutes(public, apiV1)
	identity.NewHandler(identitySvc, gate).RegisterRoutes(apiV1, fhirGroup)
	consent.NewHandler(consentSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditSvc, gate).RegisterRoutes(apiV1)
	record.NewHandler(recordSvc, gate).RegisterRoutes(apiV1, fhirGroup)
	alert.NewHandler(alertSvc).RegisterRoutes(apiV1)
	triage.NewHandler(triageSvc).RegisterRoutes(apiV1)
	ws.NewHandler(hub, logger).RegisterRoutes(wsGroup)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
