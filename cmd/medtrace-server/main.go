package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medtrace/medtrace/internal/config"
	"github.com/medtrace/medtrace/internal/domain/analytics"
	"github.com/medtrace/medtrace/internal/domain/catalog"
	"github.com/medtrace/medtrace/internal/domain/movement"
	"github.com/medtrace/medtrace/internal/domain/registry"
	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/db"
	"github.com/medtrace/medtrace/internal/platform/fault"
	"github.com/medtrace/medtrace/internal/platform/middleware"
)

// registryDirectory adapts the registry repository to the lookup interfaces
// the catalog and movement packages declare, avoiding imports between the
// domain packages.
type registryDirectory struct {
	repo registry.Repository
}

func (d *registryDirectory) ManufacturerExists(ctx context.Context, id uuid.UUID) error {
	e, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Type != registry.TypeManufacturer {
		return fault.NotFound("manufacturer not found")
	}
	return nil
}

func (d *registryDirectory) EntityType(ctx context.Context, id uuid.UUID) (registry.EntityType, error) {
	e, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Type, nil
}

// lotDirectory adapts the catalog lot repository to movement.LotDirectory.
type lotDirectory struct {
	repo catalog.LotRepository
}

func (d *lotDirectory) LotExists(ctx context.Context, id uuid.UUID) error {
	_, err := d.repo.GetByID(ctx, id)
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medtrace-server",
		Short: "Medication supply-chain custody API server",
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
		Short: "Start the custody API server",
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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = fault.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development mode: requests without credentials run as administrator")
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	perms := auth.NewPermissions()

	entityRepo := registry.NewRepoPG(pool)
	entitySvc := registry.NewService(entityRepo, perms)
	registry.NewHandler(entitySvc).RegisterRoutes(apiV1)

	entityDir := &registryDirectory{repo: entityRepo}

	medRepo := catalog.NewMedicationRepoPG(pool)
	lotRepo := catalog.NewLotRepoPG(pool)
	catalogSvc := catalog.NewService(medRepo, lotRepo, entityDir, perms)
	catalog.NewHandler(catalogSvc, cfg.ManufacturerExpiryDays).RegisterRoutes(apiV1)

	moveRepo := movement.NewRepoPG(pool)
	moveSvc := movement.NewService(moveRepo, entityDir, &lotDirectory{repo: lotRepo}, perms, cfg.MovementEnforceChain)
	movement.NewHandler(moveSvc).RegisterRoutes(apiV1)

	dashRepo := analytics.NewRepoPG(pool)
	dashSvc := analytics.NewService(dashRepo, perms, cfg.ManufacturerExpiryDays, cfg.AuthorityExpiryDays)
	analytics.NewHandler(dashSvc).RegisterRoutes(apiV1)

	// Serve with graceful shutdown.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
