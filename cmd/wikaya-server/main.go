package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clim-up/wikaya/internal/config"
	"github.com/clim-up/wikaya/internal/domain/aichat"
	"github.com/clim-up/wikaya/internal/domain/clinical"
	"github.com/clim-up/wikaya/internal/domain/diagnostics"
	"github.com/clim-up/wikaya/internal/domain/identity"
	"github.com/clim-up/wikaya/internal/domain/immunization"
	"github.com/clim-up/wikaya/internal/domain/medication"
	"github.com/clim-up/wikaya/internal/domain/messaging"
	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/domain/vitals"
	"github.com/clim-up/wikaya/internal/platform/auth"
	"github.com/clim-up/wikaya/internal/platform/blobstore"
	"github.com/clim-up/wikaya/internal/platform/db"
	"github.com/clim-up/wikaya/internal/platform/middleware"
	"github.com/clim-up/wikaya/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "wikaya-server",
		Short: "Wikaya personal health record API server",
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
			target, _ := cmd.Flags().GetInt("target")
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				var (
					count int
					err   error
				)
				if target > 0 {
					count, err = m.UpTo(ctx, target)
				} else {
					count, err = m.Up(ctx)
				}
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().Int("target", 0, "Stop after this migration version (0 applies all)")
	cmd.AddCommand(upCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// stores groups the repositories behind the routes, so the router can be
// built over PostgreSQL or over memory.
type stores struct {
	accounts  identity.Repository
	allergies record.Repository[clinical.Allergy]
	problems  record.Repository[clinical.HealthProblem]
	meds      record.Repository[medication.Medication]
	reminders record.Repository[medication.Reminder]
	vaccines  record.Repository[immunization.Vaccination]
	snapshots record.Repository[vitals.Snapshot]
	labs      record.Repository[diagnostics.LabReport]
	imaging   record.Repository[diagnostics.Imaging]
	messages  messaging.Repository
}

func pgStores(q record.Queryable) stores {
	return stores{
		accounts:  identity.NewPGRepository(q),
		allergies: record.NewPGRepository(q, clinical.AllergyTable),
		problems:  record.NewPGRepository(q, clinical.HealthProblemTable),
		meds:      record.NewPGRepository(q, medication.MedicationTable),
		reminders: record.NewPGRepository(q, medication.ReminderTable),
		vaccines:  record.NewPGRepository(q, immunization.VaccinationTable),
		snapshots: record.NewPGRepository(q, vitals.SnapshotTable),
		labs:      record.NewPGRepository(q, diagnostics.LabReportTable),
		imaging:   record.NewPGRepository(q, diagnostics.ImagingTable),
		messages:  messaging.NewPGRepository(q),
	}
}

type deps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	stores   stores
	blobs    blobstore.Store
	llm      aichat.Completer
	dbHealth echo.HandlerFunc
	now      func() time.Time
}

func newRouter(d deps) *echo.Echo {
	cfg := d.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())

	httpMetrics := middleware.NewHTTPMetrics(d.registry)
	phiAccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wikaya",
		Subsystem: "audit",
		Name:      "phi_access_total",
		Help:      "Health record accesses by resource and action.",
	}, []string{"resource", "action"})
	d.registry.MustRegister(phiAccess)

	accounts := identity.NewService(d.stores.accounts)

	// Global middleware
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(httpMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(identity.Provision(accounts))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	// Group-level middleware registers catch-all routes that answer 404 where
	// echo would answer 405, so the limiter is global and scoped by path.
	rateLimitCfg.Skipper = middleware.OutsideAPI
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.Audit(d.logger, middleware.AuditRecorderFunc(func(entry middleware.AuditEntry) error {
		phiAccess.WithLabelValues(entry.Resource, entry.Action).Inc()
		return nil
	})))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", d.dbHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	files := api.Group("/files")

	identity.NewHandler(accounts).RegisterRoutes(api)

	snapshots := vitals.NewService(d.stores.snapshots)
	vitals.NewHandler(snapshots).RegisterRoutes(files)
	clinical.NewHandler(d.stores.allergies, d.stores.problems, d.now).RegisterRoutes(files)
	medication.NewHandler(d.stores.meds, d.stores.reminders, d.now).RegisterRoutes(files)
	immunization.NewHandler(d.stores.vaccines).RegisterRoutes(files)
	diagnostics.NewHandler(d.stores.labs, d.stores.imaging, d.blobs, d.now).RegisterRoutes(files)
	messaging.NewHandler(messaging.NewService(d.stores.messages, accounts)).RegisterRoutes(files)
	aichat.NewHandler(aichat.NewService(snapshots, d.llm)).RegisterRoutes(files)

	return e
}

// warnDevMode flags configurations where unauthenticated requests act as
// auth.DevSubject.
func warnDevMode(logger zerolog.Logger, cfg *config.Config) {
	if !cfg.IsDev() {
		return
	}
	logger.Warn().
		Str("env", cfg.Env).
		Str("dev_subject", auth.DevSubject).
		Msg("DEVELOPMENT mode: requests without a bearer token are served as the dev user; set ENV=production and AUTH_ISSUER or AUTH_SIGNING_KEY before exposing this server")
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	warnDevMode(logger, cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, err := blobstore.NewLocalStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open upload directory")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	llm := aichat.NewOpenAIClient(aichat.ClientConfig{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, registry)

	e := newRouter(deps{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		stores:   pgStores(pool),
		blobs:    blobs,
		llm:      llm,
		dbHealth: db.HealthHandler(pool),
		now:      time.Now,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
