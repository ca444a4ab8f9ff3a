package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nexahealth/qscore/internal/config"
	"github.com/nexahealth/qscore/internal/domain/appointment"
	"github.com/nexahealth/qscore/internal/domain/gap"
	"github.com/nexahealth/qscore/internal/domain/measure"
	"github.com/nexahealth/qscore/internal/domain/outreach"
	"github.com/nexahealth/qscore/internal/domain/reading"
	"github.com/nexahealth/qscore/internal/domain/referral"
	"github.com/nexahealth/qscore/internal/landing"
	"github.com/nexahealth/qscore/internal/platform/db"
	"github.com/nexahealth/qscore/internal/platform/magiclink"
	"github.com/nexahealth/qscore/internal/platform/messaging"
	"github.com/nexahealth/qscore/internal/platform/middleware"
	"github.com/nexahealth/qscore/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qscore-server",
		Short: "Quality measure outreach API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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

var seedClinics = []string{"Cedartown", "Rockmart", "Rome", "Cartersville"}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo measure gaps into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			replace, _ := cmd.Flags().GetBool("replace")

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

			repo := gap.NewRepoPG(pool)
			if replace {
				if err := repo.DeleteAll(ctx); err != nil {
					return fmt.Errorf("clear existing gaps: %w", err)
				}
			}

			faker := gofakeit.New(0)
			defs := measure.All()
			rows := make([]*gap.MeasureGap, 0, count)
			for i := 0; i < count; i++ {
				def := defs[faker.IntRange(0, len(defs)-1)]
				value := float64(faker.IntRange(40, 100)) / 100
				rows = append(rows, &gap.MeasureGap{
					PatientID:   fmt.Sprintf("%d", 100+i),
					Clinic:      faker.RandomString(seedClinics),
					MeasureCode: def.Code,
					Value:       value,
					Compliant:   value >= 0.8,
					RecordedAt:  faker.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
				})
			}
			if err := repo.BulkInsert(ctx, rows); err != nil {
				return fmt.Errorf("insert demo gaps: %w", err)
			}

			fmt.Printf("Seeded %d demo measure gap(s).\n", len(rows))
			return nil
		},
	}
	cmd.Flags().Int("count", 200, "Number of demo gap rows to generate")
	cmd.Flags().Bool("replace", false, "Delete existing gaps before seeding")
	return cmd
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

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API group with rate limiting
	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Platform services
	codec := magiclink.NewCodec(cfg.TokenSecret, time.Duration(cfg.TokenTTLDays)*24*time.Hour)
	sender := messaging.DemoSender{}
	templates := messaging.NewTemplateEngine()

	// Referral domain
	referralRepo := referral.NewRepoPG(pool)
	referralSvc := referral.NewService(referralRepo)
	referralHandler := referral.NewHandler(referralSvc)
	referralHandler.RegisterRoutes(apiV1)

	// Appointment domain
	apptRepo := appointment.NewRepoPG(pool)
	apptSvc := appointment.NewService(apptRepo)
	apptHandler := appointment.NewHandler(apptSvc)
	apptHandler.RegisterRoutes(apiV1)

	// Outreach domain
	readingRepo := reading.NewRepoPG(pool)
	outreachRepo := outreach.NewRepoPG(pool)
	outreachSvc := outreach.NewService(
		outreachRepo, codec, sender, templates,
		readingRepo, referralSvc,
		cfg.BaseURL, cfg.SchedulingURL, logger,
	)
	outreachHandler := outreach.NewHandler(outreachSvc)
	outreachHandler.RegisterRoutes(apiV1)

	// Measure gap domain
	gapRepo := gap.NewRepoPG(pool)
	gapSvc := gap.NewService(gapRepo, outreachSvc, logger)
	gapHandler := gap.NewHandler(gapSvc)
	gapHandler.RegisterRoutes(apiV1)

	// Reporting framework
	reportHandler := reporting.NewHandler(pool)
	reportHandler.RegisterRoutes(apiV1)

	// Patient-facing landing pages live at the server root so magic
	// links stay short.
	landingHandler := landing.NewHandler(outreachSvc, logger)
	landingHandler.RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
