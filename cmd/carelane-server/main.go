package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelane/carelane/internal/config"
	"github.com/carelane/carelane/internal/domain/interaction"
	"github.com/carelane/carelane/internal/domain/patient"
	"github.com/carelane/carelane/internal/domain/session"
	"github.com/carelane/carelane/internal/platform/ai"
	"github.com/carelane/carelane/internal/platform/metrics"
	"github.com/carelane/carelane/internal/platform/middleware"
	"github.com/carelane/carelane/internal/platform/validate"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelane-server",
		Short: "Clinician workflow API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CareLane API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the built-in drug interaction table",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range interaction.Rules() {
				fmt.Printf("%-10s %s + %s: %s\n", r.Severity, r.DrugA, r.DrugB, r.Description)
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <proposed-drug>",
		Short: "Check a proposed drug against a list of current medications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			against, _ := cmd.Flags().GetStringSlice("against")

			warnings := interaction.CheckInteractions(medicationList(against), args[0])
			if len(warnings) == 0 {
				fmt.Println("No known interactions.")
				return nil
			}
			for _, w := range warnings {
				fmt.Printf("%-10s %s\n", w.Severity, w.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("against", nil, "Current medication names (comma-separated or repeated)")
	return cmd
}

// medicationList converts bare drug names into medication entries.
func medicationList(names []string) []patient.Medication {
	meds := make([]patient.Medication, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		meds = append(meds, patient.Medication{Name: n})
	}
	return meds
}

// buildAdvisor selects the model collaborator. Unknown providers are rejected
// by config validation before this runs.
func buildAdvisor(cfg *config.Config, logger zerolog.Logger) ai.Advisor {
	if cfg.AIProvider == "openai" {
		return ai.NewOpenAIClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout(), logger)
	}
	return ai.NewRuleAdvisor()
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
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	// Metrics
	collector := metrics.NewCollector("carelane")

	// Model advisor
	advisor := buildAdvisor(cfg, logger)
	logger.Info().Str("provider", advisor.Provider()).Msg("model advisor ready")

	// In-memory session store with idle eviction
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := session.NewStore(cfg.SessionTTL())
	store.StartCleanup(ctx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.Metrics(collector))
	e.Use(middleware.RequestTimeout(cfg.AITimeout() + 15*time.Second))

	// Health checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/readyz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "ready",
			"provider": advisor.Provider(),
		})
	})

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.MetricsHandler()))

	// API group
	api := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Domain handlers
	svc := session.NewService(store, advisor, collector, logger)
	session.NewHandler(svc).RegisterRoutes(api)
	interaction.NewHandler().RegisterRoutes(api)

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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
