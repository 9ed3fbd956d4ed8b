package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"recycle.ecomap.kr/internal/app"
	"recycle.ecomap.kr/internal/config"
	"recycle.ecomap.kr/internal/report"
	"recycle.ecomap.kr/internal/utils"
)

const version = "1.0.0"

func main() {
	// A missing .env is fine; the environment may be set by the process manager.
	_ = godotenv.Load()

	var (
		port       = flag.Int("port", 4000, "API server port")
		env        = flag.String("env", "development", "Environment (development|staging|production)")
		configFile = flag.String("config-file", "", "Path to a local JSON configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON configuration file")
		sourceFile = flag.String("source-file", os.Getenv("BINFINDER_SOURCE_FILE"), "Path to the default CSV or XLSX bin data file")
		sourceURL  = flag.String("source-url", os.Getenv("BINFINDER_SOURCE_URL"), "URL of the default CSV or XLSX bin data file")
		cacheDir   = flag.String("cache-dir", "cache", "Directory for downloaded bin data")
	)

	flag.Parse()

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger(*env)

	report.SetupSentry(*env, version)
	defer report.FlushSentry()
	report.ConfigureScope(*env, version)

	client := app.NewPooledClient()

	var settings config.Settings
	switch {
	case *configFile != "":
		loaded, err := config.LoadConfigFromFile(*configFile)
		if err != nil {
			logger.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		settings = *loaded
	case *configURL != "":
		loaded, err := config.LoadConfigFromURL(context.Background(), client, *configURL, configAuthUser, configAuthPass, 3)
		if err != nil {
			logger.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		settings = *loaded
	}

	cfg := config.NewConfig(*port, *env, settings)
	cfg.CacheDir = *cacheDir
	// Flags and environment win over the configuration document, including refreshed ones.
	cfg.SetSourceOverride(*sourceFile, *sourceURL)

	if err := utils.CreateCacheDirectory(cfg.CacheDir, logger); err != nil {
		logger.Error("Failed to create cache directory", "error", err)
		os.Exit(1)
	}

	application := app.New(cfg, logger, client, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.LoadDefaultSource(ctx)
	application.StartBackgroundJobs(ctx)

	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
