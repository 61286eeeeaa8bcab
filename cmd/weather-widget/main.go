package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	httpapi "github.com/i474232898/weather-widget/internal/api/http"
	"github.com/i474232898/weather-widget/internal/config"
	"github.com/i474232898/weather-widget/internal/scheduler"
	"github.com/i474232898/weather-widget/internal/session"
	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/weather"
	"github.com/i474232898/weather-widget/internal/weather/providers"
)

func main() {
	bootLog, _ := zap.NewProduction()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("failed to load config", zap.Error(err))
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		bootLog.Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// Shared HTTP client for outbound calls.
	httpCfg := providers.HTTPClientConfig{
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     5 * time.Second,
		},
		BreakerTimeout: cfg.BreakerTimeout,
		Logger:         log,
	}

	forecaster := providers.NewOpenMeteoProvider(httpCfg, cfg.ForecastURL, cfg.WindSpeedUnit)

	var geocoder weather.Geocoder
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		geocoder, err = providers.NewGoogleGeocoder(httpCfg, cfg.GoogleGeocoderKey)
		if err != nil {
			log.Fatal("failed to configure geocoder", zap.Error(err))
		}
	default:
		geocoder = providers.NewOpenMeteoGeocoder(httpCfg, cfg.GeocodingURL, cfg.GeocoderResultCount)
	}

	var backend store.Backend
	switch cfg.SessionBackend {
	case config.SessionBackendSQLite:
		backend, err = store.NewSQLiteStore(cfg.SessionDBPath)
		if err != nil {
			log.Fatal("failed to open session store", zap.Error(err))
		}
	default:
		backend = store.NewMemoryStore()
	}
	defer backend.Close()

	manager := session.NewManager(backend, forecaster, geocoder, cfg.SessionTTL, log)

	sched := scheduler.New(manager, cfg.SessionSweepInterval, log)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-widget",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weather-widget",
			"sessions": manager.Len(),
		})
	})

	httpapi.RegisterRoutes(app, manager, cfg.RequestTimeout, log)

	go func() {
		log.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("geocoder", geocoder.Name()),
			zap.String("session_backend", cfg.SessionBackend))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
