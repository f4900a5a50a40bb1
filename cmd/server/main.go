package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roadsheet/internal/app"
	"roadsheet/internal/config"
	"roadsheet/internal/events"
	"roadsheet/internal/handler"
	"roadsheet/internal/logger"
	internalRedis "roadsheet/internal/redis"
	"roadsheet/internal/repository/postgres"
	"roadsheet/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled (with DB instrumentation)")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to Redis")

	// Event broker is optional; without it shift events stay local.
	var publisher events.Publisher
	if cfg.Rabbit.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Rabbit.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Info().Msg("connected to RabbitMQ")
	} else {
		log.Info().Msg("event publishing disabled (no RABBIT_URL)")
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, publisher, nrApp, cfg, log)

	// Start server in goroutine.
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	log zerolog.Logger,
) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	shiftRepo := postgres.NewShiftRepository(db)
	courseRepo := postgres.NewCourseRepository(db)
	meterRepo := postgres.NewMeterReadingRepository(db)
	expenseRepo := postgres.NewExpenseRepository(db)

	// Initialize services.
	txRunner := postgres.NewTxRunner(db)
	taximeterService := service.NewTaximeterService(meterRepo, shiftRepo, lockStore, log)
	shiftService := service.NewShiftService(txRunner, shiftRepo, courseRepo, meterRepo, expenseRepo, taximeterService, publisher, cacheStore, log)
	courseService := service.NewCourseService(courseRepo, shiftRepo)
	expenseService := service.NewExpenseService(expenseRepo, shiftRepo)
	defaultsService := service.NewDefaultsService(shiftRepo, shiftService, cacheStore, log)

	// Initialize handlers.
	shiftHandler := handler.NewShiftHandler(shiftService)
	courseHandler := handler.NewCourseHandler(courseService)
	taximeterHandler := handler.NewTaximeterHandler(taximeterService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	defaultsHandler := handler.NewDefaultsHandler(defaultsService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		ShiftHandler:     shiftHandler,
		CourseHandler:    courseHandler,
		TaximeterHandler: taximeterHandler,
		ExpenseHandler:   expenseHandler,
		DefaultsHandler:  defaultsHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
		AuthSecret:       cfg.Auth.AccessSecret,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
