package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/tourbase/backend/internal/adapters/cache"
	"github.com/tourbase/backend/internal/adapters/database"
	"github.com/tourbase/backend/internal/adapters/providers/payment"
	"github.com/tourbase/backend/internal/api/handlers"
	"github.com/tourbase/backend/internal/api/routes"
	"github.com/tourbase/backend/internal/application/services"
	"github.com/tourbase/backend/internal/domain/providers"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	"github.com/tourbase/backend/internal/infrastructure/clients/redis"
	"github.com/tourbase/backend/internal/infrastructure/notifications"
	"github.com/tourbase/backend/internal/infrastructure/observability"
	"github.com/tourbase/backend/pkg/config"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	// Initialize Redis client; the application works without caching
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Redis client, continuing without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize adapters
	userAdapter := database.NewUserAdapter(pgClient)
	reviewAdapter := database.NewReviewAdapter(pgClient)
	bookingAdapter := database.NewBookingAdapter(pgClient)

	var tourAdapter repositories.TourRepository = database.NewTourAdapter(pgClient)
	if cacheProvider != nil {
		tourAdapter = database.NewCachedTourAdapter(tourAdapter, cacheProvider)
		logger.Info().Msg("Tour adapter wrapped with caching layer")
	} else {
		logger.Warn().Msg("Tour adapter running without cache (Redis unavailable)")
	}

	paymentProvider := payment.NewPaymentProvider(&cfg.Paystack)

	// Outbound mail is best-effort; the API runs without it
	var notificationService *services.NotificationService
	if sender, err := notifications.NewEmailSender(&cfg.SMTP); err != nil {
		logger.Warn().Err(err).Msg("Email sender disabled")
		notificationService = services.NewNotificationService(nil)
	} else {
		notificationService = services.NewNotificationService(sender)
	}

	// Initialize services
	authService := services.NewAuthService(userAdapter, notificationService, &cfg.JWT, cfg.Server.BaseURL)
	userService := services.NewUserService(userAdapter)
	tourService := services.NewTourService(tourAdapter)
	reviewService := services.NewReviewService(reviewAdapter, tourAdapter)
	bookingService := services.NewBookingService(
		bookingAdapter,
		tourAdapter,
		userAdapter,
		paymentProvider,
		notificationService,
		&cfg.Paystack,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, &cfg.JWT, cfg.Env)
	userHandler := handlers.NewUserHandler(userService)
	tourHandler := handlers.NewTourHandler(tourService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	bookingHandler := handlers.NewBookingHandler(bookingService)

	webhookDB := sqlx.NewDb(pgClient.DB(), "postgres")
	webhookHandler := handlers.NewPaystackWebhookHandler(
		webhookDB,
		bookingService,
		cfg.Paystack.WebhookSecret,
		metrics,
	)

	// Set up router
	router := routes.NewRouter(
		authHandler,
		userHandler,
		tourHandler,
		reviewHandler,
		bookingHandler,
		webhookHandler,
		authService,
		metrics,
	)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server stopped")
}
