package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/auth"
	"github.com/odinbook/chat-server/internal/config"
	"github.com/odinbook/chat-server/internal/database"
	"github.com/odinbook/chat-server/internal/handler"
	"github.com/odinbook/chat-server/internal/jobs"
	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/middleware"
	"github.com/odinbook/chat-server/internal/realtime"
	"github.com/odinbook/chat-server/internal/redis"
	"github.com/odinbook/chat-server/internal/repository"
	"github.com/odinbook/chat-server/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}
	cancel()
	log.Info().Msg("database connected")

	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisRateLimiter(redisClient.Client)
		log.Info().Msg("redis connected")
	} else {
		limiter = middleware.NewRateLimiter()
		log.Warn().Msg("REDIS_URL not set: rate limits are per instance")
	}

	m := metrics.New()

	userRepo := repository.NewUserRepository(db.DB)
	chatRepo := repository.NewChatRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)

	hub := realtime.NewHub(m)
	dispatcher := realtime.NewDispatcher(hub, m)

	chatService := service.NewChatService(chatRepo, messageRepo, userRepo, m)
	messageService := service.NewMessageService(db, chatRepo, messageRepo, chatService, dispatcher, hub.Pending(), m)
	notificationService := service.NewNotificationService(dispatcher)

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(tokens, cfg.AuthCookieName)
	sendLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, "send", cfg.SendRateLimitPerMin)
	handshakeLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		limiter, config.HandshakeRateLimitPerMin, time.Minute, "handshake",
	)
	internalKeyMiddleware := middleware.NewInternalKeyMiddleware(cfg.InternalAPIKey)
	if cfg.InternalAPIKey == "" {
		log.Warn().Msg("INTERNAL_API_KEY not set: friend-request notifications are disabled")
	}
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	apiHandler := handler.NewAPIHandler(
		chatService, messageService, notificationService,
		sendLimitMiddleware.Handler, internalKeyMiddleware.Handler,
	)
	realtimeHandler := handler.NewRealtimeHandler(
		hub, authMiddleware, chatService, messageService, limiter,
		handler.RealtimeConfig{
			AllowedOrigins:  cfg.AllowedOrigins(),
			Heartbeat:       cfg.Heartbeat(),
			IdleTimeout:     cfg.SessionIdleTimeout(),
			SendLimitPerMin: cfg.SendRateLimitPerMin,
		},
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("health check: database ping failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"sessions":  hub.Registry().Total(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(authMiddleware.Handler)
		r.Mount("/", apiHandler.Routes())
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(handshakeLimitMiddleware.Handler)
		r.Mount("/", realtimeHandler.Routes())
	})

	sweepJob := jobs.NewPresenceSweepJob(
		hub, cfg.SessionIdleTimeout(), cfg.PendingTTL(), config.PresenceSweepInterval,
	)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Realtime connections are hijacked and not tracked by Shutdown.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
