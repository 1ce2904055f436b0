package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"igrelay/config"
	"igrelay/internal/adapters/instagram"
	"igrelay/internal/cache"
	"igrelay/internal/handlers"
	"igrelay/internal/services"
	"igrelay/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.InitLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	igClient, err := instagram.NewClient(config.GraphAPIBaseURL, cfg.InstagramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Graph API client")
	}

	var (
		store cache.Store
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// The cache is soft state; the client reconnects on its
			// own, so an unreachable Redis at boot is not fatal.
			log.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis not reachable yet")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("Redis connected")
		}
		cancel()

		store, err = cache.NewRedisStore(rdb, config.CacheTTL, config.MaxCachedMessages)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis cache store")
		}
	} else {
		log.Info().Msg("REDIS_ADDR not set, using in-memory cache store")
		store = cache.NewMemoryStore(config.CacheTTL, config.MaxCachedMessages)
	}

	ingestor, err := services.NewIngestor(igClient, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ingestor")
	}

	api, err := handlers.NewAPI(igClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize API handlers")
	}
	webhook, err := handlers.NewWebhook(ingestor, cfg.VerifyToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize webhook handlers")
	}

	chain := alice.New(handlers.RequestID, handlers.RequestLogger)

	router := mux.NewRouter()
	router.Handle("/api/me", chain.Then(api.Me())).Methods(http.MethodGet)
	router.Handle("/api/conversations", chain.Then(api.Conversations())).Methods(http.MethodGet)
	router.Handle("/api/conversations/{id}/messages", chain.Then(api.Messages())).Methods(http.MethodGet)
	router.Handle("/api/webhook/instagram", chain.Then(webhook.Verify())).Methods(http.MethodGet)
	router.Handle("/api/webhook/instagram", chain.Then(webhook.Receive())).Methods(http.MethodPost)
	log.Info().Str("path", "/api/webhook/instagram").Msg("Registered Instagram webhook handler")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
	log.Info().Msg("Shutdown complete")
}
