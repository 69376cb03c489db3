package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"commerce-service/internal/api"
	"commerce-service/internal/cache"
	"commerce-service/internal/config"
	"commerce-service/internal/database"
	"commerce-service/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	if os.Getenv("SERVICE_NAME") == "" {
		cfg.ServiceName = "todo-service"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := database.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()
	sessions := cache.New(rdb, cfg.ProductCacheTTL)

	auth := service.NewAuthService(store.Users(), sessions, service.TokenSettings{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.JWTExpiration,
		RefreshSecret: cfg.JWTRefreshSecret,
		RefreshTTL:    cfg.JWTRefreshExpiration,
	})
	todos := service.NewTodoService(store.Todos())

	e := api.NewServer(api.ServerConfig{
		Service:   cfg.ServiceName,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	api.RegisterTodoRoutes(e, api.NewAuthHandler(auth), api.NewTodoHandler(todos), auth)

	log.Info().Msgf("%s listening on :%s", cfg.ServiceName, cfg.Port)
	if err := api.Serve(ctx, e, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}
