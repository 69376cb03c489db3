package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"commerce-service/internal/api"
	"commerce-service/internal/apperror"
	"commerce-service/internal/cache"
	"commerce-service/internal/config"
	"commerce-service/internal/consumer"
	"commerce-service/internal/database"
	"commerce-service/internal/entity"
	"commerce-service/internal/events"
	"commerce-service/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

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
	productCache := cache.New(rdb, cfg.ProductCacheTTL)

	var wg sync.WaitGroup
	var publisher service.OrderEventPublisher
	if cfg.KafkaEnabled {
		kafkaWriter := cfg.NewKafkaWriter()
		defer kafkaWriter.Close()
		publisher = events.NewPublisher(kafkaWriter, cfg.ServiceName)

		kafkaReader := cfg.NewKafkaReader()
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.NewConsumer(kafkaReader, productCache).Run(ctx)
		}()
	} else {
		log.Warn().Msg("Kafka disabled, order events will not be published")
	}

	ledger := service.NewInventoryLedger()
	carts := service.NewCartService(store)
	orders := service.NewOrderService(store, carts, ledger, publisher, productCache)
	products := service.NewProductService(store, ledger, productCache)
	payments := service.NewPaymentService(orders, cfg.PaymentWebhookSecret, cfg.WebhookTolerance)
	auth := service.NewAuthService(store.Users(), productCache, service.TokenSettings{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.JWTExpiration,
		RefreshSecret: cfg.JWTRefreshSecret,
		RefreshTTL:    cfg.JWTRefreshExpiration,
	})

	users := service.NewUserService(auth)
	categories := service.NewCategoryService(store, productCache)
	reviews := service.NewReviewService(store)

	seedAdmin(ctx, users, cfg)

	e := api.NewServer(api.ServerConfig{
		Service:   cfg.ServiceName,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	api.RegisterCommerceRoutes(e, api.CommerceHandlers{
		Auth:       api.NewAuthHandler(auth),
		Products:   api.NewProductHandler(products),
		Carts:      api.NewCartHandler(carts),
		Orders:     api.NewOrderHandler(orders),
		Payments:   api.NewPaymentHandler(payments),
		Categories: api.NewCategoryHandler(categories),
		Reviews:    api.NewReviewHandler(reviews),
		Users:      api.NewUserHandler(users),
	}, auth)

	log.Info().Msgf("%s listening on :%s", cfg.ServiceName, cfg.Port)
	if err := api.Serve(ctx, e, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
	stop()
	wg.Wait()
}

func seedAdmin(ctx context.Context, users *service.UserService, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	_, err := users.Create(ctx, service.RegisterInput{
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		FirstName: "Admin",
	}, entity.RoleAdmin)
	switch {
	case err == nil:
		log.Info().Str("email", cfg.AdminEmail).Msg("Seeded admin account")
	case errors.Is(err, apperror.ErrEmailTaken):
	default:
		log.Error().Err(err).Msg("Failed to seed admin account")
	}
}
