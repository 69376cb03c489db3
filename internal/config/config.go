package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	ServiceName string

	// DBDriver is "mysql" or "memory".
	DBDriver string
	DBDSN    string

	RedisAddr string

	KafkaEnabled  bool
	KafkaBrokers  []string
	OrderTopic    string
	ConsumerGroup string

	JWTSecret            string
	JWTExpiration        time.Duration
	JWTRefreshSecret     string
	JWTRefreshExpiration time.Duration

	PaymentWebhookSecret string
	WebhookTolerance     time.Duration

	RateLimit       float64
	RateBurst       int
	ProductCacheTTL time.Duration

	// AdminEmail and AdminPassword seed an admin account on startup when both are set.
	AdminEmail    string
	AdminPassword string
}

// Load reads the environment and falls back to local development defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "commerce-service"),

		DBDriver: getEnv("DB_DRIVER", "mysql"),
		// clientFoundRows makes RowsAffected count matched rows, not changed ones
		DBDSN: getEnv("DB_DSN", "root:@tcp(127.0.0.1:3306)/commerce?parseTime=true&clientFoundRows=true"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		KafkaEnabled:  getBool("KAFKA_ENABLED", true),
		KafkaBrokers:  splitBrokers(getEnv("KAFKA_BROKERS", "localhost:9092,localhost:9093,localhost:9094")),
		OrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order-topic"),
		ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "product-cache-group"),

		JWTSecret:            getEnv("JWT_SECRET", "secret"),
		JWTExpiration:        getDuration("JWT_EXPIRATION", 15*time.Minute),
		JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", "refresh-secret"),
		JWTRefreshExpiration: getDuration("JWT_REFRESH_EXPIRATION", 7*24*time.Hour),

		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", "whsec_local"),
		WebhookTolerance:     getDuration("PAYMENT_WEBHOOK_TOLERANCE", 5*time.Minute),

		RateLimit:       getFloat("RATE_LIMIT", 1),
		RateBurst:       getInt("RATE_BURST", 3),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 10*time.Minute),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// getFloat accepts zero so a limit can be switched off.
func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
