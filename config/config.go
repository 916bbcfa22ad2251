package config

import (
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// MQTT ingest bridge
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// Telemetry settings
	SampleRetentionDays   int
	MaxBatchSize          int
	GeofenceDebounceCount int // consecutive same-side evaluations before a transition commits
	GeofenceRefreshSec    int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   int // minutes
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/fleettrack"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "fleettrack-server"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "fleettrack/telemetry/+"),

		SampleRetentionDays:   getEnvAsInt("SAMPLE_RETENTION_DAYS", 30),
		MaxBatchSize:          getEnvAsInt("MAX_BATCH_SIZE", 500),
		GeofenceDebounceCount: getEnvAsInt("GEOFENCE_DEBOUNCE_COUNT", 2),
		GeofenceRefreshSec:    getEnvAsInt("GEOFENCE_REFRESH_SECONDS", 60),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
