package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddress           string
	MongoDBConnectionString string
	MongoDBDatabaseName     string
	RabbitMQHostName        string
	RabbitMQExchange        string
	RabbitMQQueueName       string
	JWTSecret               string
	JWTSessionTTL           time.Duration
	JWTPendingTTL           time.Duration
	TOTPIssuer              string
}

func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables only")
	}

	config := &Config{
		ListenAddress:           os.Getenv("LISTEN_ADDRESS"),
		MongoDBConnectionString: os.Getenv("MONGODB_CONNECTION_STRING"),
		MongoDBDatabaseName:     os.Getenv("MONGODB_DATABASE_NAME"),
		RabbitMQHostName:        os.Getenv("RABBITMQ_HOSTNAME"),
		RabbitMQExchange:        os.Getenv("RABBITMQ_EXCHANGE"),
		RabbitMQQueueName:       os.Getenv("RABBITMQ_QUEUENAME"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		TOTPIssuer:              os.Getenv("TOTP_ISSUER"),
	}

	// Set default values if environment variables are not set
	if config.ListenAddress == "" {
		config.ListenAddress = ":8080"
	}
	if config.MongoDBDatabaseName == "" {
		config.MongoDBDatabaseName = "order-db"
	}
	if config.RabbitMQExchange == "" {
		config.RabbitMQExchange = "order_events"
	}
	if config.RabbitMQQueueName == "" {
		config.RabbitMQQueueName = "order_events_queue"
	}
	if config.TOTPIssuer == "" {
		config.TOTPIssuer = "OrderDeskApp"
	}

	config.JWTSessionTTL = durationFromEnv("JWT_SESSION_TTL", time.Hour)
	config.JWTPendingTTL = durationFromEnv("JWT_PENDING_TTL", 5*time.Minute)

	return config, nil
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}
