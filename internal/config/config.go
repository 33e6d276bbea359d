package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPaystackBaseURL = "https://api.paystack.co"
	defaultDeliveryFee     = 1000
	defaultKafkaTopic      = "checkout.events"
	defaultOutboxInterval  = 2 * time.Second
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	PaystackSecretKey  string
	PaystackBaseURL    string
	PaymentCallbackURL string

	JWTSecret    string
	CookieSecret string
	CORSOrigin   string

	// DeliveryFee is added to every non-empty cart, in major currency units.
	DeliveryFee int64

	RedisURL           string
	KafkaBrokers       []string
	KafkaTopic         string
	OutboxPollInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:             os.Getenv("DB_HOST"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBPort:             os.Getenv("DB_PORT"),
		AppPort:            getenv("APP_PORT", "8080"),
		AppEnv:             os.Getenv("APP_ENV"),
		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:    strings.TrimRight(getenv("PAYSTACK_BASE_URL", defaultPaystackBaseURL), "/"),
		PaymentCallbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CookieSecret:       os.Getenv("COOKIE_SECRET"),
		CORSOrigin:         getenv("CORS_ORIGIN", "http://localhost:3000"),
		DeliveryFee:        getenvInt64("DELIVERY_FEE", defaultDeliveryFee),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getenv("KAFKA_TOPIC", defaultKafkaTopic),
		OutboxPollInterval: getenvDuration("OUTBOX_POLL_INTERVAL", defaultOutboxInterval),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
