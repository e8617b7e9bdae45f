package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppEnv  string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	PayOSClientID    string
	PayOSAPIKey      string
	PayOSChecksumKey string

	// StoreOrigin is the storefront origin allowed by CORS on /api routes.
	StoreOrigin string
	// PublicRoutes are path prefixes exempt from the auth gate.
	PublicRoutes []string

	SessionJWTSecret string

	ReturnURL string
	CancelURL string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "development"),

		MongoURI: os.Getenv("MONGODB_URI"),
		MongoDB:  getEnv("MONGODB_NAME", "comet"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PayOSClientID:    os.Getenv("PAYOS_CLIENT_ID"),
		PayOSAPIKey:      os.Getenv("PAYOS_API_KEY"),
		PayOSChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),

		StoreOrigin:  getEnv("ECOMMERCE_STORE_URL", "https://comet-store.vercel.app"),
		PublicRoutes: splitList(getEnv("PUBLIC_ROUTES", "/healthz,/api/webhooks,/api/products")),

		SessionJWTSecret: os.Getenv("SESSION_JWT_SECRET"),

		ReturnURL: getEnv("PAYMENT_RETURN_URL", "https://comet-store.vercel.app/payment_success"),
		CancelURL: getEnv("PAYMENT_CANCEL_URL", "https://comet-store.vercel.app/cart"),
	}

	if cfg.MongoURI == "" {
		log.Fatal("MONGODB_URI not set")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
