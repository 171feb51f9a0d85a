package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	EnableRedis bool
	RedisURL    string

	// JWT
	JWTSecret string

	// Server
	Port        string
	Environment string

	// CORS
	CORSOrigins []string

	// Payment gateway. Credentials and the exchange rate are validated at the
	// point of use so a misconfigured gateway does not block unrelated routes.
	GatewayAPIKey        string
	GatewayBaseURL       string
	SettlementCurrency   string
	ExchangeRate         string
	GatewayClientTimeout int

	// PublicURL is this service's externally reachable base URL; the
	// processor calls back to it for the return redirect and the webhook.
	PublicURL string

	// Storefront URLs the buyer is redirected to after payment.
	SiteURL          string
	CheckoutPath     string
	OrderReceivedURL string
	CartURL          string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int
	RateLimitBurst    int

	// Features
	EnableCache   bool
	EnableMetrics bool
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "shopuser"),
		DBPassword: getEnv("DB_PASSWORD", "shoppassword"),
		DBName:     getEnv("DB_NAME", "shopdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Payment gateway
		GatewayAPIKey:        getEnv("GATEWAY_API_KEY", ""),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", ""),
		SettlementCurrency:   getEnv("GATEWAY_SETTLEMENT_CURRENCY", "BDT"),
		ExchangeRate:         getEnv("GATEWAY_EXCHANGE_RATE", ""),
		GatewayClientTimeout: getEnvAsInt("GATEWAY_CLIENT_TIMEOUT", 10),

		PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),

		// Storefront URLs
		SiteURL:          getEnv("SITE_URL", "http://localhost:8081"),
		CheckoutPath:     getEnv("CHECKOUT_PATH", "/checkout"),
		OrderReceivedURL: getEnv("ORDER_RECEIVED_URL", "/checkout/order-received"),
		CartURL:          getEnv("CART_URL", "/cart"),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 20),

		// Features
		EnableCache:   getEnvAsBool("ENABLE_CACHE", true),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
