package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// VaultSecret derives the AES key protecting PII columns and
	// document references.
	VaultSecret string

	// DocumentDir is the root of the local document store.
	DocumentDir string

	GatewayBaseURL    string
	GatewayAPIKey     string
	GatewaySuccessURL string
	GatewayFailureURL string
	GatewayCancelURL  string

	// CheckoutAbandonWindow is how long an initiated checkout is considered
	// live before it counts as abandoned. Reconciliation is callback-driven;
	// the window is informational only.
	CheckoutAbandonWindow time.Duration

	// Utility tariffs applied to meter consumption when deriving a monthly
	// bill. Kept as strings; the billing service parses them as decimals.
	WaterRate       string
	ElectricityRate string

	// BillingDueDay is the day of the month a generated bill falls due.
	BillingDueDay int

	// SeedDemoData bootstraps a demo property with vacant units on startup.
	SeedDemoData bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "leaseledger"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "leaseledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		VaultSecret: strings.TrimSpace(getenv("VAULT_SECRET", "")),
		DocumentDir: getenv("DOCUMENT_DIR", "./documents"),

		GatewayBaseURL:    getenv("GATEWAY_BASE_URL", "https://api.gateway.test"),
		GatewayAPIKey:     strings.TrimSpace(getenv("GATEWAY_API_KEY", "")),
		GatewaySuccessURL: getenv("GATEWAY_SUCCESS_URL", "http://localhost:8080/api/payments/confirm"),
		GatewayFailureURL: getenv("GATEWAY_FAILURE_URL", "http://localhost:8080/api/payments/confirm"),
		GatewayCancelURL:  getenv("GATEWAY_CANCEL_URL", "http://localhost:8080/api/payments/cancel"),

		CheckoutAbandonWindow: getenvDuration("CHECKOUT_ABANDON_WINDOW", 24*time.Hour),

		WaterRate:       getenv("WATER_RATE", "35.00"),
		ElectricityRate: getenv("ELECTRICITY_RATE", "12.50"),
		BillingDueDay:   getenvInt("BILLING_DUE_DAY", 10),

		SeedDemoData: getenvBool("SEED_DEMO_DATA", false),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
