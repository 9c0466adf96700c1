package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

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

	// The event store is a separate read-only database.
	EventsDBHost     string
	EventsDBPort     string
	EventsDBName     string
	EventsDBUser     string
	EventsDBPassword string
	EventsDBSSLMode  string

	RatePlanBaseURL     string
	SubscriptionBaseURL string
	NotifierBaseURL     string

	HTTPTimeout      time.Duration
	MaxResponseBytes int64

	CredentialSecret string
	CredentialIssuer string
	CredentialTTL    time.Duration

	MonitorInterval time.Duration
	MonitorEnabled  bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "meterline"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "metering"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		EventsDBHost:     getenv("EVENTS_DATABASE_HOST", "localhost"),
		EventsDBPort:     getenv("EVENTS_DATABASE_PORT", "5432"),
		EventsDBName:     getenv("EVENTS_DATABASE_NAME", "data_ingestion"),
		EventsDBUser:     getenv("EVENTS_DATABASE_USER", "postgres"),
		EventsDBPassword: getenv("EVENTS_DATABASE_PASSWORD", "postgres"),
		EventsDBSSLMode:  getenv("EVENTS_DATABASE_SSLMODE", "disable"),

		RatePlanBaseURL:     getenv("RATEPLAN_BASE_URL", "http://localhost:8081"),
		SubscriptionBaseURL: getenv("SUBSCRIPTION_BASE_URL", "http://localhost:8084"),
		NotifierBaseURL:     getenv("NOTIFIER_BASE_URL", "http://localhost:8095"),

		HTTPTimeout:      getenvDuration("HTTP_TIMEOUT", 10*time.Second),
		MaxResponseBytes: getenvInt64("HTTP_MAX_RESPONSE_BYTES", 5*1024*1024),

		CredentialSecret: getenv("CREDENTIAL_SECRET", "change-me-please-change-me-32-bytes-min"),
		CredentialIssuer: getenv("CREDENTIAL_ISSUER", "meterline"),
		CredentialTTL:    getenvDuration("CREDENTIAL_TTL", 2*time.Hour),

		MonitorInterval: getenvDuration("MONITOR_INTERVAL", 10*time.Minute),
		MonitorEnabled:  getenvBool("MONITOR_ENABLED", true),
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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
