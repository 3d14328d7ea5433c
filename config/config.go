package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port           string
	AllowedOrigins string
	BodyLimitBytes int

	RateLimitMax    int
	RateLimitWindow time.Duration

	DBDriver    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// ReleaseDelay is how long a paid table stays OCCUPIED when the cashier
	// does not free it immediately.
	ReleaseDelay time.Duration
	ReleaseSweep string

	DefaultEmployeeID uint
	SeedPassword      string

	RabbitMQURL string
	Twilio      TwilioConfig

	LogLevel string
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	From         string
	WhatsAppFrom string
}

// Enabled reports whether enough credentials are present to send messages.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != ""
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	secret := envString("JWT_SECRET_KEY", "")
	if secret == "" {
		secret = envString("JWT_SECRET", "")
	}

	cfg := &Config{
		Port:              envString("PORT", "8080"),
		AllowedOrigins:    envString("ALLOWED_ORIGINS", "*"),
		BodyLimitBytes:    bodyLimit,
		RateLimitMax:      envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		DBDriver:          strings.ToLower(envString("DB_DRIVER", "postgres")),
		DatabaseURL:       envString("DATABASE_URL", ""),
		JWTSecret:         secret,
		JWTTTL:            envDuration("JWT_TTL", 24*time.Hour),
		ReleaseDelay:      time.Duration(envInt("TABLE_RELEASE_DELAY_SECONDS", 5)) * time.Second,
		ReleaseSweep:      envString("TABLE_RELEASE_SWEEP", "@every 1s"),
		DefaultEmployeeID: uint(envInt("DEFAULT_EMPLOYEE_ID", 1)),
		SeedPassword:      envString("SEED_PASSWORD", "admin123"),
		RabbitMQURL:       envString("RABBITMQ_URL", ""),
		Twilio: TwilioConfig{
			AccountSID:   envString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:    envString("TWILIO_AUTH_TOKEN", ""),
			From:         envString("TWILIO_PHONE_NUMBER", ""),
			WhatsAppFrom: envString("TWILIO_WHATSAPP_NUMBER", ""),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDSN(cfg.DBDriver)
	}
	return cfg
}

func defaultDSN(driver string) string {
	switch driver {
	case "sqlite":
		return envString("DB_PATH", "cafe.db")
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), envString("DB_HOST", "db"),
			envInt("DB_PORT", 3306), os.Getenv("DB_NAME"))
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			envString("DB_HOST", "db"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"), envInt("DB_PORT", 5432))
	}
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
