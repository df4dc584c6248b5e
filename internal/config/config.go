package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv" // optional .env loading for local development
)

// devSecret signs sessions outside production when JWT_SECRET is unset.
const devSecret = "dev-insecure-secret-change-me"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env           string        // application environment (development, test, production)
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to sign session tokens
	SessionTTL    time.Duration // session lifetime (cookie Max-Age and token exp)
	BcryptCost    int           // bcrypt cost for password hashing
	BaseURL       string        // public origin used in invitation links
	LogLevel      string        // logrus level name
	LogFormat     string        // json or text
	AMQPURL       string        // RabbitMQ URL; empty disables event publishing
	EventsQueue   string        // queue receiving activity events
	ActivityLog   string        // directory the activity consumer appends to
	OTLPEndpoint  string        // OTLP/HTTP collector; empty disables tracing
	MigrateOnBoot bool          // run embedded migrations before serving

	// InsecureSecret is set when the development fallback secret is in use.
	InsecureSecret bool
}

// ErrMissingSecret is returned by Load in production without JWT_SECRET.
var ErrMissingSecret = errors.New("config: JWT_SECRET is required in production")

// Production reports whether the app runs with production settings.
func (c Config) Production() bool { return c.Env == "production" }

// Load reads a .env file when present and then builds a Config from the
// environment.  Missing values fall back to development defaults except the
// signing secret, which must be set in production.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development

	cfg := Config{
		Env:           strings.ToLower(envStr("APP_ENV", "development")),
		Port:          envStr("PORT", envStr("APP_PORT", "8080")),
		DBUser:        envStr("DB_USER", "root"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        envStr("DB_HOST", "127.0.0.1"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        envStr("DB_NAME", "bookings"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionTTL:    time.Duration(envInt("SESSION_TTL_HOURS", 168)) * time.Hour,
		BcryptCost:    envInt("BCRYPT_COST", 10),
		BaseURL:       strings.TrimRight(envStr("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFormat:     envStr("LOG_FORMAT", "json"),
		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsQueue:   envStr("EVENTS_QUEUE", "bookings.activity"),
		ActivityLog:   envStr("ACTIVITY_LOG_DIR", "logs"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MigrateOnBoot: envBool("MIGRATE_ON_START", false),
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return Config{}, ErrMissingSecret
		}
		cfg.JWTSecret = devSecret
		cfg.InsecureSecret = true
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("config: SESSION_TTL_HOURS must be positive")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("config: BCRYPT_COST %d out of range 4-31", cfg.BcryptCost)
	}
	return cfg, nil
}

// DSNParts returns the database connection settings in database.DSN order.
func (c Config) DSNParts() (user, pass, host, port, name string) {
	return c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName
}
