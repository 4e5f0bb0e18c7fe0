package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/enjoysite/friendmap/internal/identity"
)

const (
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

var DefaultAllowedNames = identity.DefaultMembers

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Session  SessionConfig
	Presence PresenceConfig
	Push     PushConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// DatabaseConfig is optional; an empty Host disables the member directory.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	URL string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type PresenceConfig struct {
	Backend          string
	AllowedNames     []string
	PublishPerMinute int
}

type PushConfig struct {
	Topic     string
	OnPublish bool
}

type AppConfig struct {
	ID          string
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appID := getEnv("APP_ID", "default-app-id")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "friendmap"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
		},
		Presence: PresenceConfig{
			Backend:          strings.ToLower(getEnv("STORE_BACKEND", StoreRedis)),
			AllowedNames:     getEnvAsList("ALLOWED_NAMES", DefaultAllowedNames),
			PublishPerMinute: getEnvAsInt("PUBLISH_RATE_PER_MIN", 30),
		},
		Push: PushConfig{
			Topic:     getEnv("PUSH_TOPIC", "friendmap-"+appID),
			OnPublish: getEnvAsBool("PUSH_ON_PUBLISH", false),
		},
		App: AppConfig{
			ID:          appID,
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.App.ID == "" {
		return fmt.Errorf("APP_ID is required")
	}

	if len(c.Presence.AllowedNames) == 0 {
		return fmt.Errorf("ALLOWED_NAMES must not be empty")
	}

	switch c.Presence.Backend {
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StoreFirestore:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for the firestore store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Presence.Backend)
	}

	if c.Session.Secret == "" && c.App.Environment == "production" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}

	if c.Presence.PublishPerMinute <= 0 {
		return fmt.Errorf("PUBLISH_RATE_PER_MIN must be positive")
	}

	return nil
}

// FirebaseEnabled reports whether Firebase credentials were provided.
func (c *Config) FirebaseEnabled() bool {
	return c.Firebase.CredentialsPath != ""
}

// DirectoryEnabled reports whether the PostgreSQL member directory is configured.
func (c *Config) DirectoryEnabled() bool {
	return c.Database.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
