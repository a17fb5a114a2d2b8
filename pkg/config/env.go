// Env loader
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageFile     = "file"
)

type Config struct {
	AppEnv           string
	Port             string
	StorageDriver    string
	DatabaseURL      string
	DBHost           string
	DBPort           string
	DBName           string
	DBUser           string
	DBPassword       string
	DBSchema         string
	SQLitePath       string
	DataFile         string
	JWTSecret        string
	TokenTTL         time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	GeneratorTimeout time.Duration
	SwaggerHost      string
	LogLevel         string
}

// LoadConfig loads environment variables from the .env file
func LoadConfig() *Config {

	appEnv := os.Getenv("APP_ENV")

	switch appEnv {
	case "production":
		if err := godotenv.Load(".env.production"); err == nil {
			fmt.Println("Loaded .env.production")
		}
	default:
		if err := godotenv.Load(".env.development"); err == nil {
			fmt.Println("Loaded .env.development")
		}
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      strings.TrimSpace(getEnv("DATABASE_URL", "")),
		DBHost:           getEnv("BLUEPRINT_DB_HOST", ""),
		DBPort:           getEnv("BLUEPRINT_DB_PORT", "5432"),
		DBName:           getEnv("BLUEPRINT_DB_DATABASE", "streak"),
		DBUser:           getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
		DBPassword:       getEnv("BLUEPRINT_DB_PASSWORD", ""),
		DBSchema:         getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		SQLitePath:       getEnv("SQLITE_PATH", "streak.db"),
		DataFile:         getEnv("DATA_FILE", "users_data.json"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         getDuration("TOKEN_TTL", 24*time.Hour),
		GeminiAPIKey:     strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeneratorTimeout: getDuration("GENERATOR_TIMEOUT", 20*time.Second),
		SwaggerHost:      getEnv("SWAGGER_HOST", "localhost:8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	cfg.StorageDriver = resolveStorageDriver(getEnv("STORAGE_DRIVER", ""), cfg)

	return cfg
}

// GeneratorConfigured reports whether a generator credential is present.
// It is read once at startup; the answer holds for the process lifetime.
func (c *Config) GeneratorConfigured() bool {
	return c.GeminiAPIKey != ""
}

// PostgresDSN returns DATABASE_URL when set, otherwise a DSN built from the
// BLUEPRINT_DB_* variables.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSchema)
}

func resolveStorageDriver(explicit string, cfg *Config) string {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case StoragePostgres:
		return StoragePostgres
	case StorageSQLite:
		return StorageSQLite
	case StorageFile:
		return StorageFile
	}

	if cfg.DatabaseURL != "" || cfg.DBHost != "" {
		return StoragePostgres
	}
	return StorageFile
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		fmt.Printf("Invalid %s=%q, using %s\n", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func GetAppEnv() string {
	if value, exists := os.LookupEnv("APP_ENV"); exists {
		return value
	}
	return "development"
}
