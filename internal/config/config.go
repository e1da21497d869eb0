package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// Session storage
	StorageDriver string
	DatabaseURL   string
	SQLitePath    string
	SessionDir    string
	SessionTTL    time.Duration
	PanelTTL      time.Duration
	// Response catalog; empty means the built-in catalog
	CatalogFile  string
	CatalogWatch bool
	// Chat panel timings
	TypingDelay         time.Duration
	FocusDelay          time.Duration
	SuggestionOpenDelay time.Duration
	// Optional directory with the built site
	StaticDir string
	// Logging
	LogLevel       string
	LogDevelopment bool
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                getEnvDefault("PORT", "8080"),
		AllowedOrigin:       getEnvDefault("ALLOWED_ORIGIN", "*"),
		StorageDriver:       strings.ToLower(getEnvDefault("STORAGE_DRIVER", DriverMemory)),
		DatabaseURL:         os.Getenv("DB_URL"),
		SQLitePath:          getEnvDefault("SQLITE_PATH", "data/sessions.db"),
		SessionDir:          getEnvDefault("SESSION_DIR", "data/sessions"),
		SessionTTL:          getEnvDurationDefault("SESSION_TTL", 12*time.Hour),
		PanelTTL:            getEnvDurationDefault("PANEL_TTL", 30*time.Minute),
		CatalogFile:         os.Getenv("CATALOG_FILE"),
		CatalogWatch:        getEnvBoolDefault("CATALOG_WATCH", false),
		TypingDelay:         getEnvDurationDefault("TYPING_DELAY", 900*time.Millisecond),
		FocusDelay:          getEnvDurationDefault("FOCUS_DELAY", 300*time.Millisecond),
		SuggestionOpenDelay: getEnvDurationDefault("SUGGESTION_OPEN_DELAY", 350*time.Millisecond),
		StaticDir:           os.Getenv("STATIC_DIR"),
		LogLevel:            getEnvDefault("LOG_LEVEL", "info"),
		LogDevelopment:      getEnvBoolDefault("LOG_DEVELOPMENT", false),
	}
}

// Validate reports configuration that cannot produce a working server.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverFile:
		if strings.TrimSpace(c.SessionDir) == "" {
			return fmt.Errorf("SESSION_DIR is required for the file storage driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DB_URL is required for the postgres storage driver")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.TypingDelay < 0 || c.FocusDelay < 0 || c.SuggestionOpenDelay < 0 {
		return fmt.Errorf("panel delays must not be negative")
	}
	if c.CatalogWatch && c.CatalogFile == "" {
		return fmt.Errorf("CATALOG_WATCH needs CATALOG_FILE")
	}
	return nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("900ms") or bare milliseconds.
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
