package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string
	// SettingsStore selects the backend. Empty picks postgres when
	// DatabaseURL is set, sqlite when SQLitePath is set, memory otherwise.
	SettingsStore string
	// SettingsFile seeds the store from a JSON or YAML document.
	SettingsFile     string
	Timezone         string
	LogLevel         string
	TransitAggregate string
	// DBMaxConns and DBStatementTimeout size the postgres pool.
	DBMaxConns         int
	DBStatementTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		SettingsStore:    strings.ToLower(strings.TrimSpace(os.Getenv("SETTINGS_STORE"))),
		SettingsFile:     os.Getenv("SETTINGS_FILE"),
		Timezone:         getEnv("STORE_TIMEZONE", "UTC"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TransitAggregate: getEnv("EDD_TRANSIT_AGGREGATE", "enabled"),

		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 5),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
	}
	if cfg.SettingsStore == "" {
		switch {
		case strings.TrimSpace(cfg.DatabaseURL) != "":
			cfg.SettingsStore = StorePostgres
		case strings.TrimSpace(cfg.SQLitePath) != "":
			cfg.SettingsStore = StoreSQLite
		default:
			cfg.SettingsStore = StoreMemory
		}
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getEnvInt falls back to def unless the value is a positive integer.
func getEnvInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// getEnvDuration accepts "2s" style durations or bare milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
