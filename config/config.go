// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	DBPath           string        // SQLite file, used when DatabaseURL is empty
	DatabaseURL      string        // Postgres DSN
	Env              string        // "production" selects JSON logs
	RateTablePath    string        // optional .json/.yaml rate table
	RateReload       time.Duration // file check interval; 0 disables
	UnknownPolicy    generic.UnknownPolicy
	BatchConcurrency int
	AllowedOrigins   []string
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply their
// own environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DBPath:        get("TAXENGINE_DB", "taxengine.db"),
		DatabaseURL:   get("TAXENGINE_DATABASE_URL", ""),
		Env:           get("TAXENGINE_ENV", "development"),
		RateTablePath: get("TAXENGINE_RATE_TABLE", ""),
	}

	var err error
	if cfg.Port, err = atoiKey("TAXENGINE_PORT", get("TAXENGINE_PORT", "8080")); err != nil {
		return Config{}, err
	}
	if cfg.BatchConcurrency, err = atoiKey("TAXENGINE_BATCH_CONCURRENCY", get("TAXENGINE_BATCH_CONCURRENCY", "4")); err != nil {
		return Config{}, err
	}
	if cfg.BatchConcurrency < 1 {
		return Config{}, fmt.Errorf("TAXENGINE_BATCH_CONCURRENCY must be at least 1")
	}

	if cfg.RateReload, err = time.ParseDuration(get("TAXENGINE_RATE_RELOAD_INTERVAL", "1m")); err != nil || cfg.RateReload < 0 {
		return Config{}, fmt.Errorf("TAXENGINE_RATE_RELOAD_INTERVAL must be a non-negative duration")
	}

	cfg.UnknownPolicy, err = generic.ParseUnknownPolicy(get("TAXENGINE_UNKNOWN_JURISDICTION", "zero"))
	if err != nil {
		return Config{}, fmt.Errorf("TAXENGINE_UNKNOWN_JURISDICTION: %w", err)
	}

	origins := get("TAXENGINE_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}

func atoiKey(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}
