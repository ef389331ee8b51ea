package config_test

import (
	"testing"
	"time"

	"github.com/haulfile/tax-engine/config"
	"github.com/haulfile/tax-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "taxengine.db", cfg.DBPath)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, generic.UnknownAsZero, cfg.UnknownPolicy)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.False(t, cfg.IsProduction())
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.Equal(t, time.Minute, cfg.RateReload)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"TAXENGINE_PORT":                 "9090",
		"TAXENGINE_ENV":                  "production",
		"TAXENGINE_UNKNOWN_JURISDICTION": "reject",
		"TAXENGINE_BATCH_CONCURRENCY":    "8",
		"TAXENGINE_ALLOWED_ORIGINS":      "https://app.example.com, ,https://admin.example.com",
		"TAXENGINE_DATABASE_URL":         "postgres://localhost/tax",
		"TAXENGINE_RATE_RELOAD_INTERVAL": "0",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, generic.UnknownReject, cfg.UnknownPolicy)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://localhost/tax", cfg.DatabaseURL)
	assert.Zero(t, cfg.RateReload)
}

func TestFromEnv_Invalid(t *testing.T) {
	for _, m := range []map[string]string{
		{"TAXENGINE_PORT": "http"},
		{"TAXENGINE_BATCH_CONCURRENCY": "0"},
		{"TAXENGINE_UNKNOWN_JURISDICTION": "ignore"},
		{"TAXENGINE_RATE_RELOAD_INTERVAL": "-5s"},
		{"TAXENGINE_RATE_RELOAD_INTERVAL": "hourly"},
	} {
		_, err := config.FromEnv(env(m))
		assert.Error(t, err, "%v", m)
	}
}
