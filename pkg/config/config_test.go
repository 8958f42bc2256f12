package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, 3, cfg.SyncWorkers)
	assert.Equal(t, int64(500), cfg.GmailMaxResults)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("GMAIL_MAX_RESULTS", "5000")
	t.Setenv("SYNC_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Minute, cfg.SyncInterval)
	assert.Equal(t, int64(500), cfg.GmailMaxResults)
	assert.Equal(t, 3, cfg.SyncWorkers)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestExtraLists(t *testing.T) {
	cfg := &Config{
		ClassifierExtraPatterns: " Alerts , ,billing",
		ClassifierExtraDomains:  "mailchimp.com",
	}

	assert.Equal(t, []string{"alerts", "billing"}, cfg.ExtraPatterns())
	assert.Equal(t, []string{"mailchimp.com"}, cfg.ExtraDomains())
	assert.Nil(t, (&Config{}).ExtraDomains())
}
