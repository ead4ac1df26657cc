package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestEffectiveMaxActions(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 60, cfg.EffectiveMaxActions(nil))
	assert.Equal(t, 10, cfg.EffectiveMaxActions(intPtr(10)))
	// hard cap unset falls back to the same default
	assert.Equal(t, 60, cfg.EffectiveMaxActions(intPtr(500)))
	assert.Equal(t, 60, cfg.EffectiveMaxActions(intPtr(0)))

	cfg.MaxActionsHardCap = 20
	assert.Equal(t, 20, cfg.EffectiveMaxActions(nil))
	assert.Equal(t, 20, cfg.EffectiveMaxActions(intPtr(100)))
	assert.Equal(t, 5, cfg.EffectiveMaxActions(intPtr(5)))

	cfg.MaxActionsHardCap = 0
	cfg.MaxActionsDefault = 100
	assert.Equal(t, 100, cfg.EffectiveMaxActions(intPtr(150)))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ACTION_RUNNER_DATA_DIR", "/tmp/ar")
	t.Setenv("ACTION_RUNNER_MAX_ACTIONS", "25")
	t.Setenv("ACTION_RUNNER_MIN_INTERVAL_MS", "500")
	t.Setenv("ACTION_RUNNER_BROWSER", "STATIC")
	t.Setenv("ACTION_RUNNER_HEADLESS", "false")
	t.Setenv("HTTP_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "/tmp/ar", cfg.DataDir)
	assert.Equal(t, "/tmp/ar/action_runs", cfg.RunsDir())
	assert.Equal(t, "/tmp/ar/action_runner_allowlist.json", cfg.AllowlistPath())
	assert.Equal(t, 25, cfg.MaxActionsDefault)
	assert.Equal(t, 0, cfg.MaxActionsHardCap)
	assert.Equal(t, 500*time.Millisecond, cfg.MinRunInterval)
	assert.Equal(t, BrowserStatic, cfg.BrowserEngine)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 8080, cfg.HTTPPort)
}
