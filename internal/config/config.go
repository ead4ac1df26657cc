// Package config provides configuration for the action runner.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxActions is the plan-level action ceiling when nothing else is set.
// It doubles as the hard cap when ACTION_RUNNER_MAX_ACTIONS_HARD is unset.
const DefaultMaxActions = 60

// Browser engines.
const (
	BrowserChromedp = "chromedp"
	BrowserStatic   = "static"
)

// Allowlist backends.
const (
	AllowlistJSON   = "json"
	AllowlistSQLite = "sqlite"
)

// Config holds the action runner configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	DataDir          string
	AllowlistBackend string
	AllowlistDSN     string

	// Action ceiling. MaxActionsHardCap is 0 when unset.
	MaxActionsDefault int
	MaxActionsHardCap int

	// Minimum interval between run starts per workspace. 0 disables the limit.
	MinRunInterval time.Duration

	// Browser
	BrowserEngine string
	Headless      bool
	ChromePath    string
	UserAgent     string

	// Default per-step timeouts
	NavigationTimeout time.Duration
	StepTimeout       time.Duration

	// Approval policy override (Rego source file, package action_policy).
	// New domains require approval regardless of its rules.
	PolicyFile string

	// Planner LLM
	LiteLLMURL    string
	LiteLLMAPIKey string
	PlannerModel  string
	LLMTimeout    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	dataDir := getEnv("ACTION_RUNNER_DATA_DIR", "data")
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DataDir:           dataDir,
		AllowlistBackend:  strings.ToLower(getEnv("ACTION_RUNNER_ALLOWLIST_BACKEND", AllowlistJSON)),
		AllowlistDSN:      getEnv("ACTION_RUNNER_ALLOWLIST_DSN", "file:"+filepath.Join(dataDir, "action_runner_allowlist.db")+"?cache=shared&mode=rwc"),
		MaxActionsDefault: getEnvInt("ACTION_RUNNER_MAX_ACTIONS", DefaultMaxActions),
		MaxActionsHardCap: getEnvInt("ACTION_RUNNER_MAX_ACTIONS_HARD", 0),
		MinRunInterval:    time.Duration(getEnvInt("ACTION_RUNNER_MIN_INTERVAL_MS", 3000)) * time.Millisecond,
		BrowserEngine:     strings.ToLower(getEnv("ACTION_RUNNER_BROWSER", BrowserChromedp)),
		Headless:          getEnvBool("ACTION_RUNNER_HEADLESS", true),
		ChromePath:        getEnv("ACTION_RUNNER_CHROME_PATH", ""),
		UserAgent:         getEnv("ACTION_RUNNER_USER_AGENT", ""),
		NavigationTimeout: time.Duration(getEnvInt("ACTION_RUNNER_NAV_TIMEOUT_MS", 30000)) * time.Millisecond,
		StepTimeout:       time.Duration(getEnvInt("ACTION_RUNNER_STEP_TIMEOUT_MS", 15000)) * time.Millisecond,
		PolicyFile:        getEnv("ACTION_RUNNER_POLICY_FILE", ""),
		LiteLLMURL:        getEnv("LITELLM_URL", "http://localhost:4000"),
		LiteLLMAPIKey:     getEnv("LITELLM_API_KEY", ""),
		PlannerModel:      getEnv("PLANNER_MODEL", "gpt-4o-mini"),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_MS", 20000)) * time.Millisecond,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
	return cfg
}

// Default returns the configuration used when no environment is set. Tests
// start from it and override fields.
func Default() *Config {
	return &Config{
		HTTPPort:          8080,
		DataDir:           "data",
		AllowlistBackend:  AllowlistJSON,
		MaxActionsDefault: DefaultMaxActions,
		MinRunInterval:    3 * time.Second,
		BrowserEngine:     BrowserChromedp,
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		StepTimeout:       15 * time.Second,
		PlannerModel:      "gpt-4o-mini",
		LLMTimeout:        20 * time.Second,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// RunsDir is where run directories live.
func (c *Config) RunsDir() string {
	return filepath.Join(c.DataDir, "action_runs")
}

// AllowlistPath is the JSON allowlist document.
func (c *Config) AllowlistPath() string {
	return filepath.Join(c.DataDir, "action_runner_allowlist.json")
}

// EffectiveMaxActions applies the ceiling rule:
// min(requested or default, hard cap or default). A non-positive request
// counts as unset.
func (c *Config) EffectiveMaxActions(requested *int) int {
	def := c.MaxActionsDefault
	if def <= 0 {
		def = DefaultMaxActions
	}
	want := def
	if requested != nil && *requested > 0 {
		want = *requested
	}
	hard := c.MaxActionsHardCap
	if hard <= 0 {
		hard = def
	}
	return min(want, hard)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
