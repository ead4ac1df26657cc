package browser

import (
	"fmt"

	"github.com/xiaot623/gogo/actionrunner/internal/config"
)

// NewLauncher selects the engine configured by ACTION_RUNNER_BROWSER.
func NewLauncher(cfg *config.Config) (Launcher, error) {
	switch cfg.BrowserEngine {
	case "", config.BrowserChromedp:
		return NewChromeLauncher(ChromeOptions{
			Headless:  cfg.Headless,
			ExecPath:  cfg.ChromePath,
			UserAgent: cfg.UserAgent,
		}), nil
	case config.BrowserStatic:
		return NewStaticLauncher(cfg.UserAgent, nil), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.BrowserEngine)
	}
}
