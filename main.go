package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/xiaot623/gogo/actionrunner/internal/config"
)

func main() {
	// Load .env if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("actionrunner"),
		kong.Description("Executes declarative browser action plans with approval gating."),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx.FatalIfErrorf(ctx.Run(cfg))
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
