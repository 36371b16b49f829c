package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultLogFormat        = LogFormatText
	defaultLogLevel         = slog.LevelInfo
	defaultMaxSteps         = 8
	defaultMaxParallelTools = 0
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config controls logging and engine limits.
type Config struct {
	LogFormat LogFormat
	LogLevel  slog.Level
	// MaxSteps is the model step budget per execution.
	MaxSteps int
	// MaxParallelTools bounds concurrent tool calls in a step; zero is unbounded.
	MaxParallelTools int
}

// Load reads runtime configuration from environment variables.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	level := strings.TrimSpace(getenv("GRAPHFLEET_LOG_LEVEL"))
	if level == "" {
		level = strings.TrimSpace(getenv("LOG_LEVEL"))
	}
	if level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}
	if format := strings.TrimSpace(getenv("GRAPHFLEET_LOG_FORMAT")); format != "" {
		parsed, err := parseLogFormat(format)
		if err != nil {
			return Config{}, err
		}
		cfg.LogFormat = parsed
	}
	if steps := strings.TrimSpace(getenv("GRAPHFLEET_MAX_STEPS")); steps != "" {
		parsed, err := strconv.Atoi(steps)
		if err != nil {
			return Config{}, fmt.Errorf("parse GRAPHFLEET_MAX_STEPS: %w", err)
		}
		cfg.MaxSteps = parsed
	}
	if parallel := strings.TrimSpace(getenv("GRAPHFLEET_MAX_PARALLEL_TOOLS")); parallel != "" {
		parsed, err := strconv.Atoi(parallel)
		if err != nil {
			return Config{}, fmt.Errorf("parse GRAPHFLEET_MAX_PARALLEL_TOOLS: %w", err)
		}
		cfg.MaxParallelTools = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		LogFormat:        defaultLogFormat,
		LogLevel:         defaultLogLevel,
		MaxSteps:         defaultMaxSteps,
		MaxParallelTools: defaultMaxParallelTools,
	}
}

func (c Config) Validate() error {
	switch c.LogLevel {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
	default:
		return fmt.Errorf(
			"validate config: unsupported GRAPHFLEET_LOG_LEVEL %q (allowed: %q, %q, %q, %q)",
			c.LogLevel.String(),
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf(
			"validate config: unsupported GRAPHFLEET_LOG_FORMAT %q (allowed: %q, %q)",
			c.LogFormat,
			LogFormatText,
			LogFormatJSON,
		)
	}

	if c.MaxSteps <= 0 {
		return fmt.Errorf("validate config: GRAPHFLEET_MAX_STEPS must be > 0, got %d", c.MaxSteps)
	}
	if c.MaxParallelTools < 0 {
		return fmt.Errorf("validate config: GRAPHFLEET_MAX_PARALLEL_TOOLS must be >= 0, got %d", c.MaxParallelTools)
	}
	return nil
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"parse GRAPHFLEET_LOG_LEVEL: unsupported value %q (allowed: %q, %q, %q, %q)",
			input,
			slog.LevelDebug.String(),
			slog.LevelInfo.String(),
			slog.LevelWarn.String(),
			slog.LevelError.String(),
		)
	}
}

func parseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse GRAPHFLEET_LOG_FORMAT: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}
