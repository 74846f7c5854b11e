package logger

import (
	"fmt"
	"log/slog"
	"os"
)

func Initialize(level slog.Level) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(logger)
}

func Named(name string) *slog.Logger {
	logger := slog.Default()
	if logger == nil {
		return nil
	}

	return logger.With("name", name)
}

// ParseLevel maps a level name such as "info" to its slog level. An empty name is debug.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelDebug, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelDebug, fmt.Errorf("invalid log level '%s': %w", name, err)
	}
	return level, nil
}
