package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var logLevel = new(slog.LevelVar)

// configureLogging sets up the default logger with a TextHandler on stderr,
// keeping stdout for records.
func configureLogging(level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	logLevel.Set(lvl)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "", "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}
