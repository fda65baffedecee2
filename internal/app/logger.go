package app

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a configured slog.Logger based on configuration.
// When LOG_FILE is set, output is mirrored into a size-rotated file.
func NewLogger(cfg *Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg != nil && cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		})
	}
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}
