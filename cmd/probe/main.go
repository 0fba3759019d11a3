package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/whookdev/echoprobe/internal/config"
	"github.com/whookdev/echoprobe/internal/probe"
)

// The probe always exits 0; transport failures are part of its report.
func main() {
	level := slog.LevelWarn
	if cfg, err := config.NewProbeConfig(); err == nil {
		level = cfg.LogLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	p := probe.New(nil, logger)
	if err := probe.Run(context.Background(), os.Stdout, p, probe.DefaultRequest()); err != nil {
		logger.Error("writing report", "error", err)
	}
}
