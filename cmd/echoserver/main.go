package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whookdev/echoprobe/internal/config"
	"github.com/whookdev/echoprobe/internal/feed"
	"github.com/whookdev/echoprobe/internal/redis"
	"github.com/whookdev/echoprobe/internal/server"
	"github.com/whookdev/echoprobe/internal/store"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := initiateApp(cfg, logger); err != nil {
		logger.Error("error in app lifecycle", "error", err)
		os.Exit(1)
	}
}

func initiateApp(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		time.Sleep(100 * time.Millisecond) // Give time for cleanup logs to flush
	}()

	var recorder server.Recorder
	if cfg.RedisURL != "" {
		rdb, err := redis.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating redis recorder: %w", err)
		}
		if err := rdb.Start(ctx); err != nil {
			return fmt.Errorf("connecting to redis server: %w", err)
		}
		defer func() {
			if err := rdb.Stop(); err != nil {
				logger.Error("error stopping redis", "error", err)
			}
		}()
		recorder = rdb
	} else {
		mem, err := store.NewMemory(cfg.RecordCapacity)
		if err != nil {
			return fmt.Errorf("creating memory recorder: %w", err)
		}
		recorder = mem
	}

	srv, err := server.New(cfg, recorder, feed.NewHub(logger), logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
