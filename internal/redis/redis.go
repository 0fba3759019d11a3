package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	redisi "github.com/redis/go-redis/v9"

	"github.com/whookdev/echoprobe/internal/config"
	"github.com/whookdev/echoprobe/internal/models"
)

const keyPrefix = "echo_exchanges:"

// Recorder stores exchanges in a capped redis list, one list per server id.
type Recorder struct {
	cfg    *config.Config
	Client *redisi.Client
	logger *slog.Logger
	key    string
	opts   *redisi.Options
}

func New(cfg *config.Config, logger *slog.Logger) (*Recorder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url is not set")
	}
	opts, err := clientOptions(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "redis")

	rs := &Recorder{
		cfg:    cfg,
		logger: logger,
		key:    keyPrefix + cfg.ServerID,
		opts:   opts,
	}

	return rs, nil
}

func (rs *Recorder) Start(ctx context.Context) error {
	rs.Client = redisi.NewClient(rs.opts)

	if err := rs.Client.Ping(ctx).Err(); err != nil {
		rs.logger.Error("failed to connect to redis", "error", err)
		return err
	}

	rs.logger.Info("redis connection established successfully", "addr", rs.opts.Addr, "db", rs.opts.DB, "key", rs.key)
	return nil
}

// clientOptions accepts either a redis:// or rediss:// URL or a bare host:port.
func clientOptions(raw string) (*redisi.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redisi.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	return &redisi.Options{
		Addr:     raw,
		Password: "",
		DB:       0,
	}, nil
}

func (rs *Recorder) Record(ctx context.Context, ex *models.Exchange) error {
	if ex == nil {
		return fmt.Errorf("exchange cannot be nil")
	}
	if rs.Client == nil {
		return fmt.Errorf("redis recorder not started")
	}

	val, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	_, err = rs.Client.TxPipelined(ctx, func(pipe redisi.Pipeliner) error {
		pipe.RPush(ctx, rs.key, val)
		pipe.LTrim(ctx, rs.key, int64(-rs.cfg.RecordCapacity), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}

	rs.logger.Debug("recorded exchange", "request_id", ex.RequestID)
	return nil
}

// Recent returns up to n exchanges, oldest first. n <= 0 means all retained.
func (rs *Recorder) Recent(ctx context.Context, n int) ([]models.Exchange, error) {
	if rs.Client == nil {
		return nil, fmt.Errorf("redis recorder not started")
	}

	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}

	vals, err := rs.Client.LRange(ctx, rs.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read exchanges: %w", err)
	}

	out := make([]models.Exchange, 0, len(vals))
	for _, v := range vals {
		var ex models.Exchange
		if err := json.Unmarshal([]byte(v), &ex); err != nil {
			rs.logger.Warn("skipping malformed exchange", "error", err)
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

func (rs *Recorder) Stop() error {
	if rs.Client != nil {
		if err := rs.Client.Close(); err != nil {
			rs.logger.Error("failed to close redis connection", "error", err)
			return fmt.Errorf("failed to close redis connection: %w", err)
		}
		rs.logger.Info("redis connection closed successfully")
	}
	return nil
}
