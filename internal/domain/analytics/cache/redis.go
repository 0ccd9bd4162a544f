package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

// Config holds Redis cache configuration
type Config struct {
	URL      string
	PoolSize int
	TTL      time.Duration
}

// ReportCache stores computed reports in Redis for a short time
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache connects to Redis and verifies the connection
func NewReportCache(ctx context.Context, cfg Config) (*ReportCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &ReportCache{client: client, ttl: ttl}, nil
}

func reportKey(workspaceID string, period entity.Period) string {
	return fmt.Sprintf("analytics:report:%s:%s", workspaceID, period)
}

// Get returns the cached report, or nil on a miss
func (c *ReportCache) Get(ctx context.Context, workspaceID string, period entity.Period) (*entity.Report, error) {
	key := reportKey(workspaceID, period)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var report entity.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// Set stores a report under its workspace and period
func (c *ReportCache) Set(ctx context.Context, workspaceID string, report *entity.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return c.client.Set(ctx, reportKey(workspaceID, report.Period), data, c.ttl).Err()
}

// Ping checks that Redis is reachable
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *ReportCache) Close() error {
	return c.client.Close()
}
