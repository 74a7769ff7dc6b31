package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	catalog "apitest-backend"
)

type RedisSink struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisSink connects to the server named by a redis:// URL and checks it is
// reachable.
func NewRedisSink(ctx context.Context, rawURL string, ttl time.Duration) (*RedisSink, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSink{Client: client, TTL: ttl}, nil
}

func (s *RedisSink) Close() error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

func (s *RedisSink) Save(ctx context.Context, result catalog.ExecutionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := s.Client.Set(ctx, Key(result.TestID), data, s.TTL).Err(); err != nil {
		return fmt.Errorf("save result %d: %w", result.TestID, err)
	}
	return nil
}

func (s *RedisSink) Load(ctx context.Context, testID int64) (catalog.ExecutionResult, error) {
	data, err := s.Client.Get(ctx, Key(testID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog.ExecutionResult{}, ErrNoResult
	}
	if err != nil {
		return catalog.ExecutionResult{}, fmt.Errorf("load result %d: %w", testID, err)
	}
	var result catalog.ExecutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return catalog.ExecutionResult{}, fmt.Errorf("decode result %d: %w", testID, err)
	}
	return result, nil
}
