package imagededup

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/efarmer/subsidy/common/models"
)

//go:embed append_usage.lua
var appendUsageScript string

const usageKeyPrefix = "imagehash:"

// RedisUsageStore keeps each digest's usages in a Redis list.
// The read-and-append runs as one Lua script, so it is atomic per key.
type RedisUsageStore struct {
	redis  *redis.Client
	script *redis.Script
}

func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{
		redis:  client,
		script: redis.NewScript(appendUsageScript),
	}
}

func usageKey(digest string) string {
	return usageKeyPrefix + digest
}

func (s *RedisUsageStore) AppendUsage(ctx context.Context, digest string, usage models.UsageRecord) ([]models.UsageRecord, error) {
	encoded, err := json.Marshal(usage)
	if err != nil {
		return nil, fmt.Errorf("encode usage: %w", err)
	}

	result, err := s.script.Run(ctx, s.redis, []string{usageKey(digest)}, string(encoded)).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("append usage script: %w", err)
	}

	return decodeUsages(result)
}

func (s *RedisUsageStore) Usages(ctx context.Context, digest string) ([]models.UsageRecord, error) {
	result, err := s.redis.LRange(ctx, usageKey(digest), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read usages: %w", err)
	}
	return decodeUsages(result)
}

func decodeUsages(raw []string) ([]models.UsageRecord, error) {
	out := make([]models.UsageRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.UsageRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode usage: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
