package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/efarmer/subsidy/common/models"
)

const usageShards = 64

type usageShard struct {
	mu     sync.Mutex
	usages map[string][]models.UsageRecord
}

// UsageStore is the hash registry held in memory.
// Digests are spread over shards; the read-and-append for one digest runs
// under its shard lock, so different digests rarely contend.
type UsageStore struct {
	shards [usageShards]*usageShard
}

func NewUsageStore() *UsageStore {
	s := &UsageStore{}
	for i := range s.shards {
		s.shards[i] = &usageShard{usages: make(map[string][]models.UsageRecord)}
	}
	return s
}

func (s *UsageStore) shard(digest string) *usageShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(digest))
	return s.shards[h.Sum32()%usageShards]
}

func (s *UsageStore) AppendUsage(_ context.Context, digest string, usage models.UsageRecord) ([]models.UsageRecord, error) {
	sh := s.shard(digest)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prior := append([]models.UsageRecord(nil), sh.usages[digest]...)
	sh.usages[digest] = append(sh.usages[digest], usage)
	return prior, nil
}

func (s *UsageStore) Usages(_ context.Context, digest string) ([]models.UsageRecord, error) {
	sh := s.shard(digest)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return append([]models.UsageRecord(nil), sh.usages[digest]...), nil
}
