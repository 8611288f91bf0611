// Package state holds the in-memory per-entity behavioral aggregates.
// The store is the only owner of aggregate records; callers interact
// with it exclusively through the atomic accessor so that a read of the
// pre-transaction average and the corresponding update can never be
// interleaved with another writer on the same key.
package state

import (
	"hash/fnv"
	"sync"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

// DefaultShardCount is the shard count used when the configured value
// is zero or negative.
const DefaultShardCount = 64

// Store is a sharded concurrent map from entity key to aggregate.
// Keys on different shards never contend; keys on the same shard
// contend only for the duration of a single read-modify-write.
// Aggregates live for the lifetime of the process and are never
// deleted.
type Store struct {
	shards []*shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]transaction.Aggregate
}

// NewStore creates a store with the given number of shards.
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]transaction.Aggregate)}
	}
	return &Store{shards: shards}
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// GetAndUpdate atomically reads the current aggregate for key (zero
// value if the key has never been seen), stores the aggregate advanced
// by amount, and returns both the pre-update snapshot and the new
// value. The whole read-modify-write is a single critical section per
// key, so concurrent calls for the same key are totally ordered and
// none of them can observe a half-applied update.
func (s *Store) GetAndUpdate(key string, amount float64) (previous, updated transaction.Aggregate) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	previous = sh.entries[key]
	updated = transaction.Aggregate{
		TotalAmount:      previous.TotalAmount + amount,
		TransactionCount: previous.TransactionCount + 1,
	}
	sh.entries[key] = updated
	return previous, updated
}

// Snapshot returns the current aggregate for key without modifying it.
// The second return value reports whether the key has been seen.
func (s *Store) Snapshot(key string) (transaction.Aggregate, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	agg, ok := sh.entries[key]
	return agg, ok
}

// Len returns the number of tracked entities.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
