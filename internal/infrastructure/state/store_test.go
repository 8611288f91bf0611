package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
)

func TestStore_GetAndUpdate_FirstSeen(t *testing.T) {
	s := NewStore(0)

	previous, updated := s.GetAndUpdate("user_1", 50)

	assert.Equal(t, transaction.Aggregate{}, previous)
	assert.Equal(t, transaction.Aggregate{TotalAmount: 50, TransactionCount: 1}, updated)
}

func TestStore_GetAndUpdate_Sequence(t *testing.T) {
	s := NewStore(8)

	prev, _ := s.GetAndUpdate("u1", 100)
	assert.Equal(t, uint64(0), prev.TransactionCount)

	prev, updated := s.GetAndUpdate("u1", 300)
	assert.Equal(t, transaction.Aggregate{TotalAmount: 100, TransactionCount: 1}, prev)
	assert.Equal(t, transaction.Aggregate{TotalAmount: 400, TransactionCount: 2}, updated)

	prev, updated = s.GetAndUpdate("u1", 100)
	assert.Equal(t, 200.0, prev.Average())
	assert.Equal(t, transaction.Aggregate{TotalAmount: 500, TransactionCount: 3}, updated)
}

func TestStore_ConcurrentUpdates_SingleKey(t *testing.T) {
	const (
		goroutines = 32
		perWorker  = 250
		amount     = 2.5
	)

	s := NewStore(16)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				prev, updated := s.GetAndUpdate("hot_key", amount)
				// Every snapshot pair must be exactly one step apart.
				assert.Equal(t, prev.TransactionCount+1, updated.TransactionCount)
				assert.InDelta(t, prev.TotalAmount+amount, updated.TotalAmount, 1e-9)
			}
		}()
	}
	wg.Wait()

	final, ok := s.Snapshot("hot_key")
	require.True(t, ok)
	assert.Equal(t, uint64(goroutines*perWorker), final.TransactionCount)
	assert.InDelta(t, float64(goroutines*perWorker)*amount, final.TotalAmount, 1e-6)
}

func TestStore_ConcurrentUpdates_DistinctKeys(t *testing.T) {
	const (
		keys      = 100
		perKey    = 50
		perAmount = 10.0
	)

	s := NewStore(16)

	var wg sync.WaitGroup
	for k := 0; k < keys; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			key := fmt.Sprintf("user_%d", k)
			for i := 0; i < perKey; i++ {
				s.GetAndUpdate(key, perAmount)
			}
		}(k)
	}
	wg.Wait()

	assert.Equal(t, keys, s.Len())
	for k := 0; k < keys; k++ {
		agg, ok := s.Snapshot(fmt.Sprintf("user_%d", k))
		require.True(t, ok)
		assert.Equal(t, uint64(perKey), agg.TransactionCount)
		assert.InDelta(t, perKey*perAmount, agg.TotalAmount, 1e-6)
	}
}

func TestStore_Snapshot_UnknownKey(t *testing.T) {
	s := NewStore(4)

	agg, ok := s.Snapshot("never_seen")

	assert.False(t, ok)
	assert.Equal(t, transaction.Aggregate{}, agg)
	assert.Equal(t, 0, s.Len())
}

func TestStore_InvariantZeroCountZeroSum(t *testing.T) {
	s := NewStore(4)

	// A key that was never updated has the zero aggregate, which
	// satisfies count == 0 => sum == 0 by construction.
	agg, _ := s.Snapshot("fresh")
	assert.Zero(t, agg.TransactionCount)
	assert.Zero(t, agg.TotalAmount)
}
