// This module implements key sharding across multiple Schedulers, distributing keys
// uniformly so concurrent callers contend on only one shard's mutex at a time — the same
// motivation (and, modulo renaming, the same hashing strategy) as the teacher lineage's
// ShardedCache, adapted here from a key-value cache to a keyed timeout registry.

package scheduler

import (
	"github.com/cespare/xxhash/v2"

	"github.com/nobletooth/timewheel/pkg/utils"
	"github.com/nobletooth/timewheel/pkg/wheel"
)

// Sharded distributes keys across multiple independent Scheduler shards by hash, so each
// caller only locks the shard owning their key.
type Sharded struct {
	shards []*Scheduler
}

// NewSharded builds a Sharded scheduler with shardCount independent shards, each backed by
// its own engine and optional pool.
func NewSharded(shardCount int, poolEnabled bool) *Sharded {
	if shardCount <= 0 {
		utils.RaiseInvariant("sharded_scheduler", "non_positive_shard_count",
			"Invalid shard count given to sharded scheduler.", "shardCount", shardCount)
		shardCount = 1
	}
	sharded := &Sharded{shards: make([]*Scheduler, shardCount)}
	for i := range sharded.shards {
		sharded.shards[i] = New(poolEnabled)
	}
	return sharded
}

func (s *Sharded) shardFor(key string) *Scheduler {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Schedule routes key to its shard and schedules it there.
func (s *Sharded) Schedule(key string, expiry uint64, payload any) {
	s.shardFor(key).Schedule(key, expiry, payload)
}

// Cancel routes key to its shard and cancels it there.
func (s *Sharded) Cancel(key string) bool {
	return s.shardFor(key).Cancel(key)
}

// Touch routes key to its shard and reschedules it there.
func (s *Sharded) Touch(key string, newExpiry uint64) bool {
	return s.shardFor(key).Touch(key, newExpiry)
}

// AdvanceAll advances every shard's engine to the same now. Returns true if any shard has
// expired entries afterwards.
func (s *Sharded) AdvanceAll(now uint64) bool {
	any := false
	for _, shard := range s.shards {
		if shard.Advance(now) {
			any = true
		}
	}
	return any
}

// Wait returns the minimum Wait across all shards — the soonest any shard could need
// attention.
func (s *Sharded) Wait() uint64 {
	min := uint64(wheel.MaxWaitSentinel)
	for _, shard := range s.shards {
		if w := shard.Wait(); w < min {
			min = w
		}
	}
	return min
}

// Next scans shards in index order, starting from the first shard on every call, and
// returns the first expired entry it finds. ok is false only once every shard has nothing
// expired.
func (s *Sharded) Next() (key string, payload any, ok bool) {
	for _, shard := range s.shards {
		if key, payload, ok = shard.Next(); ok {
			return key, payload, true
		}
	}
	return "", nil, false
}

// Len sums the number of tracked keys across all shards.
func (s *Sharded) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}
