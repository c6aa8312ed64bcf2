// Package scheduler is a convenience layer around a bare wheel.Engine: spec.md §1 keeps
// memory-allocation policy and locking out of the engine's own scope but explicitly
// welcomes "a convenience allocator" and an external mutex wrapping the core. Scheduler
// is that wrapper — a keyed, pooled, thread-safe registry on top of one Engine.
package scheduler

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nobletooth/timewheel/pkg/utils"
	"github.com/nobletooth/timewheel/pkg/wheel"
)

// defaultBloomCapacity is the number of keys the membership filter is sized for before its
// false-positive rate starts climbing above the configured target. It's a soft target, not
// a hard limit — the filter degrades gracefully (more false positives, never false
// negatives) past this point.
const defaultBloomCapacity = 4096

// defaultBloomFalsePositiveRate is the target false-positive rate at defaultBloomCapacity.
const defaultBloomFalsePositiveRate = 0.01

// Scheduler is a thread-safe, key-addressable convenience wrapper around one wheel.Engine.
// It owns record allocation (optionally pooled) and a key registry, so callers can work in
// terms of string keys instead of *wheel.Record pointers.
type Scheduler struct {
	mux      sync.Mutex
	engine   *wheel.Engine
	byKey    map[string]*wheel.Record
	pool     *sync.Pool // nil when pooling is disabled.
	presence *bloom.BloomFilter
}

// New returns a Scheduler over a fresh engine. When poolEnabled is true, cancelled or
// expired-and-consumed records are returned to a sync.Pool for reuse instead of left for
// the garbage collector — useful under high churn.
func New(poolEnabled bool) *Scheduler {
	s := &Scheduler{
		engine:   wheel.New(),
		byKey:    make(map[string]*wheel.Record),
		presence: bloom.NewWithEstimates(defaultBloomCapacity, defaultBloomFalsePositiveRate),
	}
	if poolEnabled {
		s.pool = &sync.Pool{New: func() any { return wheel.NewRecord() }}
	}
	return s
}

func (s *Scheduler) allocate() *wheel.Record {
	if s.pool == nil {
		return wheel.NewRecord()
	}
	return s.pool.Get().(*wheel.Record)
}

func (s *Scheduler) release(r *wheel.Record) {
	r.Reset()
	if s.pool != nil {
		s.pool.Put(r)
	}
}

// MightHaveKey reports whether key could currently be scheduled. A false answer is always
// correct (no false negatives); a true answer requires confirming against the registry —
// it is purely a fast pre-filter over the scheduler's own keyspace, mirroring the "batch
// first, detail-check second" shape the teacher lineage uses for bucketed expiry (compare
// pkg/cache's expiry-bucket design in the teacher repository this was adapted from).
func (s *Scheduler) MightHaveKey(key string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.mightHaveKeyLocked(key)
}

// mightHaveKeyLocked is MightHaveKey's body, for callers that already hold s.mux —
// presence is mutated under the same lock in Schedule, so every read of it must be too.
func (s *Scheduler) mightHaveKeyLocked(key string) bool {
	return s.presence.TestString(key)
}

// Schedule enlists key with the given expiry and payload, allocating (or reusing pooled)
// storage for it. If key is already scheduled, its prior record is cancelled first — unlike
// wheel.Engine.Start, Schedule is keyed, so a second call for the same key always replaces
// rather than silently no-op'ing.
func (s *Scheduler) Schedule(key string, expiry uint64, payload any) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if prev, exists := s.byKey[key]; exists {
		s.engine.Stop(prev)
		delete(s.byKey, key)
		s.release(prev)
	}

	r := s.allocate()
	r.Key = key
	r.Set(expiry, payload)
	s.engine.Start(r)
	s.byKey[key] = r
	s.presence.AddString(key)
}

// Cancel removes key's pending timeout, if any. Returns whether anything was cancelled.
func (s *Scheduler) Cancel(key string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.mightHaveKeyLocked(key) {
		return false
	}
	r, exists := s.byKey[key]
	if !exists {
		return false
	}
	s.engine.Stop(r)
	delete(s.byKey, key)
	s.release(r)
	return true
}

// Touch reschedules key to a new expiry without losing its payload. Returns false if key
// isn't currently scheduled.
func (s *Scheduler) Touch(key string, newExpiry uint64) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	r, exists := s.byKey[key]
	if !exists {
		return false
	}
	if !r.IsLinked() {
		// The registry and the engine disagree about whether key is pending — this should
		// never happen given Schedule/Cancel/Next keep the two in lockstep.
		utils.RaiseInvariant("scheduler", "registry_record_detached",
			"Registry holds a key whose record is not linked in the engine.", "key", key)
		delete(s.byKey, key)
		return false
	}
	s.engine.Touch(r, newExpiry)
	return true
}

// Advance moves the underlying engine's reference time forward. See wheel.Engine.Advance.
func (s *Scheduler) Advance(now uint64) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.engine.Advance(now)
}

// Wait returns the underlying engine's next-wakeup hint. See wheel.Engine.Wait.
func (s *Scheduler) Wait() uint64 {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.engine.Wait()
}

// Next pops the next expired key/payload pair, releasing its record back to the allocator.
// ok is false once nothing is expired.
func (s *Scheduler) Next() (key string, payload any, ok bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	r := s.engine.NextExpired()
	if r == nil {
		return "", nil, false
	}
	key, payload = r.Key, r.Payload
	delete(s.byKey, key)
	s.release(r)
	return key, payload, true
}

// Len returns the number of keys currently tracked (pending or expired-but-unconsumed).
func (s *Scheduler) Len() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.byKey)
}

// SetObserver installs a wheel.Observer on the underlying engine.
func (s *Scheduler) SetObserver(o wheel.Observer) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.engine.SetObserver(o)
}
