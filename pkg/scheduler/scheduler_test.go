package scheduler

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAndNext(t *testing.T) {
	s := New(true)
	s.Schedule("a", 10, "payload-a")
	s.Schedule("b", 20, "payload-b")

	assert.Equal(t, 2, s.Len())
	require.True(t, s.MightHaveKey("a"))

	s.Advance(20)
	k1, p1, ok1 := s.Next()
	require.True(t, ok1)
	k2, p2, ok2 := s.Next()
	require.True(t, ok2)
	_, _, ok3 := s.Next()
	assert.False(t, ok3)

	assert.ElementsMatch(t, []string{"a", "b"}, []string{k1, k2})
	assert.ElementsMatch(t, []any{"payload-a", "payload-b"}, []any{p1, p2})
	assert.Equal(t, 0, s.Len())
}

func TestCancelRemovesBeforeExpiry(t *testing.T) {
	s := New(false)
	s.Schedule("a", 100, 1)
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a")) // Already gone.

	s.Advance(100)
	_, _, ok := s.Next()
	assert.False(t, ok)
}

func TestRescheduleReplacesPriorRecord(t *testing.T) {
	s := New(true)
	s.Schedule("a", 100, "first")
	s.Schedule("a", 5, "second") // Re-schedule before the first ever fires.
	assert.Equal(t, 1, s.Len())

	s.Advance(5)
	key, payload, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "a", key)
	assert.Equal(t, "second", payload)
}

func TestTouchReschedulesWithoutLosingPayload(t *testing.T) {
	s := New(false)
	s.Schedule("a", 100, "payload")
	require.True(t, s.Touch("a", 5))

	s.Advance(5)
	key, payload, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "a", key)
	assert.Equal(t, "payload", payload)
}

func TestTouchOnMissingKeyReturnsFalse(t *testing.T) {
	s := New(false)
	assert.False(t, s.Touch("ghost", 5))
}

func TestMightHaveKeyNeverFalseNegative(t *testing.T) {
	s := New(false)
	assert.False(t, s.MightHaveKey("never-scheduled"))
	s.Schedule("present", 10, nil)
	assert.True(t, s.MightHaveKey("present"))
}

// TestConcurrentScheduleCancelIsRaceFree exercises Schedule, Cancel, and MightHaveKey from
// many goroutines at once. presence is shared mutable state written by Schedule and read
// by Cancel/MightHaveKey — this only passes -race if every access is taken under s.mux.
func TestConcurrentScheduleCancelIsRaceFree(t *testing.T) {
	s := New(true)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		key := "key-" + strconv.Itoa(i%8)
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.Schedule(key, 100, i)
		}()
		go func() {
			defer wg.Done()
			s.Cancel(key)
		}()
		go func() {
			defer wg.Done()
			s.MightHaveKey(key)
		}()
	}
	wg.Wait()
}

func TestShardedDistributesAndDrains(t *testing.T) {
	sh := NewSharded(4, true)
	for i := 0; i < 50; i++ {
		sh.Schedule(string(rune('a'+i%26))+string(rune('0'+i%10)), uint64(i+1), i)
	}
	assert.Equal(t, 50, sh.Len())

	sh.AdvanceAll(50)
	count := 0
	for _, _, ok := sh.Next(); ok; _, _, ok = sh.Next() {
		count++
	}
	assert.Equal(t, 50, count)
	assert.Equal(t, 0, sh.Len())
}
