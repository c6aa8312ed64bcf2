package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPushPopFIFO(t *testing.T) {
	s := newSentinel()
	require.True(t, isEmptyList(s))

	a, b, c := &Record{Payload: "a"}, &Record{Payload: "b"}, &Record{Payload: "c"}
	pushBack(s, a)
	pushBack(s, b)
	pushBack(s, c)
	require.False(t, isEmptyList(s))

	assert.Same(t, a, popFront(s))
	assert.Same(t, b, popFront(s))
	assert.Same(t, c, popFront(s))
	assert.Nil(t, popFront(s))
	assert.True(t, isEmptyList(s))
}

func TestUnlinkDetaches(t *testing.T) {
	s := newSentinel()
	a, b, c := &Record{}, &Record{}, &Record{}
	pushBack(s, a)
	pushBack(s, b)
	pushBack(s, c)

	require.True(t, isLinked(b))
	unlink(b)
	assert.False(t, isLinked(b))

	// a, c must still be linked to each other and to s.
	assert.Same(t, a, popFront(s))
	assert.Same(t, c, popFront(s))
	assert.True(t, isEmptyList(s))
}

func TestSpliceAppendPreservesOrderAndEmptiesSrc(t *testing.T) {
	dst, src := newSentinel(), newSentinel()
	d1 := &Record{Payload: "d1"}
	pushBack(dst, d1)

	s1, s2 := &Record{Payload: "s1"}, &Record{Payload: "s2"}
	pushBack(src, s1)
	pushBack(src, s2)

	spliceAppend(dst, src)
	assert.True(t, isEmptyList(src))

	assert.Same(t, d1, popFront(dst))
	assert.Same(t, s1, popFront(dst))
	assert.Same(t, s2, popFront(dst))
	assert.True(t, isEmptyList(dst))
}

func TestSpliceAppendEmptySrcIsNoOp(t *testing.T) {
	dst, src := newSentinel(), newSentinel()
	d1 := &Record{}
	pushBack(dst, d1)

	spliceAppend(dst, src)
	assert.Same(t, d1, popFront(dst))
	assert.True(t, isEmptyList(dst))
}

func TestFreshNodeIsNotLinked(t *testing.T) {
	r := NewRecord()
	assert.False(t, r.IsLinked())
}
