// Package wheel implements a hierarchical timeout wheel: a bit-indexed array of bins that
// tracks a large population of pending timeouts and efficiently reports which have
// elapsed as the caller's notion of "now" advances. The engine never reads a clock, never
// allocates timeout records, and is not safe for concurrent use — all three are the
// caller's concern (see pkg/scheduler for an optional convenience layer covering them).
package wheel

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// MaxWaitSentinel is the value Wait returns when the wheel holds nothing — there is
// nothing the caller needs to wake up for.
const MaxWaitSentinel = math.MaxUint64

// Observer is notified of state changes inside an Engine. It exists so that statistics
// gathering never needs a mutable global inside the engine itself — pass nil (the
// default) to opt out entirely. Implementations must not call back into the Engine; the
// engine makes no reentrancy guarantees.
type Observer interface {
	OnStart(r *Record)
	OnStop(r *Record)
	OnAdvance(prevLast, newLast uint64)
	OnExpire(r *Record)
}

// Engine owns the wheel: the bin array, the expired queue, and the scratch processing
// queue used only while Advance is running. Zero value is not usable; construct with New.
type Engine struct {
	last uint64

	bins       [binCount]*Record // Sentinel heads, one per bit of the expiry word.
	occupancy  *bitset.BitSet    // occupancy.Test(i) == !isEmptyList(bins[i]); speeds up Wait.
	expired    *Record           // Sentinel head of the FIFO ready for NextExpired.
	processing *Record           // Sentinel head of the scratch staging queue.

	draining bool // advance_partial state machine: false == IDLE, true == DRAINING.
	count    int  // Total records currently owned by the engine (bins + expired + processing).

	observer Observer
}

// New returns an initialised, empty engine with last = 0.
func New() *Engine {
	e := &Engine{
		occupancy:  bitset.New(binCount),
		expired:    newSentinel(),
		processing: newSentinel(),
	}
	for i := range e.bins {
		e.bins[i] = newSentinel()
	}
	return e
}

// SetObserver installs (or clears, with nil) the engine's Observer.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Len returns the number of records currently owned by the engine, across every bin, the
// expired queue, and the scratch processing queue. O(1).
func (e *Engine) Len() int {
	return e.count
}

// Destroy releases the engine's internal state. The caller must have already drained all
// records (DrainAll + NextExpired* or individual Stop calls); records still linked are
// silently dropped, per spec: destroying without draining leaks their linkage semantics
// but the engine itself does not panic.
func (e *Engine) Destroy() {
	*e = Engine{}
}

func clampElapsed(elapsed uint64) uint64 {
	const maxElapsed = uint64(1) << 63
	if elapsed > maxElapsed {
		return maxElapsed
	}
	return elapsed
}

func (e *Engine) binIndexFor(expiry uint64) int {
	return order(expiry ^ e.last)
}

// route places a detached record into expired or the correct bin, based on its expiry
// against the engine's current last. record must already be detached.
func (e *Engine) route(r *Record) {
	if r.Expiry <= e.last {
		pushBack(e.expired, r)
		return
	}
	i := e.binIndexFor(r.Expiry)
	pushBack(e.bins[i], r)
	e.occupancy.Set(uint(i))
}

// Start enlists record with the engine. If the record is already linked (anywhere), Start
// is a no-op — it does not re-bin. A record whose Expiry is already <= last is placed
// directly on the expired queue. O(1).
func (e *Engine) Start(r *Record) {
	if isLinked(r) {
		return
	}
	e.route(r)
	e.count++
	if e.observer != nil {
		e.observer.OnStart(r)
		if r.Expiry <= e.last {
			e.observer.OnExpire(r)
		}
	}
}

// StartRange places record at the latest expiry in [min, max] whose low bits below
// order(max^min) are zero, then starts it — minimising future re-bin churn for callers
// that tolerate some slack in exactly when a timeout fires. Falls back to max itself when
// max <= min, since there is then no differing bit to align on.
func (e *Engine) StartRange(r *Record, min, max uint64) {
	if max > min {
		mask := uint64(1)<<uint(order(max^min)) - 1
		r.Expiry = max &^ mask
	} else {
		r.Expiry = max
	}
	e.Start(r)
}

// Stop removes record from the engine if it is linked; otherwise it is a no-op. O(1).
// Stop does not care which list the record is currently in.
func (e *Engine) Stop(r *Record) {
	if !isLinked(r) {
		return
	}
	e.unlinkTracked(r)
	e.count--
	if e.observer != nil {
		e.observer.OnStop(r)
	}
}

// unlinkTracked unlinks r and refreshes bin occupancy bits, since r may have been the
// last occupant of whichever bin it was in. Safe to call on a record linked in expired or
// processing too (refreshOccupancy only inspects the bin array).
func (e *Engine) unlinkTracked(r *Record) {
	unlink(r)
	e.refreshOccupancy()
}

// refreshOccupancy recomputes every occupancy bit from the bin lists. Cheap (O(binCount))
// relative to the O(binCount) work Advance/Wait already do, and keeps Stop/Touch simple —
// they don't need to know which bin a record was in before unlinking it.
func (e *Engine) refreshOccupancy() {
	for i, sentinel := range e.bins {
		if isEmptyList(sentinel) {
			e.occupancy.Clear(uint(i))
		} else {
			e.occupancy.Set(uint(i))
		}
	}
}

// Touch updates record's expiry and re-routes it as if Start had been called fresh,
// regardless of whether it was previously linked. O(1).
func (e *Engine) Touch(r *Record, newExpiry uint64) {
	if isLinked(r) {
		unlink(r)
		e.refreshOccupancy()
		e.count--
	}
	r.Expiry = newExpiry
	e.Start(r)
}

// Advance moves the engine's reference time forward to now and migrates entries down the
// hierarchy accordingly. Returns whether the expired queue is non-empty afterwards.
//
// If now <= last this is a no-op (the spec's conservative treatment of wrap-around and of
// callers that haven't actually advanced). If the engine was mid-drain from a prior
// AdvancePartial call, all remaining staged entries are conservatively treated as expired
// before the normal algorithm proceeds — full Advance calls always leave the engine IDLE.
func (e *Engine) Advance(now uint64) bool {
	if e.draining {
		e.flushProcessingToExpired()
		e.draining = false
	}
	if now <= e.last {
		return !isEmptyList(e.expired)
	}

	prevLast := e.last
	e.expireBin(0)

	elapsed := clampElapsed(now - e.last)
	elapsedOrder := order(elapsed)
	for i := 1; i < elapsedOrder; i++ {
		e.expireBin(i)
	}

	topBin := order(now ^ e.last)
	for i := elapsedOrder; i <= topBin; i++ {
		e.stageBin(i)
	}

	e.last = now
	e.drainProcessing(-1) // Unbounded: full Advance always finishes the drain.

	if e.observer != nil {
		e.observer.OnAdvance(prevLast, now)
	}
	return !isEmptyList(e.expired)
}

// AdvancePartial bounds the re-binning work of Advance to at most maxOps staged entries
// per call, returning whether more staged work remains. Subsequent calls with the same or
// a later now resume a drain in progress; a call with now <= last while draining
// continues the existing drain without re-expiring. maxOps < 0 means unbounded.
func (e *Engine) AdvancePartial(now uint64, maxOps int) bool {
	if !e.draining {
		if now <= e.last {
			return false
		}
		e.expireBin(0)
		elapsed := clampElapsed(now - e.last)
		elapsedOrder := order(elapsed)
		for i := 1; i < elapsedOrder; i++ {
			e.expireBin(i)
		}
		topBin := order(now ^ e.last)
		for i := elapsedOrder; i <= topBin; i++ {
			e.stageBin(i)
		}
		prevLast := e.last
		e.last = now
		e.draining = !isEmptyList(e.processing)
		if e.observer != nil {
			e.observer.OnAdvance(prevLast, now)
		}
		if !e.draining {
			return false
		}
	}
	e.drainProcessing(maxOps)
	if isEmptyList(e.processing) {
		e.draining = false
	}
	return e.draining
}

// expireBin splices bins[i] wholesale onto the expired queue.
func (e *Engine) expireBin(i int) {
	if isEmptyList(e.bins[i]) {
		return
	}
	for rec := e.bins[i].next; rec != e.bins[i]; rec = rec.next {
		if e.observer != nil {
			e.observer.OnExpire(rec)
		}
	}
	spliceAppend(e.expired, e.bins[i])
	e.occupancy.Clear(uint(i))
}

// stageBin splices bins[i] onto the processing queue for re-evaluation.
func (e *Engine) stageBin(i int) {
	if isEmptyList(e.bins[i]) {
		return
	}
	spliceAppend(e.processing, e.bins[i])
	e.occupancy.Clear(uint(i))
}

// drainProcessing pops up to budget entries (budget < 0 means unbounded) from the
// processing queue and re-routes each against the now-current last.
func (e *Engine) drainProcessing(budget int) {
	for budget != 0 {
		rec := popFront(e.processing)
		if rec == nil {
			return
		}
		if rec.Expiry <= e.last {
			pushBack(e.expired, rec)
			if e.observer != nil {
				e.observer.OnExpire(rec)
			}
		} else {
			i := e.binIndexFor(rec.Expiry)
			pushBack(e.bins[i], rec)
			e.occupancy.Set(uint(i))
		}
		if budget > 0 {
			budget--
		}
	}
}

// flushProcessingToExpired conservatively treats every still-staged record as expired.
// Used when a full Advance interrupts an in-progress AdvancePartial drain.
func (e *Engine) flushProcessingToExpired() {
	for rec := popFront(e.processing); rec != nil; rec = popFront(e.processing) {
		pushBack(e.expired, rec)
		if e.observer != nil {
			e.observer.OnExpire(rec)
		}
	}
}

// Wait returns the smallest number of time units the caller may sleep before anything in
// the wheel could need attention. It does not consider the expired queue — drain that
// first. Returns MaxWaitSentinel if every bin is empty.
func (e *Engine) Wait() uint64 {
	i, any := e.occupancy.NextSet(0)
	if !any {
		return MaxWaitSentinel
	}
	step := uint64(1) << i
	return step - (e.last & (step - 1))
}

// WaitWith is Wait minus the drift (now - last), clamped to zero, for callers whose clock
// has moved past last without yet calling Advance.
func (e *Engine) WaitWith(now uint64) uint64 {
	w := e.Wait()
	if now <= e.last {
		return w
	}
	drift := now - e.last
	if drift >= w {
		return 0
	}
	return w - drift
}

// DrainAll splices every bin and the processing queue onto expired, leaving the wheel
// with no pending timeouts. The caller is expected to consume expired via NextExpired.
func (e *Engine) DrainAll() {
	for i := range e.bins {
		if isEmptyList(e.bins[i]) {
			continue
		}
		if e.observer != nil {
			for rec := e.bins[i].next; rec != e.bins[i]; rec = rec.next {
				e.observer.OnExpire(rec)
			}
		}
		spliceAppend(e.expired, e.bins[i])
		e.occupancy.Clear(uint(i))
	}
	if e.observer != nil {
		for rec := e.processing.next; rec != e.processing; rec = rec.next {
			e.observer.OnExpire(rec)
		}
	}
	spliceAppend(e.expired, e.processing)
	e.draining = false
}

// NextExpired pops and returns the next record ready for consumption, or nil if the
// expired queue is empty. The returned record is detached and owned by the caller.
func (e *Engine) NextExpired() *Record {
	rec := popFront(e.expired)
	if rec != nil {
		e.count--
	}
	return rec
}
