package wheel

// Record is a single scheduled timeout: the unit the engine tracks. Callers allocate and
// free records; the engine only ever holds their link fields. A Record's link is either
// detached (next == nil) or linked in exactly one list owned by exactly one Engine.
//
// Mutating Expiry or Payload on a Record that is currently linked in an Engine is
// undefined behaviour — route expiry changes through Engine.Touch instead.
type Record struct {
	Expiry  uint64 // Absolute target time, in the caller's chosen granularity.
	Payload any    // Opaque user reference; the engine never interprets it.
	// Key is an optional caller-chosen identifier. The engine itself ignores it; it exists
	// so collaborating layers (pkg/scheduler) can index records by a stable name without
	// reaching into Payload.
	Key string

	next, prev *Record // Intrusive circular doubly-linked list node.
}

// NewRecord returns a freshly detached record, matching the "init(expiry=0, payload=nil)"
// constructor in the spec's timeout-record contract.
func NewRecord() *Record {
	return &Record{}
}

// Set updates expiry and payload on a detached record. Calling Set on a record still
// linked in an engine is undefined behaviour; use Engine.Touch for linked records.
func (r *Record) Set(expiry uint64, payload any) {
	r.Expiry = expiry
	r.Payload = payload
}

// IsLinked reports whether the record currently belongs to some engine list.
func (r *Record) IsLinked() bool {
	return isLinked(r)
}

// Reset clears a record back to its zero, detached state. The caller must have already
// detached it via Engine.Stop (or never have started it) — Reset does not unlink.
func (r *Record) Reset() {
	r.Expiry = 0
	r.Payload = nil
	r.Key = ""
}
