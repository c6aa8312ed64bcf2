// Intrusive doubly-linked circular lists with a sentinel head, the moral backbone of
// every wheel operation. Each list is represented by one sentinel *Record (its expiry and
// payload fields are never read); an empty list has the sentinel's next and prev pointing
// back to itself. Nodes carry no back-reference to their owning list — callers track
// provenance themselves.

package wheel

// newSentinel returns a fresh, self-looped list head.
func newSentinel() *Record {
	s := &Record{}
	s.next = s
	s.prev = s
	return s
}

func isEmptyList(sentinel *Record) bool {
	return sentinel.next == sentinel
}

// pushBack appends node to the tail of the list identified by sentinel. node must be
// detached (not currently linked anywhere).
func pushBack(sentinel, node *Record) {
	last := sentinel.prev
	node.next = sentinel
	node.prev = last
	last.next = node
	sentinel.prev = node
}

// popFront removes and returns the first element of the list, or nil if empty.
func popFront(sentinel *Record) *Record {
	if isEmptyList(sentinel) {
		return nil
	}
	first := sentinel.next
	unlink(first)
	return first
}

// unlink detaches node from whichever list it is currently linked in. node must be
// linked; unlinking an already-detached node is undefined (callers check isLinked first).
func unlink(node *Record) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.next = nil
	node.prev = nil
}

// isLinked reports whether node is currently part of some list. A freshly-initialised or
// just-unlinked node has a nil next pointer.
func isLinked(node *Record) bool {
	return node.next != nil
}

// spliceAppend moves every element of the list rooted at src onto the tail of the list
// rooted at dst, preserving order, and reinitialises src as empty. O(1).
func spliceAppend(dst, src *Record) {
	if isEmptyList(src) {
		return
	}
	srcFirst := src.next
	srcLast := src.prev

	dstLast := dst.prev
	dstLast.next = srcFirst
	srcFirst.prev = dstLast
	srcLast.next = dst
	dst.prev = srcLast

	src.next = src
	src.prev = src
}
