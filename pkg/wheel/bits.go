package wheel

import "math/bits"

// binCount matches the width of the expiry word: one bin per bit, so the top-bin overflow
// case from the 32-bin source variant never arises (spec.md design notes §9).
const binCount = 64

// order returns the zero-based index of the most significant set bit of x. Undefined for
// x == 0 — every call site here only invokes it on a non-zero XOR distance.
func order(x uint64) int {
	return bits.Len64(x) - 1
}
