package physmem

import "math"

// PageAddr is a physical address inside a heap range managed by a
// buddy.Allocator. Arithmetic on a PageAddr is always relative to the
// beginning of the heap range that produced it.
type PageAddr uint64

const (
	// NoBlock is the address value returned by failing allocation calls
	NoBlock PageAddr = math.MaxUint64

	// MaxOrderLimit is the largest block order any allocator may be configured
	// to use. It bounds the per-order index structures; the ratio between a
	// heap's size and its page size may not exceed 2^MaxOrderLimit.
	MaxOrderLimit = 32
)
