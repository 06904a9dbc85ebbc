package buddy

import (
	"sync"

	"github.com/kernelkit/physmem"
)

var blockPool = sync.Pool{
	New: func() any {
		return &block{}
	},
}

// block describes one currently-free, order-aligned, contiguous run of pages.
// A block is simultaneously a member of its order's free list, the global
// address-ordered list, and the address tree; it is in all three indexes or in
// none of them. Descriptors live outside the memory they describe and only
// exist while their range is free; the moment a range is leased, its
// descriptor is released back to the pool.
type block struct {
	addr  physmem.PageAddr
	order int

	// per-order free list
	prevFree *block
	nextFree *block

	// address-ordered list, independent of order
	prevAddr *block
	nextAddr *block

	// address tree node
	left   *block
	right  *block
	height int
}

func newBlock(addr physmem.PageAddr, order int) *block {
	b := blockPool.Get().(*block)
	b.addr = addr
	b.order = order
	b.prevFree = nil
	b.nextFree = nil
	b.prevAddr = nil
	b.nextAddr = nil
	b.left = nil
	b.right = nil
	b.height = 1
	return b
}

func releaseBlock(b *block) {
	blockPool.Put(b)
}
