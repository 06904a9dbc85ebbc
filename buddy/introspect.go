package buddy

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/kernelkit/physmem"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// Validate performs a full consistency walk over all three index structures
// and the accounting counters. When the allocator is functioning correctly it
// cannot return an error, but it may assist in diagnosing index corruption,
// most notably the silent corruption caused by freeing with a wrong order.
func (a *Allocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.validate()
}

func (a *Allocator) validate() error {
	// Check integrity of the per-order free lists
	freeListCount := 0
	for order := 0; order < len(a.freeList); order++ {
		b := a.freeList[order]
		if b != nil && b.prevFree != nil {
			return errors.Newf("block at %#x is the head of the order-%d free list but has a previous block", b.addr, order)
		}

		for ; b != nil; b = b.nextFree {
			if b.order != order {
				return errors.Newf("block at %#x has order %d but sits in the order-%d free list", b.addr, b.order, order)
			}
			if b.nextFree != nil && b.nextFree.prevFree != b {
				return errors.Newf("block at %#x lists the block at %#x as its next free block, but the reverse reference is broken", b.addr, b.nextFree.addr)
			}
			if (b.addr-a.heapBegin)%a.blockBytes(order) != 0 {
				return errors.Newf("block at %#x is not aligned to its order-%d size", b.addr, order)
			}
			freeListCount++
		}
	}

	// Check integrity of the address-ordered list against the tree
	addrListCount := 0
	freePages := 0
	if a.addrHead != nil && a.addrHead.prevAddr != nil {
		return errors.Newf("the first block in the address list has a predecessor")
	}
	for b := a.addrHead; b != nil; b = b.nextAddr {
		addrListCount++
		freePages += 1 << b.order

		if b.nextAddr != nil {
			if b.nextAddr.prevAddr != b {
				return errors.Newf("block at %#x lists the block at %#x as its address successor, but the reverse reference is broken", b.addr, b.nextAddr.addr)
			}
			if b.addr+a.blockBytes(b.order) > b.nextAddr.addr {
				return errors.Newf("block at %#x overlaps or passes its address successor at %#x", b.addr, b.nextAddr.addr)
			}
		} else if a.addrTail != b {
			return errors.Newf("block at %#x is the last block in the address list but is not the list tail", b.addr)
		}

		if a.tree.lookup(b.addr) != b {
			return errors.Newf("block at %#x is in the address list but not in the address tree", b.addr)
		}

		if b.order < a.maxOrder && a.freeBuddy(b.addr, b.order) != nil {
			return errors.Newf("block at %#x and its buddy are both free at order %d but were not coalesced", b.addr, b.order)
		}
	}

	if freeListCount != addrListCount {
		return errors.Newf("the free lists hold %d blocks but the address list holds %d", freeListCount, addrListCount)
	}

	treeCount, err := validateSubtree(a.tree.root, 0, physmem.NoBlock)
	if err != nil {
		return err
	}
	if treeCount != addrListCount {
		return errors.Newf("the address tree holds %d blocks but the address list holds %d", treeCount, addrListCount)
	}

	if a.allocatedPages != a.heapPages-freePages {
		return errors.Newf("the allocator has %d pages leased, but the free blocks only account for %d of %d heap pages", a.allocatedPages, freePages, a.heapPages)
	}

	leasedPages := 0
	a.leases.Iter(func(addr physmem.PageAddr, order int) bool {
		leasedPages += 1 << order
		return false
	})
	if leasedPages != a.allocatedPages {
		return errors.Newf("the lease table accounts for %d pages but the running counter holds %d", leasedPages, a.allocatedPages)
	}

	return nil
}

func validateSubtree(b *block, min, max physmem.PageAddr) (int, error) {
	if b == nil {
		return 0, nil
	}

	if b.addr < min || b.addr >= max {
		return 0, errors.Newf("tree node at %#x violates the search-tree ordering", b.addr)
	}

	leftCount, err := validateSubtree(b.left, min, b.addr)
	if err != nil {
		return 0, err
	}
	rightCount, err := validateSubtree(b.right, b.addr+1, max)
	if err != nil {
		return 0, err
	}

	leftHeight := nodeHeight(b.left)
	rightHeight := nodeHeight(b.right)
	expected := leftHeight + 1
	if rightHeight > leftHeight {
		expected = rightHeight + 1
	}
	if b.height != expected {
		return 0, errors.Newf("tree node at %#x has a stale height", b.addr)
	}
	if leftHeight-rightHeight > 1 || rightHeight-leftHeight > 1 {
		return 0, errors.Newf("tree node at %#x is out of balance", b.addr)
	}

	return leftCount + rightCount + 1, nil
}

// CheckCorruption verifies that the poison markers written across freed pages
// are still intact for every free block. Markers are only written when the
// module is built with the debug_physmem tag and the allocator has backing
// memory; in every other configuration this method reports no error.
func (a *Allocator) CheckCorruption() error {
	if a.memory == nil {
		return nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	for b := a.addrHead; b != nil; b = b.nextAddr {
		if !physmem.ValidatePoison(a.backing(b.addr), int(a.blockBytes(b.order))) {
			return errors.Newf("free block at %#x was written to after being freed", b.addr)
		}
	}

	return nil
}

// Clear instantly drops every lease and reseeds the initial free-block
// partition.
func (a *Allocator) Clear() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for b := a.addrHead; b != nil; {
		next := b.nextAddr
		releaseBlock(b)
		b = next
	}
	a.addrHead = nil
	a.addrTail = nil
	a.tree.root = nil
	a.freeList = make([]*block, a.maxOrder+1)
	a.leases = swiss.NewMap[physmem.PageAddr, int](42)
	a.allocatedPages = 0

	a.seed()
}

// FreeBlockVisitor receives free blocks during a VisitFreeBlocks walk.
type FreeBlockVisitor interface {
	VisitFreeBlock(addr physmem.PageAddr, order int) error
}

// FreeBlockVisitorFunc adapts a bare function to the FreeBlockVisitor
// interface.
type FreeBlockVisitorFunc func(addr physmem.PageAddr, order int) error

func (f FreeBlockVisitorFunc) VisitFreeBlock(addr physmem.PageAddr, order int) error {
	return f(addr, order)
}

// VisitFreeBlocks calls the provided visitor once for every free block, in
// ascending address order, stopping at the first error.
func (a *Allocator) VisitFreeBlocks(visitor FreeBlockVisitor) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for b := a.addrHead; b != nil; b = b.nextAddr {
		err := visitor.VisitFreeBlock(b.addr, b.order)
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this allocator's accounting into the statistics
// currently present in the provided physmem.Statistics object.
func (a *Allocator) AddStatistics(stats *physmem.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.HeapPages += a.heapPages
	stats.AllocatedPages += a.allocatedPages
	for b := a.addrHead; b != nil; b = b.nextAddr {
		stats.FreeBlockCount++
		stats.FreePages += 1 << b.order
	}
}

// AddDetailedStatistics sums this allocator's accounting, including the
// per-order free-block histogram, into the provided
// physmem.DetailedStatistics object.
func (a *Allocator) AddDetailedStatistics(stats *physmem.DetailedStatistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.HeapPages += a.heapPages
	stats.AllocatedPages += a.allocatedPages
	for b := a.addrHead; b != nil; b = b.nextAddr {
		stats.AddFreeBlock(b.order)
	}
}

// HeapJsonData populates a json object with the allocator's configuration,
// accounting, and the full free/leased map. Addresses are rendered as hex
// strings.
func (a *Allocator) HeapJsonData(json jwriter.ObjectState) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	json.Name("HeapBegin").String(fmt.Sprintf("%#x", uint64(a.heapBegin)))
	json.Name("HeapEnd").String(fmt.Sprintf("%#x", uint64(a.heapEnd)))
	json.Name("PageSize").Int(a.pageSize)
	json.Name("MaxOrder").Int(a.maxOrder)
	json.Name("HeapPages").Int(a.heapPages)
	json.Name("AllocatedPages").Int(a.allocatedPages)

	freeBlocks := json.Name("FreeBlocks").Array()
	for b := a.addrHead; b != nil; b = b.nextAddr {
		obj := freeBlocks.Object()
		obj.Name("Addr").String(fmt.Sprintf("%#x", uint64(b.addr)))
		obj.Name("Order").Int(b.order)
		obj.Name("Pages").Int(1 << b.order)
		obj.End()
	}
	freeBlocks.End()

	leases := json.Name("Leases").Array()
	a.leases.Iter(func(addr physmem.PageAddr, order int) bool {
		obj := leases.Object()
		obj.Name("Addr").String(fmt.Sprintf("%#x", uint64(addr)))
		obj.Name("Order").Int(order)
		obj.End()
		return false
	})
	leases.End()
}

// BuildStatsString renders HeapJsonData as a JSON string.
func (a *Allocator) BuildStatsString() string {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	a.HeapJsonData(obj)
	obj.End()

	return string(writer.Bytes())
}

// DebugLogAllAllocations calls logFunc for every currently leased run of
// pages. The order of enumeration is unspecified.
func (a *Allocator) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, addr physmem.PageAddr, order int)) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.leases.Iter(func(addr physmem.PageAddr, order int) bool {
		logFunc(logger, addr, order)
		return false
	})
}
