package buddy

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/kernelkit/physmem"
	"github.com/kernelkit/physmem/internal/utils"
	"golang.org/x/exp/slog"
)

// OrderFor returns the smallest order whose block size can hold the given
// number of pages. Order 0 is exactly one page.
func OrderFor(pages int) int {
	order := 0
	for span := 1; span < pages; span <<= 1 {
		order++
	}
	return order
}

// Config describes the physical range an Allocator manages. It is consumed
// once by Allocator.Init, before any concurrent access is possible.
type Config struct {
	// HeapBegin and HeapEnd delimit the physical range [HeapBegin, HeapEnd)
	// owned by the allocator. Both are aligned inward to PageSize by Init.
	HeapBegin physmem.PageAddr
	HeapEnd   physmem.PageAddr

	// PageSize is the size in bytes of a single page. It must be a power of two.
	PageSize int

	// MaxOrder is the largest block order the allocator will hand out or
	// coalesce up to. The largest block therefore spans PageSize << MaxOrder
	// bytes.
	MaxOrder int

	// Memory optionally points at the backing storage for HeapBegin. When it is
	// set, the zeroed allocation variants clear the leased range and freed
	// ranges are poisoned in debug builds. When it is nil, addresses are purely
	// abstract and the zeroed variants behave like their plain counterparts.
	Memory unsafe.Pointer

	// UseMutex should be true unless the consumer guarantees single-threaded
	// access to the allocator.
	UseMutex bool
}

// Allocator hands out contiguous, power-of-two-sized runs of pages from a
// fixed physical range and reclaims them with automatic buddy coalescing.
// Free blocks are tracked in three index structures that are always mutated
// together under one exclusive lock: a free list per order, a doubly linked
// list of all free blocks in address order, and a balanced tree keyed by
// address.
type Allocator struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	heapBegin physmem.PageAddr
	heapEnd   physmem.PageAddr
	pageSize  int
	maxOrder  int
	heapPages int
	memory    unsafe.Pointer

	freeList []*block
	addrHead *block
	addrTail *block
	tree     addrTree

	leases         *swiss.Map[physmem.PageAddr, int]
	allocatedPages int
}

func New(logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Allocator{
		logger: logger,
	}
}

// Init establishes the initial free-block partition for the configured range.
// It must be called exactly once, before any other method and before the
// allocator is shared between goroutines.
func (a *Allocator) Init(config Config) error {
	if config.PageSize < 1 {
		return errors.Newf("page size must be positive, got %d", config.PageSize)
	}
	err := physmem.CheckPow2(uint(config.PageSize), "page size")
	if err != nil {
		return err
	}
	if config.MaxOrder < 0 || config.MaxOrder > physmem.MaxOrderLimit {
		return errors.Newf("max order must be between 0 and %d, got %d", physmem.MaxOrderLimit, config.MaxOrder)
	}

	pageSize := physmem.PageAddr(config.PageSize)
	heapBegin := physmem.AlignUp(config.HeapBegin, pageSize)
	heapEnd := physmem.AlignDown(config.HeapEnd, pageSize)
	if heapEnd <= heapBegin {
		return errors.Newf("heap range [%#x, %#x) contains no full page", config.HeapBegin, config.HeapEnd)
	}

	a.heapBegin = heapBegin
	a.heapEnd = heapEnd
	a.pageSize = config.PageSize
	a.maxOrder = config.MaxOrder
	a.heapPages = int((heapEnd - heapBegin) / pageSize)
	a.memory = config.Memory
	a.mutex = utils.OptionalMutex{UseMutex: config.UseMutex}

	a.freeList = make([]*block, a.maxOrder+1)
	a.leases = swiss.NewMap[physmem.PageAddr, int](42)
	a.seed()

	a.logger.Debug("initialized buddy heap",
		slog.Int("pages", a.heapPages),
		slog.Int("pageSize", a.pageSize),
		slog.Int("maxOrder", a.maxOrder))

	return nil
}

// seed walks the heap range in ascending address order and links the maximal
// set of aligned free blocks covering it. No block crosses the end of the
// heap and every block's offset is aligned to its own size.
func (a *Allocator) seed() {
	for addr := a.heapBegin; addr < a.heapEnd; {
		remaining := int((a.heapEnd - addr) / physmem.PageAddr(a.pageSize))

		order := OrderFor(remaining)
		if order > a.maxOrder {
			order = a.maxOrder
		}
		for order > 0 && (a.blockBytes(order) > a.heapEnd-addr || (addr-a.heapBegin)%a.blockBytes(order) != 0) {
			order--
		}

		a.linkFreeBlock(newBlock(addr, order))
		a.poisonRange(addr, order)
		addr += a.blockBytes(order)
	}
}

// blockBytes returns the size in bytes of a block of the given order.
func (a *Allocator) blockBytes(order int) physmem.PageAddr {
	return physmem.PageAddr(a.pageSize) << order
}

// linkFreeBlock inserts a block into all three indexes. The address-list
// splice uses the tree's predecessor query, so the list stays exactly
// address-sorted.
func (a *Allocator) linkFreeBlock(b *block) {
	b.prevFree = nil
	b.nextFree = a.freeList[b.order]
	if b.nextFree != nil {
		b.nextFree.prevFree = b
	}
	a.freeList[b.order] = b

	prev := a.tree.floor(b.addr)
	if prev != nil {
		b.prevAddr = prev
		b.nextAddr = prev.nextAddr
		prev.nextAddr = b
	} else {
		b.prevAddr = nil
		b.nextAddr = a.addrHead
		a.addrHead = b
	}
	if b.nextAddr != nil {
		b.nextAddr.prevAddr = b
	} else {
		a.addrTail = b
	}

	a.tree.insert(b)
}

// unlinkFreeBlock removes a block from all three indexes.
func (a *Allocator) unlinkFreeBlock(b *block) {
	if b.prevFree != nil {
		b.prevFree.nextFree = b.nextFree
	} else {
		if a.freeList[b.order] != b {
			panic("block was not at the head of its free list")
		}
		a.freeList[b.order] = b.nextFree
	}
	if b.nextFree != nil {
		b.nextFree.prevFree = b.prevFree
	}
	b.prevFree = nil
	b.nextFree = nil

	if b.prevAddr != nil {
		b.prevAddr.nextAddr = b.nextAddr
	} else {
		a.addrHead = b.nextAddr
	}
	if b.nextAddr != nil {
		b.nextAddr.prevAddr = b.prevAddr
	} else {
		a.addrTail = b.prevAddr
	}
	b.prevAddr = nil
	b.nextAddr = nil

	a.tree.remove(b)
}

// splitBlock halves the provided free block until a block of the required
// order remains and returns it. The input block is unlinked; every upper half
// shed along the way is linked back in as a free block of the new order. The
// returned block is in no index.
func (a *Allocator) splitBlock(b *block, order int) *block {
	a.unlinkFreeBlock(b)
	for b.order > order {
		b.order--
		a.linkFreeBlock(newBlock(b.addr+a.blockBytes(b.order), b.order))
	}
	return b
}

// Alloc leases a contiguous run of 1 << order pages and returns its address.
// It fails with physmem.ErrInvalidOrder when the order exceeds the configured
// maximum and with physmem.ErrOutOfMemory when no free block of at least the
// requested order exists. The smallest sufficient block currently available
// is split down to the requested order.
func (a *Allocator) Alloc(order int) (physmem.PageAddr, error) {
	if order < 0 || order > a.maxOrder {
		return physmem.NoBlock, errors.Wrapf(physmem.ErrInvalidOrder, "order %d with maximum %d", order, a.maxOrder)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	physmem.DebugValidate(physmem.ValidatableFunc(a.validate))

	i := order
	for i <= a.maxOrder && a.freeList[i] == nil {
		i++
	}
	if i > a.maxOrder {
		return physmem.NoBlock, errors.Wrapf(physmem.ErrOutOfMemory, "no free block of order %d or above", order)
	}

	b := a.splitBlock(a.freeList[i], order)
	addr := b.addr
	releaseBlock(b)

	a.lease(addr, order)
	return addr, nil
}

// AllocZeroed behaves exactly like Alloc and then clears the leased range
// when the allocator was configured with backing memory.
func (a *Allocator) AllocZeroed(order int) (physmem.PageAddr, error) {
	addr, err := a.Alloc(order)
	if err != nil {
		return addr, err
	}

	a.zeroRange(addr, order)
	return addr, nil
}

// AllocInRange leases a run of 1 << order pages that lies entirely inside
// [begin, end) after begin is aligned up and end is aligned down to the page
// size. The scan starts at the first free block at or after the aligned begin
// and walks the address-ordered list for the first block big enough to hold
// the request without crossing the aligned end; that block is split down to
// the requested order.
func (a *Allocator) AllocInRange(order int, begin, end physmem.PageAddr) (physmem.PageAddr, error) {
	if order < 0 || order > a.maxOrder {
		return physmem.NoBlock, errors.Wrapf(physmem.ErrInvalidOrder, "order %d with maximum %d", order, a.maxOrder)
	}

	pageSize := physmem.PageAddr(a.pageSize)
	begin = physmem.AlignUp(begin, pageSize)
	end = physmem.AlignDown(end, pageSize)
	if begin < a.heapBegin {
		begin = a.heapBegin
	}
	if end > a.heapEnd {
		end = a.heapEnd
	}
	if end <= begin {
		return physmem.NoBlock, errors.Wrapf(physmem.ErrInvalidRange, "range [%#x, %#x) is empty after alignment", begin, end)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	physmem.DebugValidate(physmem.ValidatableFunc(a.validate))

	size := a.blockBytes(order)
	b := a.tree.ceiling(begin)
	for b != nil && b.addr < end {
		if b.order >= order && b.addr+size <= end {
			break
		}
		b = b.nextAddr
	}
	if b == nil || b.addr >= end {
		return physmem.NoBlock, errors.Wrapf(physmem.ErrOutOfMemory, "no free block of order %d inside [%#x, %#x)", order, begin, end)
	}

	b = a.splitBlock(b, order)
	addr := b.addr
	releaseBlock(b)

	a.lease(addr, order)
	return addr, nil
}

// AllocZeroedInRange behaves exactly like AllocInRange and then clears the
// leased range when the allocator was configured with backing memory.
func (a *Allocator) AllocZeroedInRange(order int, begin, end physmem.PageAddr) (physmem.PageAddr, error) {
	addr, err := a.AllocInRange(order, begin, end)
	if err != nil {
		return addr, err
	}

	a.zeroRange(addr, order)
	return addr, nil
}

// Free returns a leased run of pages to the allocator and coalesces it with
// its buddy repeatedly until the buddy is not free or the maximum order is
// reached. The order must be the one the run was allocated with: the
// production build does not check it, and a mismatch silently corrupts the
// allocator. Builds with the debug_physmem tag verify the order against the
// lease table and panic on a mismatch.
func (a *Allocator) Free(ptr physmem.PageAddr, order int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	physmem.DebugValidate(physmem.ValidatableFunc(a.validate))

	if physmem.DebugChecksEnabled {
		leasedOrder, ok := a.leases.Get(ptr)
		if !ok {
			panic(errors.Newf("freeing %#x, which is not a leased block address", ptr))
		}
		if leasedOrder != order {
			panic(errors.Newf("freeing %#x with order %d, but it was allocated with order %d", ptr, order, leasedOrder))
		}
	}

	a.unlease(ptr, order)
	a.poisonRange(ptr, order)

	b := newBlock(ptr, order)
	a.linkFreeBlock(b)

	for b.order < a.maxOrder {
		buddy := a.freeBuddy(b.addr, b.order)
		if buddy == nil {
			break
		}

		a.unlinkFreeBlock(b)
		a.unlinkFreeBlock(buddy)

		// the lower address survives the merge
		if buddy.addr < b.addr {
			b, buddy = buddy, b
		}
		releaseBlock(buddy)

		b.order++
		a.linkFreeBlock(b)
	}
}

// freeBuddy returns the free block that is the geometric buddy of a block at
// the given address and order, or nil when that range is not currently a free
// block of the same order. The buddy address differs from the block's by
// exactly the block size under the heap-relative XOR relation.
func (a *Allocator) freeBuddy(addr physmem.PageAddr, order int) *block {
	buddyAddr := a.heapBegin + ((addr - a.heapBegin) ^ a.blockBytes(order))
	buddy := a.tree.lookup(buddyAddr)
	if buddy == nil || buddy.order != order {
		// a partially split buddy starts at the same address with a smaller
		// order; it cannot merge until its own halves coalesce
		return nil
	}
	return buddy
}

// AllocatedPages returns the total number of pages currently leased to
// callers.
func (a *Allocator) AllocatedPages() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.allocatedPages
}

// IsEmpty returns true when no pages are leased.
func (a *Allocator) IsEmpty() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.allocatedPages == 0
}

// HeapPages returns the total number of pages in the managed range.
func (a *Allocator) HeapPages() int { return a.heapPages }

// PageSize returns the configured page size in bytes.
func (a *Allocator) PageSize() int { return a.pageSize }

// MaxOrder returns the configured maximum block order.
func (a *Allocator) MaxOrder() int { return a.maxOrder }

// HeapBegin returns the aligned beginning of the managed range.
func (a *Allocator) HeapBegin() physmem.PageAddr { return a.heapBegin }

// HeapEnd returns the aligned end of the managed range.
func (a *Allocator) HeapEnd() physmem.PageAddr { return a.heapEnd }

func (a *Allocator) lease(addr physmem.PageAddr, order int) {
	a.leases.Put(addr, order)
	a.allocatedPages += 1 << order
}

func (a *Allocator) unlease(addr physmem.PageAddr, order int) {
	a.leases.Delete(addr)
	a.allocatedPages -= 1 << order
}

// backing returns a pointer into the configured backing memory for the given
// address, or nil when no backing memory was configured.
func (a *Allocator) backing(addr physmem.PageAddr) unsafe.Pointer {
	if a.memory == nil {
		return nil
	}
	return unsafe.Add(a.memory, uintptr(addr-a.heapBegin))
}

func (a *Allocator) zeroRange(addr physmem.PageAddr, order int) {
	data := a.backing(addr)
	if data == nil {
		return
	}

	span := unsafe.Slice((*byte)(data), int(a.blockBytes(order)))
	for i := range span {
		span[i] = 0
	}
}

func (a *Allocator) poisonRange(addr physmem.PageAddr, order int) {
	data := a.backing(addr)
	if data == nil {
		return
	}

	physmem.WritePoison(data, int(a.blockBytes(order)))
}
