package buddy

import (
	"github.com/kernelkit/physmem"
)

// addrTree is a height-balanced binary search tree over free blocks, keyed by
// block address. The tree is intrusive: nodes are the block descriptors
// themselves, so a lookup yields the descriptor directly and removal never
// copies key or payload between nodes; the other two indexes hold pointers to
// the same descriptors.
type addrTree struct {
	root *block
}

func nodeHeight(b *block) int {
	if b == nil {
		return 0
	}
	return b.height
}

func updateHeight(b *block) {
	left := nodeHeight(b.left)
	right := nodeHeight(b.right)
	if left > right {
		b.height = left + 1
	} else {
		b.height = right + 1
	}
}

func balanceFactor(b *block) int {
	return nodeHeight(b.left) - nodeHeight(b.right)
}

func rotateRight(b *block) *block {
	pivot := b.left
	b.left = pivot.right
	pivot.right = b
	updateHeight(b)
	updateHeight(pivot)
	return pivot
}

func rotateLeft(b *block) *block {
	pivot := b.right
	b.right = pivot.left
	pivot.left = b
	updateHeight(b)
	updateHeight(pivot)
	return pivot
}

func rebalance(b *block) *block {
	updateHeight(b)

	factor := balanceFactor(b)
	if factor > 1 {
		if balanceFactor(b.left) < 0 {
			b.left = rotateLeft(b.left)
		}
		return rotateRight(b)
	}
	if factor < -1 {
		if balanceFactor(b.right) > 0 {
			b.right = rotateRight(b.right)
		}
		return rotateLeft(b)
	}

	return b
}

func (t *addrTree) insert(b *block) {
	t.root = insertNode(t.root, b)
}

func insertNode(root *block, b *block) *block {
	if root == nil {
		return b
	}

	if b.addr < root.addr {
		root.left = insertNode(root.left, b)
	} else if b.addr > root.addr {
		root.right = insertNode(root.right, b)
	} else {
		panic("two free blocks share an address")
	}

	return rebalance(root)
}

func (t *addrTree) remove(b *block) {
	t.root = removeNode(t.root, b.addr)

	// the detached descriptor may be reinserted as a leaf later
	b.left = nil
	b.right = nil
	b.height = 1
}

func removeNode(root *block, addr physmem.PageAddr) *block {
	if root == nil {
		panic("removing a block that is not in the address tree")
	}

	if addr < root.addr {
		root.left = removeNode(root.left, addr)
	} else if addr > root.addr {
		root.right = removeNode(root.right, addr)
	} else {
		if root.left == nil {
			return root.right
		}
		if root.right == nil {
			return root.left
		}

		// Two children: splice out the in-order successor and transplant it
		// into this position. The descriptor's identity must be preserved:
		// the free list and address list still point at it.
		var successor *block
		root.right = detachMin(root.right, &successor)
		successor.left = root.left
		successor.right = root.right
		root = successor
	}

	return rebalance(root)
}

func detachMin(root *block, min **block) *block {
	if root.left == nil {
		*min = root
		return root.right
	}

	root.left = detachMin(root.left, min)
	return rebalance(root)
}

// lookup returns the free block at exactly the provided address, or nil.
func (t *addrTree) lookup(addr physmem.PageAddr) *block {
	node := t.root
	for node != nil {
		if addr == node.addr {
			return node
		}
		if addr < node.addr {
			node = node.left
		} else {
			node = node.right
		}
	}
	return nil
}

// ceiling returns the free block with the smallest address >= addr, or nil.
func (t *addrTree) ceiling(addr physmem.PageAddr) *block {
	var best *block
	node := t.root
	for node != nil {
		if addr == node.addr {
			return node
		}
		if addr < node.addr {
			best = node
			node = node.left
		} else {
			node = node.right
		}
	}
	return best
}

// floor returns the free block with the largest address <= addr, or nil.
func (t *addrTree) floor(addr physmem.PageAddr) *block {
	var best *block
	node := t.root
	for node != nil {
		if addr == node.addr {
			return node
		}
		if addr < node.addr {
			node = node.left
		} else {
			best = node
			node = node.right
		}
	}
	return best
}
