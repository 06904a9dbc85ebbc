package physmem

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// ErrInvalidOrder is the error returned from allocation methods when the requested order exceeds the
// allocator's configured maximum. The request is rejected before any index structure is touched.
var ErrInvalidOrder error = errors.New("requested order exceeds the allocator's maximum")

// ErrOutOfMemory is the error returned from allocation methods when no sufficiently large free block
// exists. The caller may retry after freeing memory elsewhere.
var ErrOutOfMemory error = errors.New("no sufficiently large free block")

// ErrInvalidRange is the error returned from range-constrained allocation methods when the requested
// address range is empty after page alignment or lies outside the managed heap.
var ErrInvalidRange error = errors.New("invalid address range")
