//go:build !unix

package heap

import (
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Map reserves a page-aligned region of the given size. Without an OS mapping
// primitive the region is carved out of an oversized Go slice, so alignment is
// to the OS page size reported by os.Getpagesize. The region starts out
// zero-filled. Release it with Unmap.
func Map(size int) (*Region, error) {
	if size < 1 {
		return nil, errors.Newf("region size must be positive, got %d", size)
	}

	pageSize := os.Getpagesize()
	raw := make([]byte, size+pageSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := 0
	if rem := int(base % uintptr(pageSize)); rem != 0 {
		offset = pageSize - rem
	}

	return &Region{data: raw[offset : offset+size]}, nil
}

// Unmap releases the region. The region must not be used afterward.
func (r *Region) Unmap() error {
	r.data = nil
	return nil
}
