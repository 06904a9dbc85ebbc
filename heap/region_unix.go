//go:build unix

package heap

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Map reserves a page-aligned region of the given size via an anonymous
// memory mapping. The region starts out zero-filled. Release it with Unmap.
func Map(size int) (*Region, error) {
	if size < 1 {
		return nil, errors.Newf("region size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map a %d-byte region", size)
	}

	return &Region{data: data, mapped: true}, nil
}

// Unmap releases the region. The region must not be used afterward.
func (r *Region) Unmap() error {
	if !r.mapped {
		r.data = nil
		return nil
	}

	data := r.data
	r.data = nil
	r.mapped = false
	return unix.Munmap(data)
}
