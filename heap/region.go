// Package heap provides page-aligned backing regions for buddy allocators.
// On unix platforms regions are anonymous memory mappings; elsewhere they are
// carved out of ordinary Go slices.
package heap

import "unsafe"

// Region is a page-aligned run of real memory suitable for use as an
// allocator backing store.
type Region struct {
	data   []byte
	mapped bool
}

// Pointer returns the base of the region.
func (r *Region) Pointer() unsafe.Pointer {
	return unsafe.Pointer(&r.data[0])
}

// Bytes returns the full region as a byte slice.
func (r *Region) Bytes() []byte {
	return r.data
}

// Size returns the region size in bytes.
func (r *Region) Size() int {
	return len(r.data)
}
