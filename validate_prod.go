//go:build !debug_physmem

package physmem

import "unsafe"

// DebugChecksEnabled reports whether expensive caller-contract checks (such as
// verifying the order passed to Free against the lease table) should run.
// It is true only when the debug_physmem build tag is present.
const DebugChecksEnabled = false

// WritePoison fills size bytes at the provided pointer with an easy-to-identify marker.
// Any trailing bytes beyond the last full 4-byte word are left untouched.
// This method no-ops unless the debug_physmem build tag is present.
func WritePoison(data unsafe.Pointer, size int) {
}

// ValidatePoison verifies that the marker written by WritePoison is still intact across
// size bytes at the provided pointer. It returns true if the marker is still present and
// false otherwise. This method always returns true unless the debug_physmem build tag
// is present.
func ValidatePoison(data unsafe.Pointer, size int) bool {
	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are
// returned. This method no-ops unless the debug_physmem build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and
// panics if it is not. This method no-ops unless the debug_physmem build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
}
