// Package ffhandle lets native extension code hold stable references to
// Go objects across a foreign-function boundary.
//
// Native code never sees a Go pointer. It sees 64-bit boxed words: small
// integers and doubles are embedded directly, and every other object is
// reached through an integer id in the Context's handle table. Trackers
// release a cohort of handles when a native call returns, and the native
// mirror cache lets native code read an object's native payload without
// calling back into Go.
//
// A Context created with Options.Debug audits the table: allocations are
// stamped with a generation for leak checks between checkpoints, and using
// a closed or out-of-range id is reported instead of silently resolving to
// whatever occupies the slot.
//
// Off-heap memory comes from the C library, loaded with purego so no cgo
// toolchain is needed.
package ffhandle

import (
	"github.com/obinnaokechukwu/ffhandle/abi"
	"github.com/obinnaokechukwu/ffhandle/boxing"
	"github.com/obinnaokechukwu/ffhandle/internal/bindings"
)

// Init loads the C library used for off-heap memory. New calls it when
// Options.OffHeap is set, but it can be called explicitly to check for
// errors. It is safe to call multiple times.
func Init() error {
	return bindings.Load()
}

// IsLoaded returns true if the C library has been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// LibraryPath returns the path of the loaded C library.
func LibraryPath() string {
	return bindings.LibraryPath()
}

// Re-export common types for convenience
type (
	// Word is a boxed 64-bit value.
	Word = boxing.Word

	// Entry is a dispatch table entry.
	Entry = abi.Entry
)

// Null is the boxed null handle.
const Null = boxing.Null

// ABIVersion is the dispatch table version this package implements.
const ABIVersion = abi.Version
