//go:build !((darwin || freebsd || linux) && !android && (amd64 || arm64))

package bindings

import (
	"errors"
	"unsafe"
)

// ErrNotLoaded is returned by CAllocator when the C library has not been loaded.
var ErrNotLoaded = errors.New("ffhandle: C library not loaded")

// ErrLibraryNotFound is returned when the C library cannot be found.
var ErrLibraryNotFound = errors.New("ffhandle: C library not supported on this platform")

// IsLoaded always returns false on this platform.
func IsLoaded() bool { return false }

// Load always fails on this platform; callers fall back to Go memory.
func Load() error { return ErrLibraryNotFound }

// LibrarySearchPaths returns nil on this platform.
func LibrarySearchPaths() []string { return nil }

// LibraryPath returns "" on this platform.
func LibraryPath() string { return "" }

// Calloc always returns nil on this platform.
func Calloc(n, size uintptr) unsafe.Pointer { return nil }

// Realloc always returns nil on this platform.
func Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer { return nil }

// Free is a no-op on this platform.
func Free(ptr unsafe.Pointer) {}
