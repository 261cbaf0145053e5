//go:build (darwin || freebsd || linux) && !android && (amd64 || arm64)

// Package bindings loads the system C library with purego and binds the
// allocator functions used for off-heap memory.
//
// Memory obtained here is invisible to the Go garbage collector, so native
// code can keep pointers into it across calls without pinning.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/ffhandle/internal/platform"
)

// ErrNotLoaded is returned by CAllocator when the C library has not been loaded.
var ErrNotLoaded = errors.New("ffhandle: C library not loaded")

// ErrLibraryNotFound is returned when the C library cannot be found.
var ErrLibraryNotFound = errors.New("ffhandle: C library not found")

var (
	libC     uintptr
	libCPath string

	loaded   bool
	loadOnce sync.Once
	loadErr  error
)

// Function bindings
var (
	cCalloc  func(n, size uintptr) unsafe.Pointer
	cRealloc func(ptr unsafe.Pointer, size uintptr) unsafe.Pointer
	cFree    func(ptr unsafe.Pointer)
)

// IsLoaded returns true if the C library has been successfully loaded.
func IsLoaded() bool {
	return loaded
}

// Load loads the C library and registers the allocator bindings.
// It is safe to call multiple times; subsequent calls are no-ops.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

func doLoad() error {
	lib, path, err := openCLibrary()
	if err != nil {
		return err
	}
	libC, libCPath = lib, path

	purego.RegisterLibFunc(&cCalloc, libC, "calloc")
	purego.RegisterLibFunc(&cRealloc, libC, "realloc")
	purego.RegisterLibFunc(&cFree, libC, "free")
	return nil
}

func openCLibrary() (uintptr, string, error) {
	names := platform.CLibraryNames()
	for _, searchPath := range LibrarySearchPaths() {
		for _, name := range names {
			if filepath.IsAbs(name) {
				continue
			}
			fullPath := filepath.Join(searchPath, name)
			if lib, err := tryOpen(fullPath); err == nil {
				return lib, fullPath, nil
			}
		}
	}

	// Let the dynamic loader resolve bare names and absolute paths.
	var lastErr error
	for _, name := range names {
		lib, err := tryOpen(name)
		if err == nil {
			return lib, name, nil
		}
		lastErr = err
	}
	return 0, "", fmt.Errorf("%w: %v", ErrLibraryNotFound, lastErr)
}

// tryOpen attempts to open a library with RTLD_NOW | RTLD_GLOBAL.
func tryOpen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

// LibrarySearchPaths returns platform-specific library search paths.
func LibrarySearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "linux":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/lib/x86_64-linux-gnu",
			"/lib/aarch64-linux-gnu",
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/lib64",
			"/usr/lib",
			"/lib",
		)

	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths, "/usr/lib")

	case "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths, "/lib", "/usr/lib")
	}

	return paths
}

// LibraryPath returns the path the C library was loaded from, for diagnostics.
func LibraryPath() string {
	return libCPath
}

// Calloc allocates n zeroed elements of size bytes. It returns nil when the
// library is not loaded or the allocation fails.
func Calloc(n, size uintptr) unsafe.Pointer {
	if cCalloc == nil {
		return nil
	}
	return cCalloc(n, size)
}

// Realloc resizes a block obtained from Calloc. Bytes past the old size are
// uninitialized.
func Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if cRealloc == nil {
		return nil
	}
	return cRealloc(ptr, size)
}

// Free releases a block obtained from Calloc or Realloc. Safe to call with nil.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || cFree == nil {
		return
	}
	cFree(ptr)
}
