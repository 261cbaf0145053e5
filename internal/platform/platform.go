// Package platform provides platform facts needed to talk to the C runtime:
// pointer width and the file names of the system C library.
package platform

import (
	"fmt"
	"runtime"
	"unsafe"
)

// WordSize is the size in bytes of a native pointer-sized word.
const WordSize = unsafe.Sizeof(uintptr(0))

// Is64Bit indicates whether the platform is 64-bit. Boxed words are 64 bits
// wide, so the native mirror cache only stores full pointers on 64-bit hosts.
const Is64Bit = WordSize == 8

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default: // linux, freebsd, etc.
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the platform-specific library filename.
// If version is 0, returns the unversioned library name.
//
// Examples:
//   - Linux:   FormatLibraryName("c", 6) -> "libc.so.6"
//   - macOS:   FormatLibraryName("System", 0) -> "libSystem.dylib"
//   - Windows: FormatLibraryName("ucrtbase", 0) -> "ucrtbase.dll"
func FormatLibraryName(name string, version int) string {
	switch runtime.GOOS {
	case "darwin":
		if version > 0 {
			return fmt.Sprintf("%s%s.%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	case "windows":
		if version > 0 {
			return fmt.Sprintf("%s%s-%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	default: // linux, freebsd
		if version > 0 {
			return fmt.Sprintf("%s%s%s.%d", LibraryPrefix, name, LibraryExtension, version)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	}
}

// CLibraryNames returns the candidate file names of the C library that
// provides calloc, realloc and free, most specific first.
func CLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/usr/lib/libSystem.B.dylib", FormatLibraryName("System.B", 0)}
	case "freebsd":
		return []string{FormatLibraryName("c", 7), FormatLibraryName("c", 0)}
	default:
		return []string{FormatLibraryName("c", 6), FormatLibraryName("c", 0)}
	}
}
