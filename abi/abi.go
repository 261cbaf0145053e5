// Package abi defines the versioned dispatch table native code uses to
// reach context operations.
//
// Entries are looked up by stable name once, with Resolve, and called by
// dense index afterwards. Every argument and result is a boxed word. Each
// call checks its argument count before doing any work.
package abi

import (
	"errors"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/obinnaokechukwu/ffhandle/boxing"
)

// Version is the ABI version implemented by this package.
const Version = "v1.2.0"

var (
	// ErrUnknownEntry is returned when a name or index is not in the table.
	ErrUnknownEntry = errors.New("ffhandle: unknown ABI entry")

	// ErrNotImplemented is returned when an entry has no function bound.
	ErrNotImplemented = errors.New("ffhandle: ABI entry not implemented")

	// ErrIncompatibleVersion is returned when a requested ABI version cannot be served.
	ErrIncompatibleVersion = errors.New("ffhandle: incompatible ABI version")
)

// ArityError is returned when an entry is called with the wrong number of
// arguments.
type ArityError struct {
	Name     string
	Expected int
	Got      int
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	return fmt.Sprintf("ffhandle: %s expects %d argument(s), got %d", e.Name, e.Expected, e.Got)
}

// IsArity reports whether err is an ArityError.
func IsArity(err error) bool {
	var ae *ArityError
	return errors.As(err, &ae)
}

// Func implements one entry.
type Func func(args []boxing.Word) (boxing.Word, error)

// Resolve maps a stable entry name to its index.
func Resolve(name string) (Entry, error) {
	e, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	return e, nil
}

// CheckVersion reports whether a module built against requested can run on
// this ABI: the major versions must match and requested must not be newer.
func CheckVersion(requested string) error {
	if !semver.IsValid(requested) {
		return fmt.Errorf("%w: %q is not a semantic version", ErrIncompatibleVersion, requested)
	}
	if semver.Major(requested) != semver.Major(Version) {
		return fmt.Errorf("%w: %s has a different major version than %s", ErrIncompatibleVersion, requested, Version)
	}
	if semver.Compare(requested, Version) > 0 {
		return fmt.Errorf("%w: %s is newer than %s", ErrIncompatibleVersion, requested, Version)
	}
	return nil
}

// Table binds functions to entries.
type Table struct {
	funcs [numEntries]Func
}

// NewTable returns a table with no functions bound.
func NewTable() *Table {
	return &Table{}
}

// Bind sets the function for e.
func (t *Table) Bind(e Entry, fn Func) {
	if e < 0 || e >= numEntries {
		panic(fmt.Sprintf("abi: bind of invalid entry %d", e))
	}
	t.funcs[e] = fn
}

// Call invokes e after checking the argument count.
func (t *Table) Call(e Entry, args ...boxing.Word) (boxing.Word, error) {
	if e < 0 || e >= numEntries {
		return boxing.Null, fmt.Errorf("%w: index %d", ErrUnknownEntry, e)
	}
	info := entries[e]
	if len(args) != info.arity {
		return boxing.Null, &ArityError{Name: info.name, Expected: info.arity, Got: len(args)}
	}
	fn := t.funcs[e]
	if fn == nil {
		return boxing.Null, fmt.Errorf("%w: %s", ErrNotImplemented, info.name)
	}
	return fn(args)
}

// CallByName resolves name and calls it. Native code should resolve once
// and use Call; this is for tooling and tests.
func (t *Table) CallByName(name string, args ...boxing.Word) (boxing.Word, error) {
	e, err := Resolve(name)
	if err != nil {
		return boxing.Null, err
	}
	return t.Call(e, args...)
}
