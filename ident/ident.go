// Package ident provides the identifier and bytestring interner (spec.md
// C2). Every decl name, selector and mangled specialization name in the
// compiler flows through here so that equality is pointer equality, the
// same discipline the teacher's ssa package applies to its Id{Pkg, Name}
// pairs for disambiguating unexported names across packages.
package ident

import (
	"sync"

	"golang.org/x/text/unicode/norm"
)

// ID is a uniqued identifier. The zero value is not a valid ID.
type ID struct {
	entry *entry
}

type entry struct {
	text string
}

// String returns the normalized text of the identifier.
func (id ID) String() string {
	if id.entry == nil {
		return ""
	}
	return id.entry.text
}

// IsValid reports whether id was produced by an Interner.
func (id ID) IsValid() bool { return id.entry != nil }

// Equal reports whether two IDs name the same identifier. Because IDs are
// hash-consed, this is pointer comparison, not string comparison.
func (id ID) Equal(other ID) bool { return id.entry == other.entry }

// Interner uniques identifier text. A single compilation owns exactly one
// Interner (spec.md §5: not accessed concurrently), but Intern is
// serialized internally so that a driver running several independent
// compilations in parallel goroutines may still share one interner safely.
type Interner struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{entries: make(map[string]*entry)}
}

// Intern returns the unique ID for s, normalizing to NFC first so that two
// source spellings of one identifier (e.g. precomposed vs. combining-mark
// Unicode) intern to the same ID.
func (in *Interner) Intern(s string) ID {
	s = norm.NFC.String(s)
	in.mu.Lock()
	defer in.mu.Unlock()
	if e, ok := in.entries[s]; ok {
		return ID{entry: e}
	}
	e := &entry{text: s}
	in.entries[s] = e
	return ID{entry: e}
}

// Len returns the number of distinct identifiers interned so far.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}
