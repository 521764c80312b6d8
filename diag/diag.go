// Package diag models the out-of-scope diagnostic-sink collaborator
// (spec.md §6). Validators, the verifier and the deserializer all emit
// through this narrow interface; this package owns the structured
// "kind + args" shape, the Fix-It accumulation contract, and a minimal
// in-memory sink good enough for tests. A real driver supplies its own
// Sink that renders to a terminal, an editor, or a build log.
//
// The shape here — an Emit call returning a chainable InFlight value that
// accumulates highlights and fix-its before being flushed — mirrors the
// tag-accumulation idiom of the teacher's own structured event logging:
// build up a record, then hand it to the sink once, instead of emitting
// one line per field.
package diag

import (
	"fmt"

	"github.com/silcore/compiler/sourcemap"
)

// Kind identifies a diagnostic message template. Kinds are interned
// integers rather than strings so that the catalog can be exhaustively
// checked at compile time by a driver; the string form is for test output
// only.
type Kind int

// Severity classifies how a diagnostic affects compilation.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Fatal
)

// Diagnostic catalog entries referenced by this module. A real driver's
// catalog is much larger; these are the ones the core emits directly.
const (
	KindInvalidRedecl Kind = iota
	KindInvalidRedeclPrev
	KindOverrideLetProperty
	KindOverrideMismatchSelector
	KindRequiredInitializerMissing
	KindClassHasNoInitializers
	KindInheritanceCycle
	KindRawTypeRequiresRawRepresentable
	KindDuplicateInheritedType
	KindAccessibilityViolation
	KindOverridingUnavailable
	KindFailableOverridesNonFailable
)

var kindNames = map[Kind]string{
	KindInvalidRedecl:                   "invalid_redecl",
	KindInvalidRedeclPrev:               "invalid_redecl_prev",
	KindOverrideLetProperty:             "override_let_property",
	KindOverrideMismatchSelector:        "override_mismatch_selector",
	KindRequiredInitializerMissing:      "required_initializer_missing",
	KindClassHasNoInitializers:          "class_has_no_initializers",
	KindInheritanceCycle:                "inheritance_cycle",
	KindRawTypeRequiresRawRepresentable: "raw_type_requires_raw_representable",
	KindDuplicateInheritedType:          "duplicate_inherited_type",
	KindAccessibilityViolation:          "accessibility_violation",
	KindOverridingUnavailable:           "overriding_unavailable",
	KindFailableOverridesNonFailable:    "failable_overrides_nonfailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FixIt is one suggested source edit.
type FixIt struct {
	Range       sourcemap.Range // Remove/Replace; zero Range for Insert
	Loc         sourcemap.Loc   // Insert only
	Text        string
	IsRemoval   bool
	IsInsertion bool
}

// Record is a single, fully assembled diagnostic.
type Record struct {
	Loc       sourcemap.Loc
	Kind      Kind
	Severity  Severity
	Args      []any
	Highlight []sourcemap.Range
	FixIts    []FixIt
}

// Sink accepts diagnostics from validators and the verifier.
type Sink interface {
	Emit(loc sourcemap.Loc, kind Kind, severity Severity, args ...any) *InFlight
}

// InFlight accumulates highlights and fix-its for one diagnostic before it
// is flushed to the owning Sink. Every accumulation method returns the
// receiver so calls can be chained the way the parser-collaborator's own
// diagnostic builder does.
type InFlight struct {
	rec     Record
	flushed bool
	sink    *MemSink
}

func (f *InFlight) Highlight(r sourcemap.Range) *InFlight {
	f.rec.Highlight = append(f.rec.Highlight, r)
	return f
}

func (f *InFlight) FixItReplace(r sourcemap.Range, text string) *InFlight {
	f.rec.FixIts = append(f.rec.FixIts, FixIt{Range: r, Text: text})
	return f
}

func (f *InFlight) FixItInsert(loc sourcemap.Loc, text string) *InFlight {
	f.rec.FixIts = append(f.rec.FixIts, FixIt{Loc: loc, Text: text, IsInsertion: true})
	return f
}

func (f *InFlight) FixItRemove(r sourcemap.Range) *InFlight {
	f.rec.FixIts = append(f.rec.FixIts, FixIt{Range: r, IsRemoval: true})
	return f
}

// Flush commits the accumulated diagnostic to the sink. Flush is
// idempotent: a second call is a no-op, matching "errors are reported
// exactly once per logical failure" (spec.md §7).
func (f *InFlight) Flush() {
	if f.flushed {
		return
	}
	f.flushed = true
	f.sink.records = append(f.sink.records, f.rec)
}

// MemSink is an in-memory Sink, sufficient for tests and for drivers that
// batch diagnostics before rendering.
type MemSink struct {
	records []Record
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink() *MemSink { return &MemSink{} }

func (s *MemSink) Emit(loc sourcemap.Loc, kind Kind, severity Severity, args ...any) *InFlight {
	f := &InFlight{sink: s, rec: Record{Loc: loc, Kind: kind, Severity: severity, Args: args}}
	return f
}

// Records returns every diagnostic flushed so far, in emission order.
func (s *MemSink) Records() []Record { return s.records }

// HasErrors reports whether any flushed record is Error or Fatal severity.
func (s *MemSink) HasErrors() bool {
	for _, r := range s.records {
		if r.Severity >= Error {
			return true
		}
	}
	return false
}
