package ast

import "github.com/silcore/compiler/sourcemap"

// Pattern is implemented by every pattern node (binding patterns used in
// var/let declarations, function parameters, and switch-case matching).
type Pattern interface {
	Node
	patternNode()
}

type patternBase struct {
	rng sourcemap.Range
}

func (p patternBase) Range() sourcemap.Range { return p.rng }
func (patternBase) patternNode()             {}

// IdentifierPattern binds a single name.
type IdentifierPattern struct {
	patternBase
	Name string
}

func NewIdentifierPattern(rng sourcemap.Range, name string) *IdentifierPattern {
	return &IdentifierPattern{patternBase{rng}, name}
}

// WildcardPattern (`_`) matches and discards.
type WildcardPattern struct{ patternBase }

func NewWildcardPattern(rng sourcemap.Range) *WildcardPattern { return &WildcardPattern{patternBase{rng}} }

// TuplePattern destructures a tuple value into sub-patterns.
type TuplePattern struct {
	patternBase
	Elements []Pattern
}

func NewTuplePattern(rng sourcemap.Range, elements []Pattern) *TuplePattern {
	return &TuplePattern{patternBase{rng}, elements}
}

// TypedPattern annotates a sub-pattern with an explicit type.
type TypedPattern struct {
	patternBase
	Sub  Pattern
	Type TypeRepr
}

func NewTypedPattern(rng sourcemap.Range, sub Pattern, typ TypeRepr) *TypedPattern {
	return &TypedPattern{patternBase{rng}, sub, typ}
}

// EnumCasePattern matches a specific enum case, optionally destructuring
// its associated values.
type EnumCasePattern struct {
	patternBase
	CaseName string
	Payload  []Pattern // nil if the case has no associated values
}

func NewEnumCasePattern(rng sourcemap.Range, caseName string, payload []Pattern) *EnumCasePattern {
	return &EnumCasePattern{patternBase{rng}, caseName, payload}
}
