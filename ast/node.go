// Package ast defines the decl/expr/stmt/pattern/type-repr trees produced
// by the out-of-scope parser collaborator (spec.md §3.2, §6) and the
// generic walker that traverses them (§4.1). Nodes are arena-allocated for
// the compilation unit; identities are pointer-equal (§3.5) and the trees
// are acyclic except through logical Decl references (e.g. an identifier
// expression's resolved declaration), never through ownership.
package ast

import "github.com/silcore/compiler/sourcemap"

// Node is implemented by every Decl, Expr, Stmt, Pattern and TypeRepr.
type Node interface {
	Range() sourcemap.Range
}

// Accessibility is a decl's effective visibility.
type Accessibility int

const (
	Private Accessibility = iota
	Internal
	Public
)

func (a Accessibility) String() string {
	switch a {
	case Private:
		return "private"
	case Internal:
		return "internal"
	case Public:
		return "public"
	}
	return "accessibility?"
}

// Less reports whether a is strictly less accessible than b.
func (a Accessibility) Less(b Accessibility) bool { return a < b }

// ValidationState tracks a decl's progress through the two-pass driver
// (spec.md §4.2): idempotency is enforced by checking BeingValidated before
// recursing and skipping work once Validated or EarlyValidated.
type ValidationState int

const (
	Unvalidated ValidationState = iota
	EarlyValidated
	BeingValidated
	Validated
)

// Attribute is one parsed attribute, e.g. @objc(foo) or `required`.
type Attribute struct {
	Name string
	Args []string
}

// AttributeSet is the ordered set of attributes attached to a Decl.
type AttributeSet []Attribute

// Has reports whether name appears in the set.
func (s AttributeSet) Has(name string) bool {
	for _, a := range s {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Get returns the first attribute named name, if present.
func (s AttributeSet) Get(name string) (Attribute, bool) {
	for _, a := range s {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}
