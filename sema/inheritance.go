package sema

import (
	"github.com/silcore/compiler/ast"
	"github.com/silcore/compiler/diag"
)

// cycleState is the tri-state marker spec.md §4.2 requires for
// inheritance-cycle detection: Unchecked nodes have not been visited,
// Checking nodes are on the current DFS stack, Checked nodes are done
// (cycle-free as far as this check is concerned).
type cycleState int

const (
	cycleUnchecked cycleState = iota
	cycleChecking
	cycleChecked
)

// literalConvertibleRawTypes is the fixed protocol set spec.md §4.2
// requires enum raw types to satisfy.
var literalConvertibleRawTypes = map[string]bool{
	"Integer":                 true,
	"Float":                   true,
	"UnicodeScalar":           true,
	"ExtendedGraphemeCluster": true,
	"String":                  true,
}

type inheritanceChecker struct {
	d      *Driver
	state  map[*ast.NominalDecl]cycleState
	stack  []*ast.NominalDecl
}

func newInheritanceChecker(d *Driver) *inheritanceChecker {
	return &inheritanceChecker{d: d, state: make(map[*ast.NominalDecl]cycleState)}
}

// lookupNominal resolves a syntactic TypeRepr naming a nominal to its
// decl, if it names one the driver knows about.
func (d *Driver) lookupNominal(t ast.TypeRepr) *ast.NominalDecl {
	id, ok := t.(*ast.IdentTypeRepr)
	if !ok {
		return nil
	}
	if n, ok := d.ByName[id.Name].(*ast.NominalDecl); ok {
		return n
	}
	return nil
}

// checkNominal validates n's syntactic inheritance list: at most one
// superclass/raw-type, duplicate entries flagged, raw-type entries
// require RawRepresentable, enum raw types must be literal-convertible,
// and the whole inheritance graph must be cycle-free.
func (c *inheritanceChecker) checkNominal(n *ast.NominalDecl) {
	if c.state[n] == cycleChecked {
		return
	}
	c.enter(n)
	defer c.leave(n)

	seen := map[string]ast.TypeRepr{}
	superclassCount := 0
	for _, inh := range n.Inherited {
		id, ok := inh.(*ast.IdentTypeRepr)
		if !ok {
			continue
		}
		if prev, dup := seen[id.Name]; dup {
			c.d.Sink.Emit(inh.Range().Start, diag.KindDuplicateInheritedType, diag.Warning).
				Highlight(inh.Range()).
				FixItRemove(inh.Range()).
				Flush()
			_ = prev
			continue
		}
		seen[id.Name] = inh

		if dep := c.d.lookupNominal(inh); dep != nil {
			if dep.NomKind == ast.NominalClass || dep.NomKind == ast.NominalStruct || dep.NomKind == ast.NominalEnum {
				superclassCount++
				if dep.NomKind == ast.NominalStruct || dep.NomKind == ast.NominalEnum {
					// raw-type entry: requires RawRepresentable, and for
					// enums, the raw type itself must be one of the
					// literal-convertible protocols.
					if n.NomKind == ast.NominalEnum && !c.satisfiesRawRepresentable(dep) {
						c.d.Sink.Emit(inh.Range().Start, diag.KindRawTypeRequiresRawRepresentable, diag.Error).
							Highlight(inh.Range()).Flush()
					}
				}
			}
			switch c.state[dep] {
			case cycleChecking:
				c.reportCycle(dep)
				continue
			case cycleUnchecked:
				c.checkNominal(dep)
			}
		}
	}
	if superclassCount > 1 {
		c.d.Sink.Emit(n.Range().Start, diag.KindDuplicateInheritedType, diag.Error).
			Highlight(n.Range()).Flush()
	}
}

// satisfiesRawRepresentable is a conservative stand-in for full
// conformance-lookup: a nominal satisfies RawRepresentable here if its
// name is one of the literal-convertible raw types, mirroring how the
// original bootstraps raw-type checking against built-in numeric/string
// types before the full conformance machinery is available.
func (c *inheritanceChecker) satisfiesRawRepresentable(dep *ast.NominalDecl) bool {
	return literalConvertibleRawTypes[dep.Name]
}

func (c *inheritanceChecker) enter(n *ast.NominalDecl) {
	c.state[n] = cycleChecking
	c.stack = append(c.stack, n)
}

func (c *inheritanceChecker) leave(n *ast.NominalDecl) {
	c.stack = c.stack[:len(c.stack)-1]
	c.state[n] = cycleChecked
}

func (c *inheritanceChecker) reportCycle(start *ast.NominalDecl) {
	// Build the cycle path from the DFS stack, starting at the first
	// occurrence of start.
	i := 0
	for i < len(c.stack) && c.stack[i] != start {
		i++
	}
	path := append([]*ast.NominalDecl(nil), c.stack[i:]...)
	path = append(path, start)
	names := make([]any, 0, len(path))
	for _, p := range path {
		names = append(names, p.Name)
	}
	c.d.Sink.Emit(start.Range().Start, diag.KindInheritanceCycle, diag.Error, names...).
		Highlight(start.Range()).Flush()
}

// checkExtension validates an extension's syntactic inheritance list the
// same way as a nominal's (extensions add conformances, not a superclass,
// but duplicate detection and protocol resolution are identical).
func (c *inheritanceChecker) checkExtension(e *ast.ExtensionDecl) {
	seen := map[string]bool{}
	for _, inh := range e.Inherited {
		id, ok := inh.(*ast.IdentTypeRepr)
		if !ok {
			continue
		}
		if seen[id.Name] {
			c.d.Sink.Emit(inh.Range().Start, diag.KindDuplicateInheritedType, diag.Warning).
				Highlight(inh.Range()).FixItRemove(inh.Range()).Flush()
			continue
		}
		seen[id.Name] = true
	}
}
