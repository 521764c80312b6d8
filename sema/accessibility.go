package sema

import (
	"github.com/silcore/compiler/ast"
	"github.com/silcore/compiler/diag"
)

// typeReprAccessibility returns the accessibility of the nominal a
// TypeRepr resolves to, defaulting to Public when unresolved (an
// unresolved reference is conservatively assumed not to be the least-
// accessible component, since a real driver would have already failed
// name lookup and reported that separately).
func typeReprAccessibility(t ast.TypeRepr) ast.Accessibility {
	id, ok := t.(*ast.IdentTypeRepr)
	if !ok || id.Resolved == nil {
		return ast.Public
	}
	return id.Resolved.Accessibility()
}

// minAccessibilityTypeRepr walks t (via the generic walker, §4.1) and
// returns the least-accessible IdentTypeRepr reachable within it, the
// value a diagnostic should point at per spec.md §4.2.
func minAccessibilityTypeRepr(t ast.TypeRepr) (ast.TypeRepr, ast.Accessibility) {
	if t == nil {
		return nil, ast.Public
	}
	var worst ast.TypeRepr
	worstAccess := ast.Public
	first := true
	w := &ast.Walker{
		PostTypeRepr: func(n ast.TypeRepr) ast.TypeRepr {
			if id, ok := n.(*ast.IdentTypeRepr); ok {
				a := typeReprAccessibility(id)
				if first || a.Less(worstAccess) {
					worst, worstAccess, first = id, a, false
				}
			}
			return n
		},
	}
	w.WalkTypeRepr(t)
	return worst, worstAccess
}

// checkSignatureAccessibility verifies that every type component of a
// signature (params, result) is at least as accessible as declAccess,
// reporting a diagnostic that points at the least-accessible TypeRepr.
func (d *Driver) checkSignatureAccessibility(decl ast.Decl, declAccess ast.Accessibility, components []ast.TypeRepr) {
	for _, c := range components {
		worst, access := minAccessibilityTypeRepr(c)
		if worst == nil {
			continue
		}
		if access.Less(declAccess) {
			d.Sink.Emit(decl.Range().Start, diag.KindAccessibilityViolation, diag.Error, declAccess.String(), access.String()).
				Highlight(worst.Range()).
				Flush()
		}
	}
}

func (d *Driver) checkAccessibilityOfFunc(f *ast.FuncDecl) {
	components := make([]ast.TypeRepr, 0, len(f.Params)+1)
	for _, p := range f.Params {
		if p.Type != nil {
			components = append(components, p.Type)
		}
	}
	if f.ResultType != nil {
		components = append(components, f.ResultType)
	}
	d.checkSignatureAccessibility(f, f.Accessibility(), components)
}

func (d *Driver) checkAccessibilityOfVar(v *ast.VarDecl) {
	if v.TypeAnnotation == nil {
		return
	}
	d.checkSignatureAccessibility(v, v.Accessibility(), []ast.TypeRepr{v.TypeAnnotation})
}
