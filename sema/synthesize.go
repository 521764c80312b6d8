package sema

import (
	"fmt"
	"strings"

	"github.com/silcore/compiler/ast"
	"github.com/silcore/compiler/diag"
	"github.com/silcore/compiler/sourcemap"
)

// synthesizeInitializers implements spec.md §4.2's implicit constructor
// synthesis for a nominal with no user-declared designated initializers.
func synthesizeInitializers(d *Driver, n *ast.NominalDecl) {
	switch n.NomKind {
	case ast.NominalStruct:
		synthesizeStructInit(d, n)
	case ast.NominalClass:
		synthesizeClassInit(d, n)
	}
}

func storedProperties(n *ast.NominalDecl) []*ast.VarDecl {
	var out []*ast.VarDecl
	for _, m := range n.Members {
		if v, ok := m.(*ast.VarDecl); ok && !v.IsStatic && len(v.Accessors) == 0 {
			out = append(out, v)
		}
	}
	return out
}

func hasUserDesignatedInit(n *ast.NominalDecl) bool {
	for _, m := range n.Members {
		if _, ok := m.(*ast.ConstructorDecl); ok {
			return true
		}
	}
	return false
}

// synthesizeStructInit implements:
//
//	"Structs: a memberwise initializer whose parameters are the stored,
//	non-initialized, non-let-with-initializer properties in declaration
//	order; and a no-argument default initializer if every stored property
//	has a default."
//
// Boundary behavior (§8): if a required memberwise parameter's type
// cannot be determined (no type annotation and no initializer to infer
// from), neither initializer is synthesized — the struct is left without
// an implicit initializer, the same as if the user had declared their own
// (incomplete) one.
func synthesizeStructInit(d *Driver, n *ast.NominalDecl) {
	if hasUserDesignatedInit(n) {
		return
	}
	stored := storedProperties(n)

	var params []ast.Param
	uninferable := false
	for _, v := range stored {
		if v.Initializer != nil {
			continue // has a default; not a memberwise parameter
		}
		name, _ := singleBoundName(v.Pattern)
		if v.TypeAnnotation == nil {
			uninferable = true
		}
		params = append(params, ast.Param{Label: name, Name: name, Type: v.TypeAnnotation})
	}

	if uninferable {
		return
	}
	if len(params) == 0 {
		n.Members = append(n.Members, synthesizedConstructor(nil, false, false))
		return
	}
	n.Members = append(n.Members, synthesizedConstructor(params, false, false))
}

func synthesizedConstructor(params []ast.Param, failable, required bool) *ast.ConstructorDecl {
	c := ast.NewConstructorDecl(zeroRange(), nil, params)
	c.Failable = failable
	c.Required = required
	c.SetState(ast.EarlyValidated) // synthesized decls don't re-enter the two-pass driver
	return c
}

func zeroRange() sourcemap.Range { return sourcemap.Range{} }

// synthesizeClassInit implements the class half of §4.2: inherited
// designated initializers are either chained through (when the subclass
// declares no designated initializer of its own) or stubbed out with a
// fatalError body (when it does), and `required` initializers must be
// overridden explicitly or a diagnostic with a full-text Fix-It fires.
func synthesizeClassInit(d *Driver, n *ast.NominalDecl) {
	super := d.superclassOf(n)
	if super == nil {
		synthesizeRootClassInit(d, n)
		return
	}

	hasOwnDesignated := hasUserDesignatedInit(n)
	overridden := map[string]bool{}
	for _, m := range n.Members {
		if c, ok := m.(*ast.ConstructorDecl); ok {
			overridden[paramSig(c.Params)] = true
		}
	}

	for _, sm := range super.Members {
		sci, ok := sm.(*ast.ConstructorDecl)
		if !ok {
			continue
		}
		sig := paramSig(sci.Params)
		if overridden[sig] {
			continue
		}
		if sci.Required {
			d.reportMissingRequiredInit(n, sci)
			continue
		}
		// hasOwnDesignated distinguishes a pure chaining override (the
		// subclass declares nothing of its own, so every inherited
		// designated initializer is simply forwarded to super.init) from a
		// stub that exists only to satisfy the override requirement once
		// the subclass has introduced at least one designated initializer
		// of its own (whose own logic already runs, so the inherited one
		// is stubbed with fatalError instead of silently re-delegating).
		params := clonedParams(sci.Params)
		var body []ast.Stmt
		if hasOwnDesignated {
			body = []ast.Stmt{fatalErrorStmt(sci)}
		} else {
			body = []ast.Stmt{superInitCallStmt(params)}
		}
		synthesized := synthesizedConstructor(params, sci.Failable, false)
		synthesized.Body = body
		n.Members = append(n.Members, synthesized)
	}
}

// synthesizeRootClassInit handles a class with no superclass: it gets a
// default init iff every stored property has an initializer or an
// optional type; otherwise it reports class_has_no_initializers with one
// note per offending property instead of silently producing nothing.
func synthesizeRootClassInit(d *Driver, n *ast.NominalDecl) {
	if hasUserDesignatedInit(n) {
		return
	}
	stored := storedProperties(n)
	var missing []*ast.VarDecl
	for _, v := range stored {
		if v.Initializer != nil {
			continue
		}
		if _, optional := v.TypeAnnotation.(*ast.OptionalTypeRepr); !optional {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		d.Sink.Emit(n.Range().Start, diag.KindClassHasNoInitializers, diag.Error).
			Highlight(n.Range()).Flush()
		for _, v := range missing {
			name, _ := singleBoundName(v.Pattern)
			d.Sink.Emit(v.Range().Start, diag.KindClassHasNoInitializers, diag.Note, name).
				Highlight(v.Range()).Flush()
		}
		return
	}
	n.Members = append(n.Members, synthesizedConstructor(nil, false, false))
}

func clonedParams(params []ast.Param) []ast.Param {
	return append([]ast.Param(nil), params...)
}

// superInitCallStmt builds `super.init(p0, p1, ...)`, forwarding each
// parameter by name — the chaining half of §4.2's synthesized override.
func superInitCallStmt(params []ast.Param) ast.Stmt {
	rng := zeroRange()
	callee := ast.NewMemberAccessExpr(rng, ast.NewIdentifierExpr(rng, "super"), "init")
	args := make([]ast.Expr, len(params))
	for i, p := range params {
		args[i] = ast.NewIdentifierExpr(rng, p.Name)
	}
	return ast.NewExprStmt(rng, ast.NewCallExpr(rng, callee, args))
}

// fatalErrorStmt builds `fatalError("init(...) has not been implemented")`,
// the stub half of §4.2's synthesized override; fatalErrorMessage is
// shared with renderRequiredInitFixIt so the message text matches the
// Fix-It text a driver would have inserted for the same initializer.
func fatalErrorStmt(super *ast.ConstructorDecl) ast.Stmt {
	rng := zeroRange()
	msg := fatalErrorMessage(super)
	callee := ast.NewIdentifierExpr(rng, "fatalError")
	arg := ast.NewLiteralExpr(rng, ast.LiteralString, msg)
	return ast.NewExprStmt(rng, ast.NewCallExpr(rng, callee, []ast.Expr{arg}))
}

func fatalErrorMessage(super *ast.ConstructorDecl) string {
	var b strings.Builder
	b.WriteString("init(")
	for i, p := range super.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Label)
	}
	b.WriteString(") has not been implemented")
	return b.String()
}

func paramSig(params []ast.Param) string {
	labels := make([]string, len(params))
	for i, p := range params {
		labels[i] = p.Label
	}
	return strings.Join(labels, ",")
}

// reportMissingRequiredInit emits required_initializer_missing with a
// Fix-It whose insertion text is the full override declaration, including
// a fatalError body, per spec.md §8 scenario 6.
func (d *Driver) reportMissingRequiredInit(n *ast.NominalDecl, super *ast.ConstructorDecl) {
	text := renderRequiredInitFixIt(super)
	d.Sink.Emit(n.Range().Start, diag.KindRequiredInitializerMissing, diag.Error).
		Highlight(n.Range()).
		FixItInsert(n.Range().Start, text).
		Flush()
}

func renderRequiredInitFixIt(super *ast.ConstructorDecl) string {
	var b strings.Builder
	b.WriteString("required init(")
	for i, p := range super.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Label != "" && p.Label != p.Name {
			fmt.Fprintf(&b, "%s %s: %s", p.Label, p.Name, renderTypeRepr(p.Type))
		} else {
			fmt.Fprintf(&b, "%s: %s", p.Name, renderTypeRepr(p.Type))
		}
	}
	fmt.Fprintf(&b, ") {\n    fatalError(\"%s\")\n}", fatalErrorMessage(super))
	return b.String()
}

func renderTypeRepr(t ast.TypeRepr) string {
	switch n := t.(type) {
	case nil:
		return "_"
	case *ast.IdentTypeRepr:
		return n.Name
	case *ast.OptionalTypeRepr:
		return renderTypeRepr(n.Wrapped) + "?"
	case *ast.TupleTypeRepr:
		parts := make([]string, len(n.Elements))
		for i, e := range n.Elements {
			parts[i] = renderTypeRepr(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.FunctionTypeRepr:
		return "(" + renderTypeRepr(n.Input) + ") -> " + renderTypeRepr(n.Result)
	default:
		return "_"
	}
}
