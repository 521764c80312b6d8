package ast

import "github.com/silcore/compiler/sourcemap"

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct {
	rng sourcemap.Range
}

func (e exprBase) Range() sourcemap.Range { return e.rng }
func (exprBase) exprNode()                {}

// IdentifierExpr references a name resolved (by sema) to a Decl; nil
// Resolved denotes an as-yet-unresolved reference, not ownership.
type IdentifierExpr struct {
	exprBase
	Name     string
	Resolved Decl
}

func NewIdentifierExpr(rng sourcemap.Range, name string) *IdentifierExpr {
	return &IdentifierExpr{exprBase: exprBase{rng}, Name: name}
}

// MemberAccessExpr is `base.member`.
type MemberAccessExpr struct {
	exprBase
	Base     Expr
	Member   string
	Resolved Decl
}

func NewMemberAccessExpr(rng sourcemap.Range, base Expr, member string) *MemberAccessExpr {
	return &MemberAccessExpr{exprBase: exprBase{rng}, Base: base, Member: member}
}

// CallExpr is a function/method/initializer application.
type CallExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func NewCallExpr(rng sourcemap.Range, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{exprBase: exprBase{rng}, Callee: callee, Args: args}
}

// LiteralKind distinguishes literal expression payload shapes.
type LiteralKind int

const (
	LiteralNil LiteralKind = iota
	LiteralBool
	LiteralInt
	LiteralFloat
	LiteralString
)

// LiteralExpr is a literal nil/bool/numeric/string constant.
type LiteralExpr struct {
	exprBase
	LitKind LiteralKind
	Text    string // as written in source
}

func NewLiteralExpr(rng sourcemap.Range, kind LiteralKind, text string) *LiteralExpr {
	return &LiteralExpr{exprBase: exprBase{rng}, LitKind: kind, Text: text}
}

// ClosureExpr is an anonymous function literal; Params/Body mirror
// FuncDecl's shape without being a top-level declaration.
type ClosureExpr struct {
	exprBase
	Params []Param
	Body   []Stmt
}

func NewClosureExpr(rng sourcemap.Range, params []Param, body []Stmt) *ClosureExpr {
	return &ClosureExpr{exprBase: exprBase{rng}, Params: params, Body: body}
}

// SelfExpr references the implicit receiver.
type SelfExpr struct{ exprBase }

func NewSelfExpr(rng sourcemap.Range) *SelfExpr { return &SelfExpr{exprBase{rng}} }

// ErrorExpr stands in for a sub-expression the parser could not recover
// (spec.md §7: parse errors propagate as Error-typed values that
// downstream validators silently drop).
type ErrorExpr struct{ exprBase }

func NewErrorExpr(rng sourcemap.Range) *ErrorExpr { return &ErrorExpr{exprBase{rng}} }
