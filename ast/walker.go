package ast

// Walker implements the generic AST walker of spec.md §4.1: it is
// polymorphic over the capability set {pre-visit, post-visit} for each of
// {Decl, Expr, Stmt, Pattern, TypeRepr}. Any callback left nil behaves as
// an identity pre-visit (descend, no replacement) or post-visit (no
// replacement) for that node category — callers opt into only the
// categories they care about, the same "compose by leaving fields nil"
// idiom the teacher's go/ast/astutil.Apply uses for its two callbacks,
// generalized here to five node categories instead of one.
//
// Pre-visit returns (descend, replacement): descend controls whether
// children are visited at all; replacement (if non-nil) substitutes the
// node before its children are visited. Post-visit returns a replacement
// for the (possibly already pre-replaced, already-descended) node. A nil
// Decl/Expr/Stmt/Pattern/TypeRepr returned by a post-visit aborts the
// entire traversal: every enclosing call unwinds and itself returns nil,
// all the way to the root.
type Walker struct {
	PreDecl  func(Decl) (descend bool, replacement Decl)
	PostDecl func(Decl) Decl

	PreExpr  func(Expr) (descend bool, replacement Expr)
	PostExpr func(Expr) Expr

	PreStmt  func(Stmt) (descend bool, replacement Stmt)
	PostStmt func(Stmt) Stmt

	PrePattern  func(Pattern) (descend bool, replacement Pattern)
	PostPattern func(Pattern) Pattern

	PreTypeRepr  func(TypeRepr) (descend bool, replacement TypeRepr)
	PostTypeRepr func(TypeRepr) TypeRepr

	// parents is the scoped parent-context stack for decl descent: every
	// recursive call into WalkDecl pushes the decl it is about to visit
	// and pops it again on every exit path (including an aborted
	// traversal), per §4.1's "parent pointer stack with scoped
	// restoration".
	parents []Decl
}

// CurrentParent returns the innermost enclosing Decl being walked, or nil
// at the root. Callbacks may call this to ask "what declares me".
func (w *Walker) CurrentParent() Decl {
	if len(w.parents) == 0 {
		return nil
	}
	return w.parents[len(w.parents)-1]
}

func (w *Walker) pushParent(d Decl) { w.parents = append(w.parents, d) }
func (w *Walker) popParent()        { w.parents = w.parents[:len(w.parents)-1] }

// WalkDecl traverses d and returns its (possibly replaced) form, or nil if
// the traversal was aborted.
func (w *Walker) WalkDecl(d Decl) Decl {
	if d == nil {
		return nil
	}
	descend := true
	if w.PreDecl != nil {
		var repl Decl
		descend, repl = w.PreDecl(d)
		if repl != nil {
			d = repl
		}
	}
	if descend {
		w.pushParent(d)
		aborted := w.descendDecl(d)
		w.popParent()
		if aborted {
			return nil
		}
	}
	if w.PostDecl != nil {
		return w.PostDecl(d)
	}
	return d
}

// descendDecl visits a bounded set of children per decl kind: a var's
// pattern, initializer and accessor bodies; a function's or constructor's
// parameter TypeReprs and body; a destructor's body; nominal/extension
// member lists; subscript accessor bodies; and a top-level decl's
// statements. Other children (e.g. result types, inherited lists) are not
// visited. It returns true iff traversal was aborted by a nil post-visit
// somewhere below.
func (w *Walker) descendDecl(d Decl) (aborted bool) {
	switch n := d.(type) {
	case *VarDecl:
		if n.Pattern != nil {
			if w.WalkPattern(n.Pattern) == nil && n.Pattern != nil {
				return true
			}
		}
		if n.Initializer != nil {
			if r := w.WalkExpr(n.Initializer); r == nil {
				return true
			} else {
				n.Initializer = r
			}
		}
		for _, acc := range n.Accessors {
			if w.walkStmtList(&acc.Body) {
				return true
			}
		}
	case *FuncDecl:
		for i := range n.Params {
			if n.Params[i].Type != nil {
				if r := w.WalkTypeRepr(n.Params[i].Type); r == nil {
					return true
				} else {
					n.Params[i].Type = r
				}
			}
		}
		if w.walkStmtList(&n.Body) {
			return true
		}
	case *ConstructorDecl:
		for i := range n.Params {
			if n.Params[i].Type != nil {
				if r := w.WalkTypeRepr(n.Params[i].Type); r == nil {
					return true
				} else {
					n.Params[i].Type = r
				}
			}
		}
		if w.walkStmtList(&n.Body) {
			return true
		}
	case *DestructorDecl:
		if w.walkStmtList(&n.Body) {
			return true
		}
	case *NominalDecl:
		if w.walkDeclList(&n.Members) {
			return true
		}
	case *ExtensionDecl:
		if w.walkDeclList(&n.Members) {
			return true
		}
	case *SubscriptDecl:
		for _, acc := range n.Accessors {
			if w.walkStmtList(&acc.Body) {
				return true
			}
		}
	case *TopLevelDecl:
		if w.walkStmtList(&n.Stmts) {
			return true
		}
	}
	return false
}

func (w *Walker) walkDeclList(list *[]Decl) (aborted bool) {
	for i, d := range *list {
		r := w.WalkDecl(d)
		if r == nil {
			return true
		}
		(*list)[i] = r
	}
	return false
}

func (w *Walker) walkStmtList(list *[]Stmt) (aborted bool) {
	for i, s := range *list {
		r := w.WalkStmt(s)
		if r == nil {
			return true
		}
		(*list)[i] = r
	}
	return false
}

// WalkExpr traverses e in source order and returns its replacement, or
// nil if the traversal was aborted.
func (w *Walker) WalkExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	descend := true
	if w.PreExpr != nil {
		var repl Expr
		descend, repl = w.PreExpr(e)
		if repl != nil {
			e = repl
		}
	}
	if descend {
		switch n := e.(type) {
		case *MemberAccessExpr:
			if r := w.WalkExpr(n.Base); r == nil {
				return nil
			} else {
				n.Base = r
			}
		case *CallExpr:
			if r := w.WalkExpr(n.Callee); r == nil {
				return nil
			} else {
				n.Callee = r
			}
			for i, a := range n.Args {
				r := w.WalkExpr(a)
				if r == nil {
					return nil
				}
				n.Args[i] = r
			}
		case *ClosureExpr:
			if w.walkStmtList(&n.Body) {
				return nil
			}
		}
	}
	if w.PostExpr != nil {
		return w.PostExpr(e)
	}
	return e
}

// WalkStmt traverses s in source order.
func (w *Walker) WalkStmt(s Stmt) Stmt {
	if s == nil {
		return nil
	}
	descend := true
	if w.PreStmt != nil {
		var repl Stmt
		descend, repl = w.PreStmt(s)
		if repl != nil {
			s = repl
		}
	}
	if descend {
		switch n := s.(type) {
		case *ExprStmt:
			if r := w.WalkExpr(n.X); r == nil {
				return nil
			} else {
				n.X = r
			}
		case *ReturnStmt:
			if n.Result != nil {
				if r := w.WalkExpr(n.Result); r == nil {
					return nil
				} else {
					n.Result = r
				}
			}
		case *IfStmt:
			if r := w.WalkExpr(n.Cond); r == nil {
				return nil
			} else {
				n.Cond = r
			}
			if w.walkStmtList(&n.Then) {
				return nil
			}
			if n.Else != nil && w.walkStmtList(&n.Else) {
				return nil
			}
		case *WhileStmt:
			if r := w.WalkExpr(n.Cond); r == nil {
				return nil
			} else {
				n.Cond = r
			}
			if w.walkStmtList(&n.Body) {
				return nil
			}
		case *BindingStmt:
			if r := w.WalkDecl(n.Decl); r == nil {
				return nil
			} else {
				n.Decl = r.(*VarDecl)
			}
		case *SwitchStmt:
			if r := w.WalkExpr(n.Subject); r == nil {
				return nil
			} else {
				n.Subject = r
			}
			for ci := range n.Cases {
				for pi, p := range n.Cases[ci].Patterns {
					r := w.WalkPattern(p)
					if r == nil {
						return nil
					}
					n.Cases[ci].Patterns[pi] = r
				}
				if n.Cases[ci].Guard != nil {
					r := w.WalkExpr(n.Cases[ci].Guard)
					if r == nil {
						return nil
					}
					n.Cases[ci].Guard = r
				}
				if w.walkStmtList(&n.Cases[ci].Body) {
					return nil
				}
			}
		}
	}
	if w.PostStmt != nil {
		return w.PostStmt(s)
	}
	return s
}

// WalkPattern traverses p in source order.
func (w *Walker) WalkPattern(p Pattern) Pattern {
	if p == nil {
		return nil
	}
	descend := true
	if w.PrePattern != nil {
		var repl Pattern
		descend, repl = w.PrePattern(p)
		if repl != nil {
			p = repl
		}
	}
	if descend {
		switch n := p.(type) {
		case *TuplePattern:
			for i, el := range n.Elements {
				r := w.WalkPattern(el)
				if r == nil {
					return nil
				}
				n.Elements[i] = r
			}
		case *TypedPattern:
			if r := w.WalkPattern(n.Sub); r == nil {
				return nil
			} else {
				n.Sub = r
			}
			if n.Type != nil {
				if r := w.WalkTypeRepr(n.Type); r == nil {
					return nil
				} else {
					n.Type = r
				}
			}
		case *EnumCasePattern:
			for i, el := range n.Payload {
				r := w.WalkPattern(el)
				if r == nil {
					return nil
				}
				n.Payload[i] = r
			}
		}
	}
	if w.PostPattern != nil {
		return w.PostPattern(p)
	}
	return p
}

// WalkTypeRepr traverses t in source order.
func (w *Walker) WalkTypeRepr(t TypeRepr) TypeRepr {
	if t == nil {
		return nil
	}
	descend := true
	if w.PreTypeRepr != nil {
		var repl TypeRepr
		descend, repl = w.PreTypeRepr(t)
		if repl != nil {
			t = repl
		}
	}
	if descend {
		switch n := t.(type) {
		case *IdentTypeRepr:
			for i, a := range n.Args {
				r := w.WalkTypeRepr(a)
				if r == nil {
					return nil
				}
				n.Args[i] = r
			}
		case *OptionalTypeRepr:
			if r := w.WalkTypeRepr(n.Wrapped); r == nil {
				return nil
			} else {
				n.Wrapped = r
			}
		case *TupleTypeRepr:
			for i, el := range n.Elements {
				r := w.WalkTypeRepr(el)
				if r == nil {
					return nil
				}
				n.Elements[i] = r
			}
		case *FunctionTypeRepr:
			if r := w.WalkTypeRepr(n.Input); r == nil {
				return nil
			} else {
				n.Input = r
			}
			if r := w.WalkTypeRepr(n.Result); r == nil {
				return nil
			} else {
				n.Result = r
			}
		case *CompositionTypeRepr:
			for i, m := range n.Members {
				r := w.WalkTypeRepr(m)
				if r == nil {
					return nil
				}
				n.Members[i] = r
			}
		}
	}
	if w.PostTypeRepr != nil {
		return w.PostTypeRepr(t)
	}
	return t
}
