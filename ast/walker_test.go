package ast

import (
	"reflect"
	"testing"

	"github.com/silcore/compiler/sourcemap"
)

func ident(name string) *IdentifierExpr { return NewIdentifierExpr(sourcemap.Range{}, name) }

func TestWalkExprSourceOrderAndCollection(t *testing.T) {
	// f(a, b) -- expect visit order: f, a, b (callee before args, args left-to-right)
	call := NewCallExpr(sourcemap.Range{}, ident("f"), []Expr{ident("a"), ident("b")})

	var visited []string
	w := &Walker{
		PostExpr: func(e Expr) Expr {
			if id, ok := e.(*IdentifierExpr); ok {
				visited = append(visited, id.Name)
			}
			return e
		},
	}
	w.WalkExpr(call)

	want := []string{"f", "a", "b"}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("visit order = %v, want %v", visited, want)
	}
}

func TestWalkPostNilAbortsTraversal(t *testing.T) {
	call := NewCallExpr(sourcemap.Range{}, ident("f"), []Expr{ident("a"), ident("b")})

	visited := 0
	w := &Walker{
		PostExpr: func(e Expr) Expr {
			visited++
			if id, ok := e.(*IdentifierExpr); ok && id.Name == "a" {
				return nil
			}
			return e
		},
	}
	result := w.WalkExpr(call)
	if result != nil {
		t.Fatalf("expected abort (nil) to propagate to the root, got %v", result)
	}
	// f, a are visited; once "a"'s post-visit returns nil, "b" and the
	// CallExpr's own post-visit never run because the abort propagates.
	if visited != 2 {
		t.Fatalf("visited = %d nodes before abort, want 2 (f, a)", visited)
	}
}

func TestWalkDeclParentStackRestoration(t *testing.T) {
	member := NewFuncDecl(sourcemap.Range{}, nil, "m", nil, nil)
	nominal := NewNominalDecl(sourcemap.Range{}, nil, NominalStruct, "S")
	nominal.Members = []Decl{member}

	var captured Decl
	w := &Walker{}
	w.PreDecl = func(d Decl) (bool, Decl) {
		if fd, ok := d.(*FuncDecl); ok && fd.Name == "m" {
			captured = w.CurrentParent()
		}
		return true, nil
	}
	w.WalkDecl(nominal)

	if captured != nominal {
		t.Fatalf("expected parent of member to be the nominal during descent, got %v", captured)
	}
	if w.CurrentParent() != nil {
		t.Fatalf("expected parent stack to be empty after traversal completes, got %v", w.CurrentParent())
	}
}

func TestWalkDeclBoundedDescentSkipsUnrelatedNodes(t *testing.T) {
	// A GenericParamDecl is not among the bounded descent targets (§4.1):
	// walking a NominalDecl whose GenericParams field is populated must
	// not visit them as children, since descendDecl only recurses into
	// Members for *NominalDecl.
	gp := NewGenericParamDecl(sourcemap.Range{}, nil, "T", 0, 0)
	nominal := NewNominalDecl(sourcemap.Range{}, nil, NominalStruct, "S")
	nominal.GenericParams = []*GenericParamDecl{gp}

	visited := map[Decl]bool{}
	w := &Walker{
		PreDecl: func(d Decl) (bool, Decl) {
			visited[d] = true
			return true, nil
		},
	}
	w.WalkDecl(nominal)

	if visited[gp] {
		t.Fatalf("generic param decl was visited, but §4.1 bounds nominal descent to Members only")
	}
	if !visited[nominal] {
		t.Fatalf("root nominal decl was not visited")
	}
}
