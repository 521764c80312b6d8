package types

// Substitution maps a finite set of generic-parameter identities (depth,
// index) to concrete types. It is the vocabulary both the IR's apply-family
// instructions (substitution lists, spec.md §3.3) and the generic
// specializer (§4.5) operate on.
type Substitution struct {
	entries map[paramKey]Type
	// order preserves insertion order for deterministic mangling and
	// emission (spec.md §5: deterministic given the input module).
	order []paramKey
}

type paramKey struct {
	depth, index int
}

// NewSubstitution returns an empty substitution map.
func NewSubstitution() *Substitution {
	return &Substitution{entries: make(map[paramKey]Type)}
}

// Bind records that the generic parameter at (depth, index) maps to t.
// Binding the same parameter twice overwrites the previous mapping but
// does not change its position in iteration order.
func (s *Substitution) Bind(depth, index int, t Type) {
	k := paramKey{depth, index}
	if _, ok := s.entries[k]; !ok {
		s.order = append(s.order, k)
	}
	s.entries[k] = t
}

// Lookup returns the type bound to (depth, index), if any.
func (s *Substitution) Lookup(depth, index int) (Type, bool) {
	t, ok := s.entries[paramKey{depth, index}]
	return t, ok
}

// Len reports the number of bound parameters.
func (s *Substitution) Len() int { return len(s.order) }

// IsEmpty reports whether no parameters are bound.
func (s *Substitution) IsEmpty() bool { return len(s.order) == 0 }

// Binding is one (depth, index) -> Type entry of a Substitution.
type Binding struct {
	Depth, Index int
	Type         Type
}

// Bindings returns every entry in insertion order — the order the mangler
// (§4.5) and the serializer's inline substitution-list emission (§4.7) both
// depend on for determinism.
func (s *Substitution) Bindings() []Binding {
	out := make([]Binding, len(s.order))
	for i, k := range s.order {
		out[i] = Binding{Depth: k.depth, Index: k.index, Type: s.entries[k]}
	}
	return out
}

// Apply returns t with every free Archetype replaced per the substitution.
// Archetypes with no entry are left unchanged (this is how the generic
// specializer's "unbound generic types" check, spec.md §4.5, is expressed:
// callers compare Apply's result for remaining Archetypes).
func (s *Substitution) Apply(ctx *Context, t Type) Type {
	switch v := t.(type) {
	case *Archetype:
		if repl, ok := s.Lookup(v.ParamDepth, v.ParamIndex); ok {
			return repl
		}
		return v
	case *BoundGenericNominal:
		args := make([]Type, len(v.Args))
		changed := false
		for i, a := range v.Args {
			na := s.Apply(ctx, a)
			args[i] = na
			if na != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return ctx.BoundGeneric(v.Base, args)
	case *Tuple:
		fields := make([]TupleField, len(v.Fields))
		changed := false
		for i, f := range v.Fields {
			nf := f
			nf.Type = s.Apply(ctx, f.Type)
			if nf.Type != f.Type {
				changed = true
			}
			fields[i] = nf
		}
		if !changed {
			return v
		}
		return ctx.Tuple(fields)
	case *Func:
		in := s.Apply(ctx, v.Input)
		res := s.Apply(ctx, v.Result)
		if in == v.Input && res == v.Result {
			return v
		}
		return ctx.Func(in, res, v.Attrs)
	case *Metatype:
		inst := s.Apply(ctx, v.Instance)
		if inst == v.Instance {
			return v
		}
		return ctx.Metatype(inst)
	case *ReferenceStorage:
		ref := s.Apply(ctx, v.Referent)
		if ref == v.Referent {
			return v
		}
		return ctx.ReferenceStorage(v.Kind, ref)
	case *Optional:
		w := s.Apply(ctx, v.Wrapped)
		if w == v.Wrapped {
			return v
		}
		return ctx.Optional(w)
	default:
		// Nominal, ProtocolComposition, ErrorSentinel carry no free
		// archetypes of their own.
		return t
	}
}

// ContainsUnbound reports whether t still mentions an Archetype that s
// does not bind; used by the generic specializer to skip call sites whose
// substitution maps contain unbound generic types (spec.md §4.5: "no
// partial specialization").
func (s *Substitution) ContainsUnbound(t Type) bool {
	switch v := t.(type) {
	case *Archetype:
		_, ok := s.Lookup(v.ParamDepth, v.ParamIndex)
		return !ok
	case *BoundGenericNominal:
		for _, a := range v.Args {
			if s.ContainsUnbound(a) {
				return true
			}
		}
		return false
	case *Tuple:
		for _, f := range v.Fields {
			if s.ContainsUnbound(f.Type) {
				return true
			}
		}
		return false
	case *Func:
		return s.ContainsUnbound(v.Input) || s.ContainsUnbound(v.Result)
	case *Metatype:
		return s.ContainsUnbound(v.Instance)
	case *ReferenceStorage:
		return s.ContainsUnbound(v.Referent)
	case *Optional:
		return s.ContainsUnbound(v.Wrapped)
	default:
		return false
	}
}

// Compose returns a substitution equivalent to first applying inner, then
// applying outer to the result — the operation §3.1 describes as
// composing a substitution "with conformance witnesses": specializing a
// callee that is itself already specialized requires composing the
// caller's substitutions with the callee's.
func Compose(ctx *Context, outer, inner *Substitution) *Substitution {
	out := NewSubstitution()
	for _, k := range inner.order {
		t := inner.entries[k]
		out.Bind(k.depth, k.index, outer.Apply(ctx, t))
	}
	for _, k := range outer.order {
		if _, ok := inner.Lookup(k.depth, k.index); !ok {
			out.Bind(k.depth, k.index, outer.entries[k])
		}
	}
	return out
}
