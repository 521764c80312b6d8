package types

import (
	"fmt"
	"sync"
)

// Context owns the canonicalization tables for one compilation: every
// compound Type (tuples, funcs, bound-generic-nominals, ...) is built
// through a Context so that structurally identical types always resolve
// to the same pointer, matching spec.md §3.1 ("two types are equal iff
// their canonical hash-cons nodes are identical").
//
// Nominal, Archetype and ErrorSentinel are the leaves of the hash-cons:
// Nominals and Archetypes are uniqued by their declaration identity
// (created once by the AST/sema layer, not by Context), and there is
// exactly one ErrorSentinel per Context.
type Context struct {
	mu sync.Mutex

	tuples       map[string]*Tuple
	funcs        map[string]*Func
	boundGeneric map[string]*BoundGenericNominal
	metatypes    map[Type]*Metatype
	compositions map[string]*ProtocolComposition
	refStorage   map[string]*ReferenceStorage
	optionals    map[Type]*Optional

	errorSentinel *ErrorSentinel
}

// NewContext returns an empty canonicalization context.
func NewContext() *Context {
	return &Context{
		tuples:       make(map[string]*Tuple),
		funcs:        make(map[string]*Func),
		boundGeneric: make(map[string]*BoundGenericNominal),
		metatypes:    make(map[Type]*Metatype),
		compositions: make(map[string]*ProtocolComposition),
		refStorage:   make(map[string]*ReferenceStorage),
		optionals:    make(map[Type]*Optional),
	}
}

// ErrorType returns the Context's unique error-sentinel type.
func (c *Context) ErrorType() Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errorSentinel == nil {
		c.errorSentinel = &ErrorSentinel{}
	}
	return c.errorSentinel
}

func tupleKey(fields []TupleField) string {
	s := ""
	for _, f := range fields {
		v := ""
		if f.Variadic {
			v = "..."
		}
		s += f.Label + "\x00" + fmt.Sprintf("%p", f.Type) + v + "\x1f"
	}
	return s
}

// Tuple returns the canonical Tuple type for the given fields.
func (c *Context) Tuple(fields []TupleField) *Tuple {
	key := tupleKey(fields)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tuples[key]; ok {
		return t
	}
	t := &Tuple{Fields: append([]TupleField(nil), fields...)}
	c.tuples[key] = t
	return t
}

// Func returns the canonical Func type.
func (c *Context) Func(input, result Type, attrs FuncAttr) *Func {
	key := fmt.Sprintf("%p->%p#%d", input, result, attrs)
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.funcs[key]; ok {
		return f
	}
	f := &Func{Input: input, Result: result, Attrs: attrs}
	c.funcs[key] = f
	return f
}

// BoundGeneric returns the canonical application of base to args.
func (c *Context) BoundGeneric(base *Nominal, args []Type) *BoundGenericNominal {
	key := fmt.Sprintf("%p<", base)
	for _, a := range args {
		key += fmt.Sprintf("%p,", a)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.boundGeneric[key]; ok {
		return b
	}
	b := &BoundGenericNominal{Base: base, Args: append([]Type(nil), args...)}
	c.boundGeneric[key] = b
	return b
}

// Metatype returns the canonical metatype of instance.
func (c *Context) Metatype(instance Type) *Metatype {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.metatypes[instance]; ok {
		return m
	}
	m := &Metatype{Instance: instance}
	c.metatypes[instance] = m
	return m
}

// Composition returns the canonical protocol composition.
func (c *Context) Composition(protocols []*Nominal, superclass *Nominal) *ProtocolComposition {
	key := fmt.Sprintf("%p|", superclass)
	for _, p := range protocols {
		key += fmt.Sprintf("%p,", p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.compositions[key]; ok {
		return p
	}
	p := &ProtocolComposition{Protocols: append([]*Nominal(nil), protocols...), Superclass: superclass}
	c.compositions[key] = p
	return p
}

// ReferenceStorage returns the canonical reference-storage wrapper.
func (c *Context) ReferenceStorage(kind RefStorageKind, referent Type) *ReferenceStorage {
	key := fmt.Sprintf("%d:%p", kind, referent)
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.refStorage[key]; ok {
		return r
	}
	r := &ReferenceStorage{Kind: kind, Referent: referent}
	c.refStorage[key] = r
	return r
}

// Optional returns the canonical optional wrapping wrapped.
func (c *Context) Optional(wrapped Type) *Optional {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.optionals[wrapped]; ok {
		return o
	}
	o := &Optional{Wrapped: wrapped}
	c.optionals[wrapped] = o
	return o
}

// Identical reports whether a and b are the same canonical type.
//
// Because every compound Type is hash-cons uniqued by this Context, this
// is always pointer (interface value) equality — never structural
// comparison, which would defeat the purpose of the hash-cons.
func Identical(a, b Type) bool { return a == b }
