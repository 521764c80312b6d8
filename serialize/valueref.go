package serialize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

// valueRefKind discriminates what an operand's reference actually names:
// a value local to the function body being (de)serialized, or a
// module-level entity that is itself usable as an ir.Value (a Global, or
// — degenerately — a bare Function reference rather than one reached
// through a function_ref record).
type valueRefKind uint8

const (
	refLocal valueRefKind = iota
	refGlobal
	refFunction
	refNil // Return's optional operand, or a no-payload EnumInst
)

// encodeIDs assigns local value-ids to a function's arguments and
// instruction results in declaration order (spec.md §4.7 "block arguments
// first, then each instruction's result"), which is also the writer's
// emission order — determinism the reader's own incremental numbering
// mirrors exactly.
type encodeIDs struct {
	ids  map[ir.Value]int
	next int
}

func newEncodeIDs() *encodeIDs { return &encodeIDs{ids: make(map[ir.Value]int)} }

func (e *encodeIDs) assign(v ir.Value) {
	if v == nil {
		return
	}
	if _, ok := e.ids[v]; ok {
		return
	}
	e.ids[v] = e.next
	e.next++
}

func (e *encodeIDs) idOf(v ir.Value) (int, bool) {
	id, ok := e.ids[v]
	return id, ok
}

func writeValueRef(w io.Writer, e *encodeIDs, mod *ir.Module, v ir.Value) error {
	if v == nil {
		return writeByte(w, byte(refNil))
	}
	if g, ok := v.(*ir.Global); ok {
		if err := writeByte(w, byte(refGlobal)); err != nil {
			return err
		}
		return writeString(w, g.Name())
	}
	if fn, ok := v.(*ir.Function); ok {
		if err := writeByte(w, byte(refFunction)); err != nil {
			return err
		}
		return writeString(w, fn.Name())
	}
	id, ok := e.idOf(v)
	if !ok {
		return fmt.Errorf("serialize: operand value has no assigned local id")
	}
	if err := writeByte(w, byte(refLocal)); err != nil {
		return err
	}
	return writeUvarint(w, uint64(id))
}

// decodeIDs is the reader-side mirror of encodeIDs: values become
// available as their defining record is read; a reference to an id not
// yet defined installs a placeholder and records the asking instruction
// so define can patch every use once the real value arrives (spec.md
// §4.7 "Forward references in a function body").
type decodeIDs struct {
	byID     map[int]ir.Value
	pending  map[int][]ir.Instruction
	mod      *ir.Module
}

func newDecodeIDs(mod *ir.Module) *decodeIDs {
	return &decodeIDs{byID: make(map[int]ir.Value), pending: make(map[int][]ir.Instruction), mod: mod}
}

// placeholder stands in for a local value not yet defined when a
// consuming instruction is decoded. It is never left installed once a
// function finishes decoding without error — finish returns an error,
// giving the count of ids still outstanding, if any remain.
type placeholder struct {
	id  int
	typ types.Type
}

func (p *placeholder) Type() types.Type           { return p.typ }
func (p *placeholder) Name() string               { return fmt.Sprintf("<placeholder %%%d>", p.id) }
func (p *placeholder) Referrers() *[]ir.Instruction { return nil }

// define installs v as the real value for id, patching every instruction
// that referenced it as a placeholder so far.
func (d *decodeIDs) define(id int, v ir.Value) {
	d.byID[id] = v
	users := d.pending[id]
	delete(d.pending, id)
	for _, instr := range users {
		rands := instr.Operands(nil)
		for _, r := range rands {
			if ph, ok := (*r).(*placeholder); ok && ph.id == id {
				*r = v
			}
		}
	}
}

// get resolves id to its value, installing a placeholder if id has not
// been defined yet. The placeholder is not yet associated with a
// consumer: operands are always decoded before the instruction holding
// them is constructed, so there is nothing to register against until
// registerConsumer runs afterward.
func (d *decodeIDs) get(id int, typ types.Type) ir.Value {
	if v, ok := d.byID[id]; ok {
		return v
	}
	return &placeholder{id: id, typ: typ}
}

// registerConsumer scans instr's now-constructed operand list for any
// placeholder and records instr as a pending user of that placeholder's
// id, so a later define() call patches instr in place.
func (d *decodeIDs) registerConsumer(instr ir.Instruction) {
	for _, r := range instr.Operands(nil) {
		if ph, ok := (*r).(*placeholder); ok {
			d.pending[ph.id] = append(d.pending[ph.id], instr)
		}
	}
}

// finish reports how many ids were referenced but never defined — a
// malformed stream, since every local id is assigned by exactly one
// defining record.
func (d *decodeIDs) finish() error {
	if len(d.pending) == 0 {
		return nil
	}
	return fmt.Errorf("serialize: %d local value id(s) referenced but never defined", len(d.pending))
}

func readValueRef(r *bufio.Reader, d *decodeIDs, typ types.Type) (ir.Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch valueRefKind(kindByte) {
	case refNil:
		return nil, nil
	case refGlobal:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		g, ok := d.mod.Globals[name]
		if !ok {
			return nil, fmt.Errorf("serialize: reference to undeclared global %q", name)
		}
		return g, nil
	case refFunction:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		fn, ok := d.mod.Functions[name]
		if !ok {
			return nil, fmt.Errorf("serialize: reference to undeclared function %q", name)
		}
		return fn, nil
	case refLocal:
		id, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		return d.get(int(id), typ), nil
	default:
		return nil, fmt.Errorf("serialize: unknown value-ref kind %d", kindByte)
	}
}
