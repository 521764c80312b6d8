// Instruction records. spec.md §4.7 groups SIL instructions into a small
// number of uniform record schemas (one-type, one-operand, two-operand,
// apply, cast, and so on) rather than one schema per opcode, so that
// adding an instruction kind never requires a new abbreviation. This file
// follows that grouping: opcode identifies which constructor to call, but
// the wire shape within a group is shared.
package serialize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

type opcode uint8

const (
	opAllocStack opcode = iota + irCodeBase
	opDeallocStack
	opAllocBox
	opDeallocBox
	opAllocRef
	opAllocRefDynamic
	opDeallocRef
	opLoad
	opStore
	opAssign
	opCopyAddr
	opMarkUninitialized
	opIndexAddr
	opStrongRetain
	opStrongRelease
	opRetainValue
	opReleaseValue
	opUnownedRetain
	opUnownedRelease
	opAutoreleaseReturn
	opAutoreleaseValue
	opAutoreleasePoolCall
	opFunctionRef
	opBuiltinRef
	opApply
	opPartialApply
	opTupleInst
	opStructInst
	opEnumInst
	opTupleExtract
	opStructExtract
	opTupleElementAddr
	opStructElementAddr
	opWitnessMethod
	opClassMethod
	opSuperMethod
	opDynamicMethod
	opProtocolMethod
	opUnconditionalCast
	opCheckedCastBranch
	opJump
	opCondBranch
	opSwitchEnum
	opSwitchEnumAddr
	opSwitchInt
	opDynamicMethodBranch
	opReturn
	opUnreachable
	opCondFail
	opAllocArray
	opDeallocArray
)

// instrCodec bundles what encode/decodeInstruction need beyond a single
// value or type: the running value-id assignment, the type codec, the
// owning module (for global/function operand refs) and, on the decode
// side, the function's pre-created blocks (resolved by index — see
// blocks.go — so a Jump/CondBranch/Switch* target is never a forward
// reference the way a local value can be).
type instrCodec struct {
	mod   *ir.Module
	types *typeCodec

	// resolveFunction looks up a function by name, lazily deserializing
	// it (declaration only, never a body — see reader.go) if it is not
	// yet resident. Left nil by callers that already hold a fully
	// in-memory *ir.Module (tests, and WriteModule's encode path, which
	// never needs to resolve anything): lookupFunction then falls back
	// to a direct, eager map lookup.
	resolveFunction func(name string) (*ir.Function, error)

	// resolveWitnessTable mirrors resolveFunction for a conformance's
	// witness table (decodeConformance's Normal case): left nil by the
	// encode path and by tests, in which case lookupWitnessTable falls
	// back to a direct, eager map lookup.
	resolveWitnessTable func(key string) (*ir.WitnessTable, error)
}

func (c *instrCodec) lookupFunction(name string) (*ir.Function, error) {
	if c.resolveFunction != nil {
		return c.resolveFunction(name)
	}
	fn, ok := c.mod.Functions[name]
	if !ok {
		return nil, fmt.Errorf("serialize: reference to undeclared function %q", name)
	}
	return fn, nil
}

func (c *instrCodec) lookupWitnessTable(key string) (*ir.WitnessTable, error) {
	if c.resolveWitnessTable != nil {
		return c.resolveWitnessTable(key)
	}
	return c.mod.WitnessTables[key], nil
}

// encodeInstruction assigns instr's result (if any) a local id before
// writing the record, matching decodeInstruction's definition order.
func encodeInstruction(w io.Writer, c *instrCodec, e *encodeIDs, blocks *blockIndex, instr ir.Instruction) error {
	if v, ok := instr.(ir.Value); ok {
		e.assign(v)
	}

	switch v := instr.(type) {
	case *ir.AllocStack:
		return writeOneType(w, opAllocStack, c, v.Type())
	case *ir.DeallocStack:
		return writeOneOperand(w, opDeallocStack, c, e, v.Operand)
	case *ir.AllocBox:
		return writeOneType(w, opAllocBox, c, v.Type())
	case *ir.DeallocBox:
		return writeOneOperand(w, opDeallocBox, c, e, v.Operand)
	case *ir.AllocRef:
		if err := writeByte(w, byte(opAllocRef)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeBool(w, v.DynamicLifetime)
	case *ir.AllocRefDynamic:
		if err := writeByte(w, byte(opAllocRefDynamic)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeValueRef(w, e, c.mod, v.Metatype)
	case *ir.DeallocRef:
		return writeOneOperand(w, opDeallocRef, c, e, v.Operand)
	case *ir.AllocArray:
		if err := writeByte(w, byte(opAllocArray)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeValueRef(w, e, c.mod, v.Count)
	case *ir.DeallocArray:
		return writeOneOperand(w, opDeallocArray, c, e, v.Operand)
	case *ir.Load:
		if err := writeByte(w, byte(opLoad)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeValueRef(w, e, c.mod, v.Addr)
	case *ir.Store:
		return writeTwoOperands(w, opStore, c, e, v.Src, v.Dest)
	case *ir.Assign:
		return writeTwoOperands(w, opAssign, c, e, v.Src, v.Dest)
	case *ir.CopyAddr:
		if err := writeByte(w, byte(opCopyAddr)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Src); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Dest); err != nil {
			return err
		}
		if err := writeBool(w, v.TakeSource); err != nil {
			return err
		}
		return writeBool(w, v.Initialize)
	case *ir.MarkUninitialized:
		if err := writeByte(w, byte(opMarkUninitialized)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeUvarint(w, uint64(v.Kind))
	case *ir.IndexAddr:
		return writeTwoOperands(w, opIndexAddr, c, e, v.Base, v.Index)
	case *ir.StrongRetain:
		return writeOneOperand(w, opStrongRetain, c, e, v.Operand)
	case *ir.StrongRelease:
		return writeOneOperand(w, opStrongRelease, c, e, v.Operand)
	case *ir.RetainValue:
		return writeOneOperand(w, opRetainValue, c, e, v.Operand)
	case *ir.ReleaseValue:
		return writeOneOperand(w, opReleaseValue, c, e, v.Operand)
	case *ir.UnownedRetain:
		return writeOneOperand(w, opUnownedRetain, c, e, v.Operand)
	case *ir.UnownedRelease:
		return writeOneOperand(w, opUnownedRelease, c, e, v.Operand)
	case *ir.AutoreleaseReturn:
		return writeOneOperand(w, opAutoreleaseReturn, c, e, v.Operand)
	case *ir.AutoreleaseValue:
		return writeOneOperand(w, opAutoreleaseValue, c, e, v.Operand)
	case *ir.AutoreleasePoolCall:
		return writeByte(w, byte(opAutoreleasePoolCall))
	case *ir.FunctionRef:
		if err := writeByte(w, byte(opFunctionRef)); err != nil {
			return err
		}
		return writeString(w, v.Target.Name())
	case *ir.BuiltinRef:
		if err := writeByte(w, byte(opBuiltinRef)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeString(w, v.Symbol)
	case *ir.Apply:
		if err := writeByte(w, byte(opApply)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Callee); err != nil {
			return err
		}
		if err := writeValueRefs(w, e, c.mod, v.Args); err != nil {
			return err
		}
		return encodeSubstitution(w, c, v.Substitutions)
	case *ir.PartialApply:
		if err := writeByte(w, byte(opPartialApply)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Callee); err != nil {
			return err
		}
		if err := writeValueRefs(w, e, c.mod, v.CapturedArgs); err != nil {
			return err
		}
		return encodeSubstitution(w, c, v.Substitutions)
	case *ir.TupleInst:
		if err := writeByte(w, byte(opTupleInst)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeValueRefs(w, e, c.mod, v.Elems)
	case *ir.StructInst:
		if err := writeByte(w, byte(opStructInst)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		return writeValueRefs(w, e, c.mod, v.Fields)
	case *ir.EnumInst:
		if err := writeByte(w, byte(opEnumInst)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeString(w, v.Case); err != nil {
			return err
		}
		return writeValueRef(w, e, c.mod, v.Payload)
	case *ir.TupleExtract:
		if err := writeByte(w, byte(opTupleExtract)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeUvarint(w, uint64(v.Index))
	case *ir.StructExtract:
		if err := writeByte(w, byte(opStructExtract)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeString(w, v.Field)
	case *ir.TupleElementAddr:
		if err := writeByte(w, byte(opTupleElementAddr)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeUvarint(w, uint64(v.Index))
	case *ir.StructElementAddr:
		if err := writeByte(w, byte(opStructElementAddr)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeString(w, v.Field)
	case *ir.WitnessMethod:
		if err := writeByte(w, byte(opWitnessMethod)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		if err := writeString(w, v.Requirement); err != nil {
			return err
		}
		return encodeConformance(w, c, v.Conformance)
	case *ir.ClassMethod:
		return writeOneValueOneOperand(w, opClassMethod, c, e, v.Type(), v.Operand, v.Selector)
	case *ir.SuperMethod:
		return writeOneValueOneOperand(w, opSuperMethod, c, e, v.Type(), v.Operand, v.Selector)
	case *ir.DynamicMethod:
		return writeOneValueOneOperand(w, opDynamicMethod, c, e, v.Type(), v.Operand, v.Selector)
	case *ir.ProtocolMethod:
		return writeOneValueOneOperand(w, opProtocolMethod, c, e, v.Type(), v.Operand, v.Requirement)
	case *ir.UnconditionalCast:
		if err := writeByte(w, byte(opUnconditionalCast)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type()); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		return writeUvarint(w, uint64(v.Kind))
	case *ir.CheckedCastBranch:
		if err := writeByte(w, byte(opCheckedCastBranch)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(v.Kind)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(v.Success))); err != nil {
			return err
		}
		return writeUvarint(w, uint64(blocks.indexOf(v.Failure)))
	case *ir.Jump:
		if err := writeByte(w, byte(opJump)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(v.Target))); err != nil {
			return err
		}
		return writeValueRefs(w, e, c.mod, v.Args)
	case *ir.CondBranch:
		if err := writeByte(w, byte(opCondBranch)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Cond); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(v.Then))); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(v.Else))); err != nil {
			return err
		}
		if err := writeValueRefs(w, e, c.mod, v.ThenArgs); err != nil {
			return err
		}
		return writeValueRefs(w, e, c.mod, v.ElseArgs)
	case *ir.SwitchEnum:
		return writeSwitchEnumLike(w, opSwitchEnum, c, e, blocks, v.Operand, v.Cases, v.Default)
	case *ir.SwitchEnumAddr:
		return writeSwitchEnumLike(w, opSwitchEnumAddr, c, e, blocks, v.Operand, v.Cases, v.Default)
	case *ir.SwitchInt:
		if err := writeByte(w, byte(opSwitchInt)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(len(v.Cases))); err != nil {
			return err
		}
		for _, cs := range v.Cases {
			if err := writeUvarint(w, uint64(cs.Value)); err != nil {
				return err
			}
			if err := writeUvarint(w, uint64(blocks.indexOf(cs.Dest))); err != nil {
				return err
			}
		}
		return writeOptionalBlock(w, blocks, v.Default)
	case *ir.DynamicMethodBranch:
		if err := writeByte(w, byte(opDynamicMethodBranch)); err != nil {
			return err
		}
		if err := writeValueRef(w, e, c.mod, v.Operand); err != nil {
			return err
		}
		if err := writeString(w, v.Selector); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(v.HasMethod))); err != nil {
			return err
		}
		return writeUvarint(w, uint64(blocks.indexOf(v.NoMethod)))
	case *ir.Return:
		if err := writeByte(w, byte(opReturn)); err != nil {
			return err
		}
		return writeValueRef(w, e, c.mod, v.Operand)
	case *ir.Unreachable:
		return writeByte(w, byte(opUnreachable))
	case *ir.CondFail:
		return writeOneOperand(w, opCondFail, c, e, v.Operand)
	default:
		return fmt.Errorf("serialize: encodeInstruction: unsupported instruction %T", instr)
	}
}

func writeOneType(w io.Writer, op opcode, c *instrCodec, typ types.Type) error {
	if err := writeByte(w, byte(op)); err != nil {
		return err
	}
	return encodeType(w, c.types, typ)
}

func writeOneOperand(w io.Writer, op opcode, c *instrCodec, e *encodeIDs, operand ir.Value) error {
	if err := writeByte(w, byte(op)); err != nil {
		return err
	}
	return writeValueRef(w, e, c.mod, operand)
}

func writeTwoOperands(w io.Writer, op opcode, c *instrCodec, e *encodeIDs, a, b ir.Value) error {
	if err := writeByte(w, byte(op)); err != nil {
		return err
	}
	if err := writeValueRef(w, e, c.mod, a); err != nil {
		return err
	}
	return writeValueRef(w, e, c.mod, b)
}

func writeOneValueOneOperand(w io.Writer, op opcode, c *instrCodec, e *encodeIDs, typ types.Type, operand ir.Value, s string) error {
	if err := writeByte(w, byte(op)); err != nil {
		return err
	}
	if err := encodeType(w, c.types, typ); err != nil {
		return err
	}
	if err := writeValueRef(w, e, c.mod, operand); err != nil {
		return err
	}
	return writeString(w, s)
}

func writeValueRefs(w io.Writer, e *encodeIDs, mod *ir.Module, vs []ir.Value) error {
	if err := writeUvarint(w, uint64(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := writeValueRef(w, e, mod, v); err != nil {
			return err
		}
	}
	return nil
}

func writeOptionalBlock(w io.Writer, blocks *blockIndex, b *ir.BasicBlock) error {
	if err := writeBool(w, b != nil); err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return writeUvarint(w, uint64(blocks.indexOf(b)))
}

func writeSwitchEnumLike(w io.Writer, op opcode, c *instrCodec, e *encodeIDs, blocks *blockIndex, operand ir.Value, cases []ir.SwitchEnumCase, def *ir.BasicBlock) error {
	if err := writeByte(w, byte(op)); err != nil {
		return err
	}
	if err := writeValueRef(w, e, c.mod, operand); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(cases))); err != nil {
		return err
	}
	for _, cs := range cases {
		if err := writeString(w, cs.Case); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(blocks.indexOf(cs.Dest))); err != nil {
			return err
		}
	}
	return writeOptionalBlock(w, blocks, def)
}

// encodeSubstitution emits subst inline, immediately following the
// apply-family record that carries it (spec.md §4.7 "a generic apply's
// substitution list is emitted inline, immediately after the apply
// record"). A nil substitution (a non-generic call) writes as zero
// entries.
func encodeSubstitution(w io.Writer, c *instrCodec, subst *types.Substitution) error {
	if subst == nil {
		return writeUvarint(w, 0)
	}
	bindings := subst.Bindings()
	if err := writeUvarint(w, uint64(len(bindings))); err != nil {
		return err
	}
	for _, b := range bindings {
		if err := writeUvarint(w, uint64(b.Depth)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(b.Index)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, b.Type); err != nil {
			return err
		}
	}
	return nil
}

func decodeSubstitution(r *bufio.Reader, c *instrCodec) (*types.Substitution, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	subst := types.NewSubstitution()
	for i := uint64(0); i < n; i++ {
		depth, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		index, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		repl, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		subst.Bind(int(depth), int(index), repl)
	}
	return subst, nil
}

// encodeConformance emits a Conformance inline, following the
// WitnessMethod (or future existential-construction) record that uses it
// (spec.md §4.7 "conformances referenced by a record are themselves
// serialized inline"). The Normal case is looked up by
// (ConformingType, Protocol) against the module's witness-table set
// rather than by a separately-assigned decl-id: a module's conformances
// are few enough in practice that a fifth hash table buys little over
// re-resolving the pair on read, which is what LookupWitnessTable already
// does for every other conformance consumer.
type conformanceTag uint8

const (
	conformNormal conformanceTag = iota
	conformInherited
	conformSpecialized
)

func encodeConformance(w io.Writer, c *instrCodec, conf ir.Conformance) error {
	switch v := conf.(type) {
	case *ir.NormalConformance:
		if err := writeByte(w, byte(conformNormal)); err != nil {
			return err
		}
		if err := encodeType(w, c.types, v.Type); err != nil {
			return err
		}
		return writeString(w, v.Protocol.Name.String())
	case *ir.InheritedConformance:
		if err := writeByte(w, byte(conformInherited)); err != nil {
			return err
		}
		return encodeConformance(w, c, v.Inherited)
	case *ir.SpecializedConformance:
		if err := writeByte(w, byte(conformSpecialized)); err != nil {
			return err
		}
		if err := encodeConformance(w, c, v.Generic); err != nil {
			return err
		}
		return encodeSubstitution(w, c, v.Subst)
	default:
		return fmt.Errorf("serialize: encodeConformance: unsupported conformance %T", conf)
	}
}

func decodeConformance(r *bufio.Reader, c *instrCodec) (ir.Conformance, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch conformanceTag(tag) {
	case conformNormal:
		ty, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		protoName, err := readString(r)
		if err != nil {
			return nil, err
		}
		proto := c.types.nominals.intern(types.Protocol, c.types.interner.Intern(protoName))
		table, err := c.lookupWitnessTable(witnessTableKey(ty, proto))
		if err != nil {
			return nil, err
		}
		return &ir.NormalConformance{Type: ty, Protocol: proto, Table: table}, nil
	case conformInherited:
		inner, err := decodeConformance(r, c)
		if err != nil {
			return nil, err
		}
		return &ir.InheritedConformance{Inherited: inner}, nil
	case conformSpecialized:
		generic, err := decodeConformance(r, c)
		if err != nil {
			return nil, err
		}
		subst, err := decodeSubstitution(r, c)
		if err != nil {
			return nil, err
		}
		return &ir.SpecializedConformance{Generic: generic, Subst: subst}, nil
	default:
		return nil, fmt.Errorf("serialize: decodeConformance: unknown tag %d", tag)
	}
}

// witnessTableKey is this package's own convention for Module.WitnessTables'
// string key, since nothing else in the module establishes one: a module
// built in one process and read back by this package is internally
// consistent, which is all the round-trip law (§8) requires.
func witnessTableKey(conformingType types.Type, protocol *types.Nominal) string {
	return conformingType.String() + "|" + protocol.Name.String()
}

// decodeInstruction reads one instruction record, constructs it via the
// matching ir.NewXxx, defines its result id (if any) and registers it as
// a pending consumer of any placeholder operand it still holds.
func decodeInstruction(r *bufio.Reader, c *instrCodec, d *decodeIDs, blocks *blockIndex, nextID func() int) (ir.Instruction, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	op := opcode(opByte)

	var instr ir.Instruction
	var result ir.Value
	resultID := -1
	newName := func() string {
		resultID = nextID()
		return localName(resultID)
	}

	switch op {
	case opAllocStack:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		v := ir.NewAllocStack(newName(), typ)
		instr, result = v, v
	case opDeallocStack:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewDeallocStack(operand)
	case opAllocBox:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		v := ir.NewAllocBox(newName(), typ)
		instr, result = v, v
	case opDeallocBox:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewDeallocBox(operand)
	case opAllocRef:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		dynamic, err := readBool(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewAllocRef(newName(), typ, dynamic)
		instr, result = v, v
	case opAllocRefDynamic:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		metatype, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		v := ir.NewAllocRefDynamic(newName(), typ, metatype)
		instr, result = v, v
	case opDeallocRef:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewDeallocRef(operand)
	case opAllocArray:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		count, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		v := ir.NewAllocArray(newName(), typ, count)
		instr, result = v, v
	case opDeallocArray:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewDeallocArray(operand)
	case opLoad:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		addr, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		v := ir.NewLoad(newName(), addr, typ)
		instr, result = v, v
	case opStore:
		src, dest, err := readTwoOperands(r, d)
		if err != nil {
			return nil, err
		}
		instr = ir.NewStore(src, dest)
	case opAssign:
		src, dest, err := readTwoOperands(r, d)
		if err != nil {
			return nil, err
		}
		instr = ir.NewAssign(src, dest)
	case opCopyAddr:
		src, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		dest, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		take, err := readBool(r)
		if err != nil {
			return nil, err
		}
		initFlag, err := readBool(r)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCopyAddr(src, dest, take, initFlag)
	case opMarkUninitialized:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		kind, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewMarkUninitialized(newName(), operand, ir.MarkUninitializedKind(kind))
		instr, result = v, v
	case opIndexAddr:
		base, index, err := readTwoOperands(r, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewIndexAddr(newName(), base, index)
		instr, result = v, v
	case opStrongRetain:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewStrongRetain(operand)
	case opStrongRelease:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewStrongRelease(operand)
	case opRetainValue:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewRetainValue(operand)
	case opReleaseValue:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewReleaseValue(operand)
	case opUnownedRetain:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewUnownedRetain(operand)
	case opUnownedRelease:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewUnownedRelease(operand)
	case opAutoreleaseReturn:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewAutoreleaseReturn(operand)
	case opAutoreleaseValue:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewAutoreleaseValue(operand)
	case opAutoreleasePoolCall:
		instr = ir.NewAutoreleasePoolCall()
	case opFunctionRef:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		target, err := c.lookupFunction(name)
		if err != nil {
			return nil, err
		}
		v := ir.NewFunctionRef(newName(), target)
		instr, result = v, v
	case opBuiltinRef:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		symbol, err := readString(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewBuiltinRef(newName(), symbol, typ)
		instr, result = v, v
	case opApply:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		callee, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		args, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		subst, err := decodeSubstitution(r, c)
		if err != nil {
			return nil, err
		}
		v := ir.NewApply(newName(), callee, args, subst, typ)
		instr, result = v, v
	case opPartialApply:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		callee, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		captured, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		subst, err := decodeSubstitution(r, c)
		if err != nil {
			return nil, err
		}
		v := ir.NewPartialApply(newName(), callee, captured, subst, typ)
		instr, result = v, v
	case opTupleInst:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		elems, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewTupleInst(newName(), elems, typ)
		instr, result = v, v
	case opStructInst:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		fields, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewStructInst(newName(), fields, typ)
		instr, result = v, v
	case opEnumInst:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		caseName, err := readString(r)
		if err != nil {
			return nil, err
		}
		payload, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		v := ir.NewEnumInst(newName(), caseName, payload, typ)
		instr, result = v, v
	case opTupleExtract:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		index, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewTupleExtract(newName(), operand, int(index), typ)
		instr, result = v, v
	case opStructExtract:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		field, err := readString(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewStructExtract(newName(), operand, field, typ)
		instr, result = v, v
	case opTupleElementAddr:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		index, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewTupleElementAddr(newName(), operand, int(index), typ)
		instr, result = v, v
	case opStructElementAddr:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		field, err := readString(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewStructElementAddr(newName(), operand, field, typ)
		instr, result = v, v
	case opWitnessMethod:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		requirement, err := readString(r)
		if err != nil {
			return nil, err
		}
		conf, err := decodeConformance(r, c)
		if err != nil {
			return nil, err
		}
		v := ir.NewWitnessMethod(newName(), operand, requirement, conf, typ)
		instr, result = v, v
	case opClassMethod:
		typ, operand, selector, err := readOneValueOneOperand(r, c, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewClassMethod(newName(), operand, selector, typ)
		instr, result = v, v
	case opSuperMethod:
		typ, operand, selector, err := readOneValueOneOperand(r, c, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewSuperMethod(newName(), operand, selector, typ)
		instr, result = v, v
	case opDynamicMethod:
		typ, operand, selector, err := readOneValueOneOperand(r, c, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewDynamicMethod(newName(), operand, selector, typ)
		instr, result = v, v
	case opProtocolMethod:
		typ, operand, requirement, err := readOneValueOneOperand(r, c, d)
		if err != nil {
			return nil, err
		}
		v := ir.NewProtocolMethod(newName(), operand, requirement, typ)
		instr, result = v, v
	case opUnconditionalCast:
		typ, err := decodeType(r, c.types)
		if err != nil {
			return nil, err
		}
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		kind, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		v := ir.NewUnconditionalCast(newName(), operand, ir.CastKind(kind), typ)
		instr, result = v, v
	case opCheckedCastBranch:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		kind, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		successIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		failureIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCheckedCastBranch(operand, ir.CastKind(kind), blocks.at(int(successIdx)), blocks.at(int(failureIdx)))
	case opJump:
		targetIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		args, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		instr = ir.NewJump(blocks.at(int(targetIdx)), args)
	case opCondBranch:
		cond, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		thenIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		elseIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		thenArgs, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		elseArgs, err := readValueRefs(r, d)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCondBranch(cond, blocks.at(int(thenIdx)), blocks.at(int(elseIdx)), thenArgs, elseArgs)
	case opSwitchEnum:
		operand, cases, def, err := readSwitchEnumLike(r, c, d, blocks)
		if err != nil {
			return nil, err
		}
		instr = ir.NewSwitchEnum(operand, cases, def)
	case opSwitchEnumAddr:
		operand, cases, def, err := readSwitchEnumLike(r, c, d, blocks)
		if err != nil {
			return nil, err
		}
		instr = ir.NewSwitchEnumAddr(operand, cases, def)
	case opSwitchInt:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		cases := make([]ir.SwitchIntCase, n)
		for i := range cases {
			val, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			destIdx, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			cases[i] = ir.SwitchIntCase{Value: int64(val), Dest: blocks.at(int(destIdx))}
		}
		def, err := readOptionalBlock(r, blocks)
		if err != nil {
			return nil, err
		}
		instr = ir.NewSwitchInt(operand, cases, def)
	case opDynamicMethodBranch:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		selector, err := readString(r)
		if err != nil {
			return nil, err
		}
		hasIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		noIdx, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		instr = ir.NewDynamicMethodBranch(operand, selector, blocks.at(int(hasIdx)), blocks.at(int(noIdx)))
	case opReturn:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewReturn(operand)
	case opUnreachable:
		instr = ir.NewUnreachable()
	case opCondFail:
		operand, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCondFail(operand)
	default:
		return nil, fmt.Errorf("serialize: decodeInstruction: unknown opcode %d", op)
	}

	if result != nil {
		d.define(resultID, result)
	}
	d.registerConsumer(instr)
	return instr, nil
}

func readTwoOperands(r *bufio.Reader, d *decodeIDs) (ir.Value, ir.Value, error) {
	a, err := readValueRef(r, d, nil)
	if err != nil {
		return nil, nil, err
	}
	b, err := readValueRef(r, d, nil)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func readOneValueOneOperand(r *bufio.Reader, c *instrCodec, d *decodeIDs) (types.Type, ir.Value, string, error) {
	typ, err := decodeType(r, c.types)
	if err != nil {
		return nil, nil, "", err
	}
	operand, err := readValueRef(r, d, nil)
	if err != nil {
		return nil, nil, "", err
	}
	s, err := readString(r)
	if err != nil {
		return nil, nil, "", err
	}
	return typ, operand, s, nil
}

func readValueRefs(r *bufio.Reader, d *decodeIDs) ([]ir.Value, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	vs := make([]ir.Value, n)
	for i := range vs {
		v, err := readValueRef(r, d, nil)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func readOptionalBlock(r *bufio.Reader, blocks *blockIndex) (*ir.BasicBlock, error) {
	has, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	idx, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	return blocks.at(int(idx)), nil
}

func readSwitchEnumLike(r *bufio.Reader, c *instrCodec, d *decodeIDs, blocks *blockIndex) (ir.Value, []ir.SwitchEnumCase, *ir.BasicBlock, error) {
	operand, err := readValueRef(r, d, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	n, err := readUvarint(r)
	if err != nil {
		return nil, nil, nil, err
	}
	cases := make([]ir.SwitchEnumCase, n)
	for i := range cases {
		caseName, err := readString(r)
		if err != nil {
			return nil, nil, nil, err
		}
		destIdx, err := readUvarint(r)
		if err != nil {
			return nil, nil, nil, err
		}
		cases[i] = ir.SwitchEnumCase{Case: caseName, Dest: blocks.at(int(destIdx))}
	}
	def, err := readOptionalBlock(r, blocks)
	if err != nil {
		return nil, nil, nil, err
	}
	return operand, cases, def, nil
}

// localName derives the deterministic SSA register name the builder
// would have assigned (spec.md §5), so a round-tripped function's
// Name()s match a freshly-built one with the same id sequence.
func localName(id int) string {
	return fmt.Sprintf("%%%d", id)
}
