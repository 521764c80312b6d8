package ir

import "github.com/silcore/compiler/types"

// Every instruction embeds anInstruction (and register if it produces a
// value) and implements Operands, following ssa.go's Operands(rands
// []*Value) []*Value shape: the method appends a pointer to each operand
// field so a use-list rewrite (spec.md §3.5, "replacing a value's uses is
// O(#uses)") can mutate operands in place without reflection.

// --- Allocation / deallocation (spec.md §3.3) ---

// AllocStack allocates an uninitialized value of Typ on the stack.
type AllocStack struct {
	register
}

func (v *AllocStack) Operands(rands []*Value) []*Value { return rands }

// DeallocStack frees a value previously produced by AllocStack.
type DeallocStack struct {
	anInstruction
	Operand Value
}

func (v *DeallocStack) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// AllocBox allocates a heap box for a captured mutable variable.
type AllocBox struct {
	register
}

func (v *AllocBox) Operands(rands []*Value) []*Value { return rands }

// DeallocBox frees a box produced by AllocBox.
type DeallocBox struct {
	anInstruction
	Operand Value
}

func (v *DeallocBox) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// AllocRef allocates an instance of a fixed, statically-known class.
type AllocRef struct {
	register
	DynamicLifetime bool
}

func (v *AllocRef) Operands(rands []*Value) []*Value { return rands }

// AllocRefDynamic allocates an instance whose exact metatype is a
// runtime value (e.g. `required init` through `self`).
type AllocRefDynamic struct {
	register
	Metatype Value
}

func (v *AllocRefDynamic) Operands(rands []*Value) []*Value {
	return append(rands, &v.Metatype)
}

// DeallocRef releases the storage (not the fields) of a class instance
// whose reference count has already reached zero.
type DeallocRef struct {
	anInstruction
	Operand Value
}

func (v *DeallocRef) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// AllocArray allocates a fixed-size, uninitialized array buffer of Typ
// holding Count elements, both produced as a single value (the caller
// indexes into it with IndexAddr to initialize each element).
type AllocArray struct {
	register
	Count Value
}

func (v *AllocArray) Operands(rands []*Value) []*Value {
	return append(rands, &v.Count)
}

// DeallocArray frees a buffer produced by AllocArray.
type DeallocArray struct {
	anInstruction
	Operand Value
}

func (v *DeallocArray) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// --- Arithmetic / memory (spec.md §3.3) ---

// Load reads the value stored at an address.
type Load struct {
	register
	Addr Value
}

func (v *Load) Operands(rands []*Value) []*Value { return append(rands, &v.Addr) }

// Store writes Src to Dest; has no result.
type Store struct {
	anInstruction
	Src, Dest Value
}

func (v *Store) Operands(rands []*Value) []*Value {
	return append(rands, &v.Src, &v.Dest)
}

// Assign is a higher-level store used before ownership-qualified lowering
// has run (assign-or-init semantics depending on destination state).
type Assign struct {
	anInstruction
	Src, Dest Value
}

func (v *Assign) Operands(rands []*Value) []*Value {
	return append(rands, &v.Src, &v.Dest)
}

// CopyAddr copies the value at Src to Dest, with take/init flags
// (spec.md §3.3).
type CopyAddr struct {
	anInstruction
	Src, Dest  Value
	TakeSource bool
	Initialize bool
}

func (v *CopyAddr) Operands(rands []*Value) []*Value {
	return append(rands, &v.Src, &v.Dest)
}

// MarkUninitializedKind classifies what kind of not-yet-initialized
// binding a MarkUninitialized wraps.
type MarkUninitializedKind int

const (
	MarkUninitVar MarkUninitializedKind = iota
	MarkUninitRootSelf
	MarkUninitDerivedSelf
	MarkUninitDelegatingSelf
)

// MarkUninitialized wraps an address to record that definite-
// initialization analysis must track it before first use.
type MarkUninitialized struct {
	register
	Operand Value
	Kind    MarkUninitializedKind
}

func (v *MarkUninitialized) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// IndexAddr computes the address Base + Index * sizeof(element).
type IndexAddr struct {
	register
	Base, Index Value
}

func (v *IndexAddr) Operands(rands []*Value) []*Value {
	return append(rands, &v.Base, &v.Index)
}

// --- Reference-count mutators (spec.md §3.3) ---
// Every RC mutator has exactly one operand and no result. The verifier
// (ir/verify) checks only that the operand is non-nil; it does not check
// the operand's type for reference semantics.

type rcMutator struct {
	anInstruction
	Operand Value
}

func (v *rcMutator) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

type StrongRetain struct{ rcMutator }
type StrongRelease struct{ rcMutator }
type RetainValue struct{ rcMutator }
type ReleaseValue struct{ rcMutator }
type UnownedRetain struct{ rcMutator }
type UnownedRelease struct{ rcMutator }
type AutoreleaseReturn struct{ rcMutator }
type AutoreleaseValue struct{ rcMutator }

// AutoreleasePoolCall models a call into the runtime's autorelease-pool
// machinery (push/pop/drain). The original represents this as an Apply
// to a known runtime symbol; it is split out as its own instruction
// here so the RC-pairing dataflow (passes/rcpairing) can recognize it
// without a symbol table lookup — simplification noted in DESIGN.md.
type AutoreleasePoolCall struct {
	anInstruction
}

func (v *AutoreleasePoolCall) Operands(rands []*Value) []*Value { return rands }

// --- Apply family (spec.md §3.3) ---

// FunctionRef produces a reference to a statically-known Function.
type FunctionRef struct {
	register
	Target *Function
}

func (v *FunctionRef) Operands(rands []*Value) []*Value { return rands }

// BuiltinRef produces a reference to a compiler-intrinsic builtin,
// identified by symbol rather than a Function (spec.md §3.3). The field
// is named Symbol, not Name, so it does not shadow register's promoted
// Name() method (the SSA register name, e.g. "%3").
type BuiltinRef struct {
	register
	Symbol string
}

func (v *BuiltinRef) Operands(rands []*Value) []*Value { return rands }

// Apply invokes Callee with Args and an optional generic Substitutions
// list (spec.md §3.3, §4.5).
type Apply struct {
	register
	Callee        Value
	Args          []Value
	Substitutions *types.Substitution
}

func (v *Apply) Operands(rands []*Value) []*Value {
	rands = append(rands, &v.Callee)
	for i := range v.Args {
		rands = append(rands, &v.Args[i])
	}
	return rands
}

// PartialApply captures a subset of Callee's arguments, producing a
// closure value.
type PartialApply struct {
	register
	Callee        Value
	CapturedArgs  []Value
	Substitutions *types.Substitution
}

func (v *PartialApply) Operands(rands []*Value) []*Value {
	rands = append(rands, &v.Callee)
	for i := range v.CapturedArgs {
		rands = append(rands, &v.CapturedArgs[i])
	}
	return rands
}

// --- Aggregation (spec.md §3.3) ---

type TupleInst struct {
	register
	Elems []Value
}

func (v *TupleInst) Operands(rands []*Value) []*Value {
	for i := range v.Elems {
		rands = append(rands, &v.Elems[i])
	}
	return rands
}

type StructInst struct {
	register
	Fields []Value
}

func (v *StructInst) Operands(rands []*Value) []*Value {
	for i := range v.Fields {
		rands = append(rands, &v.Fields[i])
	}
	return rands
}

// EnumInst constructs an enum value of case Case, with an optional
// associated-value payload.
type EnumInst struct {
	register
	Case    string
	Payload Value // nil if the case carries no associated value
}

func (v *EnumInst) Operands(rands []*Value) []*Value {
	if v.Payload != nil {
		rands = append(rands, &v.Payload)
	}
	return rands
}

type TupleExtract struct {
	register
	Operand Value
	Index   int
}

func (v *TupleExtract) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

type StructExtract struct {
	register
	Operand Value
	Field   string
}

func (v *StructExtract) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// TupleElementAddr and StructElementAddr are the address-form
// counterparts of TupleExtract/StructExtract (spec.md §3.3 "address-
// forms thereof"): instead of extracting a value they compute the
// address of the element in place, for in-place mutation.
type TupleElementAddr struct {
	register
	Operand Value
	Index   int
}

func (v *TupleElementAddr) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

type StructElementAddr struct {
	register
	Operand Value
	Field   string
}

func (v *StructElementAddr) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// --- Method dispatch (spec.md §3.3) ---

// WitnessMethod looks up Requirement in the witness table for a
// protocol conformance attached to Operand's type.
type WitnessMethod struct {
	register
	Operand     Value
	Requirement string
	Conformance Conformance
}

func (v *WitnessMethod) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// ClassMethod looks up Selector in Operand's dynamic class's vtable.
type ClassMethod struct {
	register
	Operand  Value
	Selector string
}

func (v *ClassMethod) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// SuperMethod looks up Selector starting at Operand's static
// superclass, bypassing dynamic dispatch for the receiver's own class.
type SuperMethod struct {
	register
	Operand  Value
	Selector string
}

func (v *SuperMethod) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// DynamicMethod looks up Selector via the Objective-C-style message
// send rather than a vtable slot.
type DynamicMethod struct {
	register
	Operand  Value
	Selector string
}

func (v *DynamicMethod) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// ProtocolMethod looks up Requirement against an existential's witness
// table at runtime (the non-generic counterpart of WitnessMethod, used
// when the conformance is not statically known).
type ProtocolMethod struct {
	register
	Operand     Value
	Requirement string
}

func (v *ProtocolMethod) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// --- Casts (spec.md §3.3) ---

// CastKind distinguishes how a cast should be verified/lowered.
type CastKind int

const (
	CastDowncast CastKind = iota
	CastExistentialToConcrete
	CastConcreteToExistential
	CastBridging
)

// UnconditionalCast casts Operand to ResultType, trapping at runtime on
// failure; it is a value-producing, non-terminator instruction.
type UnconditionalCast struct {
	register
	Operand Value
	Kind    CastKind
}

func (v *UnconditionalCast) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

// CheckedCastBranch tries the Kind cast of Operand, branching to Success
// (with the cast value as a block argument) or Failure (spec.md §3.3
// "checked (conditional branch)"). It is a terminator.
type CheckedCastBranch struct {
	anInstruction
	Operand         Value
	Kind            CastKind
	Success, Failure *BasicBlock
}

func (v *CheckedCastBranch) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}
func (v *CheckedCastBranch) Successors() []*BasicBlock { return []*BasicBlock{v.Success, v.Failure} }

// --- Control flow / terminators (spec.md §3.3) ---

// Jump is an unconditional branch, passing Args to Target's block
// arguments.
type Jump struct {
	anInstruction
	Target *BasicBlock
	Args   []Value
}

func (v *Jump) Operands(rands []*Value) []*Value {
	for i := range v.Args {
		rands = append(rands, &v.Args[i])
	}
	return rands
}
func (v *Jump) Successors() []*BasicBlock { return []*BasicBlock{v.Target} }

// CondBranch branches to Then or Else depending on Cond, each with its
// own argument list.
type CondBranch struct {
	anInstruction
	Cond             Value
	Then, Else       *BasicBlock
	ThenArgs, ElseArgs []Value
}

func (v *CondBranch) Operands(rands []*Value) []*Value {
	rands = append(rands, &v.Cond)
	for i := range v.ThenArgs {
		rands = append(rands, &v.ThenArgs[i])
	}
	for i := range v.ElseArgs {
		rands = append(rands, &v.ElseArgs[i])
	}
	return rands
}
func (v *CondBranch) Successors() []*BasicBlock { return []*BasicBlock{v.Then, v.Else} }

// SwitchEnumCase is one (case, destination) arm of SwitchEnum /
// SwitchEnumAddr.
type SwitchEnumCase struct {
	Case string
	Dest *BasicBlock
}

// SwitchEnum dispatches on Operand's active enum case.
type SwitchEnum struct {
	anInstruction
	Operand Value
	Cases   []SwitchEnumCase
	Default *BasicBlock // nil if the switch is exhaustive
}

func (v *SwitchEnum) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}
func (v *SwitchEnum) Successors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(v.Cases)+1)
	for _, c := range v.Cases {
		succs = append(succs, c.Dest)
	}
	if v.Default != nil {
		succs = append(succs, v.Default)
	}
	return succs
}

// SwitchEnumAddr is SwitchEnum's address-form counterpart, dispatching
// on the enum stored at an address without loading it.
type SwitchEnumAddr struct {
	anInstruction
	Operand Value
	Cases   []SwitchEnumCase
	Default *BasicBlock
}

func (v *SwitchEnumAddr) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}
func (v *SwitchEnumAddr) Successors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(v.Cases)+1)
	for _, c := range v.Cases {
		succs = append(succs, c.Dest)
	}
	if v.Default != nil {
		succs = append(succs, v.Default)
	}
	return succs
}

// SwitchIntCase is one (value, destination) arm of SwitchInt.
type SwitchIntCase struct {
	Value int64
	Dest  *BasicBlock
}

// SwitchInt dispatches on Operand's integer value.
type SwitchInt struct {
	anInstruction
	Operand Value
	Cases   []SwitchIntCase
	Default *BasicBlock
}

func (v *SwitchInt) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}
func (v *SwitchInt) Successors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(v.Cases)+1)
	for _, c := range v.Cases {
		succs = append(succs, c.Dest)
	}
	if v.Default != nil {
		succs = append(succs, v.Default)
	}
	return succs
}

// DynamicMethodBranch tests whether Operand responds to Selector at
// runtime, branching to HasMethod (with a bound-method value as a block
// argument) or NoMethod.
type DynamicMethodBranch struct {
	anInstruction
	Operand            Value
	Selector           string
	HasMethod, NoMethod *BasicBlock
}

func (v *DynamicMethodBranch) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}
func (v *DynamicMethodBranch) Successors() []*BasicBlock {
	return []*BasicBlock{v.HasMethod, v.NoMethod}
}

// Return ends a function, yielding Operand (nil for a Void-returning
// function).
type Return struct {
	anInstruction
	Operand Value
}

func (v *Return) Operands(rands []*Value) []*Value {
	if v.Operand != nil {
		rands = append(rands, &v.Operand)
	}
	return rands
}
func (v *Return) Successors() []*BasicBlock { return nil }

// Unreachable marks a program point that control flow can never reach
// (e.g. after a call to a `noreturn` function).
type Unreachable struct {
	anInstruction
}

func (v *Unreachable) Operands(rands []*Value) []*Value { return rands }
func (v *Unreachable) Successors() []*BasicBlock        { return nil }

// CondFail traps at runtime if Operand is true; otherwise execution
// continues to the next instruction (it is not a terminator).
type CondFail struct {
	anInstruction
	Operand Value
}

func (v *CondFail) Operands(rands []*Value) []*Value {
	return append(rands, &v.Operand)
}

var (
	_ terminator = (*Jump)(nil)
	_ terminator = (*CondBranch)(nil)
	_ terminator = (*SwitchEnum)(nil)
	_ terminator = (*SwitchEnumAddr)(nil)
	_ terminator = (*SwitchInt)(nil)
	_ terminator = (*DynamicMethodBranch)(nil)
	_ terminator = (*Return)(nil)
	_ terminator = (*Unreachable)(nil)
	_ terminator = (*CheckedCastBranch)(nil)
)
