// Package build provides the one sanctioned way to grow an ir.Function's
// body: a cursor over a single current block that assigns deterministic
// register names and enforces each instruction's per-kind invariants at
// emission time (spec.md §3.3, §5's deterministic-numbering requirement)
// rather than deferring every check to ir/verify.
//
// Grounded on ssa/func.go's builder-on-BasicBlock idiom (emit, addEdge)
// generalized here into a standalone cursor, since ir's BasicBlock itself
// stays a passive struct (spec.md keeps construction and representation
// separate so ir/clone and the deserializer can build blocks directly).
package build

import (
	"fmt"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

// Builder grows one Function's body in topological append order: new
// blocks are appended to the function, the cursor selects one as current,
// and Emit* calls append instructions to it.
type Builder struct {
	Fn      *ir.Function
	cur     *ir.BasicBlock
	counter int
}

// New starts a builder over fn, which must not yet have a terminated
// entry block.
func New(fn *ir.Function) *Builder {
	return &Builder{Fn: fn}
}

// Block returns the builder's current insertion block.
func (b *Builder) Block() *ir.BasicBlock { return b.cur }

// SetBlock redirects emission to block, which must belong to b.Fn.
func (b *Builder) SetBlock(block *ir.BasicBlock) {
	if block.Func != b.Fn {
		panic("build: SetBlock with a block from a different function")
	}
	b.cur = block
}

// NewBlock appends a fresh block to b.Fn and returns it without
// redirecting emission to it (call SetBlock to switch).
func (b *Builder) NewBlock(name string) *ir.BasicBlock {
	return b.Fn.NewBlock(name)
}

// name assigns the next deterministic register name (%0, %1, ... in
// declaration order within the function, per spec.md §5).
func (b *Builder) name() string {
	n := fmt.Sprintf("%%%d", b.counter)
	b.counter++
	return n
}

func (b *Builder) requireOpen() {
	if b.cur == nil {
		panic("build: no current block (call SetBlock first)")
	}
	if b.cur.Terminator() != nil {
		panic("build: current block already has a terminator")
	}
}

func (b *Builder) requireType(got, want types.Type, what string) {
	if want == nil {
		return
	}
	if !types.Identical(got, want) {
		panic(fmt.Sprintf("build: %s: operand type %s does not match expected %s", what, got, want))
	}
}

func (b *Builder) emit(instr ir.Instruction) ir.Instruction {
	b.requireOpen()
	b.cur.Emit(instr)
	return instr
}

// emitTerm appends a terminator and wires Preds/Succs on every successor.
func (b *Builder) emitTerm(term interface {
	ir.Instruction
	Successors() []*ir.BasicBlock
}) {
	b.emit(term)
	for _, succ := range term.Successors() {
		if succ == nil {
			continue
		}
		succ.Preds = append(succ.Preds, b.cur)
		b.cur.Succs = append(b.cur.Succs, succ)
	}
}

// --- Allocation / memory ---

func (b *Builder) AllocStack(typ types.Type) *ir.AllocStack {
	i := ir.NewAllocStack(b.name(), typ)
	b.emit(i)
	return i
}

func (b *Builder) DeallocStack(operand ir.Value) {
	if _, ok := operand.(*ir.AllocStack); !ok {
		panic("build: DeallocStack operand must be an AllocStack result")
	}
	b.emit(ir.NewDeallocStack(operand))
}

func (b *Builder) AllocBox(typ types.Type) *ir.AllocBox {
	i := ir.NewAllocBox(b.name(), typ)
	b.emit(i)
	return i
}

func (b *Builder) DeallocBox(operand ir.Value) {
	b.emit(ir.NewDeallocBox(operand))
}

func (b *Builder) AllocRef(typ types.Type, dynamicLifetime bool) *ir.AllocRef {
	i := ir.NewAllocRef(b.name(), typ, dynamicLifetime)
	b.emit(i)
	return i
}

func (b *Builder) AllocRefDynamic(typ types.Type, metatype ir.Value) *ir.AllocRefDynamic {
	i := ir.NewAllocRefDynamic(b.name(), typ, metatype)
	b.emit(i)
	return i
}

func (b *Builder) DeallocRef(operand ir.Value) {
	b.emit(ir.NewDeallocRef(operand))
}

func (b *Builder) AllocArray(typ types.Type, count ir.Value) *ir.AllocArray {
	i := ir.NewAllocArray(b.name(), typ, count)
	b.emit(i)
	return i
}

func (b *Builder) DeallocArray(operand ir.Value) {
	b.emit(ir.NewDeallocArray(operand))
}

func (b *Builder) Load(addr ir.Value, typ types.Type) *ir.Load {
	i := ir.NewLoad(b.name(), addr, typ)
	b.emit(i)
	return i
}

// Store requires src's type to match dest's pointee type exactly; ir has
// no separate pointer-to-T wrapper (addresses are just Value with the
// pointed-to type, per spec.md §3.3), so the check is a straight
// identity comparison.
func (b *Builder) Store(src, dest ir.Value) {
	b.requireType(src.Type(), dest.Type(), "Store")
	b.emit(ir.NewStore(src, dest))
}

func (b *Builder) Assign(src, dest ir.Value) {
	b.requireType(src.Type(), dest.Type(), "Assign")
	b.emit(ir.NewAssign(src, dest))
}

func (b *Builder) CopyAddr(src, dest ir.Value, take, init bool) {
	b.requireType(src.Type(), dest.Type(), "CopyAddr")
	b.emit(ir.NewCopyAddr(src, dest, take, init))
}

func (b *Builder) MarkUninitialized(operand ir.Value, kind ir.MarkUninitializedKind) *ir.MarkUninitialized {
	i := ir.NewMarkUninitialized(b.name(), operand, kind)
	b.emit(i)
	return i
}

func (b *Builder) IndexAddr(base, index ir.Value) *ir.IndexAddr {
	i := ir.NewIndexAddr(b.name(), base, index)
	b.emit(i)
	return i
}

// --- Reference counting ---

func (b *Builder) StrongRetain(operand ir.Value)      { b.emit(ir.NewStrongRetain(operand)) }
func (b *Builder) StrongRelease(operand ir.Value)     { b.emit(ir.NewStrongRelease(operand)) }
func (b *Builder) RetainValue(operand ir.Value)       { b.emit(ir.NewRetainValue(operand)) }
func (b *Builder) ReleaseValue(operand ir.Value)      { b.emit(ir.NewReleaseValue(operand)) }
func (b *Builder) UnownedRetain(operand ir.Value)     { b.emit(ir.NewUnownedRetain(operand)) }
func (b *Builder) UnownedRelease(operand ir.Value)    { b.emit(ir.NewUnownedRelease(operand)) }
func (b *Builder) AutoreleaseReturn(operand ir.Value) { b.emit(ir.NewAutoreleaseReturn(operand)) }
func (b *Builder) AutoreleaseValue(operand ir.Value)  { b.emit(ir.NewAutoreleaseValue(operand)) }
func (b *Builder) AutoreleasePoolCall()               { b.emit(ir.NewAutoreleasePoolCall()) }

// --- Apply family ---

func (b *Builder) FunctionRef(target *ir.Function) *ir.FunctionRef {
	i := ir.NewFunctionRef(b.name(), target)
	b.emit(i)
	return i
}

func (b *Builder) BuiltinRef(builtinName string, typ types.Type) *ir.BuiltinRef {
	i := ir.NewBuiltinRef(b.name(), builtinName, typ)
	b.emit(i)
	return i
}

// Apply requires the callee to carry a *types.Func signature and, absent
// a generic substitution, the argument count to match its declared arity
// (spec.md §4.3's apply-site invariant). Argument types are not compared
// with the parameter types, neither here nor in ir/verify, and with a
// substitution present the argument count is not checked either.
func (b *Builder) Apply(callee ir.Value, args []ir.Value, subst *types.Substitution, resultType types.Type) *ir.Apply {
	sig, ok := callee.Type().(*types.Func)
	if !ok {
		panic("build: Apply callee is not a function type")
	}
	if subst == nil {
		if arity := funcArity(sig); len(args) != arity {
			panic(fmt.Sprintf("build: Apply argument count %d does not match signature arity %d", len(args), arity))
		}
	}
	i := ir.NewApply(b.name(), callee, args, subst, resultType)
	b.emit(i)
	return i
}

// funcArity reports how many arguments sig's Input position accepts: one,
// unless Input is itself a Tuple (spec.md §3.2's tuple-as-argument-list
// encoding for multi-parameter functions).
func funcArity(sig *types.Func) int {
	if tup, ok := sig.Input.(*types.Tuple); ok {
		return len(tup.Fields)
	}
	return 1
}

func (b *Builder) PartialApply(callee ir.Value, captured []ir.Value, subst *types.Substitution, resultType types.Type) *ir.PartialApply {
	i := ir.NewPartialApply(b.name(), callee, captured, subst, resultType)
	b.emit(i)
	return i
}

// --- Aggregation ---

func (b *Builder) TupleInst(elems []ir.Value, typ types.Type) *ir.TupleInst {
	i := ir.NewTupleInst(b.name(), elems, typ)
	b.emit(i)
	return i
}

func (b *Builder) StructInst(fields []ir.Value, typ types.Type) *ir.StructInst {
	i := ir.NewStructInst(b.name(), fields, typ)
	b.emit(i)
	return i
}

func (b *Builder) EnumInst(caseName string, payload ir.Value, typ types.Type) *ir.EnumInst {
	i := ir.NewEnumInst(b.name(), caseName, payload, typ)
	b.emit(i)
	return i
}

func (b *Builder) TupleExtract(operand ir.Value, index int, typ types.Type) *ir.TupleExtract {
	i := ir.NewTupleExtract(b.name(), operand, index, typ)
	b.emit(i)
	return i
}

func (b *Builder) StructExtract(operand ir.Value, field string, typ types.Type) *ir.StructExtract {
	i := ir.NewStructExtract(b.name(), operand, field, typ)
	b.emit(i)
	return i
}

func (b *Builder) TupleElementAddr(operand ir.Value, index int, typ types.Type) *ir.TupleElementAddr {
	i := ir.NewTupleElementAddr(b.name(), operand, index, typ)
	b.emit(i)
	return i
}

func (b *Builder) StructElementAddr(operand ir.Value, field string, typ types.Type) *ir.StructElementAddr {
	i := ir.NewStructElementAddr(b.name(), operand, field, typ)
	b.emit(i)
	return i
}

// --- Method dispatch ---

func (b *Builder) WitnessMethod(operand ir.Value, requirement string, conf ir.Conformance, typ types.Type) *ir.WitnessMethod {
	i := ir.NewWitnessMethod(b.name(), operand, requirement, conf, typ)
	b.emit(i)
	return i
}

func (b *Builder) ClassMethod(operand ir.Value, selector string, typ types.Type) *ir.ClassMethod {
	i := ir.NewClassMethod(b.name(), operand, selector, typ)
	b.emit(i)
	return i
}

func (b *Builder) SuperMethod(operand ir.Value, selector string, typ types.Type) *ir.SuperMethod {
	i := ir.NewSuperMethod(b.name(), operand, selector, typ)
	b.emit(i)
	return i
}

func (b *Builder) DynamicMethod(operand ir.Value, selector string, typ types.Type) *ir.DynamicMethod {
	i := ir.NewDynamicMethod(b.name(), operand, selector, typ)
	b.emit(i)
	return i
}

func (b *Builder) ProtocolMethod(operand ir.Value, requirement string, typ types.Type) *ir.ProtocolMethod {
	i := ir.NewProtocolMethod(b.name(), operand, requirement, typ)
	b.emit(i)
	return i
}

// --- Casts ---

func (b *Builder) UnconditionalCast(operand ir.Value, kind ir.CastKind, resultType types.Type) *ir.UnconditionalCast {
	i := ir.NewUnconditionalCast(b.name(), operand, kind, resultType)
	b.emit(i)
	return i
}

func (b *Builder) CondFail(operand ir.Value) {
	b.emit(ir.NewCondFail(operand))
}

// --- Terminators ---
// Each terminator call closes b.cur: requireOpen panics on a second call
// without an intervening SetBlock, matching ir/verify's single-terminator
// rule (spec.md §4.3) one step earlier, at construction time.

// checkBlockArgs enforces that args' types match target's Args signature
// one-for-one (spec.md §3.3 "block-argument signature match").
func checkBlockArgs(target *ir.BasicBlock, args []ir.Value, what string) {
	if len(args) != len(target.Args) {
		panic(fmt.Sprintf("build: %s: %d args does not match block %s's %d parameters", what, len(args), target.Name(), len(target.Args)))
	}
	for i, a := range args {
		if !types.Identical(a.Type(), target.Args[i].Type()) {
			panic(fmt.Sprintf("build: %s: arg %d type %s does not match block parameter type %s", what, i, a.Type(), target.Args[i].Type()))
		}
	}
}

func (b *Builder) Jump(target *ir.BasicBlock, args []ir.Value) {
	checkBlockArgs(target, args, "Jump")
	b.emitTerm(ir.NewJump(target, args))
}

func (b *Builder) CondBranch(cond ir.Value, then, els *ir.BasicBlock, thenArgs, elseArgs []ir.Value) {
	checkBlockArgs(then, thenArgs, "CondBranch.then")
	checkBlockArgs(els, elseArgs, "CondBranch.else")
	b.emitTerm(ir.NewCondBranch(cond, then, els, thenArgs, elseArgs))
}

func (b *Builder) SwitchEnum(operand ir.Value, cases []ir.SwitchEnumCase, def *ir.BasicBlock) {
	b.emitTerm(ir.NewSwitchEnum(operand, cases, def))
}

func (b *Builder) SwitchEnumAddr(operand ir.Value, cases []ir.SwitchEnumCase, def *ir.BasicBlock) {
	b.emitTerm(ir.NewSwitchEnumAddr(operand, cases, def))
}

func (b *Builder) SwitchInt(operand ir.Value, cases []ir.SwitchIntCase, def *ir.BasicBlock) {
	b.emitTerm(ir.NewSwitchInt(operand, cases, def))
}

func (b *Builder) DynamicMethodBranch(operand ir.Value, selector string, hasMethod, noMethod *ir.BasicBlock) {
	b.emitTerm(ir.NewDynamicMethodBranch(operand, selector, hasMethod, noMethod))
}

func (b *Builder) CheckedCastBranch(operand ir.Value, kind ir.CastKind, success, failure *ir.BasicBlock) {
	b.emitTerm(ir.NewCheckedCastBranch(operand, kind, success, failure))
}

func (b *Builder) Return(operand ir.Value) {
	b.emitTerm(ir.NewReturn(operand))
}

func (b *Builder) Unreachable() {
	b.emitTerm(ir.NewUnreachable())
}
