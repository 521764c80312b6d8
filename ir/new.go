package ir

import "github.com/silcore/compiler/types"

// Constructors below are the only way outside this package (notably
// ir/build, the spec's C7 builder) to produce instructions: register's
// fields are unexported so that Name()/Type() stay immutable after
// construction, matching ssa.go's Register discipline. Each constructor
// takes the SSA name the builder has already assigned (spec.md §5:
// deterministic numbering) and leaves Block() nil until BasicBlock.emit
// installs it.

func newRegister(name string, typ types.Type) register {
	return register{typ: typ, name: name}
}

func NewAllocStack(name string, typ types.Type) *AllocStack {
	return &AllocStack{register: newRegister(name, typ)}
}

func NewDeallocStack(operand Value) *DeallocStack {
	return &DeallocStack{Operand: operand}
}

func NewAllocBox(name string, typ types.Type) *AllocBox {
	return &AllocBox{register: newRegister(name, typ)}
}

func NewDeallocBox(operand Value) *DeallocBox {
	return &DeallocBox{Operand: operand}
}

func NewAllocRef(name string, typ types.Type, dynamicLifetime bool) *AllocRef {
	return &AllocRef{register: newRegister(name, typ), DynamicLifetime: dynamicLifetime}
}

func NewAllocRefDynamic(name string, typ types.Type, metatype Value) *AllocRefDynamic {
	return &AllocRefDynamic{register: newRegister(name, typ), Metatype: metatype}
}

func NewDeallocRef(operand Value) *DeallocRef {
	return &DeallocRef{Operand: operand}
}

func NewAllocArray(name string, typ types.Type, count Value) *AllocArray {
	return &AllocArray{register: newRegister(name, typ), Count: count}
}

func NewDeallocArray(operand Value) *DeallocArray {
	return &DeallocArray{Operand: operand}
}

func NewLoad(name string, addr Value, typ types.Type) *Load {
	return &Load{register: newRegister(name, typ), Addr: addr}
}

func NewStore(src, dest Value) *Store {
	return &Store{Src: src, Dest: dest}
}

func NewAssign(src, dest Value) *Assign {
	return &Assign{Src: src, Dest: dest}
}

func NewCopyAddr(src, dest Value, take, init bool) *CopyAddr {
	return &CopyAddr{Src: src, Dest: dest, TakeSource: take, Initialize: init}
}

func NewMarkUninitialized(name string, operand Value, kind MarkUninitializedKind) *MarkUninitialized {
	return &MarkUninitialized{register: newRegister(name, operand.Type()), Operand: operand, Kind: kind}
}

func NewIndexAddr(name string, base, index Value) *IndexAddr {
	return &IndexAddr{register: newRegister(name, base.Type()), Base: base, Index: index}
}

func NewStrongRetain(operand Value) *StrongRetain { return &StrongRetain{rcMutator{Operand: operand}} }
func NewStrongRelease(operand Value) *StrongRelease {
	return &StrongRelease{rcMutator{Operand: operand}}
}
func NewRetainValue(operand Value) *RetainValue   { return &RetainValue{rcMutator{Operand: operand}} }
func NewReleaseValue(operand Value) *ReleaseValue { return &ReleaseValue{rcMutator{Operand: operand}} }
func NewUnownedRetain(operand Value) *UnownedRetain {
	return &UnownedRetain{rcMutator{Operand: operand}}
}
func NewUnownedRelease(operand Value) *UnownedRelease {
	return &UnownedRelease{rcMutator{Operand: operand}}
}
func NewAutoreleaseReturn(operand Value) *AutoreleaseReturn {
	return &AutoreleaseReturn{rcMutator{Operand: operand}}
}
func NewAutoreleaseValue(operand Value) *AutoreleaseValue {
	return &AutoreleaseValue{rcMutator{Operand: operand}}
}
func NewAutoreleasePoolCall() *AutoreleasePoolCall { return &AutoreleasePoolCall{} }

func NewFunctionRef(name string, target *Function) *FunctionRef {
	return &FunctionRef{register: newRegister(name, target.Signature), Target: target}
}

func NewBuiltinRef(name string, symbol string, typ types.Type) *BuiltinRef {
	return &BuiltinRef{register: newRegister(name, typ), Symbol: symbol}
}

func NewApply(name string, callee Value, args []Value, subst *types.Substitution, resultType types.Type) *Apply {
	return &Apply{register: newRegister(name, resultType), Callee: callee, Args: args, Substitutions: subst}
}

func NewPartialApply(name string, callee Value, captured []Value, subst *types.Substitution, resultType types.Type) *PartialApply {
	return &PartialApply{register: newRegister(name, resultType), Callee: callee, CapturedArgs: captured, Substitutions: subst}
}

func NewTupleInst(name string, elems []Value, typ types.Type) *TupleInst {
	return &TupleInst{register: newRegister(name, typ), Elems: elems}
}

func NewStructInst(name string, fields []Value, typ types.Type) *StructInst {
	return &StructInst{register: newRegister(name, typ), Fields: fields}
}

func NewEnumInst(name, caseName string, payload Value, typ types.Type) *EnumInst {
	return &EnumInst{register: newRegister(name, typ), Case: caseName, Payload: payload}
}

func NewTupleExtract(name string, operand Value, index int, typ types.Type) *TupleExtract {
	return &TupleExtract{register: newRegister(name, typ), Operand: operand, Index: index}
}

func NewStructExtract(name string, operand Value, field string, typ types.Type) *StructExtract {
	return &StructExtract{register: newRegister(name, typ), Operand: operand, Field: field}
}

func NewTupleElementAddr(name string, operand Value, index int, typ types.Type) *TupleElementAddr {
	return &TupleElementAddr{register: newRegister(name, typ), Operand: operand, Index: index}
}

func NewStructElementAddr(name string, operand Value, field string, typ types.Type) *StructElementAddr {
	return &StructElementAddr{register: newRegister(name, typ), Operand: operand, Field: field}
}

func NewWitnessMethod(name string, operand Value, requirement string, conf Conformance, typ types.Type) *WitnessMethod {
	return &WitnessMethod{register: newRegister(name, typ), Operand: operand, Requirement: requirement, Conformance: conf}
}

func NewClassMethod(name string, operand Value, selector string, typ types.Type) *ClassMethod {
	return &ClassMethod{register: newRegister(name, typ), Operand: operand, Selector: selector}
}

func NewSuperMethod(name string, operand Value, selector string, typ types.Type) *SuperMethod {
	return &SuperMethod{register: newRegister(name, typ), Operand: operand, Selector: selector}
}

func NewDynamicMethod(name string, operand Value, selector string, typ types.Type) *DynamicMethod {
	return &DynamicMethod{register: newRegister(name, typ), Operand: operand, Selector: selector}
}

func NewProtocolMethod(name string, operand Value, requirement string, typ types.Type) *ProtocolMethod {
	return &ProtocolMethod{register: newRegister(name, typ), Operand: operand, Requirement: requirement}
}

func NewUnconditionalCast(name string, operand Value, kind CastKind, resultType types.Type) *UnconditionalCast {
	return &UnconditionalCast{register: newRegister(name, resultType), Operand: operand, Kind: kind}
}

func NewCheckedCastBranch(operand Value, kind CastKind, success, failure *BasicBlock) *CheckedCastBranch {
	return &CheckedCastBranch{Operand: operand, Kind: kind, Success: success, Failure: failure}
}

func NewJump(target *BasicBlock, args []Value) *Jump {
	return &Jump{Target: target, Args: args}
}

func NewCondBranch(cond Value, then, els *BasicBlock, thenArgs, elseArgs []Value) *CondBranch {
	return &CondBranch{Cond: cond, Then: then, Else: els, ThenArgs: thenArgs, ElseArgs: elseArgs}
}

func NewSwitchEnum(operand Value, cases []SwitchEnumCase, def *BasicBlock) *SwitchEnum {
	return &SwitchEnum{Operand: operand, Cases: cases, Default: def}
}

func NewSwitchEnumAddr(operand Value, cases []SwitchEnumCase, def *BasicBlock) *SwitchEnumAddr {
	return &SwitchEnumAddr{Operand: operand, Cases: cases, Default: def}
}

func NewSwitchInt(operand Value, cases []SwitchIntCase, def *BasicBlock) *SwitchInt {
	return &SwitchInt{Operand: operand, Cases: cases, Default: def}
}

func NewDynamicMethodBranch(operand Value, selector string, hasMethod, noMethod *BasicBlock) *DynamicMethodBranch {
	return &DynamicMethodBranch{Operand: operand, Selector: selector, HasMethod: hasMethod, NoMethod: noMethod}
}

func NewReturn(operand Value) *Return { return &Return{Operand: operand} }

func NewUnreachable() *Unreachable { return &Unreachable{} }

func NewCondFail(operand Value) *CondFail { return &CondFail{Operand: operand} }
