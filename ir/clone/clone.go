// Package clone produces a type-substituted copy of a generic Function's
// body, the mechanical half of generic specialization (spec.md §4.5):
// given a Function and a *types.Substitution binding every one of its
// GenericParams, it returns a new, non-generic Function whose signature,
// block-argument types, and every instruction's result/operand types have
// had the substitution applied, with all internal value references
// rewired to point at the corresponding clones.
//
// Grounded on ssa/promote.go's rewriting idiom (rewriting a method set's
// receiver-relative field/method references through an explicit
// replacement map) generalized here from "rewrite selector expressions"
// to "rewrite an entire instruction graph under a value map" — the
// clone's valueMap plays the role promote.go's anonFieldPath chain plays
// there: a lookup structure consulted once per reference being rewritten.
package clone

import (
	"fmt"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

// valueMap remembers, for one clone operation, the new Value that
// replaces each original Value.
type valueMap map[ir.Value]ir.Value

// Function returns a specialized copy of fn with subst applied
// throughout. fn must be generic (IsGeneric); the result carries no
// GenericParams and Linkage Shared, matching spec.md §4.5's "specialized
// functions are emitted with shared linkage, keyed by mangled name."
func Function(fn *ir.Function, subst *types.Substitution, ctx *types.Context, mangledName string) *ir.Function {
	if !fn.IsGeneric() {
		panic("clone: Function called on a non-generic function")
	}

	out := &ir.Function{
		Name_:       mangledName,
		Signature:   substFunc(ctx, subst, fn.Signature),
		Linkage:     ir.Shared,
		Transparent: fn.Transparent,
		Bare:        fn.Bare,
		Thunk:       fn.Thunk,
		Fragile:     fn.Fragile,
		Module:      fn.Module,
	}

	vm := make(valueMap)
	blockMap := make(map[*ir.BasicBlock]*ir.BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blockMap[b] = out.NewBlock(b.Name())
	}
	for _, b := range fn.Blocks {
		nb := blockMap[b]
		for _, a := range b.Args {
			na := ir.NewArgument(a.Name(), subst.Apply(ctx, a.Type()))
			nb.Args = append(nb.Args, na)
			vm[a] = na
		}
	}
	for _, b := range fn.Blocks {
		nb := blockMap[b]
		for _, instr := range b.Instrs {
			nb.Emit(cloneInstr(ctx, subst, vm, blockMap, instr))
		}
	}
	for _, b := range fn.Blocks {
		nb := blockMap[b]
		for _, succ := range b.Succs {
			nb.Succs = append(nb.Succs, blockMap[succ])
		}
		for _, pred := range b.Preds {
			nb.Preds = append(nb.Preds, blockMap[pred])
		}
	}
	return out
}

func substFunc(ctx *types.Context, subst *types.Substitution, f *types.Func) *types.Func {
	t := subst.Apply(ctx, f)
	sig, ok := t.(*types.Func)
	if !ok {
		panic("clone: substituting a Func type did not yield a Func")
	}
	return sig
}

// rewire looks up v's clone, falling back to v itself for values that
// originate outside the function being cloned (globals, FunctionRefs to
// other functions, constants folded in by an earlier pass).
func rewire(vm valueMap, v ir.Value) ir.Value {
	if v == nil {
		return nil
	}
	if nv, ok := vm[v]; ok {
		return nv
	}
	return v
}

func rewireBlock(blockMap map[*ir.BasicBlock]*ir.BasicBlock, b *ir.BasicBlock) *ir.BasicBlock {
	if b == nil {
		return nil
	}
	if nb, ok := blockMap[b]; ok {
		return nb
	}
	panic("clone: branch target outside the cloned function")
}

func rewireValues(vm valueMap, vs []ir.Value) []ir.Value {
	if vs == nil {
		return nil
	}
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = rewire(vm, v)
	}
	return out
}

// cloneInstr produces instr's type-substituted, value-rewired copy and
// registers the mapping from instr to it in vm when instr is a Value.
func cloneInstr(ctx *types.Context, subst *types.Substitution, vm valueMap, blockMap map[*ir.BasicBlock]*ir.BasicBlock, instr ir.Instruction) ir.Instruction {
	ty := func(t types.Type) types.Type { return subst.Apply(ctx, t) }

	var out ir.Instruction
	switch v := instr.(type) {
	case *ir.AllocStack:
		out = ir.NewAllocStack(v.Name(), ty(v.Type()))
	case *ir.AllocBox:
		out = ir.NewAllocBox(v.Name(), ty(v.Type()))
	case *ir.AllocRef:
		out = ir.NewAllocRef(v.Name(), ty(v.Type()), v.DynamicLifetime)
	case *ir.AllocRefDynamic:
		out = ir.NewAllocRefDynamic(v.Name(), ty(v.Type()), rewire(vm, v.Metatype))
	case *ir.DeallocStack:
		out = ir.NewDeallocStack(rewire(vm, v.Operand))
	case *ir.DeallocBox:
		out = ir.NewDeallocBox(rewire(vm, v.Operand))
	case *ir.DeallocRef:
		out = ir.NewDeallocRef(rewire(vm, v.Operand))
	case *ir.AllocArray:
		out = ir.NewAllocArray(v.Name(), ty(v.Type()), rewire(vm, v.Count))
	case *ir.DeallocArray:
		out = ir.NewDeallocArray(rewire(vm, v.Operand))
	case *ir.Load:
		out = ir.NewLoad(v.Name(), rewire(vm, v.Addr), ty(v.Type()))
	case *ir.Store:
		out = ir.NewStore(rewire(vm, v.Src), rewire(vm, v.Dest))
	case *ir.Assign:
		out = ir.NewAssign(rewire(vm, v.Src), rewire(vm, v.Dest))
	case *ir.CopyAddr:
		out = ir.NewCopyAddr(rewire(vm, v.Src), rewire(vm, v.Dest), v.TakeSource, v.Initialize)
	case *ir.MarkUninitialized:
		out = ir.NewMarkUninitialized(v.Name(), rewire(vm, v.Operand), v.Kind)
	case *ir.IndexAddr:
		out = ir.NewIndexAddr(v.Name(), rewire(vm, v.Base), rewire(vm, v.Index))
	case *ir.StrongRetain:
		out = ir.NewStrongRetain(rewire(vm, v.Operand))
	case *ir.StrongRelease:
		out = ir.NewStrongRelease(rewire(vm, v.Operand))
	case *ir.RetainValue:
		out = ir.NewRetainValue(rewire(vm, v.Operand))
	case *ir.ReleaseValue:
		out = ir.NewReleaseValue(rewire(vm, v.Operand))
	case *ir.UnownedRetain:
		out = ir.NewUnownedRetain(rewire(vm, v.Operand))
	case *ir.UnownedRelease:
		out = ir.NewUnownedRelease(rewire(vm, v.Operand))
	case *ir.AutoreleaseReturn:
		out = ir.NewAutoreleaseReturn(rewire(vm, v.Operand))
	case *ir.AutoreleaseValue:
		out = ir.NewAutoreleaseValue(rewire(vm, v.Operand))
	case *ir.AutoreleasePoolCall:
		out = ir.NewAutoreleasePoolCall()
	case *ir.FunctionRef:
		out = ir.NewFunctionRef(v.Name(), v.Target)
	case *ir.BuiltinRef:
		out = ir.NewBuiltinRef(v.Name(), v.Symbol, ty(v.Type()))
	case *ir.Apply:
		out = ir.NewApply(v.Name(), rewire(vm, v.Callee), rewireValues(vm, v.Args), composeOrNil(ctx, subst, v.Substitutions), ty(v.Type()))
	case *ir.PartialApply:
		out = ir.NewPartialApply(v.Name(), rewire(vm, v.Callee), rewireValues(vm, v.CapturedArgs), composeOrNil(ctx, subst, v.Substitutions), ty(v.Type()))
	case *ir.TupleInst:
		out = ir.NewTupleInst(v.Name(), rewireValues(vm, v.Elems), ty(v.Type()))
	case *ir.StructInst:
		out = ir.NewStructInst(v.Name(), rewireValues(vm, v.Fields), ty(v.Type()))
	case *ir.EnumInst:
		out = ir.NewEnumInst(v.Name(), v.Case, rewire(vm, v.Payload), ty(v.Type()))
	case *ir.TupleExtract:
		out = ir.NewTupleExtract(v.Name(), rewire(vm, v.Operand), v.Index, ty(v.Type()))
	case *ir.StructExtract:
		out = ir.NewStructExtract(v.Name(), rewire(vm, v.Operand), v.Field, ty(v.Type()))
	case *ir.TupleElementAddr:
		out = ir.NewTupleElementAddr(v.Name(), rewire(vm, v.Operand), v.Index, ty(v.Type()))
	case *ir.StructElementAddr:
		out = ir.NewStructElementAddr(v.Name(), rewire(vm, v.Operand), v.Field, ty(v.Type()))
	case *ir.WitnessMethod:
		out = ir.NewWitnessMethod(v.Name(), rewire(vm, v.Operand), v.Requirement, v.Conformance, ty(v.Type()))
	case *ir.ClassMethod:
		out = ir.NewClassMethod(v.Name(), rewire(vm, v.Operand), v.Selector, ty(v.Type()))
	case *ir.SuperMethod:
		out = ir.NewSuperMethod(v.Name(), rewire(vm, v.Operand), v.Selector, ty(v.Type()))
	case *ir.DynamicMethod:
		out = ir.NewDynamicMethod(v.Name(), rewire(vm, v.Operand), v.Selector, ty(v.Type()))
	case *ir.ProtocolMethod:
		out = ir.NewProtocolMethod(v.Name(), rewire(vm, v.Operand), v.Requirement, ty(v.Type()))
	case *ir.UnconditionalCast:
		out = ir.NewUnconditionalCast(v.Name(), rewire(vm, v.Operand), v.Kind, ty(v.Type()))
	case *ir.CondFail:
		out = ir.NewCondFail(rewire(vm, v.Operand))
	case *ir.CheckedCastBranch:
		out = ir.NewCheckedCastBranch(rewire(vm, v.Operand), v.Kind, rewireBlock(blockMap, v.Success), rewireBlock(blockMap, v.Failure))
	case *ir.Jump:
		out = ir.NewJump(rewireBlock(blockMap, v.Target), rewireValues(vm, v.Args))
	case *ir.CondBranch:
		out = ir.NewCondBranch(rewire(vm, v.Cond), rewireBlock(blockMap, v.Then), rewireBlock(blockMap, v.Else), rewireValues(vm, v.ThenArgs), rewireValues(vm, v.ElseArgs))
	case *ir.SwitchEnum:
		out = ir.NewSwitchEnum(rewire(vm, v.Operand), rewireEnumCases(blockMap, v.Cases), rewireBlock(blockMap, v.Default))
	case *ir.SwitchEnumAddr:
		out = ir.NewSwitchEnumAddr(rewire(vm, v.Operand), rewireEnumCases(blockMap, v.Cases), rewireBlock(blockMap, v.Default))
	case *ir.SwitchInt:
		out = ir.NewSwitchInt(rewire(vm, v.Operand), rewireIntCases(blockMap, v.Cases), rewireBlock(blockMap, v.Default))
	case *ir.DynamicMethodBranch:
		out = ir.NewDynamicMethodBranch(rewire(vm, v.Operand), v.Selector, rewireBlock(blockMap, v.HasMethod), rewireBlock(blockMap, v.NoMethod))
	case *ir.Return:
		out = ir.NewReturn(rewire(vm, v.Operand))
	case *ir.Unreachable:
		out = ir.NewUnreachable()
	default:
		panic(fmt.Sprintf("clone: unhandled instruction type %T", instr))
	}

	if asValue, ok := instr.(ir.Value); ok {
		vm[asValue] = out.(ir.Value)
	}
	return out
}

func rewireEnumCases(blockMap map[*ir.BasicBlock]*ir.BasicBlock, cases []ir.SwitchEnumCase) []ir.SwitchEnumCase {
	out := make([]ir.SwitchEnumCase, len(cases))
	for i, c := range cases {
		out[i] = ir.SwitchEnumCase{Case: c.Case, Dest: rewireBlock(blockMap, c.Dest)}
	}
	return out
}

func rewireIntCases(blockMap map[*ir.BasicBlock]*ir.BasicBlock, cases []ir.SwitchIntCase) []ir.SwitchIntCase {
	out := make([]ir.SwitchIntCase, len(cases))
	for i, c := range cases {
		out[i] = ir.SwitchIntCase{Value: c.Value, Dest: rewireBlock(blockMap, c.Dest)}
	}
	return out
}

// composeOrNil composes a nested generic call's own substitution with the
// outer one being applied by this clone (spec.md §4.5's "substitution
// composition" for a generic call inside a generic function).
func composeOrNil(ctx *types.Context, outer, inner *types.Substitution) *types.Substitution {
	if inner == nil {
		return nil
	}
	return types.Compose(ctx, outer, inner)
}
