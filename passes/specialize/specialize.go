// Package specialize implements the generic specializer (spec.md §4.5): it
// monomorphizes every apply/partial_apply site whose callee carries a fully
// bound substitution list, cloning one concrete function per distinct
// substitution tuple and rewriting the callsite to target it directly.
//
// Grounded on original_source's GenericSpecializer
// (lib/SILPasses/Utils/Generics.cpp): addApplyInst/collectApplyInst's
// callee-bucketing, specializeApplyInstGroup's per-site interface-
// substitution check and reuse-or-clone decision, and specialize's
// bottom-up-collect/top-down-worklist shape are carried over directly.
// ssa/promote.go's rewriting idiom (a lookup consulted once per use being
// rewritten) informed ir/clone's valueMap, which this pass calls into.
package specialize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/clone"
	"github.com/silcore/compiler/passmgr"
	"github.com/silcore/compiler/types"
)

// Transform is a passmgr.ModuleTransform running the specializer once over
// a module. Specialization can uncover new generic callsites inside the
// clones it creates, so a single Run already iterates its own worklist to a
// local fixed point; passmgr's outer iteration exists for interaction with
// other transforms, not because this one needs repeating on its own.
type Transform struct{}

func (Transform) Name() string { return "generic-specializer" }

func (Transform) Run(mgr *passmgr.Manager, mod *ir.Module) bool {
	return Run(mod)
}

// callSite is one apply/partial_apply instruction whose callee resolves,
// through a function_ref, to a function with a non-empty substitution list.
type callSite struct {
	block  *ir.BasicBlock
	instr  ir.Instruction
	callee *ir.Function
	subst  *types.Substitution
}

// Run specializes every eligible callsite reachable from mod's functions,
// reporting whether anything changed. Exported separately from Transform so
// callers outside a pass-manager-driven pipeline (e.g. a future CLI driver)
// can invoke it directly.
func Run(mod *ir.Module) bool {
	buckets := make(map[*ir.Function][]callSite)
	collectAll(mod, buckets)

	stack := bottomUpOrder(mod, buckets)
	changed := false

	for len(stack) > 0 {
		fn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sites, ok := buckets[fn]
		if !ok || len(sites) == 0 {
			continue
		}
		delete(buckets, fn)

		if specializeGroup(mod, sites, buckets, &stack) {
			changed = true
		}
	}
	return changed
}

// calleeOf reports the statically-known callee and substitution list of a
// generic apply-family instruction, or ok=false if instr is not such a
// call (§4.5 step 1: "whose callee resolves, through a function_ref, to a
// function with substitutions").
func calleeOf(instr ir.Instruction) (callee *ir.Function, subst *types.Substitution, ok bool) {
	switch v := instr.(type) {
	case *ir.Apply:
		fr, isRef := v.Callee.(*ir.FunctionRef)
		if !isRef || v.Substitutions == nil || v.Substitutions.IsEmpty() {
			return nil, nil, false
		}
		return fr.Target, v.Substitutions, true
	case *ir.PartialApply:
		fr, isRef := v.Callee.(*ir.FunctionRef)
		if !isRef || v.Substitutions == nil || v.Substitutions.IsEmpty() {
			return nil, nil, false
		}
		return fr.Target, v.Substitutions, true
	default:
		return nil, nil, false
	}
}

// rewriteCallee splices a fresh function_ref to specialized ahead of instr
// and repoints instr's callee operand at it, dropping the substitution list
// (§4.5 step 2: "rewrite the callsite... dropping the substitution list").
func rewriteCallee(block *ir.BasicBlock, instr ir.Instruction, specialized *ir.Function) {
	ref := ir.NewFunctionRef(specialized.Name()+".ref", specialized)
	block.InsertBefore(instr, ref)
	switch v := instr.(type) {
	case *ir.Apply:
		v.Callee = ref
		v.Substitutions = nil
	case *ir.PartialApply:
		v.Callee = ref
		v.Substitutions = nil
	}
}

func addSite(buckets map[*ir.Function][]callSite, site callSite) {
	buckets[site.callee] = append(buckets[site.callee], site)
}

func collectInto(fn *ir.Function, buckets map[*ir.Function][]callSite) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if callee, subst, ok := calleeOf(instr); ok {
				addSite(buckets, callSite{block: b, instr: instr, callee: callee, subst: subst})
			}
		}
	}
}

func collectAll(mod *ir.Module, buckets map[*ir.Function][]callSite) {
	for _, fn := range sortedFunctions(mod) {
		if fn.IsDeclaration() {
			continue
		}
		collectInto(fn, buckets)
	}
}

func sortedFunctions(mod *ir.Module) []*ir.Function {
	names := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*ir.Function, len(names))
	for i, name := range names {
		out[i] = mod.Functions[name]
	}
	return out
}

// bottomUpOrder returns mod's functions as a callee-before-caller list
// (§4.5 "Input: a bottom-up... function list"), derived from the call
// edges buckets already discovered. Popping this slice from the end, as Run
// does, visits callers before callees — the "worklist in reverse" of §4.5
// step 2 — the same LIFO shape as original_source's
// Worklist.insert(begin(), BotUpFuncList) followed by pop_back().
func bottomUpOrder(mod *ir.Module, buckets map[*ir.Function][]callSite) []*ir.Function {
	edges := make(map[*ir.Function]map[*ir.Function]bool)
	for callee, sites := range buckets {
		for _, s := range sites {
			caller := s.block.Func
			if edges[caller] == nil {
				edges[caller] = make(map[*ir.Function]bool)
			}
			edges[caller][callee] = true
		}
	}

	var order []*ir.Function
	visited := make(map[*ir.Function]bool)
	var visit func(fn *ir.Function)
	visit = func(fn *ir.Function) {
		if visited[fn] {
			return
		}
		visited[fn] = true
		callees := make([]*ir.Function, 0, len(edges[fn]))
		for callee := range edges[fn] {
			callees = append(callees, callee)
		}
		sort.Slice(callees, func(i, j int) bool { return callees[i].Name() < callees[j].Name() })
		for _, callee := range callees {
			visit(callee)
		}
		order = append(order, fn)
	}
	for _, fn := range sortedFunctions(mod) {
		visit(fn)
	}
	return order
}

// unboundCall reports whether subst leaves any of callee's own generic
// parameters unbound — §4.5's "no partial specialization" rule.
func unboundCall(callee *ir.Function, subst *types.Substitution) bool {
	for _, gp := range callee.GenericParams {
		t, ok := subst.Lookup(gp.Depth, gp.Index)
		if !ok || subst.ContainsUnbound(t) {
			return true
		}
	}
	return false
}

// mangle produces a stable, deterministic clone name from callee's identity
// and the substitution's bound types in insertion order (§4.5: "Mangle a
// stable, deterministic clone name"; §5: deterministic given the module).
func mangle(callee *ir.Function, subst *types.Substitution) string {
	var b strings.Builder
	b.WriteString(callee.Name())
	b.WriteString("$spec")
	for _, bind := range subst.Bindings() {
		fmt.Fprintf(&b, "$%d_%d_%s", bind.Depth, bind.Index, sanitize(bind.Type.String()))
	}
	return b.String()
}

func sanitize(s string) string {
	return strings.NewReplacer(" ", "_", "(", "_", ")", "_", ",", "_").Replace(s)
}

// specializeGroup processes every callsite of one callee (§4.5 step 2),
// pushing newly created specializations (and their own re-collected
// callsites) back onto the worklist.
func specializeGroup(mod *ir.Module, sites []callSite, buckets map[*ir.Function][]callSite, stack *[]*ir.Function) bool {
	changed := false
	for _, site := range sites {
		if unboundCall(site.callee, site.subst) {
			continue
		}

		name := mangle(site.callee, site.subst)
		specialized, created := getOrClone(mod, site.callee, site.subst, name)

		rewriteCallee(site.block, site.instr, specialized)
		changed = true

		if created {
			collectInto(specialized, buckets)
			*stack = append(*stack, specialized)
		}
	}
	return changed
}

func getOrClone(mod *ir.Module, callee *ir.Function, subst *types.Substitution, name string) (*ir.Function, bool) {
	if existing, ok := mod.Functions[name]; ok {
		return existing, false
	}
	specialized := clone.Function(callee, subst, mod.Ctx, name)
	mod.Functions[name] = specialized
	return specialized, true
}
