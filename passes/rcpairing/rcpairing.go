// Package rcpairing implements the reference-count pairing dataflow
// (spec.md §4.6): a pair of symmetric visitors classify every instruction's
// effect on a tracked RC root and match each increment to a decrement of
// the same root. Only retains and releases take part in matching; other
// instructions that use the root between them do not prevent a pair. The
// pairs are input for an elimination pass, which this repository does not
// contain.
//
// Grounded on original_source's RCStateTransition.cpp (the four-way
// StrongIncrement/StrongDecrement/StrongEntrance/Unknown classification)
// and RCStateTransitionVisitors.cpp (BottomUpDataflowRCStateVisitor /
// TopDownDataflowRCStateVisitor: per-root pending state, autorelease-pool
// clearing, freeze-epilogue-releases bias). The enclosing per-block
// in/out fixed point is grounded on go/pointer's points-to dataflow idiom
// (worklist over blocks, iterate until no in/out set changes).
package rcpairing

import (
	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/passmgr"
)

// AnalysisKey is the passmgr.Manager.Analysis key Transform registers its
// per-function Result under.
const AnalysisKey = "rcpairing"

// Result bundles both visitors' output for one function.
type Result struct {
	IncToDec map[ir.Instruction]IncDecPair
	DecToInc map[ir.Instruction]DecIncPair
}

// Transform is a passmgr.FunctionTransform that runs both visitors over a
// function and publishes the combined Result as an analysis, in a
// map[*ir.Function]Result, under AnalysisKey. It never mutates the function — pairing
// a retain with a release is a precondition for removing either one, not a
// rewrite in itself — so Run always reports false; the pass exists to make
// its result available to a later elimination pass through the same
// pass-manager run.
type Transform struct {
	FreezeOwnedArgEpilogueReleases bool
}

func (Transform) Name() string { return "rc-pairing" }

func (t Transform) Run(mgr *passmgr.Manager, fn *ir.Function) bool {
	results, _ := mgr.Analysis(AnalysisKey)
	byFunc, _ := results.(map[*ir.Function]Result)
	if byFunc == nil {
		byFunc = make(map[*ir.Function]Result)
	}
	byFunc[fn] = Result{
		IncToDec: BottomUp(fn, BottomUpOptions{FreezeOwnedArgEpilogueReleases: t.FreezeOwnedArgEpilogueReleases}),
		DecToInc: TopDown(fn),
	}
	mgr.SetAnalysis(AnalysisKey, byFunc)
	return false
}

// Kind classifies one instruction's effect on a tracked RC root (§4.6).
type Kind int

const (
	Unknown Kind = iota
	StrongIncrement
	StrongDecrement
	StrongEntrance
)

// classify reports instr's RCStateTransitionKind and the root Value it
// affects, mirroring RCStateTransition.cpp's getRCStateTransitionKind: only
// the strong retain/release family participates; unowned and autorelease
// mutators are deliberately Unknown, matching the original's switch.
func classify(instr ir.Instruction) (Kind, ir.Value) {
	switch v := instr.(type) {
	case *ir.StrongRetain:
		return StrongIncrement, v.Operand
	case *ir.RetainValue:
		return StrongIncrement, v.Operand
	case *ir.StrongRelease:
		return StrongDecrement, v.Operand
	case *ir.ReleaseValue:
		return StrongDecrement, v.Operand
	default:
		return Unknown, nil
	}
}

// rcRoot resolves v to the value whose retain count is actually being
// tracked. The original threads this through an RCIdentityAnalysis that
// looks through copies and casts; no such analysis is modeled here, so
// roots are compared by raw Value identity — documented simplification,
// see DESIGN.md.
func rcRoot(v ir.Value) ir.Value { return v }

// site names where a pending increment came from: a real instruction, or a
// StrongEntrance at function entry (an owned argument, which has no
// instruction of its own).
type site struct {
	instr ir.Instruction
	arg   *ir.Argument
}

func instrSite(i ir.Instruction) site { return site{instr: i} }
func argSite(a *ir.Argument) site     { return site{arg: a} }

// IncDecPair is one matched (increment, decrement) bracket found by the
// bottom-up visitor, keyed by the increment instruction in BottomUp's
// result map.
type IncDecPair struct {
	Root            ir.Value
	Decrement       ir.Instruction
	NestingDetected bool
	KnownSafe       bool
}

// DecIncPair is one matched (decrement, increment) bracket found by the
// top-down visitor, keyed by the decrement instruction in TopDown's result
// map. IncrementArg is set instead of IncrementInstr when the match is a
// StrongEntrance (an owned function argument, not a retain instruction).
type DecIncPair struct {
	Root            ir.Value
	IncrementInstr  ir.Instruction
	IncrementArg    *ir.Argument
	NestingDetected bool
}

// pendingDecrement is the bottom-up visitor's per-root state: a decrement
// awaiting a matching increment found earlier in program order (later in
// the reverse scan).
type pendingDecrement struct {
	decrement ir.Instruction
	nesting   bool
	knownSafe bool
}

// pendingIncrement is the top-down visitor's per-root state: an increment
// (or function-entry StrongEntrance) awaiting a matching decrement found
// later in program order.
type pendingIncrement struct {
	source  site
	nesting bool
}

// isEpilogueRelease approximates "post-dominates the function return" by
// the original's epilogue-release-matcher: a release of an entry argument
// sitting in the function's unique return block. A full post-dominance
// check would need a dominator tree, which ir/verify deliberately does not
// build (see DESIGN.md C7); this proxy covers the common single-exit
// shape spec.md's worked scenarios use.
func isEpilogueRelease(fn *ir.Function, root ir.Value, block *ir.BasicBlock) bool {
	arg, ok := root.(*ir.Argument)
	if !ok {
		return false
	}
	entry := fn.Entry()
	isEntryArg := false
	for _, a := range entry.Args {
		if a == arg {
			isEntryArg = true
			break
		}
	}
	if !isEntryArg {
		return false
	}
	term := block.Terminator()
	_, isReturn := term.(*ir.Return)
	return isReturn
}

// BottomUpOptions configures the bottom-up visitor.
type BottomUpOptions struct {
	// FreezeOwnedArgEpilogueReleases biases releases that look like an
	// owned argument's epilogue cleanup as known-safe and excludes them
	// from pairing (§4.6).
	FreezeOwnedArgEpilogueReleases bool
}

// BottomUp runs the bottom-up visitor over fn to a fixed point across
// blocks, returning every matched (increment -> decrement) pair keyed by
// the increment instruction.
func BottomUp(fn *ir.Function, opts BottomUpOptions) map[ir.Instruction]IncDecPair {
	result := make(map[ir.Instruction]IncDecPair)
	if fn.IsDeclaration() {
		return result
	}

	// out[b] holds the pending-decrement state flowing into the bottom of
	// b from its successors; in[b] is the state after b's own instructions
	// have been scanned in reverse. Propagation direction is backward
	// (successors feed predecessors), so the fixed point is reached by
	// re-deriving out[b] from the current in[] of b's successors each
	// round until nothing changes.
	in := make(map[*ir.BasicBlock]map[ir.Value]pendingDecrement)
	for _, b := range fn.Blocks {
		in[b] = make(map[ir.Value]pendingDecrement)
	}

	cap := len(fn.Blocks) + 1
	for round := 0; round < cap; round++ {
		changed := false
		for _, b := range fn.Blocks {
			out := mergeDecrementStates(b, in)
			scanBottomUp(fn, b, out, opts, result)
			if !decrementStatesEqual(out, in[b]) {
				in[b] = out
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result
}

func mergeDecrementStates(b *ir.BasicBlock, in map[*ir.BasicBlock]map[ir.Value]pendingDecrement) map[ir.Value]pendingDecrement {
	merged := make(map[ir.Value]pendingDecrement)
	for _, s := range b.Succs {
		for root, st := range in[s] {
			if existing, ok := merged[root]; ok {
				existing.nesting = true
				merged[root] = existing
			} else {
				merged[root] = st
			}
		}
	}
	return merged
}

func scanBottomUp(fn *ir.Function, b *ir.BasicBlock, state map[ir.Value]pendingDecrement, opts BottomUpOptions, result map[ir.Instruction]IncDecPair) {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		instr := b.Instrs[i]
		if _, ok := instr.(*ir.AutoreleasePoolCall); ok {
			for k := range state {
				delete(state, k)
			}
			continue
		}

		kind, value := classify(instr)
		if kind == Unknown || value == nil {
			continue
		}
		root := rcRoot(value)

		switch kind {
		case StrongDecrement:
			if opts.FreezeOwnedArgEpilogueReleases && isEpilogueRelease(fn, root, b) {
				continue
			}
			st, nested := state[root]
			st.decrement = instr
			st.nesting = nested
			if opts.FreezeOwnedArgEpilogueReleases {
				st.knownSafe = true
			}
			state[root] = st
		case StrongIncrement:
			if st, ok := state[root]; ok {
				result[instr] = IncDecPair{Root: root, Decrement: st.decrement, NestingDetected: st.nesting, KnownSafe: st.knownSafe}
				delete(state, root)
			}
		}
	}
}

func decrementStatesEqual(a, b map[ir.Value]pendingDecrement) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va.decrement != vb.decrement || va.nesting != vb.nesting {
			return false
		}
	}
	return true
}

// TopDown runs the top-down visitor over fn to a fixed point across
// blocks, returning every matched (decrement -> increment) pair keyed by
// the decrement instruction. Owned entry arguments seed the dataflow as
// StrongEntrance, matching a release with no retain of its own in fn.
func TopDown(fn *ir.Function) map[ir.Instruction]DecIncPair {
	result := make(map[ir.Instruction]DecIncPair)
	if fn.IsDeclaration() {
		return result
	}

	in := make(map[*ir.BasicBlock]map[ir.Value]pendingIncrement)
	for _, b := range fn.Blocks {
		in[b] = make(map[ir.Value]pendingIncrement)
	}

	entry := fn.Entry()
	entranceSeed := make(map[ir.Value]pendingIncrement, len(entry.Args))
	for _, a := range entry.Args {
		entranceSeed[rcRoot(a)] = pendingIncrement{source: argSite(a)}
	}

	cap := len(fn.Blocks) + 1
	for round := 0; round < cap; round++ {
		changed := false
		for _, b := range fn.Blocks {
			var out map[ir.Value]pendingIncrement
			if b == entry {
				out = mergeIncrementStates(b, in, entranceSeed)
			} else {
				out = mergeIncrementStates(b, in, nil)
			}
			scanTopDown(b, out, result)
			if !incrementStatesEqual(out, in[b]) {
				in[b] = out
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result
}

func mergeIncrementStates(b *ir.BasicBlock, in map[*ir.BasicBlock]map[ir.Value]pendingIncrement, seed map[ir.Value]pendingIncrement) map[ir.Value]pendingIncrement {
	merged := make(map[ir.Value]pendingIncrement)
	for root, st := range seed {
		merged[root] = st
	}
	for _, p := range b.Preds {
		for root, st := range in[p] {
			if existing, ok := merged[root]; ok {
				existing.nesting = true
				merged[root] = existing
			} else {
				merged[root] = st
			}
		}
	}
	return merged
}

func scanTopDown(b *ir.BasicBlock, state map[ir.Value]pendingIncrement, result map[ir.Instruction]DecIncPair) {
	for _, instr := range b.Instrs {
		if _, ok := instr.(*ir.AutoreleasePoolCall); ok {
			for k := range state {
				delete(state, k)
			}
			continue
		}

		kind, value := classify(instr)
		if kind == Unknown || value == nil {
			continue
		}
		root := rcRoot(value)

		switch kind {
		case StrongIncrement:
			st, nested := state[root]
			st.source = instrSite(instr)
			st.nesting = nested
			state[root] = st
		case StrongDecrement:
			if st, ok := state[root]; ok {
				result[instr] = DecIncPair{
					Root:            root,
					IncrementInstr:  st.source.instr,
					IncrementArg:    st.source.arg,
					NestingDetected: st.nesting,
				}
				delete(state, root)
			}
		}
	}
}

func incrementStatesEqual(a, b map[ir.Value]pendingIncrement) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va.source != vb.source || va.nesting != vb.nesting {
			return false
		}
	}
	return true
}
