// Package passmgr schedules module- and function-transforms over an
// ir.Module exactly per spec.md §4.4's six-step contract: pending
// function-transforms flush whenever a module-transform is encountered,
// a per-invocation change flag gates verification/dump, the whole run
// repeats until a fixed-point or a 20-iteration cap, and a per-module
// pass-count cap can halt execution once the module has reached
// canonical stage.
//
// Grounded on original_source's SILPassManager (lib/SILPasses/PassManager.cpp):
// runOneIteration's flush-pending/run-module/accumulate-pending loop,
// runFunctionPasses's skip-complete-and-empty walk, and run()'s
// do-while-under-cap shape are all carried over directly; only the
// original's separate "CompleteFunctions" analysis object is replaced by
// the Manager's own complete/touched sets, fed by the plain bool each
// transform's Run returns, since ir has no existing invalidation-tracking
// analysis to piggyback on. The dependency
// ordering go/analysis/internal/checker applies to independent analyzers
// has no counterpart here: SPEC_FULL.md's transforms run in the caller-
// supplied list order, unconditionally (§4.4 names no dependency graph).
package passmgr

import (
	"fmt"
	"sort"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/ir/verify"
)

// Stage mirrors a module's optimization stage: the pass-count cap (§4.4
// step 5) only takes effect once a module has reached Canonical.
type Stage int

const (
	Raw Stage = iota
	Canonical
)

// FunctionTransform runs once per non-empty, non-complete function and
// reports whether it changed anything.
type FunctionTransform interface {
	Name() string
	Run(mgr *Manager, fn *ir.Function) bool
}

// ModuleTransform runs once per module-transform step and reports
// whether it changed anything.
type ModuleTransform interface {
	Name() string
	Run(mgr *Manager, mod *ir.Module) bool
}

// Options mirrors spec.md §6's pass-driver configuration surface. Manager
// reads VerifyAll, PrintAll and NumOptPassesToRun; the other fields are
// carried but not read by this package (TimeTransforms emits nothing).
type Options struct {
	SerializeAll          bool
	VerifyAll             bool
	PrintAll              bool
	TimeTransforms        bool
	NumOptPassesToRun     uint
	PrivateDiscriminators bool
}

// ChangeEvent is reported to Dump/Verify hooks whenever a transform
// reports a change, per §4.4 step 3.
type ChangeEvent struct {
	TransformName string
	FunctionName  string // "" for a module-transform
}

// Manager owns one module's transform list, its scheduling state, and
// the analyses transforms share across transform-list resets (§4.4:
// "Analyses are owned by the manager; resetting transforms preserves
// analyses").
type Manager struct {
	Module     *ir.Module
	Transforms []interface{} // each element a FunctionTransform or ModuleTransform
	Options    Options
	Stage      Stage

	// Dump and OnVerifyFailed are invoked when VerifyAll/PrintAll request
	// it; both may be nil. These are the out-of-scope pretty-printer and
	// diagnostic sink collaborators (spec.md §6).
	Dump           func(event ChangeEvent)
	OnVerifyFailed func(event ChangeEvent, errs []*verify.Error)

	numPassesRun     uint
	numIterations    int
	anotherIteration bool
	complete         map[*ir.Function]bool
	touched          map[*ir.Function]bool
	analyses         map[string]interface{}
}

// New returns a Manager scheduling transforms over mod.
func New(mod *ir.Module, opts Options) *Manager {
	return &Manager{
		Module:   mod,
		Options:  opts,
		complete: make(map[*ir.Function]bool),
		touched:  make(map[*ir.Function]bool),
		analyses: make(map[string]interface{}),
	}
}

// Analysis returns the value registered under key, if any.
func (m *Manager) Analysis(key string) (interface{}, bool) {
	v, ok := m.analyses[key]
	return v, ok
}

// SetAnalysis registers value under key, surviving ResetTransforms.
func (m *Manager) SetAnalysis(key string, value interface{}) {
	m.analyses[key] = value
}

// ResetTransforms replaces the manager's transform list and per-run
// scheduling state (iteration count, pass count, completeness) while
// preserving Analyses, per §4.4's ownership split.
func (m *Manager) ResetTransforms(transforms []interface{}) {
	m.Transforms = transforms
	m.numPassesRun = 0
	m.numIterations = 0
	m.anotherIteration = false
	m.complete = make(map[*ir.Function]bool)
	m.touched = make(map[*ir.Function]bool)
}

// capped reports whether the per-module pass-count cap (§4.4 step 5) has
// been reached: only possible once the module is at Canonical stage.
func (m *Manager) capped() bool {
	return m.Stage == Canonical && m.Options.NumOptPassesToRun > 0 && m.numPassesRun >= m.Options.NumOptPassesToRun
}

// orderedFunctions returns the module's functions in a stable order
// (sorted by name) so scheduling is deterministic given the same input
// module, per spec.md §5.
func (m *Manager) orderedFunctions() []*ir.Function {
	names := make([]string, 0, len(m.Module.Functions))
	for name := range m.Module.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	fns := make([]*ir.Function, len(names))
	for i, name := range names {
		fns[i] = m.Module.Functions[name]
	}
	return fns
}

func (m *Manager) onChange(event ChangeEvent, subject interface {
	Verify() []*verify.Error
}) {
	if m.Options.VerifyAll {
		if errs := subject.Verify(); len(errs) > 0 && m.OnVerifyFailed != nil {
			m.OnVerifyFailed(event, errs)
		}
	}
	if m.Options.PrintAll && m.Dump != nil {
		m.Dump(event)
	}
	m.anotherIteration = true
}

type functionVerifier struct{ fn *ir.Function }

func (f functionVerifier) Verify() []*verify.Error { return verify.Function(f.fn) }

type moduleVerifier struct{ mod *ir.Module }

func (mv moduleVerifier) Verify() []*verify.Error {
	var all []*verify.Error
	for _, errs := range verify.Module(mv.mod) {
		all = append(all, errs...)
	}
	return all
}

// runFunctionPasses applies every transform in pending to every non-
// declaration, non-complete function in module order, stopping the
// instant the pass-count cap is reached. It returns false if the cap
// halted it partway through — the caller must not treat the batch as
// having finished (original_source's runFunctionPasses bool return).
func (m *Manager) runFunctionPasses(pending []FunctionTransform) bool {
	for _, fn := range m.orderedFunctions() {
		if fn.IsDeclaration() || m.complete[fn] {
			continue
		}
		for _, t := range pending {
			changed := t.Run(m, fn)
			m.numPassesRun++
			if m.capped() {
				return false
			}
			if changed {
				// A function a transform actually changed stays eligible
				// for another visit in a later iteration, overriding this
				// iteration's blanket completeness marking below.
				m.touched[fn] = true
				m.onChange(ChangeEvent{TransformName: t.Name(), FunctionName: fn.Name()}, functionVerifier{fn})
			}
		}
	}
	return true
}

// runOneIteration implements §4.4 steps 1–3 for a single pass over the
// transform list.
func (m *Manager) runOneIteration() {
	m.numIterations++
	m.touched = make(map[*ir.Function]bool)
	var pending []FunctionTransform

	for _, t := range m.Transforms {
		if m.capped() {
			return
		}
		switch tr := t.(type) {
		case ModuleTransform:
			if !m.runFunctionPasses(pending) {
				return
			}
			pending = nil

			changed := tr.Run(m, m.Module)
			m.numPassesRun++
			if m.capped() {
				return
			}
			if changed {
				m.onChange(ChangeEvent{TransformName: tr.Name()}, moduleVerifier{m.Module})
			}
		case FunctionTransform:
			pending = append(pending, tr)
		default:
			panic(fmt.Sprintf("passmgr: transform %v implements neither FunctionTransform nor ModuleTransform", t))
		}
	}

	if !m.runFunctionPasses(pending) {
		return
	}
	// §4.4 step 6: mark every function untouched by this iteration
	// complete, but only when the cap did not cut the flush short (a
	// transform that changes a function exactly as the cap is reached
	// must not be recorded complete, see DESIGN.md's Open Question
	// decision) and only when nothing touched it this iteration — a
	// function a transform actually changed must stay eligible so the
	// manager can reach a real fixed point rather than one-shotting it.
	for _, fn := range m.orderedFunctions() {
		if !fn.IsDeclaration() && !m.touched[fn] {
			m.complete[fn] = true
		}
	}
}

// iterationLimit is the hard cap on optimization iterations (§4.4 step
// 4), matching original_source's SILPassManager::run.
const iterationLimit = 20

// Run repeats runOneIteration until no transform requested another
// iteration or the iteration cap is reached.
func (m *Manager) Run() {
	for {
		m.anotherIteration = false
		m.runOneIteration()
		if !m.anotherIteration || m.numIterations >= iterationLimit {
			return
		}
	}
}

// NumPassesRun reports the total number of individual transform
// invocations executed so far (diagnostic / test hook).
func (m *Manager) NumPassesRun() uint { return m.numPassesRun }

// NumIterations reports how many times runOneIteration has executed.
func (m *Manager) NumIterations() int { return m.numIterations }
