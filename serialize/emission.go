package serialize

import "github.com/silcore/compiler/ir"

// bodySet decides which defined functions get their blocks written at
// all (spec.md §4.7's emission heuristic): always-on for a transparent
// function (its body must be available to inline across a module
// boundary), for any Shared-linkage function some other function's
// FunctionRef reaches, or for everything when Options.SerializeAll is
// set; then the transitive callee closure of that root set, so a body
// kept for one of those reasons can still call a Private function
// without leaving a dangling reference on read. Every defined function
// outside that closure, whatever its linkage, is written as a
// declaration (spec.md §8's "empty body" case).
func bodySet(mod *ir.Module, opts Options) map[*ir.Function]bool {
	referenced := referencedElsewhere(mod)

	roots := make(map[*ir.Function]bool)
	for _, fn := range mod.Functions {
		if fn.IsDeclaration() {
			continue
		}
		switch {
		case opts.SerializeAll:
			roots[fn] = true
		case fn.Transparent:
			roots[fn] = true
		case fn.Linkage == ir.Shared && referenced[fn]:
			roots[fn] = true
		}
	}

	include := make(map[*ir.Function]bool)
	var visit func(*ir.Function)
	visit = func(fn *ir.Function) {
		if fn == nil || fn.IsDeclaration() || include[fn] {
			return
		}
		include[fn] = true
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if fr, ok := instr.(*ir.FunctionRef); ok {
					visit(fr.Target)
				}
			}
		}
	}
	for fn := range roots {
		visit(fn)
	}
	return include
}

// referencedElsewhere finds every function named by a FunctionRef
// anywhere in the module, a single-hop scan (spec.md §4.7 "a shared
// function whose body is referenced from any other function's code").
func referencedElsewhere(mod *ir.Module) map[*ir.Function]bool {
	refs := make(map[*ir.Function]bool)
	for _, fn := range mod.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if fr, ok := instr.(*ir.FunctionRef); ok && fr.Target != fn {
					refs[fr.Target] = true
				}
			}
		}
	}
	return refs
}
