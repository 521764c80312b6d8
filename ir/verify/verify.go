// Package verify checks a Function's or Module's structural invariants
// after construction or transformation (spec.md §4.3, §8's universal
// invariants), grounded on go/ssa's sanity.go: a single accumulating
// checker walks blocks and instructions, collecting every violation
// rather than stopping at the first (so a pass's bug report shows the
// whole picture at once).
package verify

import (
	"fmt"

	"github.com/silcore/compiler/ir"
)

// Error is one violation found while checking a function.
type Error struct {
	Func    string
	Block   string
	Message string
}

func (e *Error) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("verify: function %s, block %s: %s", e.Func, e.Block, e.Message)
	}
	return fmt.Sprintf("verify: function %s: %s", e.Func, e.Message)
}

type checker struct {
	fn     *ir.Function
	block  *ir.BasicBlock
	errs   []*Error
	instrs map[ir.Instruction]bool
}

func (c *checker) errorf(format string, args ...interface{}) {
	blockName := ""
	if c.block != nil {
		blockName = c.block.Name()
	}
	c.errs = append(c.errs, &Error{Func: c.fn.Name(), Block: blockName, Message: fmt.Sprintf(format, args...)})
}

// Function checks fn and returns every violation found. A declaration
// (no blocks) is always valid.
func Function(fn *ir.Function) []*Error {
	if fn.IsDeclaration() {
		return nil
	}
	c := &checker{fn: fn, instrs: make(map[ir.Instruction]bool)}
	for _, b := range fn.Blocks {
		c.checkBlock(b)
	}
	return c.errs
}

// checkBlock enforces the single-terminator rule and CFG edge symmetry
// (spec.md §3.3 "ends in exactly one terminator") for block b.
func (c *checker) checkBlock(b *ir.BasicBlock) {
	c.block = b
	defer func() { c.block = nil }()

	if len(b.Instrs) == 0 {
		c.errorf("block has no instructions")
		return
	}
	for i, instr := range b.Instrs[:len(b.Instrs)-1] {
		if isTerminator(instr) {
			c.errorf("non-final instruction %d (%T) is a terminator", i, instr)
		}
	}
	if last := b.Instrs[len(b.Instrs)-1]; !isTerminator(last) {
		c.errorf("block does not end in a terminator (last instruction %T)", last)
	}

	for _, instr := range b.Instrs {
		if c.instrs[instr] {
			c.errorf("instruction appears more than once in the function")
		}
		c.instrs[instr] = true
		if instr.Block() != b {
			c.errorf("instruction's Block() does not point back to its containing block")
		}
		c.checkOperands(instr)
	}

	c.checkEdgeSymmetry(b)
	c.checkDominance(b)
}

// checkOperands verifies every operand Value is non-nil. It does not check
// where an operand is defined: a use before its definition, or a use in a
// block the definition does not dominate, is not reported.
func (c *checker) checkOperands(instr ir.Instruction) {
	var rands []*ir.Value
	rands = instr.Operands(rands)
	for i, r := range rands {
		if r == nil || *r == nil {
			c.errorf("operand %d of %T is nil", i, instr)
		}
	}
}

// checkEdgeSymmetry requires every successor to list b as a predecessor
// and vice versa (go/ssa sanity.go's addEdge invariant, generalized to
// ir's explicit Preds/Succs slices).
func (c *checker) checkEdgeSymmetry(b *ir.BasicBlock) {
	for _, succ := range b.Succs {
		if !containsBlock(succ.Preds, b) {
			c.errorf("successor %s does not list this block as a predecessor", succ.Name())
		}
	}
	for _, pred := range b.Preds {
		if !containsBlock(pred.Succs, b) {
			c.errorf("predecessor %s does not list this block as a successor", pred.Name())
		}
	}
}

func containsBlock(blocks []*ir.BasicBlock, target *ir.BasicBlock) bool {
	for _, b := range blocks {
		if b == target {
			return true
		}
	}
	return false
}

// checkDominance checks only the entry-block cases spec.md §8 calls out:
// the entry block has no predecessors, and every other block has at least
// one. No dominator tree is computed, so whether definitions dominate
// their uses is not checked.
func (c *checker) checkDominance(b *ir.BasicBlock) {
	if b == b.Func.Entry() {
		if len(b.Preds) != 0 {
			c.errorf("entry block has predecessors")
		}
		return
	}
	if len(b.Preds) == 0 {
		c.errorf("non-entry block %s is unreachable (no predecessors)", b.Name())
	}
}

func isTerminator(instr ir.Instruction) bool {
	_, ok := instr.(interface{ Successors() []*ir.BasicBlock })
	return ok
}

// Module checks every function in m and returns a map from function name
// to its violations, omitting functions with none. Type-list uniqueness
// (spec.md §3.3) is guaranteed by Module.UniqueTypeList's own map-backed
// cache and needs no separate check here.
func Module(m *ir.Module) map[string][]*Error {
	out := make(map[string][]*Error)
	for name, fn := range m.Functions {
		if errs := Function(fn); len(errs) > 0 {
			out[name] = errs
		}
	}
	return out
}
