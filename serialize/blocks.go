package serialize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/silcore/compiler/ir"
)

// blockIndex resolves a *ir.BasicBlock to and from its position in a
// function's Blocks slice. Terminator targets (Jump, CondBranch,
// SwitchInt/Enum(Addr), DynamicMethodBranch, CheckedCastBranch) are
// always written and read as this index rather than going through
// valueRef's local-id/placeholder machinery: every block a function body
// can name is created up front, before any instruction record is
// decoded (see decodeFunctionBlocks), so a block target is never a true
// forward reference the way an as-yet-undefined local value is.
type blockIndex struct {
	byBlock map[*ir.BasicBlock]int
	byIndex []*ir.BasicBlock
}

func newBlockIndexFromSlice(blocks []*ir.BasicBlock) *blockIndex {
	bi := &blockIndex{byBlock: make(map[*ir.BasicBlock]int, len(blocks)), byIndex: blocks}
	for i, b := range blocks {
		bi.byBlock[b] = i
	}
	return bi
}

func (bi *blockIndex) indexOf(b *ir.BasicBlock) int {
	idx, ok := bi.byBlock[b]
	if !ok {
		panic("serialize: block not part of the function being serialized")
	}
	return idx
}

func (bi *blockIndex) at(idx int) *ir.BasicBlock {
	if idx < 0 || idx >= len(bi.byIndex) {
		panic(fmt.Sprintf("serialize: block index %d out of range", idx))
	}
	return bi.byIndex[idx]
}

// encodeGenericParams writes fn's context generic-parameter list, part
// of a function record's eagerly-read declaration header (spec.md §3.3
// "optional context generic-parameter list") — present whether or not a
// body follows, since a declaration can still be generic.
func encodeGenericParams(w io.Writer, params []ir.GenericParam) error {
	if err := writeUvarint(w, uint64(len(params))); err != nil {
		return err
	}
	for _, gp := range params {
		if err := writeString(w, gp.Name); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(gp.Depth)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(gp.Index)); err != nil {
			return err
		}
	}
	return nil
}

func decodeGenericParams(r *bufio.Reader) ([]ir.GenericParam, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	params := make([]ir.GenericParam, n)
	for i := range params {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		depth, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		index, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		params[i] = ir.GenericParam{Name: name, Depth: int(depth), Index: int(index)}
	}
	return params, nil
}

// encodeFunctionBlocks writes fn's blocks in two passes: first every
// block's name and argument list (so every block and argument value is
// addressable before any instruction is written), then each block's
// instruction count and instruction records in order (spec.md §4.7 "a
// function body is a sequence of basic-block records, each a name, an
// argument list, and its instructions").
//
// includeBody controls whether fn's actual block list is written or
// elided: a zero-block body is how this format spells a declaration
// (spec.md §8 "empty function bodies deserialize to declarations"), so
// the emission heuristic (emission.go) demotes a function to a
// declaration simply by passing includeBody=false here. The caller
// (writer.go) wraps this call's output with a byte length so the reader
// can skip straight past it without parsing when only the declaration
// is wanted (cache.go).
func encodeFunctionBlocks(w io.Writer, c *instrCodec, fn *ir.Function, includeBody bool) error {
	blocks_ := fn.Blocks
	if !includeBody {
		blocks_ = nil
	}

	if err := writeUvarint(w, uint64(len(blocks_))); err != nil {
		return err
	}

	e := newEncodeIDs()
	blocks := newBlockIndexFromSlice(blocks_)

	for _, b := range blocks_ {
		if err := writeString(w, b.Name()); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(len(b.Args))); err != nil {
			return err
		}
		for _, a := range b.Args {
			e.assign(a)
			if err := encodeType(w, c.types, a.Type()); err != nil {
				return err
			}
		}
	}

	for _, b := range blocks_ {
		if err := writeUvarint(w, uint64(len(b.Instrs))); err != nil {
			return err
		}
		for _, instr := range b.Instrs {
			if err := encodeInstruction(w, c, e, blocks, instr); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeFunctionBlocks mirrors encodeFunctionBlocks's two-pass block
// framing: every block and its arguments are created and assigned local
// ids before any instruction record is read, so a Jump/CondBranch/Switch*
// target or a use of a block argument is always already resolvable. fn's
// GenericParams must already be set (decodeGenericParams, read from the
// declaration header ahead of this call — see reader.go).
func decodeFunctionBlocks(r *bufio.Reader, c *instrCodec, fn *ir.Function) error {
	blockCount, err := readUvarint(r)
	if err != nil {
		return err
	}

	d := newDecodeIDs(c.mod)
	nextID := 0
	allocID := func() int {
		id := nextID
		nextID++
		return id
	}

	createdBlocks := make([]*ir.BasicBlock, blockCount)
	for i := range createdBlocks {
		name, err := readString(r)
		if err != nil {
			return err
		}
		b := fn.NewBlock(name)
		argCount, err := readUvarint(r)
		if err != nil {
			return err
		}
		for j := uint64(0); j < argCount; j++ {
			typ, err := decodeType(r, c.types)
			if err != nil {
				return err
			}
			id := allocID()
			arg := ir.NewArgument(localName(id), typ)
			b.Args = append(b.Args, arg)
			d.define(id, arg)
		}
		createdBlocks[i] = b
	}

	blocks := newBlockIndexFromSlice(createdBlocks)

	for _, b := range createdBlocks {
		instrCount, err := readUvarint(r)
		if err != nil {
			return err
		}
		for j := uint64(0); j < instrCount; j++ {
			instr, err := decodeInstruction(r, c, d, blocks, allocID)
			if err != nil {
				return err
			}
			b.Emit(instr)
		}
	}

	return d.finish()
}
