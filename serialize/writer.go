package serialize

import (
	"bytes"
	"io"
	"sort"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/ir"
)

// Options configures WriteModule.
type Options struct {
	ModuleVersion ModuleVersion

	// SerializeAll forces every defined function's body to be written
	// regardless of linkage, overriding the emission heuristic
	// (emission.go) — for a whole-module snapshot (e.g. between
	// optimizer passes) where every body must round-trip, not just the
	// ones another module could call across a boundary.
	SerializeAll bool
}

// WriteModule writes mod to w in this package's container format
// (spec.md §4.7): a SIL block of length-prefixed function/global/vtable/
// witness-table records, followed by a SIL-index block of four name ->
// offset tables, one per kind.
func WriteModule(w io.Writer, mod *ir.Module, opts Options) error {
	if err := writeHeader(w, opts.ModuleVersion); err != nil {
		return err
	}

	c := &instrCodec{
		mod: mod,
		types: &typeCodec{
			ctx:      mod.Ctx,
			interner: ident.NewInterner(),
			nominals: newNominalTable(),
		},
	}

	include := bodySet(mod, opts)

	var sil bytes.Buffer
	funcTable := newDeclTable()
	for _, name := range sortedKeys(mod.Functions) {
		fn := mod.Functions[name]
		offset := int64(sil.Len())
		if err := writeLengthPrefixed(&sil, func(buf *bytes.Buffer) error {
			return encodeFunctionRecord(buf, c, fn, include[fn])
		}); err != nil {
			return err
		}
		funcTable.add(name, offset)
	}

	globalTable := newDeclTable()
	for _, name := range sortedKeys(mod.Globals) {
		g := mod.Globals[name]
		offset := int64(sil.Len())
		if err := writeLengthPrefixed(&sil, func(buf *bytes.Buffer) error {
			return encodeGlobalRecord(buf, c, g)
		}); err != nil {
			return err
		}
		globalTable.add(name, offset)
	}

	vtableTable := newDeclTable()
	for _, name := range sortedKeys(mod.VTables) {
		vt := mod.VTables[name]
		offset := int64(sil.Len())
		if err := writeLengthPrefixed(&sil, func(buf *bytes.Buffer) error {
			return encodeVTableRecord(buf, c, vt)
		}); err != nil {
			return err
		}
		vtableTable.add(name, offset)
	}

	witnessTable := newDeclTable()
	for _, key := range sortedKeys(mod.WitnessTables) {
		wt := mod.WitnessTables[key]
		offset := int64(sil.Len())
		if err := writeLengthPrefixed(&sil, func(buf *bytes.Buffer) error {
			return encodeWitnessTableRecord(buf, c, wt)
		}); err != nil {
			return err
		}
		witnessTable.add(key, offset)
	}

	if err := writeBlock(w, silBlockTag, sil.Bytes()); err != nil {
		return err
	}

	var idx bytes.Buffer
	if err := funcTable.write(&idx); err != nil {
		return err
	}
	if err := globalTable.write(&idx); err != nil {
		return err
	}
	if err := vtableTable.write(&idx); err != nil {
		return err
	}
	if err := witnessTable.write(&idx); err != nil {
		return err
	}
	return writeBlock(w, silIndexBlock, idx.Bytes())
}

func writeBlock(w io.Writer, tag blockTag, payload []byte) error {
	if err := writeByte(w, byte(tag)); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// writeLengthPrefixed buffers fn's output and writes it to w prefixed
// with its byte length, so a reader can skip the record (or, nested
// inside a function record, its body) without parsing it.
func writeLengthPrefixed(w io.Writer, fn func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(buf.Len())); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// encodeFunctionRecord writes a function's declaration header eagerly
// (signature, linkage, flags, generic parameters — always cheap, always
// needed by anything referencing fn) followed by its block list, length-
// prefixed so a declaration-only read (reader.go) can skip straight past
// it. includeBody false writes a zero-block body, the emission
// heuristic's declaration-only demotion (spec.md §8).
func encodeFunctionRecord(w *bytes.Buffer, c *instrCodec, fn *ir.Function, includeBody bool) error {
	if err := encodeType(w, c.types, fn.Signature); err != nil {
		return err
	}
	if err := writeByte(w, byte(fn.Linkage)); err != nil {
		return err
	}
	if err := writeBool(w, fn.Transparent); err != nil {
		return err
	}
	if err := writeBool(w, fn.Bare); err != nil {
		return err
	}
	if err := writeBool(w, fn.Thunk); err != nil {
		return err
	}
	if err := writeBool(w, fn.Fragile); err != nil {
		return err
	}
	if err := encodeGenericParams(w, fn.GenericParams); err != nil {
		return err
	}
	return writeLengthPrefixed(w, func(buf *bytes.Buffer) error {
		return encodeFunctionBlocks(buf, c, fn, includeBody)
	})
}

// sortedKeys returns m's keys in sorted order (spec.md §5: deterministic
// emission order, independent of Go's randomized map iteration).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
