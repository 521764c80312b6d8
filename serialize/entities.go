package serialize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/silcore/compiler/ir"
	"github.com/silcore/compiler/types"
)

func encodeGlobalRecord(w io.Writer, c *instrCodec, g *ir.Global) error {
	if err := encodeType(w, c.types, g.Type()); err != nil {
		return err
	}
	return writeByte(w, byte(g.Linkage))
}

func decodeGlobalRecord(r *bufio.Reader, c *instrCodec, name string) (*ir.Global, error) {
	typ, err := decodeType(r, c.types)
	if err != nil {
		return nil, err
	}
	linkage, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	return &ir.Global{Name_: name, Typ: typ, Linkage: ir.Linkage(linkage)}, nil
}

func encodeVTableRecord(w io.Writer, c *instrCodec, vt *ir.VTable) error {
	if err := writeString(w, vt.Class.Name.String()); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(vt.Class.Kind)); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(vt.Entries))); err != nil {
		return err
	}
	for _, e := range vt.Entries {
		if err := writeString(w, e.Method); err != nil {
			return err
		}
		if err := writeString(w, e.Impl.Name()); err != nil {
			return err
		}
	}
	return nil
}

func decodeVTableRecord(r *bufio.Reader, c *instrCodec) (*ir.VTable, error) {
	className, err := readString(r)
	if err != nil {
		return nil, err
	}
	kind, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	class := c.types.nominals.intern(types.NominalKind(kind), c.types.interner.Intern(className))
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	entries := make([]ir.VTableEntry, n)
	for i := range entries {
		method, err := readString(r)
		if err != nil {
			return nil, err
		}
		implName, err := readString(r)
		if err != nil {
			return nil, err
		}
		impl, err := c.lookupFunction(implName)
		if err != nil {
			return nil, err
		}
		entries[i] = ir.VTableEntry{Method: method, Impl: impl}
	}
	return &ir.VTable{Class: class, Entries: entries}, nil
}

func encodeWitnessTableRecord(w io.Writer, c *instrCodec, wt *ir.WitnessTable) error {
	if err := encodeType(w, c.types, wt.ConformingType); err != nil {
		return err
	}
	if err := writeString(w, wt.Protocol.Name.String()); err != nil {
		return err
	}
	if err := writeByte(w, byte(wt.State)); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(wt.Entries))); err != nil {
		return err
	}
	for _, e := range wt.Entries {
		if err := encodeWitnessEntry(w, c, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeWitnessEntry(w io.Writer, c *instrCodec, e ir.WitnessEntry) error {
	if err := writeUvarint(w, uint64(e.Kind)); err != nil {
		return err
	}
	switch e.Kind {
	case ir.WitnessBaseProtocol:
		if err := writeString(w, e.BaseProtocol.Name.String()); err != nil {
			return err
		}
		return encodeConformance(w, c, e.NestedConformance)
	case ir.WitnessAssociatedType:
		return encodeType(w, c.types, e.AssociatedType)
	case ir.WitnessAssociatedTypeProtocol:
		return writeString(w, e.AssocTypeProtocol.Name.String())
	case ir.WitnessMethodRequirement:
		if err := writeString(w, e.Requirement); err != nil {
			return err
		}
		return writeString(w, e.Impl.Name())
	default:
		return fmt.Errorf("serialize: encodeWitnessEntry: unknown kind %d", e.Kind)
	}
}

func decodeWitnessTableRecord(r *bufio.Reader, c *instrCodec) (*ir.WitnessTable, error) {
	conformingType, err := decodeType(r, c.types)
	if err != nil {
		return nil, err
	}
	protoName, err := readString(r)
	if err != nil {
		return nil, err
	}
	proto := c.types.nominals.intern(types.Protocol, c.types.interner.Intern(protoName))
	stateByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	entries := make([]ir.WitnessEntry, n)
	for i := range entries {
		entries[i], err = decodeWitnessEntry(r, c)
		if err != nil {
			return nil, err
		}
	}
	return &ir.WitnessTable{
		ConformingType: conformingType,
		Protocol:       proto,
		State:          ir.WitnessTableState(stateByte),
		Entries:        entries,
	}, nil
}

func decodeWitnessEntry(r *bufio.Reader, c *instrCodec) (ir.WitnessEntry, error) {
	kind, err := readUvarint(r)
	if err != nil {
		return ir.WitnessEntry{}, err
	}
	switch ir.WitnessEntryKind(kind) {
	case ir.WitnessBaseProtocol:
		protoName, err := readString(r)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		proto := c.types.nominals.intern(types.Protocol, c.types.interner.Intern(protoName))
		nested, err := decodeConformance(r, c)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		return ir.WitnessEntry{Kind: ir.WitnessBaseProtocol, BaseProtocol: proto, NestedConformance: nested}, nil
	case ir.WitnessAssociatedType:
		t, err := decodeType(r, c.types)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		return ir.WitnessEntry{Kind: ir.WitnessAssociatedType, AssociatedType: t}, nil
	case ir.WitnessAssociatedTypeProtocol:
		protoName, err := readString(r)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		proto := c.types.nominals.intern(types.Protocol, c.types.interner.Intern(protoName))
		return ir.WitnessEntry{Kind: ir.WitnessAssociatedTypeProtocol, AssocTypeProtocol: proto}, nil
	case ir.WitnessMethodRequirement:
		requirement, err := readString(r)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		implName, err := readString(r)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		impl, err := c.lookupFunction(implName)
		if err != nil {
			return ir.WitnessEntry{}, err
		}
		return ir.WitnessEntry{Kind: ir.WitnessMethodRequirement, Requirement: requirement, Impl: impl}, nil
	default:
		return ir.WitnessEntry{}, fmt.Errorf("serialize: decodeWitnessEntry: unknown kind %d", kind)
	}
}
