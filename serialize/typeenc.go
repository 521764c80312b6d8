package serialize

import (
	"bufio"
	"fmt"
	"io"

	"github.com/silcore/compiler/ident"
	"github.com/silcore/compiler/types"
)

// typeTag discriminates a serialized Type's shape. Values are chosen from
// the IR-specific abbreviation range (see abbrev.go) so a reader
// sharing one stream with AST-level codes (out of this package's scope)
// would never collide with them.
type typeTag uint8

const (
	tagNominal typeTag = iota + irCodeBase
	tagBoundGeneric
	tagTuple
	tagFunc
	tagMetatype
	tagComposition
	tagArchetype
	tagRefStorage
	tagOptional
	tagErrorSentinel
)

// nominalTable interns Nominal types by declared name for one
// (de)serialization session. The original keys a Nominal's identity on
// its owning AST decl, which lives in an arena this package does not
// serialize (out of scope — spec.md's Non-goals exclude cross-process
// incremental servers, and with them any requirement to round-trip decl
// arena identity). Within one module file, two references to a type named
// "Foo" resolve to the same *types.Nominal; across different module files
// they do not, which is sufficient for the round-trip law (§8) this
// format exists to support.
type nominalTable struct {
	byName map[string]*types.Nominal
}

func newNominalTable() *nominalTable { return &nominalTable{byName: make(map[string]*types.Nominal)} }

func (t *nominalTable) intern(kind types.NominalKind, name ident.ID) *types.Nominal {
	key := name.String()
	if n, ok := t.byName[key]; ok {
		return n
	}
	n := &types.Nominal{Kind: kind, Name: name}
	t.byName[key] = n
	return n
}

// typeCodec bundles what encodeType/decodeType need: the canonicalizing
// context, the interner that recovers ident.ID from a name, and this
// session's nominal table.
type typeCodec struct {
	ctx      *types.Context
	interner *ident.Interner
	nominals *nominalTable
}

func encodeType(w io.Writer, c *typeCodec, t types.Type) error {
	switch v := t.(type) {
	case *types.Nominal:
		if err := writeByte(w, byte(tagNominal)); err != nil {
			return err
		}
		if err := writeByte(w, byte(v.Kind)); err != nil {
			return err
		}
		return writeString(w, v.Name.String())

	case *types.BoundGenericNominal:
		if err := writeByte(w, byte(tagBoundGeneric)); err != nil {
			return err
		}
		if err := encodeType(w, c, v.Base); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(len(v.Args))); err != nil {
			return err
		}
		for _, a := range v.Args {
			if err := encodeType(w, c, a); err != nil {
				return err
			}
		}
		return nil

	case *types.Tuple:
		if err := writeByte(w, byte(tagTuple)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(len(v.Fields))); err != nil {
			return err
		}
		for _, f := range v.Fields {
			if err := writeString(w, f.Label); err != nil {
				return err
			}
			if err := writeBool(w, f.Variadic); err != nil {
				return err
			}
			if err := encodeType(w, c, f.Type); err != nil {
				return err
			}
		}
		return nil

	case *types.Func:
		if err := writeByte(w, byte(tagFunc)); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(v.Attrs)); err != nil {
			return err
		}
		if err := encodeType(w, c, v.Input); err != nil {
			return err
		}
		return encodeType(w, c, v.Result)

	case *types.Metatype:
		if err := writeByte(w, byte(tagMetatype)); err != nil {
			return err
		}
		return encodeType(w, c, v.Instance)

	case *types.ProtocolComposition:
		if err := writeByte(w, byte(tagComposition)); err != nil {
			return err
		}
		hasSuper := v.Superclass != nil
		if err := writeBool(w, hasSuper); err != nil {
			return err
		}
		if hasSuper {
			if err := encodeType(w, c, v.Superclass); err != nil {
				return err
			}
		}
		if err := writeUvarint(w, uint64(len(v.Protocols))); err != nil {
			return err
		}
		for _, p := range v.Protocols {
			if err := encodeType(w, c, p); err != nil {
				return err
			}
		}
		return nil

	case *types.Archetype:
		if err := writeByte(w, byte(tagArchetype)); err != nil {
			return err
		}
		if err := writeString(w, v.Name.String()); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(v.ParamDepth)); err != nil {
			return err
		}
		return writeUvarint(w, uint64(v.ParamIndex))

	case *types.ReferenceStorage:
		if err := writeByte(w, byte(tagRefStorage)); err != nil {
			return err
		}
		if err := writeByte(w, byte(v.Kind)); err != nil {
			return err
		}
		return encodeType(w, c, v.Referent)

	case *types.Optional:
		if err := writeByte(w, byte(tagOptional)); err != nil {
			return err
		}
		return encodeType(w, c, v.Wrapped)

	case *types.ErrorSentinel:
		return writeByte(w, byte(tagErrorSentinel))

	default:
		return fmt.Errorf("serialize: encodeType: unsupported type %T", t)
	}
}

func decodeType(r *bufio.Reader, c *typeCodec) (types.Type, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch typeTag(tag) {
	case tagNominal:
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return c.nominals.intern(types.NominalKind(kindByte), c.interner.Intern(name)), nil

	case tagBoundGeneric:
		base, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		args := make([]types.Type, n)
		for i := range args {
			args[i], err = decodeType(r, c)
			if err != nil {
				return nil, err
			}
		}
		nominal, ok := base.(*types.Nominal)
		if !ok {
			return nil, fmt.Errorf("serialize: bound-generic base is not a Nominal")
		}
		return c.ctx.BoundGeneric(nominal, args), nil

	case tagTuple:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		fields := make([]types.TupleField, n)
		for i := range fields {
			label, err := readString(r)
			if err != nil {
				return nil, err
			}
			variadic, err := readBool(r)
			if err != nil {
				return nil, err
			}
			ft, err := decodeType(r, c)
			if err != nil {
				return nil, err
			}
			fields[i] = types.TupleField{Label: label, Variadic: variadic, Type: ft}
		}
		return c.ctx.Tuple(fields), nil

	case tagFunc:
		attrs, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		input, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		result, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		return c.ctx.Func(input, result, types.FuncAttr(attrs)), nil

	case tagMetatype:
		inst, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		return c.ctx.Metatype(inst), nil

	case tagComposition:
		hasSuper, err := readBool(r)
		if err != nil {
			return nil, err
		}
		var super *types.Nominal
		if hasSuper {
			t, err := decodeType(r, c)
			if err != nil {
				return nil, err
			}
			super = t.(*types.Nominal)
		}
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		protos := make([]*types.Nominal, n)
		for i := range protos {
			t, err := decodeType(r, c)
			if err != nil {
				return nil, err
			}
			protos[i] = t.(*types.Nominal)
		}
		return c.ctx.Composition(protos, super), nil

	case tagArchetype:
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
		return &types.Archetype{Name: c.interner.Intern(name), ParamDepth: int(depth), ParamIndex: int(index)}, nil

	case tagRefStorage:
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		referent, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		return c.ctx.ReferenceStorage(types.RefStorageKind(kindByte), referent), nil

	case tagOptional:
		wrapped, err := decodeType(r, c)
		if err != nil {
			return nil, err
		}
		return c.ctx.Optional(wrapped), nil

	case tagErrorSentinel:
		return c.ctx.ErrorType(), nil

	default:
		return nil, fmt.Errorf("serialize: decodeType: unknown type tag %d", tag)
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
