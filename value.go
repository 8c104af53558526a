package dbus

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

const maxArrayLen = 1 << 26 // 67108864, per spec

// Value is a tagged-union representation of a single D-Bus value. Exactly
// one storage field is meaningful, selected by Kind. Composite kinds box
// their contents so the type remains flat and comparable-by-value for
// leaves.
type Value struct {
	Kind Kind

	byteVal   byte
	boolVal   bool
	int16Val  int16
	uint16Val uint16
	int32Val  int32
	uint32Val uint32 // also carries UNIX_FD
	int64Val  int64
	uint64Val uint64
	doubleVal float64
	strVal    string // STRING, OBJECT_PATH, SIGNATURE

	elemType *Type   // ARRAY's element type
	array    []Value // ARRAY (non dict-entry elements)
	dict     Dict    // ARRAY(DICT_ENTRY(K,V))

	structVal []Value // STRUCT fields

	variantSig Signature
	variantVal *Value
}

// Constructors. Each returns a well-formed leaf or composite Value.

func VByte(b byte) Value        { return Value{Kind: KindByte, byteVal: b} }
func VBool(b bool) Value        { return Value{Kind: KindBoolean, boolVal: b} }
func VInt16(v int16) Value      { return Value{Kind: KindInt16, int16Val: v} }
func VUint16(v uint16) Value    { return Value{Kind: KindUint16, uint16Val: v} }
func VInt32(v int32) Value      { return Value{Kind: KindInt32, int32Val: v} }
func VUint32(v uint32) Value    { return Value{Kind: KindUint32, uint32Val: v} }
func VInt64(v int64) Value      { return Value{Kind: KindInt64, int64Val: v} }
func VUint64(v uint64) Value    { return Value{Kind: KindUint64, uint64Val: v} }
func VDouble(v float64) Value   { return Value{Kind: KindDouble, doubleVal: v} }
func VString(s string) Value    { return Value{Kind: KindString, strVal: s} }
func VObjectPath(p ObjectPath) Value {
	return Value{Kind: KindObjectPath, strVal: string(p)}
}
func VSignature(s Signature) Value { return Value{Kind: KindSignature, strVal: string(s)} }
func VUnixFD(idx uint32) Value     { return Value{Kind: KindUnixFD, uint32Val: idx} }

// VArray builds an ARRAY of non-dict-entry elements.
func VArray(elem Type, vals []Value) Value {
	e := elem
	return Value{Kind: KindArray, elemType: &e, array: vals}
}

// VDict builds an ARRAY(DICT_ENTRY(key,value)).
func VDict(key, value Type, entries Dict) Value {
	e := TDictEntry(key, value)
	return Value{Kind: KindArray, elemType: &e, dict: entries}
}

// VStruct builds a STRUCT of fields.
func VStruct(fields ...Value) Value {
	return Value{Kind: KindStruct, structVal: fields}
}

// VVariant builds a VARIANT wrapping inner, described by sig (which must
// parse to exactly one type).
func VVariant(sig Signature, inner Value) Value {
	v := inner
	return Value{Kind: KindVariant, variantSig: sig, variantVal: &v}
}

// Accessors. Callers that know a Value's Kind (from its Type/Signature)
// use the matching accessor; mismatched accessors return the zero value,
// except ElemType and VariantValue, which panic on a Value that is not an
// ARRAY or a VARIANT respectively.

func (v Value) Byte() byte           { return v.byteVal }
func (v Value) Bool() bool           { return v.boolVal }
func (v Value) Int16() int16         { return v.int16Val }
func (v Value) Uint16() uint16       { return v.uint16Val }
func (v Value) Int32() int32         { return v.int32Val }
func (v Value) Uint32() uint32       { return v.uint32Val }
func (v Value) Int64() int64         { return v.int64Val }
func (v Value) Uint64() uint64       { return v.uint64Val }
func (v Value) Double() float64      { return v.doubleVal }
func (v Value) String() string       { return v.strVal }
func (v Value) ObjectPath() ObjectPath { return ObjectPath(v.strVal) }
func (v Value) Signature() Signature { return Signature(v.strVal) }
func (v Value) UnixFD() uint32       { return v.uint32Val }
func (v Value) ElemType() Type       { return *v.elemType }
func (v Value) Array() []Value       { return v.array }
func (v Value) Dict() Dict           { return v.dict }
func (v Value) Struct() []Value      { return v.structVal }
func (v Value) VariantSignature() Signature { return v.variantSig }
func (v Value) VariantValue() Value  { return *v.variantVal }

// IsDict reports whether an ARRAY Value is a DICT_ENTRY array, i.e.
// should be read through Dict rather than Array.
func (v Value) IsDict() bool {
	return v.Kind == KindArray && v.elemType != nil && v.elemType.Kind == KindDictEntry
}

// --- writer --------------------------------------------------------------

// wireWriter is a []byte-backed, random-access writer: the message and
// value codecs reserve length fields as placeholder zeros and back-patch
// them once the region they describe has been fully written.
type wireWriter struct {
	buf   []byte
	order binary.ByteOrder
}

func newWireWriter(order binary.ByteOrder) *wireWriter {
	return &wireWriter{order: order}
}

func (w *wireWriter) Len() int { return len(w.buf) }

func (w *wireWriter) align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *wireWriter) writeByte(b byte) { w.buf = append(w.buf, b) }

func (w *wireWriter) writeBytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *wireWriter) writeUint16(v uint16) {
	w.align(2)
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *wireWriter) writeUint32(v uint32) {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *wireWriter) writeUint64(v uint64) {
	w.align(8)
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// reserveUint32 aligns, appends a 4-byte placeholder, and returns the
// position to later pass to patchUint32.
func (w *wireWriter) reserveUint32() int {
	w.align(4)
	pos := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	return pos
}

func (w *wireWriter) patchUint32(pos int, v uint32) {
	w.order.PutUint32(w.buf[pos:pos+4], v)
}

func (w *wireWriter) writeString4(s string) {
	w.align(4)
	w.writeUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *wireWriter) writeSignatureBytes(s Signature) {
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// writeValue writes v (whose shape must match t) to w, aligning and
// padding per the wire contract for t's kind.
func writeValue(w *wireWriter, t Type, v Value) error {
	switch t.Kind {
	case KindByte:
		w.writeByte(v.Byte())
	case KindBoolean:
		w.align(4)
		b := uint32(0)
		if v.Bool() {
			b = 1
		}
		w.writeUint32(b)
	case KindInt16:
		w.writeUint16(uint16(v.Int16()))
	case KindUint16:
		w.writeUint16(v.Uint16())
	case KindInt32:
		w.writeUint32(uint32(v.Int32()))
	case KindUint32:
		w.writeUint32(v.Uint32())
	case KindUnixFD:
		w.writeUint32(v.UnixFD())
	case KindInt64:
		w.writeUint64(uint64(v.Int64()))
	case KindUint64:
		w.writeUint64(v.Uint64())
	case KindDouble:
		w.writeUint64(math.Float64bits(v.Double()))
	case KindString:
		w.writeString4(v.String())
	case KindObjectPath:
		w.writeString4(string(v.ObjectPath()))
	case KindSignature:
		if len(v.Signature()) > maxSignatureLen {
			return ErrSignatureTooLong
		}
		w.writeSignatureBytes(v.Signature())
	case KindArray:
		return writeArray(w, *t.Elem, v)
	case KindStruct:
		w.align(8)
		if len(t.Fields) != len(v.Struct()) {
			return ErrInvalidValue
		}
		for i, f := range t.Fields {
			if err := writeValue(w, f, v.Struct()[i]); err != nil {
				return err
			}
		}
	case KindVariant:
		sig := v.VariantSignature()
		if len(sig) > maxSignatureLen {
			return ErrSignatureTooLong
		}
		w.writeSignatureBytes(sig)
		types, err := sig.Parse()
		if err != nil {
			return err
		}
		if len(types) != 1 {
			return &InvalidSignatureError{Signature: string(sig), Reason: "variant signature must describe exactly one type"}
		}
		if err := writeValue(w, types[0], v.VariantValue()); err != nil {
			return err
		}
	default:
		return ErrInvalidValue
	}
	return nil
}

func writeArray(w *wireWriter, elem Type, v Value) error {
	w.align(4)
	lenPos := w.reserveUint32()
	w.align(elem.Alignment())
	start := w.Len()

	if elem.Kind == KindDictEntry {
		for _, e := range v.Dict() {
			w.align(8)
			if err := writeValue(w, *elem.Key, e.Key); err != nil {
				return err
			}
			if err := writeValue(w, *elem.Value, e.Value); err != nil {
				return err
			}
		}
	} else {
		for _, e := range v.Array() {
			if err := writeValue(w, elem, e); err != nil {
				return err
			}
		}
	}

	n := w.Len() - start
	if n > maxArrayLen {
		return ErrArrayTooLong
	}
	w.patchUint32(lenPos, uint32(n))
	return nil
}

// --- reader ----------------------------------------------------------------

// wireReader decodes values out of a single contiguous message buffer.
// pos is an absolute offset from the start of the message, since D-Bus
// alignment is always relative to the start of the message, not to any
// sub-region.
type wireReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func newWireReader(buf []byte, pos int, order binary.ByteOrder) *wireReader {
	return &wireReader{buf: buf, pos: pos, order: order}
}

func (r *wireReader) align(n int) {
	for r.pos%n != 0 {
		r.pos++
	}
}

func (r *wireReader) need(n int) error {
	if len(r.buf)-r.pos < n {
		return ErrBufferUnderrun
	}
	return nil
}

func (r *wireReader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *wireReader) readUint16() (uint16, error) {
	r.align(2)
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *wireReader) readUint32() (uint32, error) {
	r.align(4)
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *wireReader) readUint64() (uint64, error) {
	r.align(8)
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *wireReader) readString4(isObjectPath bool) (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n) + 1); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	if r.buf[r.pos+int(n)] != 0 {
		return "", ErrInvalidValue
	}
	r.pos += int(n) + 1
	if !utf8.ValidString(s) {
		return "", ErrInvalidValue
	}
	if isObjectPath {
		if err := validateObjectPath(ObjectPath(s)); err != nil {
			return "", err
		}
	}
	return s, nil
}

func (r *wireReader) readSignatureBytes() (Signature, error) {
	n, err := r.readByte()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n) + 1); err != nil {
		return "", err
	}
	s := Signature(r.buf[r.pos : r.pos+int(n)])
	if r.buf[r.pos+int(n)] != 0 {
		return "", ErrInvalidValue
	}
	r.pos += int(n) + 1
	return s, nil
}

// readValue decodes one value of type t.
func readValue(r *wireReader, t Type) (Value, error) {
	switch t.Kind {
	case KindByte:
		b, err := r.readByte()
		return VByte(b), err
	case KindBoolean:
		u, err := r.readUint32()
		if err != nil {
			return Value{}, err
		}
		if u != 0 && u != 1 {
			return Value{}, ErrInvalidValue
		}
		return VBool(u == 1), nil
	case KindInt16:
		u, err := r.readUint16()
		return VInt16(int16(u)), err
	case KindUint16:
		u, err := r.readUint16()
		return VUint16(u), err
	case KindInt32:
		u, err := r.readUint32()
		return VInt32(int32(u)), err
	case KindUint32:
		u, err := r.readUint32()
		return VUint32(u), err
	case KindUnixFD:
		u, err := r.readUint32()
		return VUnixFD(u), err
	case KindInt64:
		u, err := r.readUint64()
		return VInt64(int64(u)), err
	case KindUint64:
		u, err := r.readUint64()
		return VUint64(u), err
	case KindDouble:
		u, err := r.readUint64()
		if err != nil {
			return Value{}, err
		}
		return VDouble(math.Float64frombits(u)), nil
	case KindString:
		s, err := r.readString4(false)
		return VString(s), err
	case KindObjectPath:
		s, err := r.readString4(true)
		return VObjectPath(ObjectPath(s)), err
	case KindSignature:
		s, err := r.readSignatureBytes()
		return VSignature(s), err
	case KindArray:
		return readArray(r, *t.Elem)
	case KindStruct:
		r.align(8)
		fields := make([]Value, len(t.Fields))
		for i, f := range t.Fields {
			v, err := readValue(r, f)
			if err != nil {
				return Value{}, err
			}
			fields[i] = v
		}
		return VStruct(fields...), nil
	case KindVariant:
		sig, err := r.readSignatureBytes()
		if err != nil {
			return Value{}, err
		}
		types, err := sig.Parse()
		if err != nil {
			return Value{}, err
		}
		if len(types) != 1 {
			return Value{}, &InvalidSignatureError{Signature: string(sig), Reason: "variant signature must describe exactly one type"}
		}
		inner, err := readValue(r, types[0])
		if err != nil {
			return Value{}, err
		}
		return VVariant(sig, inner), nil
	default:
		return Value{}, ErrInvalidValue
	}
}

func readArray(r *wireReader, elem Type) (Value, error) {
	n, err := r.readUint32()
	if err != nil {
		return Value{}, err
	}
	if n > maxArrayLen {
		return Value{}, ErrArrayTooLong
	}
	r.align(elem.Alignment())
	if err := r.need(int(n)); err != nil {
		return Value{}, err
	}
	end := r.pos + int(n)

	if elem.Kind == KindDictEntry {
		var entries Dict
		for r.pos < end {
			r.align(8)
			k, err := readValue(r, *elem.Key)
			if err != nil {
				return Value{}, err
			}
			v, err := readValue(r, *elem.Value)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, DictEntry{Key: k, Value: v})
		}
		if r.pos != end {
			return Value{}, ErrInvalidValue
		}
		return VDict(*elem.Key, *elem.Value, entries), nil
	}

	var vals []Value
	for r.pos < end {
		v, err := readValue(r, elem)
		if err != nil {
			return Value{}, err
		}
		vals = append(vals, v)
	}
	if r.pos != end {
		return Value{}, ErrInvalidValue
	}
	return VArray(elem, vals), nil
}
