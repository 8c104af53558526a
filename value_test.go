package dbus

import (
	"encoding/binary"

	. "gopkg.in/check.v1"
)

func roundTrip(c *C, t Type, v Value) Value {
	w := newWireWriter(binary.LittleEndian)
	err := writeValue(w, t, v)
	c.Assert(err, IsNil)

	r := newWireReader(w.buf, 0, binary.LittleEndian)
	got, err := readValue(r, t)
	c.Assert(err, IsNil)
	c.Check(r.pos, Equals, len(w.buf))
	return got
}

func (s *S) TestRoundTripScalars(c *C) {
	c.Check(roundTrip(c, TByte, VByte(42)).Byte(), Equals, byte(42))
	c.Check(roundTrip(c, TBoolean, VBool(true)).Bool(), Equals, true)
	c.Check(roundTrip(c, TBoolean, VBool(false)).Bool(), Equals, false)
	c.Check(roundTrip(c, TInt16, VInt16(-7)).Int16(), Equals, int16(-7))
	c.Check(roundTrip(c, TUint32, VUint32(99999)).Uint32(), Equals, uint32(99999))
	c.Check(roundTrip(c, TInt64, VInt64(-1)).Int64(), Equals, int64(-1))
	c.Check(roundTrip(c, TDouble, VDouble(3.5)).Double(), Equals, 3.5)
	c.Check(roundTrip(c, TString, VString("hello")).String(), Equals, "hello")
	c.Check(roundTrip(c, TObjectPath, VObjectPath("/a/b")).ObjectPath(), Equals, ObjectPath("/a/b"))
	c.Check(roundTrip(c, TSignature, VSignature("ai")).Signature(), Equals, Signature("ai"))
}

func (s *S) TestRoundTripBooleanRejectsNonBinary(c *C) {
	w := newWireWriter(binary.LittleEndian)
	w.writeUint32(2)
	r := newWireReader(w.buf, 0, binary.LittleEndian)
	_, err := readValue(r, TBoolean)
	c.Assert(err, Equals, ErrInvalidValue)
}

func (s *S) TestRoundTripArray(c *C) {
	arr := VArray(TInt32, []Value{VInt32(1), VInt32(2), VInt32(3)})
	got := roundTrip(c, TArray(TInt32), arr)
	var ints []int32
	for _, v := range got.Array() {
		ints = append(ints, v.Int32())
	}
	c.Check(ints, DeepEquals, []int32{1, 2, 3})
}

func (s *S) TestRoundTripStruct(c *C) {
	st := VStruct(VString("x"), VInt32(5))
	typ := TStruct(TString, TInt32)
	got := roundTrip(c, typ, st)
	c.Check(got.Struct()[0].String(), Equals, "x")
	c.Check(got.Struct()[1].Int32(), Equals, int32(5))
}

func (s *S) TestRoundTripDict(c *C) {
	d := Dict{
		{Key: VString("a"), Value: VInt32(1)},
		{Key: VString("b"), Value: VInt32(2)},
	}
	v := VDict(TString, TInt32, d)
	typ := TArray(TDictEntry(TString, TInt32))
	got := roundTrip(c, typ, v)
	c.Assert(got.IsDict(), Equals, true)
	c.Check(got.Dict(), DeepEquals, d)
}

func (s *S) TestRoundTripVariant(c *C) {
	v := VVariant("s", VString("hi"))
	got := roundTrip(c, TVariant, v)
	c.Check(got.VariantSignature(), Equals, Signature("s"))
	c.Check(got.VariantValue().String(), Equals, "hi")
}

func (s *S) TestWriteSignatureTooLong(c *C) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'y'
	}
	w := newWireWriter(binary.LittleEndian)
	err := writeValue(w, TSignature, VSignature(Signature(long)))
	c.Assert(err, Equals, ErrSignatureTooLong)
}

func (s *S) TestArrayAlignmentPadding(c *C) {
	// An ARRAY(INT64) must be 8-aligned after its length prefix, so a
	// leading byte should produce visible padding.
	w := newWireWriter(binary.LittleEndian)
	w.writeByte(1)
	err := writeValue(w, TArray(TInt64), VArray(TInt64, []Value{VInt64(7)}))
	c.Assert(err, IsNil)
	// byte(1) + 3 pad to 4-align the length + uint32 len (4, already 8-aligned) + int64(8) = 16
	c.Check(len(w.buf), Equals, 16)
}
