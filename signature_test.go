package dbus

import (
	. "gopkg.in/check.v1"
)

func (s *S) TestParseBasicTypes(c *C) {
	types, err := Signature("ybnqiuxtdsogv").Parse()
	c.Assert(err, IsNil)
	c.Check(len(types), Equals, 13)
	c.Check(types[0].Kind, Equals, KindByte)
	c.Check(types[12].Kind, Equals, KindVariant)
}

func (s *S) TestParseArrayOfStruct(c *C) {
	types, err := Signature("a(si)").Parse()
	c.Assert(err, IsNil)
	c.Assert(len(types), Equals, 1)
	c.Check(types[0].Kind, Equals, KindArray)
	c.Check(types[0].Elem.Kind, Equals, KindStruct)
	c.Check(len(types[0].Elem.Fields), Equals, 2)
}

func (s *S) TestParseDict(c *C) {
	types, err := Signature("a{sv}").Parse()
	c.Assert(err, IsNil)
	c.Assert(len(types), Equals, 1)
	c.Check(types[0].Elem.Kind, Equals, KindDictEntry)
	c.Check(types[0].Elem.Key.Kind, Equals, KindString)
	c.Check(types[0].Elem.Value.Kind, Equals, KindVariant)
}

func (s *S) TestParseDictEntryOutsideArrayRejected(c *C) {
	_, err := Signature("{sv}").Parse()
	c.Assert(err, NotNil)
	_, ok := err.(*InvalidSignatureError)
	c.Check(ok, Equals, true)
}

func (s *S) TestParseUnterminatedStruct(c *C) {
	_, err := Signature("(si").Parse()
	c.Assert(err, NotNil)
}

func (s *S) TestParseUnknownCode(c *C) {
	_, err := Signature("z").Parse()
	c.Assert(err, NotNil)
}

func (s *S) TestParseTooLong(c *C) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'y'
	}
	_, err := Signature(long).Parse()
	c.Assert(err, NotNil)
}

func (s *S) TestParseEmptyStructRejected(c *C) {
	_, err := Signature("()").Parse()
	c.Assert(err, NotNil)
}

func (s *S) TestSerializeRoundTrip(c *C) {
	for _, sig := range []string{"s", "a(si)", "a{sv}", "(ybnqiuxtd)", "aay"} {
		types, err := Signature(sig).Parse()
		c.Assert(err, IsNil)
		c.Check(string(Serialize(types)), Equals, sig)
	}
}

func (s *S) TestParseIsCached(c *C) {
	types1, err1 := Signature("as").Parse()
	c.Assert(err1, IsNil)
	types2, err2 := Signature("as").Parse()
	c.Assert(err2, IsNil)
	c.Check(types1, DeepEquals, types2)
	_, cached := signatureCache().Get(Signature("as"))
	c.Check(cached, Equals, true)
}
