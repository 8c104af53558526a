package dbus

import (
	. "gopkg.in/check.v1"
)

// testMessage is a NameHasOwner method call to the message bus itself,
// byte-for-byte what a real bus client sends. It exercises both encode
// and decode against one known-good fixture instead of only round-tripping
// through the package's own codec.
var testMessage = []byte{
	'l', // byte order
	1,   // message type
	0,   // flags
	1,   // protocol

	8, 0, 0, 0, // body length
	1, 0, 0, 0, // serial
	127, 0, 0, 0, // header fields array length

	1, 1, 'o', 0, // PATH, signature "o"
	21, 0, 0, 0, '/', 'o', 'r', 'g', '/', 'f', 'r', 'e', 'e', 'd', 'e', 's', 'k', 't', 'o', 'p', '/', 'D', 'B', 'u', 's', 0,
	0, 0,

	2, 1, 's', 0, // INTERFACE, signature "s"
	20, 0, 0, 0, 'o', 'r', 'g', '.', 'f', 'r', 'e', 'e', 'd', 'e', 's', 'k', 't', 'o', 'p', '.', 'D', 'B', 'u', 's', 0,
	0, 0, 0,

	3, 1, 's', 0, // MEMBER, signature "s"
	12, 0, 0, 0, 'N', 'a', 'm', 'e', 'H', 'a', 's', 'O', 'w', 'n', 'e', 'r', 0,
	0, 0, 0,

	6, 1, 's', 0, // DESTINATION, signature "s"
	20, 0, 0, 0, 'o', 'r', 'g', '.', 'f', 'r', 'e', 'e', 'd', 'e', 's', 'k', 't', 'o', 'p', '.', 'D', 'B', 'u', 's', 0,
	0, 0, 0,

	8, 1, 'g', 0, // SIGNATURE, signature "g"
	1, 's', 0,
	0, // pad to 8-byte boundary for the body

	// body
	3, 0, 0, 0, 'x', 'y', 'z', 0,
}

func (s *S) TestDecodeMessageFixture(c *C) {
	msg, n, err := DecodeMessage(testMessage)
	c.Assert(err, IsNil)
	c.Check(n, Equals, len(testMessage))
	c.Check(msg.Type, Equals, MethodCall)
	c.Check(msg.Path, Equals, ObjectPath("/org/freedesktop/DBus"))
	c.Check(msg.Interface, Equals, "org.freedesktop.DBus")
	c.Check(msg.Member, Equals, "NameHasOwner")
	c.Check(msg.Destination, Equals, "org.freedesktop.DBus")
	c.Check(msg.Signature, Equals, Signature("s"))
	c.Assert(len(msg.Body), Equals, 1)
	c.Check(msg.Body[0].String(), Equals, "xyz")
}

func (s *S) TestEncodeMessageFixture(c *C) {
	req := &Request{
		Type:        MethodCall,
		Path:        "/org/freedesktop/DBus",
		Interface:   "org.freedesktop.DBus",
		Member:      "NameHasOwner",
		Destination: "org.freedesktop.DBus",
		Signature:   "s",
		Body:        []Value{VString("xyz")},
	}
	buf, err := EncodeMessage(req, 1)
	c.Assert(err, IsNil)
	c.Check(buf, DeepEquals, testMessage)
}

func (s *S) TestEncodeDecodeRoundTrip(c *C) {
	req := &Request{
		Type:      MethodReturn,
		ReplySerial: 7,
		Signature: "i",
		Body:      []Value{VInt32(42)},
	}
	buf, err := EncodeMessage(req, 99)
	c.Assert(err, IsNil)

	msg, n, err := DecodeMessage(buf)
	c.Assert(err, IsNil)
	c.Check(n, Equals, len(buf))
	c.Check(msg.Serial, Equals, uint32(99))
	rs, ok := msg.ReplySerial()
	c.Check(ok, Equals, true)
	c.Check(rs, Equals, uint32(7))
	c.Check(msg.Body[0].Int32(), Equals, int32(42))
}

func (s *S) TestDecodeMessageRejectsZeroSerial(c *C) {
	req := &Request{Type: Signal, Path: "/a", Interface: "org.example.I", Member: "M"}
	buf, err := EncodeMessage(req, 1)
	c.Assert(err, IsNil)
	// Corrupt the serial field (bytes 8..12) to zero.
	for i := 8; i < 12; i++ {
		buf[i] = 0
	}
	_, _, err = DecodeMessage(buf)
	c.Assert(err, Equals, ErrInvalidHeader)
}

func (s *S) TestDecodeMessageTruncated(c *C) {
	_, _, err := DecodeMessage(testMessage[:10])
	c.Assert(isTruncation(err), Equals, true)

	_, _, err = DecodeMessage(testMessage[:len(testMessage)-5])
	c.Assert(isTruncation(err), Equals, true)
}

func (s *S) TestEncodeMessageRequiresNonZeroSerial(c *C) {
	req := &Request{Type: Signal, Path: "/a", Interface: "org.example.I", Member: "M"}
	_, err := EncodeMessage(req, 0)
	c.Assert(err, NotNil)
}

func (s *S) TestEncodeMessageSignatureBodyMismatch(c *C) {
	req := &Request{Type: Signal, Path: "/a", Interface: "org.example.I", Member: "M", Signature: "ii", Body: []Value{VInt32(1)}}
	_, err := EncodeMessage(req, 1)
	c.Assert(err, NotNil)
}

func (s *S) TestValidateRequiredFieldsSignal(c *C) {
	req := &Request{Type: Signal, Path: "/a", Interface: "org.example.I"} // missing Member
	buf, err := EncodeMessage(req, 1)
	c.Assert(err, IsNil)
	_, _, err = DecodeMessage(buf)
	c.Assert(err, Equals, ErrInvalidHeader)
}
