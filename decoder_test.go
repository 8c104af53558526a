package dbus

import (
	"encoding/binary"

	. "gopkg.in/check.v1"
)

func (s *S) TestFrameDecoderSingleMessage(c *C) {
	d := NewFrameDecoder()
	d.Feed(testMessage)

	msg, ok, err := d.Next()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Check(msg.Member, Equals, "NameHasOwner")

	_, ok, err = d.Next()
	c.Assert(err, IsNil)
	c.Check(ok, Equals, false)
	c.Check(d.Pending(), Equals, 0)
}

func (s *S) TestFrameDecoderByteAtATime(c *C) {
	d := NewFrameDecoder()
	var got *Message
	for i := 0; i < len(testMessage); i++ {
		d.Feed(testMessage[i : i+1])
		msg, ok, err := d.Next()
		c.Assert(err, IsNil)
		if ok {
			got = msg
		}
	}
	c.Assert(got, NotNil)
	c.Check(got.Member, Equals, "NameHasOwner")
}

func (s *S) TestFrameDecoderTwoMessagesBackToBack(c *C) {
	req := &Request{Type: Signal, Path: "/a", Interface: "org.example.I", Member: "Tick"}
	buf1, err := EncodeMessage(req, 1)
	c.Assert(err, IsNil)
	buf2, err := EncodeMessage(req, 2)
	c.Assert(err, IsNil)

	d := NewFrameDecoder()
	d.Feed(append(append([]byte{}, buf1...), buf2...))

	msg1, ok, err := d.Next()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Check(msg1.Serial, Equals, uint32(1))

	msg2, ok, err := d.Next()
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Check(msg2.Serial, Equals, uint32(2))

	_, ok, _ = d.Next()
	c.Check(ok, Equals, false)
}

func (s *S) TestFrameDecoderFatalErrorOnGarbage(c *C) {
	d := NewFrameDecoder()
	garbage := make([]byte, 20)
	for i := range garbage {
		garbage[i] = 0xff
	}
	d.Feed(garbage)
	_, _, err := d.Next()
	c.Assert(err, NotNil)
}

func (s *S) TestFrameDecoderRejectsOversizedMessage(c *C) {
	d := NewFrameDecoder()
	buf := make([]byte, 16)
	buf[0] = 'l'
	buf[1] = byte(MethodCall)
	buf[3] = 1
	binary.LittleEndian.PutUint32(buf[4:8], maxMessageSize+1)
	binary.LittleEndian.PutUint32(buf[8:12], 1)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	d.Feed(buf)
	_, _, err := d.Next()
	c.Assert(err, Equals, ErrMessageTooLong)
}
