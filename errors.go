package dbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the framing, validation and lifecycle taxonomies
// described in the package's error handling design. Decode errors other
// than the two truncation sentinels are always fatal to the connection
// that raised them; truncation sentinels never escape the framed decoder.
var (
	// ErrInvalidByteOrder is returned when a message's order byte is
	// neither 'l' nor 'B'.
	ErrInvalidByteOrder = errors.New("dbus: invalid byte order")
	// ErrInvalidMessageType is returned when a message's type byte is
	// outside 1..4.
	ErrInvalidMessageType = errors.New("dbus: invalid message type")
	// ErrInvalidHeader covers a zero serial, an unsupported protocol
	// version, or a required-header-field violation for the message type.
	ErrInvalidHeader = errors.New("dbus: invalid message header")
	// ErrInvalidValue covers a boolean outside {0,1}, invalid UTF-8,
	// a missing NUL terminator, or array elements that do not exactly fill
	// the array's declared length. A malformed variant signature is
	// reported as an *InvalidSignatureError instead.
	ErrInvalidValue = errors.New("dbus: invalid value")
	// ErrArrayTooLong is returned when an array's declared byte length
	// exceeds 2^26 bytes.
	ErrArrayTooLong = errors.New("dbus: array too long")
	// ErrSignatureTooLong is returned when a signature exceeds 255 bytes.
	ErrSignatureTooLong = errors.New("dbus: signature too long")
	// ErrMessageTooLong is returned by the framed decoder when a declared
	// message size exceeds the 128 MiB cap.
	ErrMessageTooLong = errors.New("dbus: message exceeds maximum size")
	// ErrBufferUnderrun is returned when a value's encoded form requires
	// more bytes than remain in the buffer being decoded.
	ErrBufferUnderrun = errors.New("dbus: buffer too small to decode value")

	// ErrInvalidAuthResponse is returned when the server sends something
	// other than OK or REJECTED while awaiting the auth result.
	ErrInvalidAuthResponse = errors.New("dbus: invalid or unexpected auth response")

	// ErrNotConnected is returned by Send/Call once the connection has
	// been closed.
	ErrNotConnected = errors.New("dbus: not connected")

	// ErrNoReply is returned by Call when the request carries
	// FlagNoReplyExpected: the request is sent, but there is no message to
	// wait for.
	ErrNoReply = errors.New("dbus: no reply expected for this request")
)

// truncated* sentinels are internal to the framed decoder: they signal
// "need more data" and must never be surfaced to callers of Decode.
var (
	errTruncatedHeaderFields = errors.New("dbus: truncated header fields")
	errTruncatedBody         = errors.New("dbus: truncated body")
)

func isTruncation(err error) bool {
	return errors.Is(err, errTruncatedHeaderFields) || errors.Is(err, errTruncatedBody)
}

// AuthRejectedError is returned when the server rejects every mechanism
// offered during SASL authentication.
type AuthRejectedError struct {
	Mechanisms []string
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("dbus: authentication rejected, server supports: %v", e.Mechanisms)
}

// RemoteError is returned by Call when the peer replies with an ERROR
// message matching the call's serial.
type RemoteError struct {
	Name string
	Body []Value
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("dbus: remote error %s", e.Name)
}

// InvalidNameError reports a header field value that violates the D-Bus
// naming grammar for object paths, interfaces, members, or bus names.
type InvalidNameError struct {
	Kind  string // "object path", "interface", "member", "error name", "bus name"
	Value string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("dbus: invalid %s %q", e.Kind, e.Value)
}
