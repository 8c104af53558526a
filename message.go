package dbus

import (
	"encoding/binary"
	"fmt"
)

// MessageType identifies one of the four D-Bus message kinds.
type MessageType uint8

const (
	_ MessageType = iota
	MethodCall
	MethodReturn
	MessageError
	Signal
)

func (t MessageType) String() string {
	switch t {
	case MethodCall:
		return "method_call"
	case MethodReturn:
		return "method_return"
	case MessageError:
		return "error"
	case Signal:
		return "signal"
	default:
		return "invalid"
	}
}

// Flags is the message flags bitfield. Only the two bits the core
// recognises are named; others pass through unexamined.
type Flags uint8

const (
	FlagNoReplyExpected Flags = 1 << 0
	FlagNoAutoStart     Flags = 1 << 1
)

// Header field codes, per the D-Bus specification.
const (
	fieldPath        = 1
	fieldInterface   = 2
	fieldMember      = 3
	fieldErrorName   = 4
	fieldReplySerial = 5
	fieldDestination = 6
	fieldSender      = 7
	fieldSignature   = 8
	fieldUnixFDs     = 9
)

// defaultByteOrder is used for outbound requests that don't specify one;
// it stands in for "host byte order" (see Design Notes: "Endianness of
// host").
var defaultByteOrder binary.ByteOrder = binary.LittleEndian

// Request describes an outbound message before it has been assigned a
// serial by a Connection. Signature must describe exactly the sequence
// of values in Body; the encoder does not derive it automatically.
type Request struct {
	ByteOrder binary.ByteOrder // nil means defaultByteOrder
	Type      MessageType
	Flags     Flags

	Path        ObjectPath
	Interface   string
	Member      string
	ErrorName   string
	ReplySerial uint32
	Destination string
	Sender      string
	Signature   Signature
	Body        []Value
}

// Message is an immutable decoded (or already-sent) D-Bus message.
type Message struct {
	ByteOrder binary.ByteOrder
	Type      MessageType
	Flags     Flags
	Serial    uint32

	Path        ObjectPath
	Interface   string
	Member      string
	ErrorName   string
	Destination string
	Sender      string
	Signature   Signature
	Body        []Value

	replySerial    uint32
	hasReplySerial bool
}

// ReplySerial returns the REPLY_SERIAL header field, if present.
func (m *Message) ReplySerial() (uint32, bool) {
	return m.replySerial, m.hasReplySerial
}

// AsRemoteError converts an ERROR message into a *RemoteError.
func (m *Message) AsRemoteError() *RemoteError {
	return &RemoteError{Name: m.ErrorName, Body: m.Body}
}

// EncodeMessage serializes req into a full wire message stamped with
// serial. It always starts at writer offset 0, as required by the codec.
func EncodeMessage(req *Request, serial uint32) ([]byte, error) {
	if serial == 0 {
		return nil, fmt.Errorf("dbus: serial must be nonzero")
	}
	order := req.ByteOrder
	if order == nil {
		order = defaultByteOrder
	}

	var bodyTypes []Type
	if req.Signature != "" {
		t, err := req.Signature.Parse()
		if err != nil {
			return nil, err
		}
		bodyTypes = t
	}
	if len(bodyTypes) != len(req.Body) {
		return nil, fmt.Errorf("dbus: signature %q describes %d values, body has %d", req.Signature, len(bodyTypes), len(req.Body))
	}

	w := newWireWriter(order)

	orderByte := byte('l')
	if order == binary.BigEndian {
		orderByte = 'B'
	}
	w.writeByte(orderByte)
	w.writeByte(byte(req.Type))
	w.writeByte(byte(req.Flags))
	w.writeByte(1) // protocol version

	bodyLenPos := w.reserveUint32()
	w.writeUint32(serial)

	type hf struct {
		code byte
		t    Type
		v    Value
	}
	var fields []hf
	if req.Path != "" {
		fields = append(fields, hf{fieldPath, TObjectPath, VObjectPath(req.Path)})
	}
	if req.Interface != "" {
		fields = append(fields, hf{fieldInterface, TString, VString(req.Interface)})
	}
	if req.Member != "" {
		fields = append(fields, hf{fieldMember, TString, VString(req.Member)})
	}
	if req.ErrorName != "" {
		fields = append(fields, hf{fieldErrorName, TString, VString(req.ErrorName)})
	}
	if req.Type == MethodReturn || req.Type == MessageError {
		fields = append(fields, hf{fieldReplySerial, TUint32, VUint32(req.ReplySerial)})
	}
	if req.Destination != "" {
		fields = append(fields, hf{fieldDestination, TString, VString(req.Destination)})
	}
	if req.Sender != "" {
		fields = append(fields, hf{fieldSender, TString, VString(req.Sender)})
	}
	if req.Signature != "" {
		fields = append(fields, hf{fieldSignature, TSignature, VSignature(req.Signature)})
	}

	fieldsLenPos := w.reserveUint32()
	fieldsStart := w.Len()
	for _, f := range fields {
		w.align(8)
		w.writeByte(f.code)
		if err := writeValue(w, TVariant, VVariant(Signature(f.t.String()), f.v)); err != nil {
			return nil, err
		}
	}
	w.patchUint32(fieldsLenPos, uint32(w.Len()-fieldsStart))

	w.align(8)
	bodyStart := w.Len()
	for i, t := range bodyTypes {
		if err := writeValue(w, t, req.Body[i]); err != nil {
			return nil, err
		}
	}
	w.patchUint32(bodyLenPos, uint32(w.Len()-bodyStart))

	return w.buf, nil
}

// DecodeMessage attempts to decode one message starting at the beginning
// of buf. On success it returns the message and the number of bytes
// consumed. If buf does not yet hold a complete message, it returns a
// truncation sentinel error (see isTruncation) and the caller should
// retry once more bytes arrive; any other error is fatal to the
// connection that produced buf.
func DecodeMessage(buf []byte) (*Message, int, error) {
	if len(buf) < 12 {
		return nil, 0, errTruncatedHeaderFields
	}

	var order binary.ByteOrder
	switch buf[0] {
	case 'l':
		order = binary.LittleEndian
	case 'B':
		order = binary.BigEndian
	default:
		return nil, 0, ErrInvalidByteOrder
	}

	msgType := MessageType(buf[1])
	if msgType < MethodCall || msgType > Signal {
		return nil, 0, ErrInvalidMessageType
	}
	flags := Flags(buf[2])
	protocol := buf[3]
	bodyLength := order.Uint32(buf[4:8])
	serial := order.Uint32(buf[8:12])
	if len(buf) < 16 {
		return nil, 0, errTruncatedHeaderFields
	}
	fieldsLength := order.Uint32(buf[12:16])
	if serial == 0 || protocol != 1 {
		return nil, 0, ErrInvalidHeader
	}
	if 16+uint64(fieldsLength)+uint64(bodyLength) > maxMessageSize {
		return nil, 0, ErrMessageTooLong
	}

	fieldsStart := 16
	if len(buf) < fieldsStart+int(fieldsLength) {
		return nil, 0, errTruncatedHeaderFields
	}

	r := newWireReader(buf, fieldsStart, order)
	fieldsEnd := fieldsStart + int(fieldsLength)

	msg := &Message{ByteOrder: order, Type: msgType, Flags: flags, Serial: serial}

	for r.pos < fieldsEnd {
		r.align(8)
		code, err := r.readByte()
		if err != nil {
			return nil, 0, err
		}
		v, err := readValue(r, TVariant)
		if err != nil {
			return nil, 0, err
		}
		inner := v.VariantValue()
		switch code {
		case fieldPath:
			if inner.Kind != KindObjectPath {
				return nil, 0, ErrInvalidHeader
			}
			msg.Path = inner.ObjectPath()
		case fieldInterface:
			if inner.Kind != KindString {
				return nil, 0, ErrInvalidHeader
			}
			if err := validateInterfaceName(inner.String()); err != nil {
				return nil, 0, err
			}
			msg.Interface = inner.String()
		case fieldMember:
			if inner.Kind != KindString {
				return nil, 0, ErrInvalidHeader
			}
			if err := validateMemberName(inner.String()); err != nil {
				return nil, 0, err
			}
			msg.Member = inner.String()
		case fieldErrorName:
			if inner.Kind != KindString {
				return nil, 0, ErrInvalidHeader
			}
			if err := validateErrorName(inner.String()); err != nil {
				return nil, 0, err
			}
			msg.ErrorName = inner.String()
		case fieldReplySerial:
			if inner.Kind != KindUint32 {
				return nil, 0, ErrInvalidHeader
			}
			msg.replySerial = inner.Uint32()
			msg.hasReplySerial = true
		case fieldDestination:
			if inner.Kind != KindString {
				return nil, 0, ErrInvalidHeader
			}
			if err := validateBusName(inner.String()); err != nil {
				return nil, 0, err
			}
			msg.Destination = inner.String()
		case fieldSender:
			if inner.Kind != KindString {
				return nil, 0, ErrInvalidHeader
			}
			if err := validateBusName(inner.String()); err != nil {
				return nil, 0, err
			}
			msg.Sender = inner.String()
		case fieldSignature:
			if inner.Kind != KindSignature {
				return nil, 0, ErrInvalidHeader
			}
			msg.Signature = inner.Signature()
		case fieldUnixFDs:
			// Parsed as an opaque uint32; fd passing is out of scope.
		}
	}
	if r.pos != fieldsEnd {
		return nil, 0, ErrInvalidHeader
	}

	// Pad to the next 8-byte boundary from the start of the message.
	r.pos = fieldsEnd
	r.align(8)
	bodyStart := r.pos

	if len(buf) < bodyStart+int(bodyLength) {
		return nil, 0, errTruncatedBody
	}

	if bodyLength > 0 {
		if msg.Signature == "" {
			return nil, 0, ErrInvalidHeader
		}
		types, err := msg.Signature.Parse()
		if err != nil {
			return nil, 0, err
		}
		body := make([]Value, len(types))
		for i, t := range types {
			v, err := readValue(r, t)
			if err != nil {
				return nil, 0, err
			}
			body[i] = v
		}
		if r.pos != bodyStart+int(bodyLength) {
			return nil, 0, ErrInvalidHeader
		}
		msg.Body = body
	} else if msg.Signature != "" {
		return nil, 0, ErrInvalidHeader
	}

	if err := validateRequiredFields(msg); err != nil {
		return nil, 0, err
	}

	return msg, bodyStart + int(bodyLength), nil
}

func validateRequiredFields(m *Message) error {
	switch m.Type {
	case MethodCall:
		if m.Path == "" || m.Member == "" {
			return ErrInvalidHeader
		}
	case MethodReturn:
		if !m.hasReplySerial {
			return ErrInvalidHeader
		}
	case MessageError:
		if m.ErrorName == "" || !m.hasReplySerial {
			return ErrInvalidHeader
		}
	case Signal:
		if m.Path == "" || m.Interface == "" || m.Member == "" {
			return ErrInvalidHeader
		}
	}
	return nil
}
