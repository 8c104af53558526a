package dbus

// maxMessageSize is the D-Bus specification's maximum message size. The
// framed decoder enforces it on the declared header-fields and body
// lengths before attempting to buffer or decode them, so a malicious or
// buggy peer cannot force unbounded memory growth.
const maxMessageSize = 128 * 1024 * 1024

// FrameDecoder consumes bytes from a stream and emits one Message per
// successful decode. It owns a rolling input buffer and is stateless with
// respect to the application layer: Feed can be called repeatedly as more
// bytes arrive, and Next drains whatever complete messages are currently
// buffered.
type FrameDecoder struct {
	buf []byte
	pos int // read position within buf
}

// NewFrameDecoder returns an empty decoder.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends chunk to the decoder's rolling buffer.
func (d *FrameDecoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)
	d.compact()
}

// compact drops already-consumed bytes once they make up a large enough
// share of the buffer, amortizing the copy cost rather than paying it on
// every call.
func (d *FrameDecoder) compact() {
	if d.pos == 0 {
		return
	}
	if d.pos < 4096 && d.pos < len(d.buf)/2 {
		return
	}
	d.buf = append(d.buf[:0], d.buf[d.pos:]...)
	d.pos = 0
}

// Next attempts to decode one message from the buffered bytes. It returns
// (msg, true, nil) on success, (nil, false, nil) when more bytes are
// needed, or (nil, false, err) on any other decode error, which is fatal
// to the connection using this decoder: a malformed byte stream cannot be
// safely resynchronised, so the caller should close the connection.
func (d *FrameDecoder) Next() (*Message, bool, error) {
	msg, n, err := DecodeMessage(d.buf[d.pos:])
	if err != nil {
		if isTruncation(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	d.pos += n
	return msg, true, nil
}

// Pending reports how many unconsumed bytes remain buffered.
func (d *FrameDecoder) Pending() int {
	return len(d.buf) - d.pos
}
