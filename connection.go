package dbus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Connection is an authenticated D-Bus connection: one reader goroutine
// decoding frames off the wire, a serial allocator, and a table of
// outstanding method calls waiting on their reply. All public methods are
// safe for concurrent use.
type Connection struct {
	conn io.ReadWriteCloser
	cfg  Config

	writeMu sync.Mutex

	serial uint32 // atomic; see nextSerial

	pendingMu sync.Mutex
	pending   map[uint32]chan *Message

	incoming chan *Message

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error

	name string // unique connection name, set by Hello if requested
}

// Open authenticates conn with method, then starts the connection's
// receive loop. On success the returned Connection owns conn and will
// close it when Close is called.
func Open(conn io.ReadWriteCloser, method AuthMethod, opts ...Option) (*Connection, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := authenticate(conn, method, cfg.logger); err != nil {
		cfg.logger.Errorf("dbus: authentication failed: %v", err)
		conn.Close()
		return nil, err
	}

	c := &Connection{
		conn:     conn,
		cfg:      cfg,
		pending:  make(map[uint32]chan *Message),
		incoming: make(chan *Message, cfg.incomingSize),
		closed:   make(chan struct{}),
	}

	go c.receiveLoop()

	if cfg.sendHello {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		reply, err := c.Call(ctx, &Request{
			Type:      MethodCall,
			Path:      "/org/freedesktop/DBus",
			Interface: "org.freedesktop.DBus",
			Member:    "Hello",
			Destination: "org.freedesktop.DBus",
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dbus: Hello failed: %w", err)
		}
		if reply.Type != MethodReturn || len(reply.Body) != 1 || reply.Body[0].Kind != KindString {
			c.Close()
			return nil, fmt.Errorf("dbus: Hello returned unexpected reply")
		}
		c.name = reply.Body[0].String()
		cfg.logger.Infof("dbus: connected as %s", c.name)
	}

	return c, nil
}

// Name returns the unique connection name assigned by Hello, or "" if
// WithHello(false) was used.
func (c *Connection) Name() string {
	return c.name
}

// nextSerial returns the next serial to stamp an outbound message with,
// skipping zero, which the specification reserves as "no serial".
func (c *Connection) nextSerial() uint32 {
	for {
		s := atomic.AddUint32(&c.serial, 1)
		if s != 0 {
			return s
		}
	}
}

// Send encodes req, stamps it with a freshly allocated serial, and writes
// it to the wire. It does not wait for a reply; use Call for that.
func (c *Connection) Send(req *Request) (uint32, error) {
	select {
	case <-c.closed:
		return 0, ErrNotConnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	serial := c.nextSerial()
	buf, err := EncodeMessage(req, serial)
	if err != nil {
		return 0, err
	}

	if _, err := c.conn.Write(buf); err != nil {
		return 0, fmt.Errorf("dbus: write: %w", err)
	}
	return serial, nil
}

// Call sends req and blocks until a matching reply arrives, ctx is done,
// or the connection closes. If req sets FlagNoReplyExpected, Call only
// sends it and then returns ErrNoReply.
func (c *Connection) Call(ctx context.Context, req *Request) (*Message, error) {
	if req.Flags&FlagNoReplyExpected != 0 {
		if _, err := c.Send(req); err != nil {
			return nil, err
		}
		return nil, ErrNoReply
	}
	select {
	case <-c.closed:
		return nil, ErrNotConnected
	default:
	}

	wait := make(chan *Message, 1)
	c.writeMu.Lock()
	serial := c.nextSerial()
	buf, err := EncodeMessage(req, serial)
	if err != nil {
		c.writeMu.Unlock()
		return nil, err
	}

	c.pendingMu.Lock()
	c.pending[serial] = wait
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, serial)
		c.pendingMu.Unlock()
	}

	_, err = c.conn.Write(buf)
	c.writeMu.Unlock()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("dbus: write: %w", err)
	}

	select {
	case msg := <-wait:
		if msg.Type == MessageError {
			return nil, msg.AsRemoteError()
		}
		return msg, nil
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-c.closed:
		cleanup()
		return nil, c.closeErrOrDefault()
	}
}

// Incoming returns the channel of messages that were not matched to an
// outstanding Call: signals, method calls addressed to this connection,
// and replies whose caller already gave up. It is closed when the
// connection closes.
func (c *Connection) Incoming() <-chan *Message {
	return c.incoming
}

// Close shuts down the connection: it closes the underlying transport and
// releases every pending Call, which returns ErrNotConnected, or the error
// the transport's Close returned if that was non-nil. Close does not wait
// for the receive loop; the loop exits once its next read fails.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		close(c.closed)
	})
	return c.closeErr
}

func (c *Connection) closeErrOrDefault() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrNotConnected
}

// receiveLoop owns the decoder and the conn's read side. It exits, closing
// incoming, the first time it sees a read error or a fatal decode error.
func (c *Connection) receiveLoop() {
	defer close(c.incoming)
	defer c.Close()

	dec := NewFrameDecoder()
	buf := make([]byte, 65536)

	for {
		for {
			msg, ok, err := dec.Next()
			if err != nil {
				c.cfg.logger.Errorf("dbus: fatal decode error: %v", err)
				return
			}
			if !ok {
				break
			}
			c.dispatch(msg)
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				c.cfg.logger.Warningf("dbus: read error: %v", err)
			}
			return
		}
	}
}

func (c *Connection) dispatch(msg *Message) {
	if serial, ok := msg.ReplySerial(); ok {
		c.pendingMu.Lock()
		wait, found := c.pending[serial]
		if found {
			delete(c.pending, serial)
		}
		c.pendingMu.Unlock()
		if found {
			wait <- msg
			return
		}
		c.cfg.logger.Warningf("dbus: reply to unknown serial %d", serial)
	}

	select {
	case c.incoming <- msg:
	case <-c.closed:
	}
}
