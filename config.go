package dbus

// Config holds the tunable parts of a Connection. It is built up by
// Options and its fields are unexported; callers configure a Connection
// through Open's variadic Option arguments.
type Config struct {
	logger       logger
	sendHello    bool
	incomingSize int
}

func defaultConfig() Config {
	return Config{
		logger:       packageLogger,
		sendHello:    true,
		incomingSize: 32,
	}
}

// Option configures a Connection at Open time.
type Option func(*Config)

// WithLogger makes the Connection use l instead of the package default
// logger. Passing a nil l is equivalent to WithoutLogging.
func WithLogger(l logger) Option {
	return func(c *Config) {
		if l == nil {
			l = noopLogger{}
		}
		c.logger = l
	}
}

// WithoutLogging silences a Connection entirely.
func WithoutLogging() Option {
	return func(c *Config) {
		c.logger = noopLogger{}
	}
}

// WithHello controls whether Open sends the initial Hello call to
// org.freedesktop.DBus to obtain a unique connection name. It defaults to
// true; peer-to-peer connections that never go through a message bus
// daemon should pass WithHello(false).
func WithHello(send bool) Option {
	return func(c *Config) {
		c.sendHello = send
	}
}

// WithIncomingBuffer sets the buffer size of the channel Incoming returns.
// A full buffer causes the receive loop to block, which in turn stalls
// reply delivery, so callers that expect bursts of unsolicited signals
// should raise it.
func WithIncomingBuffer(n int) Option {
	return func(c *Config) {
		if n < 0 {
			n = 0
		}
		c.incomingSize = n
	}
}
