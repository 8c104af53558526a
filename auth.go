package dbus

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// AuthMethod is a SASL authentication mechanism this package knows how to
// drive. Anonymous and External are the only two mechanisms in scope;
// DBUS_COOKIE_SHA1 and GSSAPI are explicit non-goals.
type AuthMethod struct {
	mechanism       string
	initialResponse string // already hex-encoded, empty means none
}

// Anonymous authenticates without presenting any credentials.
func Anonymous() AuthMethod {
	return AuthMethod{mechanism: "ANONYMOUS"}
}

// External authenticates as uid (the decimal string form of a Unix user
// id), relying on the transport's peer-credential guarantee. Each byte of
// uid is hex-encoded as two lowercase hex digits, per the SASL EXTERNAL
// mechanism as D-Bus uses it.
func External(uid string) AuthMethod {
	return AuthMethod{mechanism: "EXTERNAL", initialResponse: hex.EncodeToString([]byte(uid))}
}

func (m AuthMethod) command() []byte {
	s := "AUTH " + m.mechanism
	if m.initialResponse != "" {
		s += " " + m.initialResponse
	}
	return []byte(s + "\r\n")
}

// authResult is what authenticate learned about the handshake outcome.
type authResult struct {
	serverGUID string
}

// authenticate drives the SASL line phase to completion: it sends one NUL
// byte followed by one AUTH command, reads the server's response
// line-by-line (tolerating an optional leading NUL some relaxed servers
// send), and on "OK <guid>" sends BEGIN and returns. It deliberately reads
// the handshake one byte at a time rather than through a buffered reader,
// so no bytes belonging to the first binary message are consumed before
// the caller installs the message framer.
func authenticate(rw io.ReadWriter, method AuthMethod, log logger) (authResult, error) {
	out := append([]byte{0}, method.command()...)
	if _, err := rw.Write(out); err != nil {
		return authResult{}, fmt.Errorf("dbus: writing auth command: %w", err)
	}
	log.Debugf("dbus: sent %s", strings.TrimSpace(string(method.command())))

	line, err := readHandshakeLine(rw)
	if err != nil {
		return authResult{}, fmt.Errorf("dbus: reading auth response: %w", err)
	}

	switch {
	case strings.HasPrefix(line, "OK "):
		guid := strings.TrimSpace(strings.TrimPrefix(line, "OK "))
		if _, err := rw.Write([]byte("BEGIN\r\n")); err != nil {
			return authResult{}, fmt.Errorf("dbus: writing BEGIN: %w", err)
		}
		log.Debugf("dbus: authenticated, server guid %s", guid)
		return authResult{serverGUID: guid}, nil

	case strings.HasPrefix(line, "REJECTED"):
		fields := strings.Fields(line)
		var mechs []string
		if len(fields) > 1 {
			mechs = fields[1:]
		}
		return authResult{}, &AuthRejectedError{Mechanisms: mechs}

	default:
		return authResult{}, ErrInvalidAuthResponse
	}
}

// readHandshakeLine reads one CRLF-terminated line byte-by-byte from r,
// discarding a single leading NUL if present (see Design Notes decision
// (a): tolerate a server sending an optional leading NUL).
func readHandshakeLine(r io.Reader) (string, error) {
	var b [1]byte
	line := make([]byte, 0, 64)

	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}
	if b[0] != 0 {
		line = append(line, b[0])
	}

	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == '\n' {
			break
		}
		if b[0] != '\r' {
			line = append(line, b[0])
		}
	}
	return string(line), nil
}
