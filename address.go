package dbus

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Address is a parsed D-Bus server address, as found in
// DBUS_SESSION_BUS_ADDRESS / DBUS_SYSTEM_BUS_ADDRESS and documented by the
// D-Bus specification's "Server Addresses" section.
type Address struct {
	Transport string            // "unix", "tcp", "nonce-tcp", ...
	Options   map[string]string // percent-decoded key/value pairs
}

// ParseAddress parses a single "transport:key=value,key=value" address.
// D-Bus addresses may list several semicolon-separated alternatives; split
// on ';' before calling ParseAddress on each one.
func ParseAddress(addr string) (Address, error) {
	if addr == "" {
		return Address{}, fmt.Errorf("dbus: empty address")
	}
	colon := strings.IndexByte(addr, ':')
	if colon < 0 {
		return Address{}, fmt.Errorf("dbus: address %q missing transport", addr)
	}
	transport := addr[:colon]
	rest := addr[colon+1:]

	opts := make(map[string]string)
	if rest != "" {
		for _, pair := range strings.Split(rest, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return Address{}, fmt.Errorf("dbus: malformed address option %q", pair)
			}
			key, err := url.PathUnescape(kv[0])
			if err != nil {
				return Address{}, fmt.Errorf("dbus: malformed address option key %q: %w", kv[0], err)
			}
			value, err := url.PathUnescape(kv[1])
			if err != nil {
				return Address{}, fmt.Errorf("dbus: malformed address option value %q: %w", kv[1], err)
			}
			opts[key] = value
		}
	}
	return Address{Transport: transport, Options: opts}, nil
}

// String renders a back the address, percent-encoding option values the
// way ParseAddress expects to consume them.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(a.Transport)
	b.WriteByte(':')
	first := true
	for k, v := range a.Options {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(url.PathEscape(k))
		b.WriteByte('=')
		b.WriteString(url.PathEscape(v))
	}
	return b.String()
}

// Dial establishes a connection for a.
//
// Only the "unix" transport (path or abstract-namespace socket) is
// dialed; actual transport establishment is out of this package's scope
// beyond this one convenience — Open never calls Dial implicitly, and a
// caller with a TCP or already-accepted connection should simply pass its
// net.Conn to Open directly.
func (a Address) Dial() (net.Conn, error) {
	if a.Transport != "unix" {
		return nil, fmt.Errorf("dbus: unsupported transport %q (only unix is dialed by this package)", a.Transport)
	}
	if abstract, ok := a.Options["abstract"]; ok {
		return net.Dial("unix", "@"+abstract)
	}
	if path, ok := a.Options["path"]; ok {
		return net.Dial("unix", path)
	}
	return nil, fmt.Errorf("dbus: unix address requires 'path' or 'abstract' option")
}

// SessionAddress returns the session bus address from
// DBUS_SESSION_BUS_ADDRESS, or an error if it is unset.
func SessionAddress(lookupEnv func(string) (string, bool)) (Address, error) {
	addr, ok := lookupEnv("DBUS_SESSION_BUS_ADDRESS")
	if !ok || addr == "" {
		return Address{}, fmt.Errorf("dbus: DBUS_SESSION_BUS_ADDRESS not set")
	}
	// Use the first listed alternative; failing over to later ones is a
	// transport-establishment concern outside this package's scope.
	return ParseAddress(strings.SplitN(addr, ";", 2)[0])
}

// SystemAddress returns the system bus address from
// DBUS_SYSTEM_BUS_ADDRESS, falling back to the well-known default socket
// path per the D-Bus specification.
func SystemAddress(lookupEnv func(string) (string, bool)) (Address, error) {
	if addr, ok := lookupEnv("DBUS_SYSTEM_BUS_ADDRESS"); ok && addr != "" {
		return ParseAddress(strings.SplitN(addr, ";", 2)[0])
	}
	return Address{Transport: "unix", Options: map[string]string{"path": "/var/run/dbus/system_bus_socket"}}, nil
}
