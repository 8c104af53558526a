// Package dbus implements the client-side core of the D-Bus wire protocol:
// a marshalling codec for the D-Bus type system, a framed stream decoder
// that resumes cleanly across short reads, and a connection state machine
// that performs SASL authentication before multiplexing typed
// request/reply messages over a stream transport.
//
// Address resolution and AF_UNIX dialing are provided as a thin
// convenience (see Address), but the package does not implement object
// proxies, introspection, or signal subscription matching; callers build
// those on top of Connection.Send, Connection.Call and Connection.Incoming.
package dbus
