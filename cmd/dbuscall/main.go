// Command dbuscall issues one D-Bus method call and prints the reply body.
// It exists to exercise the core library end to end against a real bus,
// not as a general-purpose dbus-send replacement.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	dbus "github.com/nwire/dbuswire"
)

func main() {
	app := cli.NewApp()
	app.Name = "dbuscall"
	app.Usage = "make one D-Bus method call and print the reply"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "address",
			Usage: "server address (default: $DBUS_SESSION_BUS_ADDRESS)",
		},
		&cli.StringFlag{
			Name:     "dest",
			Usage:    "destination bus name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "path",
			Usage:    "object path",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "interface",
			Usage:    "interface name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "member",
			Usage:    "method name",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "sig",
			Usage: "body signature, e.g. \"s\" (arguments are taken as strings and converted per-type)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "call timeout",
			Value: 10 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "system",
			Usage: "use the system bus instead of the session bus",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dbuscall:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	addr, err := resolveAddress(c)
	if err != nil {
		return err
	}

	conn, err := addr.Dial()
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	uid := strconv.Itoa(os.Getuid())
	connection, err := dbus.Open(conn, dbus.External(uid))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer connection.Close()

	sig := dbus.Signature(c.String("sig"))
	body, err := parseArgs(sig, c.Args().Slice())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	reply, err := connection.Call(ctx, &dbus.Request{
		Type:        dbus.MethodCall,
		Path:        dbus.ObjectPath(c.String("path")),
		Interface:   c.String("interface"),
		Member:      c.String("member"),
		Destination: c.String("dest"),
		Signature:   sig,
		Body:        body,
	})
	if err != nil {
		return err
	}

	for _, v := range reply.Body {
		fmt.Println(describe(v))
	}
	return nil
}

func resolveAddress(c *cli.Context) (dbus.Address, error) {
	if a := c.String("address"); a != "" {
		return dbus.ParseAddress(a)
	}
	if c.Bool("system") {
		return dbus.SystemAddress(os.LookupEnv)
	}
	return dbus.SessionAddress(os.LookupEnv)
}

// parseArgs converts the call's trailing positional arguments into Values
// per sig, supporting the handful of leaf kinds a one-shot CLI call
// typically needs.
func parseArgs(sig dbus.Signature, args []string) ([]dbus.Value, error) {
	types, err := sig.Parse()
	if err != nil {
		return nil, err
	}
	if len(types) != len(args) {
		return nil, fmt.Errorf("signature %q expects %d arguments, got %d", sig, len(types), len(args))
	}
	body := make([]dbus.Value, len(types))
	for i, t := range types {
		v, err := parseArg(t, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		body[i] = v
	}
	return body, nil
}

func parseArg(t dbus.Type, s string) (dbus.Value, error) {
	switch t.Kind {
	case dbus.KindString:
		return dbus.VString(s), nil
	case dbus.KindObjectPath:
		return dbus.VObjectPath(dbus.ObjectPath(s)), nil
	case dbus.KindBoolean:
		b, err := strconv.ParseBool(s)
		return dbus.VBool(b), err
	case dbus.KindByte:
		n, err := strconv.ParseUint(s, 10, 8)
		return dbus.VByte(byte(n)), err
	case dbus.KindInt16:
		n, err := strconv.ParseInt(s, 10, 16)
		return dbus.VInt16(int16(n)), err
	case dbus.KindUint16:
		n, err := strconv.ParseUint(s, 10, 16)
		return dbus.VUint16(uint16(n)), err
	case dbus.KindInt32:
		n, err := strconv.ParseInt(s, 10, 32)
		return dbus.VInt32(int32(n)), err
	case dbus.KindUint32:
		n, err := strconv.ParseUint(s, 10, 32)
		return dbus.VUint32(uint32(n)), err
	case dbus.KindInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		return dbus.VInt64(n), err
	case dbus.KindUint64:
		n, err := strconv.ParseUint(s, 10, 64)
		return dbus.VUint64(n), err
	case dbus.KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		return dbus.VDouble(f), err
	default:
		return dbus.Value{}, fmt.Errorf("argument kind %s is not supported from the command line", t.Kind)
	}
}

func describe(v dbus.Value) string {
	switch v.Kind {
	case dbus.KindString:
		return v.String()
	case dbus.KindObjectPath:
		return string(v.ObjectPath())
	case dbus.KindSignature:
		return string(v.Signature())
	case dbus.KindBoolean:
		return strconv.FormatBool(v.Bool())
	case dbus.KindByte:
		return strconv.Itoa(int(v.Byte()))
	case dbus.KindInt16:
		return strconv.Itoa(int(v.Int16()))
	case dbus.KindUint16:
		return strconv.Itoa(int(v.Uint16()))
	case dbus.KindInt32:
		return strconv.Itoa(int(v.Int32()))
	case dbus.KindUint32:
		return strconv.FormatUint(uint64(v.Uint32()), 10)
	case dbus.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case dbus.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case dbus.KindDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case dbus.KindVariant:
		return describe(v.VariantValue())
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
