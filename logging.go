package dbus

import (
	logging "github.com/op/go-logging"
)

// logger is the subset of *logging.Logger this package calls. Defining it
// as an interface lets a Connection run with logging disabled (noopLogger)
// without sprinkling nil checks through auth.go and connection.go.
type logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// packageLogger is the op/go-logging logger used whenever a Connection
// isn't given one of its own via WithLogger. Callers that want to see it
// configure a backend the usual op/go-logging way, e.g.:
//
//	backend := logging.NewLogBackend(os.Stderr, "", 0)
//	logging.SetBackend(backend)
var packageLogger = logging.MustGetLogger("dbus")

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{})   {}
func (noopLogger) Infof(string, ...interface{})    {}
func (noopLogger) Warningf(string, ...interface{}) {}
func (noopLogger) Errorf(string, ...interface{})   {}
