package util

import (
	"log"
)

// ErrorLogger receives errors that occur asynchronously, such as
// failures to store the result of an execution in the Action Cache, or
// routines of a program that terminate. These errors cannot be
// returned to a caller directly.
type ErrorLogger interface {
	Log(err error)
}

type defaultErrorLogger struct{}

func (defaultErrorLogger) Log(err error) {
	log.Print("Error: ", err)
}

// DefaultErrorLogger writes errors to the standard logger.
var DefaultErrorLogger ErrorLogger = defaultErrorLogger{}

type prefixingErrorLogger struct {
	base   ErrorLogger
	prefix string
}

// NewPrefixingErrorLogger creates an ErrorLogger that wraps all errors
// using StatusWrap() before forwarding them, so that the component
// that reported them can be identified.
func NewPrefixingErrorLogger(base ErrorLogger, prefix string) ErrorLogger {
	return &prefixingErrorLogger{
		base:   base,
		prefix: prefix,
	}
}

func (l *prefixingErrorLogger) Log(err error) {
	l.base.Log(StatusWrap(err, l.prefix))
}
