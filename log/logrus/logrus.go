// Package logrus adapts a logrus.Entry to the keyvalue.Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/hostfactor/keyvalue"
)

type Logger struct{ E *logrus.Entry }

var _ keyvalue.Logger = Logger{}

func (l Logger) Debug(msg string, f keyvalue.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f keyvalue.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l Logger) Warn(msg string, f keyvalue.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l Logger) Error(msg string, f keyvalue.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
