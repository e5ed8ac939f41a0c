/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logx

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields carries arbitrary structured key/value data attached to a log
// entry, e.g. the connection id and remote address for a stream worker.
type Fields map[string]interface{}

// FuncLog lazily resolves a Logger, letting components accept a function
// instead of an interface so a caller can swap loggers at runtime (tests
// commonly pass a function returning a Discard logger).
type FuncLog func() Logger

// Logger is the structured logging surface every package in this module
// logs through.
type Logger interface {
	// SetLevel changes the minimal level of message this Logger emits.
	SetLevel(lvl Level)

	// GetLevel returns the minimal level of message this Logger emits.
	GetLevel() Level

	// SetFields replaces the default fields merged into every entry.
	SetFields(f Fields)

	// GetFields returns the default fields merged into every entry.
	GetFields() Fields

	// WithFields returns a derived Logger with extra per-call fields merged
	// on top of the default fields, without mutating the receiver.
	WithFields(f Fields) Logger

	Debug(message string, fields Fields)
	Info(message string, fields Fields)
	Warning(message string, fields Fields)
	Error(message string, fields Fields)

	// Fatal logs at FatalLevel and terminates the process, matching
	// logrus.Logger.Fatal's own semantics.
	Fatal(message string, fields Fields)
}

type logger struct {
	mu     sync.RWMutex
	base   *logrus.Logger
	fields Fields
}

// New returns a Logger writing JSON-formatted entries to w at the given
// minimum level. Passing a nil w defaults to os.Stderr.
func New(w io.Writer, lvl Level) Logger {
	if w == nil {
		w = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(lvl.logrus())

	return &logger{base: l, fields: Fields{}}
}

// Discard returns a Logger that drops every entry, for tests and demo code
// that does not care about log output.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logger{base: l, fields: Fields{}}
}

func (l *logger) SetLevel(lvl Level) {
	l.base.SetLevel(lvl.logrus())
}

func (l *logger) GetLevel() Level {
	switch l.base.GetLevel() {
	case logrus.PanicLevel:
		return PanicLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.DebugLevel:
		return DebugLevel
	default:
		return NilLevel
	}
}

func (l *logger) SetFields(f Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fields = f
}

func (l *logger) GetFields() Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cp := make(Fields, len(l.fields))
	for k, v := range l.fields {
		cp[k] = v
	}
	return cp
}

func (l *logger) WithFields(f Fields) Logger {
	merged := l.GetFields()
	for k, v := range f {
		merged[k] = v
	}

	return &logger{base: l.base, fields: merged}
}

func (l *logger) entry(fields Fields) *logrus.Entry {
	merged := l.GetFields()
	for k, v := range fields {
		merged[k] = v
	}

	return l.base.WithFields(logrus.Fields(merged))
}

func (l *logger) Debug(message string, fields Fields) {
	l.entry(fields).Debug(message)
}

func (l *logger) Info(message string, fields Fields) {
	l.entry(fields).Info(message)
}

func (l *logger) Warning(message string, fields Fields) {
	l.entry(fields).Warning(message)
}

func (l *logger) Error(message string, fields Fields) {
	l.entry(fields).Error(message)
}

func (l *logger) Fatal(message string, fields Fields) {
	l.entry(fields).Fatal(message)
}
