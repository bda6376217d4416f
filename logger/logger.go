/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package logger wraps github.com/hashicorp/go-hclog behind a small
// structured-logging interface so the rest of the gateway never imports
// hclog directly.
package logger

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the structured logging contract used throughout the gateway.
// Every call site passes a message plus optional Fields; the concrete
// implementation is responsible for level filtering and formatting.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)

	SetLevel(lvl Level)
	GetLevel() Level
	Named(name string) Logger
}

type logger struct {
	h hclog.Logger
	l Level
}

// New returns an hclog-backed Logger named name, writing to stderr at the
// given level. A NilLevel logger discards everything without touching hclog.
func New(name string, lvl Level) Logger {
	return &logger{
		h: hclog.New(&hclog.LoggerOptions{
			Name:            name,
			Level:           lvl.HCLog(),
			Output:          os.Stderr,
			IncludeLocation: false,
		}),
		l: lvl,
	}
}

func (l *logger) Debug(msg string, f Fields) {
	if l.l < DebugLevel {
		return
	}
	l.h.Debug(msg, f.AsInterfaceSlice()...)
}

func (l *logger) Info(msg string, f Fields) {
	if l.l < InfoLevel {
		return
	}
	l.h.Info(msg, f.AsInterfaceSlice()...)
}

func (l *logger) Warn(msg string, f Fields) {
	if l.l < WarnLevel {
		return
	}
	l.h.Warn(msg, f.AsInterfaceSlice()...)
}

func (l *logger) Error(msg string, f Fields) {
	if l.l < ErrorLevel {
		return
	}
	l.h.Error(msg, f.AsInterfaceSlice()...)
}

func (l *logger) SetLevel(lvl Level) {
	l.l = lvl
	l.h.SetLevel(lvl.HCLog())
}

func (l *logger) GetLevel() Level {
	return l.l
}

func (l *logger) Named(name string) Logger {
	return &logger{h: l.h.Named(name), l: l.l}
}

// nopLogger is the nil-safe default used when a component is constructed
// without an explicit Logger.
type nopLogger struct{}

func (nopLogger) Debug(string, Fields) {}
func (nopLogger) Info(string, Fields)  {}
func (nopLogger) Warn(string, Fields)  {}
func (nopLogger) Error(string, Fields) {}
func (nopLogger) SetLevel(Level)       {}
func (nopLogger) GetLevel() Level      { return NilLevel }
func (nopLogger) Named(string) Logger  { return nopLogger{} }

// Nop returns a Logger that discards everything, used whenever a
// collaborator is constructed without an explicit logger.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l unmodified if non-nil, else a discarding Logger.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
