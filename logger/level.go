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

package logger

import (
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Level is a uint8 wrapper around hclog's own level scale, kept as a
// distinct type so callers never import hclog just to set a log level.
type Level uint8

const (
	// NilLevel disables logging entirely.
	NilLevel Level = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

// GetLevelListString returns every valid level's lowercase string form.
func GetLevelListString() []string {
	return []string{
		strings.ToLower(ErrorLevel.String()),
		strings.ToLower(WarnLevel.String()),
		strings.ToLower(InfoLevel.String()),
		strings.ToLower(DebugLevel.String()),
		strings.ToLower(NilLevel.String()),
	}
}

// GetLevelString parses a level name, defaulting to InfoLevel when it
// doesn't recognize the input.
func GetLevelString(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "error":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "info":
		return InfoLevel
	case "debug", "trace":
		return DebugLevel
	case "nil", "off", "none":
		return NilLevel
	}

	return InfoLevel
}

func (l Level) Uint8() uint8 {
	return uint8(l)
}

func (l Level) String() string {
	//nolint exhaustive
	switch l {
	case ErrorLevel:
		return "Error"
	case WarnLevel:
		return "Warning"
	case InfoLevel:
		return "Info"
	case DebugLevel:
		return "Debug"
	case NilLevel:
		return "Nil"
	}

	return "unknown"
}

// HCLog converts to the equivalent hclog.Level, used only at the point
// where this package hands a level to the underlying hclog.Logger.
func (l Level) HCLog() hclog.Level {
	switch l {
	case ErrorLevel:
		return hclog.Error
	case WarnLevel:
		return hclog.Warn
	case InfoLevel:
		return hclog.Info
	case DebugLevel:
		return hclog.Debug
	case NilLevel:
		return hclog.Off
	}

	return hclog.Info
}
