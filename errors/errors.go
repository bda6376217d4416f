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

package errors

import (
	goErr "errors"
	"fmt"
)

// Error is the gateway's error contract: a standard error carrying the
// CodeError it was raised under, with the cause (if any) reachable
// through Unwrap and the standard errors.Is / errors.As helpers.
type Error interface {
	error

	// Code returns the CodeError this error was raised under.
	Code() CodeError

	// String returns the registered message for the code, without the
	// numeric prefix or the cause chain.
	String() string

	// Unwrap returns the wrapped cause, or nil.
	Unwrap() error

	// Is reports whether target carries the same CodeError, or matches
	// the wrapped cause per the standard errors.Is rules.
	Is(target error) bool
}

type codedError struct {
	code   CodeError
	parent error
}

// Error raises c as an Error wrapping parent. parent may be nil when
// the code alone tells the whole story.
func (c CodeError) Error(parent error) Error {
	return &codedError{code: c, parent: parent}
}

func (e *codedError) Error() string {
	if e.parent == nil {
		return fmt.Sprintf("[Error #%d] %s", e.code, e.code.Message())
	}
	return fmt.Sprintf("[Error #%d] %s: %v", e.code, e.code.Message(), e.parent)
}

func (e *codedError) Code() CodeError {
	return e.code
}

func (e *codedError) String() string {
	return e.code.Message()
}

func (e *codedError) Unwrap() error {
	return e.parent
}

func (e *codedError) Is(target error) bool {
	var ce *codedError
	if goErr.As(target, &ce) {
		return ce.code == e.code
	}
	if e.parent != nil {
		return goErr.Is(e.parent, target)
	}
	return false
}

// Has reports whether err, anywhere along its unwrap chain, is an
// Error raised under code.
func Has(err error, code CodeError) bool {
	for err != nil {
		if ce, ok := err.(Error); ok && ce.Code() == code {
			return true
		}
		err = goErr.Unwrap(err)
	}
	return false
}
