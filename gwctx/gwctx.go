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

// Package gwctx threads the gateway's collaborators (logger, config,
// detector, session table, stats registry) through a context.Context
// instead of a package-level mutable global. Each collaborator is stored
// under a name unique to its kind, so the reactor can pull out exactly
// the types it needs without gwctx importing any of them.
package gwctx

import "context"

type ctxKey struct {
	name string
}

// WithValue returns a child context carrying v, retrievable later by
// name via Value. Distinct names never collide even if T is the same
// for two different collaborators.
func WithValue[T any](parent context.Context, name string, v T) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, ctxKey{name: name}, v)
}

// Value retrieves the collaborator stored under name, reporting whether
// it was present and of type T.
func Value[T any](ctx context.Context, name string) (T, bool) {
	var zero T

	if ctx == nil {
		return zero, false
	}

	v, ok := ctx.Value(ctxKey{name: name}).(T)
	if !ok {
		return zero, false
	}

	return v, true
}

// MustValue retrieves the collaborator stored under name, panicking if
// it is absent or of the wrong type. Reserved for collaborators the
// reactor wires in at startup and that must never be missing afterward.
func MustValue[T any](ctx context.Context, name string) T {
	v, ok := Value[T](ctx, name)
	if !ok {
		panic("gwctx: missing required value " + name)
	}
	return v
}

// Well-known collaborator names, shared between the code that wires a
// value in (cmd/iotgw) and the code that reads it back out (reactor).
const (
	KeyLogger   = "logger"
	KeyConfig   = "config"
	KeyDetector = "detector"
	KeySessions = "sessions"
	KeyStats    = "stats"
)
