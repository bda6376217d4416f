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

package session

// ConnState tracks where a connection sits in the reactor's I/O
// lifecycle, independent of how much of the application protocol has
// been negotiated.
type ConnState uint8

const (
	Listening ConnState = iota
	Connected
	Reading
	Writing
	Throttled
	Closing
)

func (s ConnState) String() string {
	switch s {
	case Listening:
		return "Listening"
	case Connected:
		return "Connected"
	case Reading:
		return "Reading"
	case Writing:
		return "Writing"
	case Throttled:
		return "Throttled"
	case Closing:
		return "Closing"
	}

	return "unknown"
}

// SessionState tracks how far the application-layer session has
// progressed, from first connect through authentication to terminal
// close.
type SessionState uint8

const (
	StateConnected SessionState = iota
	StateAuthenticated
	StateActive
	StateDisconnecting
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	case StateActive:
		return "Active"
	case StateDisconnecting:
		return "Disconnecting"
	case StateClosed:
		return "Closed"
	}

	return "unknown"
}

// CanTransitionTo enforces that terminal states are monotonic: once
// Closed, a session never re-enters any other state.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if s == StateClosed {
		return next == StateClosed
	}

	return true
}
