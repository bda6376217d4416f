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

// Gateway error codes, grouped by kind per the error-handling design:
// input errors never reach a peer, capacity/protocol errors drive
// connection teardown, I/O errors distinguish retryable from fatal, and
// internal errors always close the affected connection without crashing
// the process.
const (
	// Input errors (1xxx): invalid parameter, nil handle, buffer too small.
	InvalidParam CodeError = 1000 + iota
	NilHandle
	BufferTooSmall
	NotPowerOfTwo
)

const (
	// Capacity errors (2xxx): queue full, pool exhausted, session table full.
	QueueFull CodeError = 2000 + iota
	PoolExhausted
	SessionTableFull
	DoubleFree
)

const (
	// I/O errors (3xxx): accept/read/write failures.
	IOWouldBlock CodeError = 3000 + iota
	IOClosed
	IOFailed
)

const (
	// Protocol errors (4xxx): unknown or malformed wire data.
	ProtocolUnknown CodeError = 4000 + iota
	ProtocolMalformed
)

const (
	// Internal errors (5xxx): invariant violations.
	StateInvariantViolation CodeError = 5000 + iota
)

func init() {
	RegisterIdFctMessage(InvalidParam, gatewayMessage)
	RegisterIdFctMessage(QueueFull, gatewayMessage)
	RegisterIdFctMessage(IOWouldBlock, gatewayMessage)
	RegisterIdFctMessage(ProtocolUnknown, gatewayMessage)
	RegisterIdFctMessage(StateInvariantViolation, gatewayMessage)
}

func gatewayMessage(code CodeError) string {
	switch code {
	case InvalidParam:
		return "invalid parameter"
	case NilHandle:
		return "nil handle"
	case BufferTooSmall:
		return "buffer too small"
	case NotPowerOfTwo:
		return "capacity must be a power of two"
	case QueueFull:
		return "queue full"
	case PoolExhausted:
		return "memory pool exhausted"
	case SessionTableFull:
		return "session table full"
	case DoubleFree:
		return "double free"
	case IOWouldBlock:
		return "operation would block"
	case IOClosed:
		return "connection closed"
	case IOFailed:
		return "i/o operation failed"
	case ProtocolUnknown:
		return "unknown protocol"
	case ProtocolMalformed:
		return "malformed protocol packet"
	case StateInvariantViolation:
		return "state invariant violation"
	}

	return ""
}

// IsSuccess reports whether code represents success, i.e. the zero value.
func IsSuccess(code CodeError) bool {
	return code == UnknownError
}
