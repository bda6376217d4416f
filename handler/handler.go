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

// Package handler implements the per-protocol message handlers:
// given a session record whose read buffer holds at least one
// in-progress message, each handler parses exactly the bytes of one
// message, updates the record's protocol-specific state, and appends
// reply bytes to the record's write buffer. No handler performs I/O;
// the reactor flushes the write buffer once the socket is writable.
package handler

import (
	"time"

	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/protocol"
	"github.com/nabbar/iotgw/session"
)

// Outcome reports how much of the read buffer a handler consumed and
// whether the caller should keep dispatching (a TCP stream may hold
// more than one complete message per read).
type Outcome struct {
	// Consumed is the number of bytes of the message the handler
	// fully parsed, to be shifted out of the read buffer.
	Consumed int

	// NeedMore is true when the buffered bytes are a partial message;
	// the caller must wait for more bytes before dispatching again.
	NeedMore bool
}

// Dispatch routes rec to the handler matching rec.Protocol.
func Dispatch(rec *session.Record, now time.Time) (Outcome, error) {
	var (
		out Outcome
		err error
	)

	switch rec.Protocol {
	case protocol.MQTT:
		out, err = MQTT(rec)
	case protocol.CoAP:
		out, err = CoAP(rec)
	case protocol.HTTP:
		out, err = HTTP(rec, now)
	case protocol.DNS:
		out, err = DNS(rec)
	case protocol.TLS:
		out, err = TLS(rec)
	case protocol.QUIC:
		out, err = QUIC(rec)
	default:
		return Outcome{}, liberr.ProtocolUnknown.Error(nil)
	}

	if err != nil {
		rec.ErrorCount++
		return out, err
	}

	if !out.NeedMore {
		rec.LastActivity = now
		rec.MessageCount++
		rec.TotalMessages++
	}

	return out, err
}
