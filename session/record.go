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

import (
	"fmt"
	"time"

	"github.com/nabbar/iotgw/congestion"
	"github.com/nabbar/iotgw/protocol"
)

const bufferSize = 4096

// Handle identifies a Record across its lifetime. Index is the slot in
// the Table's slab; Generation is bumped every time the slot is
// recycled, so a Handle captured before a connection closes can never
// be mistaken for the unrelated connection that later reuses the same
// slot.
type Handle struct {
	Index      int
	Generation uint32
}

// Buffer is a fixed 4096-byte streaming buffer: bytes are appended at
// the tail and consumed from the head, with Consume shifting the
// unread remainder down so trailing bytes of a partial following frame
// survive the dispatch of the frame before them.
type Buffer struct {
	data [bufferSize]byte
	n    int
}

// Len reports how many unread bytes are currently buffered.
func (b *Buffer) Len() int {
	return b.n
}

// Available reports how much spare capacity remains for Append.
func (b *Buffer) Available() int {
	return bufferSize - b.n
}

// Append copies p onto the tail of the buffer. It returns false if p
// would not fit in the remaining capacity, leaving the buffer
// untouched.
func (b *Buffer) Append(p []byte) bool {
	if len(p) > b.Available() {
		return false
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return true
}

// Bytes returns the unread portion of the buffer. The slice aliases
// internal storage and is invalidated by the next Append or Consume.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Consume removes the first n bytes, shifting any remainder down to
// the front of the buffer. n is clamped to the buffered length.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.data[0:], b.data[n:b.n])
	b.n -= n
}

// Reset discards all buffered bytes.
func (b *Buffer) Reset() {
	b.n = 0
}

// Record is one tracked connection: its I/O state, its detected
// protocol and that protocol's session-local data, its congestion
// state, and its running statistics.
type Record struct {
	Handle Handle

	FD         int
	RemoteAddr string
	Transport  protocol.Transport

	ConnState    ConnState
	SessionState SessionState
	Flags        Flags

	Protocol            protocol.AppProtocol
	DetectionConfidence float64
	DetectionAttempts   int

	ReadBuf  Buffer
	WriteBuf Buffer

	ProtocolData ProtocolData

	Congestion congestion.State

	CreatedAt    time.Time
	LastActivity time.Time

	MessageCount  uint64
	TotalMessages uint64
	ErrorCount    uint64
}

// SessionID derives the record's human-readable identifier from its
// protocol, descriptor and creation time. Uniqueness across fd reuse
// comes from the timestamp; aliasing protection is the Handle's job,
// not the id's.
func (r *Record) SessionID() string {
	return fmt.Sprintf("%s_%d_%d", r.Protocol.String(), r.FD, r.CreatedAt.UnixNano())
}

// reset clears a record back to its zero-value shape so a recycled
// slot carries no state from its previous occupant, other than the
// handle's bumped generation which the Table manages separately.
func (r *Record) reset() {
	h := r.Handle
	*r = Record{Handle: h}
}

// initProtocolDefaults seeds the per-protocol session defaults: MQTT
// keepalive 60s at QoS 0 protocol level 4, CoAP message ids starting at
// 1, HTTP/1.1, DNS A queries.
func initProtocolDefaults(r *Record) {
	r.ProtocolData.MQTT = MQTTData{KeepAlive: 60, QoSDefault: 0, ProtocolLevel: 4}
	r.ProtocolData.CoAP = CoAPData{NextMessageID: 1}
	r.ProtocolData.HTTP = HTTPData{Version: "HTTP/1.1"}
	r.ProtocolData.DNS = DNSData{QueryType: 1}
}

// NewDatagramRecord returns a free-standing Record for one sessionless
// datagram exchange: initialized like a table slot but never stored, so
// a UDP peer leaves no session state behind once its reply is sent.
func NewDatagramRecord(remoteAddr string, now time.Time) *Record {
	r := &Record{
		RemoteAddr:   remoteAddr,
		Transport:    protocol.TransportUDP,
		ConnState:    Connected,
		SessionState: StateConnected,
		Flags:        NewFlags(),
		Protocol:     protocol.Unknown,
		CreatedAt:    now,
		LastActivity: now,
		Congestion:   *congestion.New(now, 0),
	}
	initProtocolDefaults(r)
	return r
}
