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

import "github.com/nabbar/iotgw/protocol"

// MQTTData holds the subset of MQTT session state the handlers need
// across messages on the same connection.
type MQTTData struct {
	ClientID      string
	ProtocolLevel uint8
	KeepAlive     uint16
	QoSDefault    uint8
}

// CoAPData tracks the running message-id and token state for a CoAP
// endpoint, plus its observe sequence when subscribed to a resource.
type CoAPData struct {
	NextMessageID uint16
	Token         []byte
	ObserveSeq    uint32
}

// HTTPData holds the fields of the most recently parsed request that
// the response handler and keep-alive logic need.
type HTTPData struct {
	Method        string
	URI           string
	Version       string
	Host          string
	ContentLength int64
	Close         bool
}

// DNSData holds the fields of the most recently parsed query.
type DNSData struct {
	TxnID     uint16
	Flags     uint16
	QueryName string
	QueryType uint16
}

// TLSData holds the fields of the most recently parsed record header.
type TLSData struct {
	ContentType   uint8
	Version       uint16
	HandshakeType uint8
}

// QUICData holds the fields of the most recently parsed packet header.
type QUICData struct {
	Version      uint32
	PacketType   uint8
	ConnectionID []byte
}

// ProtocolData is a tagged union over the per-protocol state a session
// may carry; exactly one field is meaningful at a time, selected by the
// owning Record's Protocol field. Every access must dispatch on that
// field rather than guessing from whichever variant is non-zero.
type ProtocolData struct {
	MQTT MQTTData
	CoAP CoAPData
	HTTP HTTPData
	DNS  DNSData
	TLS  TLSData
	QUIC QUICData
}

// Reset clears every variant, used when a slot is recycled for a new
// connection so stale protocol state from a previous occupant never
// leaks through.
func (d *ProtocolData) Reset() {
	*d = ProtocolData{}
}

// Dispatch calls the function registered for p's variant, if any.
func (d *ProtocolData) Dispatch(p protocol.AppProtocol, fn ProtocolDataVisitor) {
	if fn == nil {
		return
	}

	switch p {
	case protocol.MQTT:
		fn.MQTT(&d.MQTT)
	case protocol.CoAP:
		fn.CoAP(&d.CoAP)
	case protocol.HTTP:
		fn.HTTP(&d.HTTP)
	case protocol.DNS:
		fn.DNS(&d.DNS)
	case protocol.TLS:
		fn.TLS(&d.TLS)
	case protocol.QUIC:
		fn.QUIC(&d.QUIC)
	}
}

// ProtocolDataVisitor lets a caller handle each protocol variant
// without a type switch; implementations leave unused methods empty.
type ProtocolDataVisitor interface {
	MQTT(*MQTTData)
	CoAP(*CoAPData)
	HTTP(*HTTPData)
	DNS(*DNSData)
	TLS(*TLSData)
	QUIC(*QUICData)
}
