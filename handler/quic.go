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

package handler

import "github.com/nabbar/iotgw/session"

// QUIC inspects one long-header QUIC packet (RFC 9000 §17.2), records
// its version and connection id, and consumes the whole datagram:
// there is no per-packet framing to split on without decrypting the
// payload, and no application-layer reply.
func QUIC(rec *session.Record) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()
	if len(buf) < 5 {
		return Outcome{NeedMore: true}, nil
	}

	packetType := buf[0]
	version := uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])

	dcidLen := 0
	dcidStart := 5
	if dcidStart < len(buf) {
		dcidLen = int(buf[dcidStart])
		dcidStart++
	}

	rec.ProtocolData.QUIC.PacketType = packetType
	rec.ProtocolData.QUIC.Version = version
	if dcidStart+dcidLen <= len(buf) {
		rec.ProtocolData.QUIC.ConnectionID = append([]byte(nil), buf[dcidStart:dcidStart+dcidLen]...)
	}

	return Outcome{Consumed: len(buf)}, nil
}
