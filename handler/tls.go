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

import (
	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/session"
)

const tlsHandshakeClientHello = 1

// TLS inspects one TLS record header (RFC 8446 §5.1) and, on a
// ClientHello handshake message, marks the session TlsEstablished.
// The gateway detects TLS records; it never decrypts them, so there is
// no application-layer reply.
func TLS(rec *session.Record) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()
	if len(buf) < 5 {
		return Outcome{NeedMore: true}, nil
	}

	contentType := buf[0]
	version := uint16(buf[1])<<8 | uint16(buf[2])
	length := int(buf[3])<<8 | int(buf[4])

	if contentType < 20 || contentType > 23 {
		return Outcome{}, liberr.ProtocolMalformed.Error(nil)
	}

	total := 5 + length
	if total > len(buf) {
		return Outcome{NeedMore: true}, nil
	}

	rec.ProtocolData.TLS.ContentType = contentType
	rec.ProtocolData.TLS.Version = version

	if contentType == 22 && length > 0 {
		handshakeType := buf[5]
		rec.ProtocolData.TLS.HandshakeType = handshakeType
		if handshakeType == tlsHandshakeClientHello {
			rec.Flags.Set(session.FlagTlsEstablished)
		}
	}

	return Outcome{Consumed: total}, nil
}
