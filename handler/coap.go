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
	"encoding/json"

	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/session"
)

// coapAck is the JSON envelope used for a CoAP 2.05 Content ACK body.
type coapAck struct {
	Status string `json:"status"`
	MID    uint16 `json:"mid"`
}

const (
	coapTypeCon = 0
	coapTypeNon = 1
)

// CoAP parses one CoAP message (RFC 7252 §3 fixed header) from rec's
// read buffer. UDP datagrams always hold exactly one message, but the
// parser is written the same consume-and-report-length way as the
// streaming handlers so it composes with a future TCP/CoAP transport.
func CoAP(rec *session.Record) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()
	if len(buf) < 4 {
		return Outcome{NeedMore: true}, nil
	}

	version := buf[0] >> 6
	typ := (buf[0] >> 4) & 0x03
	tokenLen := int(buf[0] & 0x0F)
	code := buf[1]
	messageID := uint16(buf[2])<<8 | uint16(buf[3])

	if version != 1 || tokenLen > 8 {
		return Outcome{}, liberr.ProtocolMalformed.Error(nil)
	}
	if len(buf) < 4+tokenLen {
		return Outcome{NeedMore: true}, nil
	}

	rec.ProtocolData.CoAP.NextMessageID = messageID + 1
	if tokenLen > 0 {
		rec.ProtocolData.CoAP.Token = append([]byte(nil), buf[4:4+tokenLen]...)
	}

	isRequest := code >= 1 && code <= 31
	if isRequest && (typ == coapTypeCon || typ == coapTypeNon) {
		// A confirmable request is owed a piggybacked ACK; a
		// non-confirmable one gets its response as another NON, per
		// RFC 7252 §5.2.2. ACK and RST types carry no request to
		// answer.
		first := byte(0x60)
		if typ == coapTypeNon {
			first = 0x50
		}

		body, _ := json.Marshal(coapAck{Status: "ok", MID: messageID})
		reply := make([]byte, 0, 5+len(body))
		reply = append(reply, first, 0x45, buf[2], buf[3], 0xFF)
		reply = append(reply, body...)
		rec.WriteBuf.Append(reply)
		rec.Flags.Set(session.FlagObserveActive)
	}

	return Outcome{Consumed: len(buf)}, nil
}
