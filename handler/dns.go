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

// DNS parses one RFC 1035 message (header + question section) and
// enqueues a response echoing the question with a single A record
// 127.0.0.1, TTL 300.
func DNS(rec *session.Record) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()
	if len(buf) < 12 {
		return Outcome{NeedMore: true}, nil
	}

	txnID := uint16(buf[0])<<8 | uint16(buf[1])
	flags := uint16(buf[2])<<8 | uint16(buf[3])
	qdcount := int(uint16(buf[4])<<8 | uint16(buf[5]))

	opcode := uint8((flags >> 11) & 0x0F)
	if opcode > 5 || qdcount > 1000 {
		return Outcome{}, liberr.ProtocolMalformed.Error(nil)
	}

	rec.ProtocolData.DNS.TxnID = txnID
	rec.ProtocolData.DNS.Flags = flags
	rec.Flags.Set(session.FlagDnsRecursive)

	qEnd := 12
	var name []byte
	for qdcount > 0 && qEnd < len(buf) {
		nameStart := qEnd
		for qEnd < len(buf) && buf[qEnd] != 0 {
			step := int(buf[qEnd]) + 1
			qEnd += step
		}
		if qEnd >= len(buf) {
			return Outcome{NeedMore: true}, nil
		}
		qEnd++ // root label
		if qEnd+4 > len(buf) {
			return Outcome{NeedMore: true}, nil
		}
		name = buf[nameStart:qEnd]
		rec.ProtocolData.DNS.QueryType = uint16(buf[qEnd])<<8 | uint16(buf[qEnd+1])
		qEnd += 4 // qtype + qclass
		break
	}

	rec.ProtocolData.DNS.QueryName = decodeDNSName(name)

	reply := make([]byte, 0, qEnd+16)
	reply = append(reply, byte(txnID>>8), byte(txnID))
	reply = append(reply, 0x81, 0x80) // response, recursion available, no error
	reply = append(reply, 0x00, 0x01) // qdcount=1
	reply = append(reply, 0x00, 0x01) // ancount=1
	reply = append(reply, 0x00, 0x00) // nscount=0
	reply = append(reply, 0x00, 0x00) // arcount=0
	reply = append(reply, buf[12:qEnd]...)

	// answer: pointer to question name, type A, class IN, TTL 300, 4-byte RDATA.
	reply = append(reply, 0xC0, 0x0C)
	reply = append(reply, 0x00, 0x01, 0x00, 0x01)
	reply = append(reply, 0x00, 0x00, 0x01, 0x2C) // TTL 300
	reply = append(reply, 0x00, 0x04)
	reply = append(reply, 127, 0, 0, 1)

	rec.WriteBuf.Append(reply)

	return Outcome{Consumed: qEnd}, nil
}

// decodeDNSName turns wire-format labels (length-prefixed, root
// terminated) into a dotted name, for diagnostics and session state.
func decodeDNSName(wire []byte) string {
	if len(wire) == 0 {
		return ""
	}
	var out []byte
	i := 0
	for i < len(wire) && wire[i] != 0 {
		n := int(wire[i])
		i++
		if i+n > len(wire) {
			break
		}
		if len(out) > 0 {
			out = append(out, '.')
		}
		out = append(out, wire[i:i+n]...)
		i += n
	}
	return string(out)
}
