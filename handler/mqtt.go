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

const (
	mqttConnect    = 1
	mqttConnAck    = 2
	mqttPublish    = 3
	mqttPubAck     = 4
	mqttSubscribe  = 8
	mqttSubAck     = 9
	mqttPingReq    = 12
	mqttPingResp   = 13
	mqttDisconnect = 14
)

// decodeMQTTRemainingLength decodes MQTT's 1-4 byte variable-length
// integer starting at p[1], per OASIS MQTT 3.1.1 §2.2.3.
func decodeMQTTRemainingLength(p []byte) (value, consumed int, ok bool) {
	multiplier := 1
	for i := 0; i < 4 && 1+i < len(p); i++ {
		b := p[1+i]
		value += int(b&0x7F) * multiplier
		consumed = i + 1
		if b&0x80 == 0 {
			return value, consumed, true
		}
		multiplier *= 128
	}
	return 0, 0, false
}

// MQTT parses one fixed-header-framed MQTT packet from rec's read
// buffer and enqueues the appropriate acknowledgement. It consumes
// exactly the bytes of one packet, leaving any trailing pipelined
// bytes in the buffer for the next dispatch.
func MQTT(rec *session.Record) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()
	if len(buf) < 2 {
		return Outcome{NeedMore: true}, nil
	}

	remLen, consumed, ok := decodeMQTTRemainingLength(buf)
	if !ok {
		if len(buf) >= 5 {
			return Outcome{}, liberr.ProtocolMalformed.Error(nil)
		}
		return Outcome{NeedMore: true}, nil
	}

	packetType := buf[0] >> 4
	flags := buf[0] & 0x0F

	headerLen := 1 + consumed
	total := headerLen + remLen
	if total > len(buf) {
		// Devices in the field pad the remaining length past the bytes
		// they actually send. The packet is processed once every field
		// this handler reads has arrived, with the buffer end standing
		// in for the declared end; until then it is a partial frame.
		if !mqttBodyUsable(packetType, flags, buf[headerLen:]) {
			return Outcome{NeedMore: true}, nil
		}
		total = len(buf)
	}

	body := buf[headerLen:total]

	switch packetType {
	case mqttConnect:
		parseMQTTConnect(rec, body)
		rec.SessionState = session.StateAuthenticated
		rec.Flags.Set(session.FlagAuthenticated)
		rec.WriteBuf.Append([]byte{mqttConnAck << 4, 0x02, 0x00, 0x00})

	case mqttPublish:
		qos := (flags >> 1) & 0x03
		topicLen := 0
		if len(body) >= 2 {
			topicLen = int(body[0])<<8 | int(body[1])
		}
		if qos == 1 && len(body) >= 2+topicLen+2 {
			pid := body[2+topicLen : 2+topicLen+2]
			rec.WriteBuf.Append([]byte{mqttPubAck << 4, 0x02, pid[0], pid[1]})
		}
		rec.SessionState = session.StateActive
		rec.Flags.Set(session.FlagActive)

	case mqttSubscribe:
		var pidHi, pidLo byte
		if len(body) >= 2 {
			pidHi, pidLo = body[0], body[1]
		}
		rec.WriteBuf.Append([]byte{mqttSubAck << 4, 0x03, pidHi, pidLo, 0x00})

	case mqttPingReq:
		rec.WriteBuf.Append([]byte{mqttPingResp << 4, 0x00})

	case mqttDisconnect:
		rec.SessionState = session.StateDisconnecting

	default:
		// Recognized type the gateway doesn't act on (CONNACK, PUBACK,
		// SUBACK, PINGRESP, PUBREL, UNSUBSCRIBE, ...): accepted and
		// consumed without a reply.
	}

	return Outcome{Consumed: total}, nil
}

// mqttBodyUsable reports whether body already holds every field the
// handler interprets for packetType, so an under-delivered packet can
// be dispatched without waiting on padding bytes that never arrive.
func mqttBodyUsable(packetType, flags byte, body []byte) bool {
	switch packetType {
	case mqttConnect:
		if len(body) < 2 {
			return false
		}
		nameLen := int(body[0])<<8 | int(body[1])
		return len(body) >= 2+nameLen+4
	case mqttPublish:
		if len(body) < 2 {
			return false
		}
		need := 2 + int(body[0])<<8 + int(body[1])
		if (flags>>1)&0x03 > 0 {
			need += 2
		}
		return len(body) >= need
	case mqttSubscribe:
		return len(body) >= 2
	default:
		return true
	}
}

// parseMQTTConnect captures the protocol-version and keep-alive fields
// from a CONNECT packet's variable header when the protocol name is
// "MQTT" (3.1.1/5.0) or "MQIsdp" (3.1).
func parseMQTTConnect(rec *session.Record, body []byte) {
	if len(body) < 8 {
		return
	}
	nameLen := int(body[0])<<8 | int(body[1])

	var nameEnd int
	switch {
	case nameLen == 4 && len(body) >= 6 && string(body[2:6]) == "MQTT":
		nameEnd = 6
	case nameLen == 6 && len(body) >= 8 && string(body[2:8]) == "MQIsdp":
		nameEnd = 8
	default:
		return
	}

	if len(body) < nameEnd+4 {
		return
	}

	rec.ProtocolData.MQTT.ProtocolLevel = body[nameEnd]
	rec.ProtocolData.MQTT.KeepAlive = uint16(body[nameEnd+2])<<8 | uint16(body[nameEnd+3])
}
