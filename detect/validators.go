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

package detect

import (
	"bytes"
	"math"

	"github.com/nabbar/iotgw/protocol"
)

// features are the ten normalized [0,1] inputs to the confidence
// formula. Every validator populates all but validation and
// historicalAcc, which DetectFull fills in from the validator's own
// check count and the Detector's running accuracy record.
type features struct {
	entropy       float64
	pattern       float64
	validation    float64
	header        float64
	payload       float64
	transport     float64
	context       float64
	historicalAcc float64
	risk          float64
	specificity   float64
}

func entropyScore(payload []byte) float64 {
	if len(payload) < 16 {
		return 0.5
	}

	var counts [256]int
	for _, b := range payload {
		counts[b]++
	}

	n := float64(len(payload))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}

	return h / 8
}

func riskBaseline(base float64, payloadLen int) float64 {
	risk := base
	if payloadLen < 8 || payloadLen > 4096 {
		risk += 0.1
	}
	return risk
}

func hasAny(payload []byte, subs ...string) bool {
	for _, s := range subs {
		if bytes.Contains(payload, []byte(s)) {
			return true
		}
	}
	return false
}

// validate dispatches to the per-protocol full validator, returning
// whether it passed, the feature vector (validation/historicalAcc
// left zero for the caller to fill), and the checks-passed/total
// counts used to derive the validation-depth feature.
func validate(p protocol.AppProtocol, payload []byte, isTCP bool) (ok bool, f features, checksPassed, checksTotal int) {
	switch p {
	case protocol.MQTT:
		return validateMQTT(payload, isTCP)
	case protocol.CoAP:
		return validateCoAP(payload, isTCP)
	case protocol.HTTP:
		return validateHTTP(payload, isTCP)
	case protocol.DNS:
		return validateDNS(payload, isTCP)
	case protocol.TLS:
		return validateTLS(payload, isTCP)
	case protocol.QUIC:
		return validateQUIC(payload, isTCP)
	}
	return false, features{}, 0, 1
}

// ---- fast path ----

func fastTLS(p []byte) bool {
	return len(p) >= 1 && p[0] >= 20 && p[0] <= 23
}

func fastQUIC(p []byte) bool {
	return len(p) >= 1 && p[0]&0x80 != 0
}

var httpMethods = []string{"GET ", "POST ", "PUT ", "HEAD ", "DELETE ", "OPTIONS ", "PATCH "}

func fastHTTP(p []byte) bool {
	if bytes.HasPrefix(p, []byte("HTTP/")) {
		return true
	}
	for _, m := range httpMethods {
		if bytes.HasPrefix(p, []byte(m)) {
			return true
		}
	}
	return false
}

func fastDNS(p []byte) bool {
	if len(p) < 4 {
		return false
	}
	opcode := (p[2] >> 3) & 0x0F
	return opcode <= 2
}

func fastMQTT(p []byte) bool {
	if len(p) < 1 {
		return false
	}
	t := p[0] >> 4
	return t >= 1 && t <= 14
}

func fastCoAP(p []byte) bool {
	if len(p) < 1 {
		return false
	}
	ver := p[0] >> 6
	typ := (p[0] >> 4) & 0x03
	return ver == 1 && typ <= 3
}

// ---- MQTT ----

func decodeRemainingLength(p []byte) (value int, consumed int, ok bool) {
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

func validateMQTT(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 4
	checksPassed := 0

	if len(p) < 2 {
		return false, features{}, 0, checksTotal
	}

	packetType := p[0] >> 4
	flags := p[0] & 0x0F

	if packetType < 1 || packetType > 14 {
		return false, features{}, 0, checksTotal
	}
	checksPassed++

	flagsOK := false
	switch packetType {
	case 6, 8, 10: // PUBREL, SUBSCRIBE, UNSUBSCRIBE
		flagsOK = flags&0x02 != 0
	case 3: // PUBLISH
		qos := (flags >> 1) & 0x03
		flagsOK = qos != 3
	default:
		flagsOK = flags == 0
	}
	if !flagsOK {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	remLen, consumed, decoded := decodeRemainingLength(p)
	if !decoded {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	headerLen := 1 + consumed
	streaming := headerLen+remLen != len(p)
	if !streaming {
		checksPassed++
	}

	hasName := false
	if packetType == 1 && len(p) >= headerLen+6 {
		nameLen := int(p[headerLen])<<8 | int(p[headerLen+1])
		if nameLen == 4 && string(p[headerLen+2:headerLen+6]) == "MQTT" {
			hasName = true
		} else if nameLen == 6 && len(p) >= headerLen+8 && string(p[headerLen+2:headerLen+8]) == "MQIsdp" {
			hasName = true
		}
	}

	f := features{
		entropy:     entropyScore(p),
		pattern:     0.6,
		header:      0.8,
		payload:     0.6,
		transport:   0.0,
		context:     0.8,
		risk:        riskBaseline(0.15, len(p)),
		specificity: 0.5,
	}
	if isTCP {
		f.transport = 1.0
	}
	if !streaming {
		f.payload = 1.0
	}
	if hasName {
		f.pattern = 0.85
		f.specificity = 0.9
	}

	return true, f, checksPassed, checksTotal
}

// ---- CoAP ----

func validateCoAP(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 4
	checksPassed := 0

	if len(p) < 4 {
		return false, features{}, 0, checksTotal
	}

	ver := p[0] >> 6
	if ver != 1 {
		return false, features{}, 0, checksTotal
	}
	checksPassed++

	tkl := p[0] & 0x0F
	if tkl > 8 {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	code := p[1]
	class := code >> 5
	reserved := class == 1 || class == 3 || class == 6 || class == 7
	if class > 5 || reserved {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	if len(p) < 4+int(tkl) {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	hasMarker := bytes.IndexByte(p, 0xFF) >= 0

	f := features{
		entropy:     entropyScore(p),
		pattern:     0.6,
		header:      0.8,
		payload:     0.7,
		transport:   0.0,
		context:     0.6,
		risk:        riskBaseline(0.20, len(p)),
		specificity: 0.5,
	}
	if !isTCP {
		f.transport = 1.0
	}
	if hasMarker {
		f.payload = 0.9
		f.specificity = 0.75
	}

	return true, f, checksPassed, checksTotal
}

// ---- HTTP ----

var httpHeaders = []string{"Host:", "Content-Length:", "Content-Type:", "User-Agent:", "Connection:"}

func validateHTTP(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 3
	checksPassed := 0

	isRequestLine := fastHTTP(p)
	if isRequestLine {
		checksPassed++
	}

	window := p
	if len(window) > 64 {
		window = window[:64]
	}
	hasHeader := hasAny(window, httpHeaders...)
	if hasHeader {
		checksPassed++
	}

	hasLiteral := bytes.Contains(p, []byte("HTTP/"))
	if hasLiteral {
		checksPassed++
	}

	if !isRequestLine && !hasHeader && !hasLiteral {
		return false, features{}, 0, checksTotal
	}

	f := features{
		entropy:     entropyScore(p),
		pattern:     0.6,
		header:      0.7,
		payload:     0.7,
		transport:   0.0,
		context:     0.7,
		risk:        riskBaseline(0.10, len(p)),
		specificity: 0.5,
	}
	if isTCP {
		f.transport = 1.0
	}
	if hasLiteral {
		f.pattern = 0.9
		f.specificity = 0.9
	}
	if hasHeader {
		f.header = 0.9
	}

	return true, f, checksPassed, checksTotal
}

// ---- DNS ----

func validateDNS(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 4
	checksPassed := 0

	body := p
	if isTCP && len(p) >= 2 {
		declared := int(p[0])<<8 | int(p[1])
		if declared == len(p)-2 {
			body = p[2:]
		}
	}

	if len(body) < 12 {
		return false, features{}, 0, checksTotal
	}
	checksPassed++

	flags := int(body[2])<<8 | int(body[3])
	qr := (flags >> 15) & 0x1
	opcode := (flags >> 11) & 0x0F
	rcode := flags & 0x0F

	if opcode > 5 {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	if rcode > 5 {
		return false, features{}, checksPassed, checksTotal
	}
	if qr == 0 && rcode != 0 {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	qdcount := int(body[4])<<8 | int(body[5])
	ancount := int(body[6])<<8 | int(body[7])
	nscount := int(body[8])<<8 | int(body[9])
	arcount := int(body[10])<<8 | int(body[11])

	maxQuery, maxRecord := 1000, 10000
	if qdcount > maxQuery || ancount > maxRecord || nscount > maxRecord || arcount > maxRecord {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	f := features{
		entropy:     entropyScore(body),
		pattern:     0.6,
		header:      0.8,
		payload:     0.7,
		transport:   0.5,
		context:     0.4,
		risk:        riskBaseline(0.20, len(body)),
		specificity: 0.6,
	}

	return true, f, checksPassed, checksTotal
}

// ---- TLS ----

func validateTLS(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 3
	checksPassed := 0

	if len(p) < 5 {
		return false, features{}, 0, checksTotal
	}

	contentType := p[0]
	if contentType < 20 || contentType > 23 {
		return false, features{}, 0, checksTotal
	}
	checksPassed++

	version := int(p[1])<<8 | int(p[2])
	if version < 0x0300 || version > 0x0304 {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	declared := int(p[3])<<8 | int(p[4])
	streaming := declared+5 > len(p)
	if !streaming {
		checksPassed++
	}

	handshakeOK := true
	if contentType == 22 && len(p) >= 6 {
		handshakeOK = p[5] <= 20
	}
	if !handshakeOK {
		return false, features{}, checksPassed, checksTotal
	}

	f := features{
		entropy:     entropyScore(p),
		pattern:     0.7,
		header:      0.85,
		payload:     0.8,
		transport:   0.0,
		context:     0.9,
		risk:        riskBaseline(0.10, len(p)),
		specificity: 0.7,
	}
	if isTCP {
		f.transport = 1.0
	}
	if streaming {
		f.payload = 0.6
	}

	return true, f, checksPassed, checksTotal
}

// ---- QUIC ----

var quicDraftVersions = map[uint32]bool{
	0x00000000: true, // version negotiation
	0x51303433: true, // Q043
	0x51303436: true, // Q046
	0x51303530: true, // Q050
	0xff00001d: true, // draft-29
	0x00000001: true, // QUIC v1
}

func validateQUIC(p []byte, isTCP bool) (bool, features, int, int) {
	const checksTotal = 2
	checksPassed := 0

	if len(p) < 5 {
		return false, features{}, 0, checksTotal
	}

	if p[0]&0x80 == 0 {
		return false, features{}, 0, checksTotal
	}
	checksPassed++

	version := uint32(p[1])<<24 | uint32(p[2])<<16 | uint32(p[3])<<8 | uint32(p[4])
	if !quicDraftVersions[version] {
		return false, features{}, checksPassed, checksTotal
	}
	checksPassed++

	f := features{
		entropy:     entropyScore(p),
		pattern:     0.6,
		header:      0.8,
		payload:     0.7,
		transport:   0.0,
		context:     0.75,
		risk:        riskBaseline(0.20, len(p)),
		specificity: 0.6,
	}
	if !isTCP {
		f.transport = 1.0
	}
	if version == 0 {
		f.specificity = 0.8
	}

	return true, f, checksPassed, checksTotal
}
