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

// Package protocol holds the application-layer protocol vocabulary the
// detector classifies traffic into, and the transport it arrived on.
package protocol

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// AppProtocol is the application-layer protocol the detector assigns to
// a session once enough bytes have been observed.
type AppProtocol uint8

const (
	Unknown AppProtocol = iota
	MQTT
	CoAP
	HTTP
	DNS
	TLS
	QUIC
)

// All lists every classifiable protocol in detector priority order
// (highest fast-path priority first), excluding Unknown.
func All() []AppProtocol {
	return []AppProtocol{TLS, QUIC, HTTP, DNS, MQTT, CoAP}
}

func (p AppProtocol) String() string {
	switch p {
	case MQTT:
		return "MQTT"
	case CoAP:
		return "CoAP"
	case HTTP:
		return "HTTP"
	case DNS:
		return "DNS"
	case TLS:
		return "TLS"
	case QUIC:
		return "QUIC"
	case Unknown:
		return "Unknown"
	}

	return ""
}

// Parse maps a protocol name (case-insensitive) back to an AppProtocol,
// defaulting to Unknown for anything it doesn't recognize.
func Parse(s string) AppProtocol {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MQTT":
		return MQTT
	case "COAP":
		return CoAP
	case "HTTP":
		return HTTP
	case "DNS":
		return DNS
	case "TLS":
		return TLS
	case "QUIC":
		return QUIC
	}

	return Unknown
}

func (p AppProtocol) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *AppProtocol) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*p = Parse(s)
	return nil
}

func (p AppProtocol) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *AppProtocol) UnmarshalYAML(value *yaml.Node) error {
	*p = Parse(value.Value)
	return nil
}

// Transport is the wire transport a packet arrived on; the detector and
// session table both branch on it (e.g. UDP is always sessionless).
type Transport uint8

const (
	TransportTCP Transport = iota
	TransportUDP
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	}

	return ""
}

func (t Transport) IsTCP() bool {
	return t == TransportTCP
}
