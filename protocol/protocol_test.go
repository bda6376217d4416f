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

package protocol_test

import (
	"encoding/json"

	. "github.com/nabbar/iotgw/protocol"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

var _ = Describe("AppProtocol String", func() {
	It("returns the canonical name for each protocol", func() {
		Expect(MQTT.String()).To(Equal("MQTT"))
		Expect(CoAP.String()).To(Equal("CoAP"))
		Expect(HTTP.String()).To(Equal("HTTP"))
		Expect(DNS.String()).To(Equal("DNS"))
		Expect(TLS.String()).To(Equal("TLS"))
		Expect(QUIC.String()).To(Equal("QUIC"))
		Expect(Unknown.String()).To(Equal("Unknown"))
	})

	It("returns empty string for an undefined value", func() {
		Expect(AppProtocol(99).String()).To(Equal(""))
	})
})

var _ = Describe("Parse", func() {
	It("is case-insensitive", func() {
		Expect(Parse("mqtt")).To(Equal(MQTT))
		Expect(Parse("MqTt")).To(Equal(MQTT))
	})

	It("defaults to Unknown for unrecognized input", func() {
		Expect(Parse("smtp")).To(Equal(Unknown))
		Expect(Parse("")).To(Equal(Unknown))
	})
})

var _ = Describe("JSON marshaling", func() {
	It("round-trips through MarshalJSON/UnmarshalJSON", func() {
		data, err := MQTT.MarshalJSON()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(`"MQTT"`))

		var p AppProtocol
		Expect(json.Unmarshal(data, &p)).To(Succeed())
		Expect(p).To(Equal(MQTT))
	})
})

var _ = Describe("YAML marshaling", func() {
	It("round-trips through MarshalYAML/UnmarshalYAML", func() {
		out, err := yaml.Marshal(CoAP)
		Expect(err).ToNot(HaveOccurred())

		var p AppProtocol
		Expect(yaml.Unmarshal(out, &p)).To(Succeed())
		Expect(p).To(Equal(CoAP))
	})
})

var _ = Describe("All", func() {
	It("lists every classifiable protocol in fast-path priority order", func() {
		Expect(All()).To(Equal([]AppProtocol{TLS, QUIC, HTTP, DNS, MQTT, CoAP}))
	})
})

var _ = Describe("Transport", func() {
	It("reports IsTCP correctly", func() {
		Expect(TransportTCP.IsTCP()).To(BeTrue())
		Expect(TransportUDP.IsTCP()).To(BeFalse())
	})

	It("stringifies", func() {
		Expect(TransportTCP.String()).To(Equal("tcp"))
		Expect(TransportUDP.String()).To(Equal("udp"))
	})
})
