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

package handler_test

import (
	"time"

	"github.com/nabbar/iotgw/handler"
	"github.com/nabbar/iotgw/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CoAP handler", func() {
	It("replies with a 2.05 Content ACK to a GET", func() {
		rec := newRecord(protocol.TransportUDP)
		rec.Protocol = protocol.CoAP

		// ver=1 type=0(CON) tkl=3, code=0x01 (GET), mid=0x1234, token="foo", 0xFF, "Hello"
		pkt := []byte{0x43, 0x01, 0x12, 0x34}
		pkt = append(pkt, 'f', 'o', 'o')
		pkt = append(pkt, 0xFF)
		pkt = append(pkt, 'H', 'e', 'l', 'l', 'o')
		rec.ReadBuf.Append(pkt)

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Consumed).To(Equal(len(pkt)))

		resp := rec.WriteBuf.Bytes()
		Expect(resp[0]).To(Equal(byte(0x60)))
		Expect(resp[1]).To(Equal(byte(0x45)))
		Expect(resp[2]).To(Equal(byte(0x12)))
		Expect(resp[3]).To(Equal(byte(0x34)))
		Expect(resp[4]).To(Equal(byte(0xFF)))
		Expect(string(resp[5:])).To(ContainSubstring(`"status":"ok"`))
		Expect(rec.ProtocolData.CoAP.NextMessageID).To(Equal(uint16(0x1235)))
	})

	It("answers a non-confirmable request with a NON, not an ACK", func() {
		rec := newRecord(protocol.TransportUDP)
		rec.Protocol = protocol.CoAP

		// ver=1 type=1(NON) tkl=0, code=0x01 (GET), mid=0x0042
		rec.ReadBuf.Append([]byte{0x50, 0x01, 0x00, 0x42})

		_, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())

		resp := rec.WriteBuf.Bytes()
		Expect(resp[0]).To(Equal(byte(0x50)))
		Expect(resp[1]).To(Equal(byte(0x45)))
		Expect(resp[2]).To(Equal(byte(0x00)))
		Expect(resp[3]).To(Equal(byte(0x42)))
	})
})
