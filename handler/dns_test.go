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

var _ = Describe("DNS handler", func() {
	It("answers a query for example.com with an A record for 127.0.0.1", func() {
		rec := newRecord(protocol.TransportUDP)
		rec.Protocol = protocol.DNS

		pkt := []byte{
			0x12, 0x34, // txn id
			0x01, 0x00, // flags: RD
			0x00, 0x01, // qdcount=1
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
			3, 'c', 'o', 'm',
			0x00,
			0x00, 0x01, // qtype A
			0x00, 0x01, // qclass IN
		}
		rec.ReadBuf.Append(pkt)

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Consumed).To(Equal(len(pkt)))
		Expect(rec.ProtocolData.DNS.QueryName).To(Equal("example.com"))

		resp := rec.WriteBuf.Bytes()
		Expect(resp[0]).To(Equal(byte(0x12)))
		Expect(resp[1]).To(Equal(byte(0x34)))
		Expect(resp[len(resp)-4:]).To(Equal([]byte{127, 0, 0, 1}))
	})
})
