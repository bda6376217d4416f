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

var _ = Describe("HTTP handler", func() {
	It("replies 200 OK with a JSON body echoing method and uri", func() {
		rec := newRecord(protocol.TransportTCP)
		rec.Protocol = protocol.HTTP
		rec.DetectionConfidence = 87

		rec.ReadBuf.Append([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Consumed).To(Equal(len("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")))

		resp := string(rec.WriteBuf.Bytes())
		Expect(resp).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(resp).To(ContainSubstring(`"method":"GET"`))
		Expect(resp).To(ContainSubstring(`"uri":"/"`))
		Expect(resp).To(ContainSubstring(`"detection_confidence":87`))
		Expect(rec.ProtocolData.HTTP.Host).To(Equal("example.com"))
	})

	It("reports NeedMore until the header block is complete", func() {
		rec := newRecord(protocol.TransportTCP)
		rec.Protocol = protocol.HTTP
		rec.ReadBuf.Append([]byte("GET / HTTP/1.1\r\nHost: x"))

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.NeedMore).To(BeTrue())
	})
})
