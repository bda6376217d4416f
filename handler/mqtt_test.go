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
	"github.com/nabbar/iotgw/session"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newRecord(transport protocol.Transport) *session.Record {
	tbl := session.New(4)
	rec, err := tbl.Create(1, "127.0.0.1:1234", transport, time.Now())
	Expect(err).ToNot(HaveOccurred())
	return rec
}

var _ = Describe("MQTT handler", func() {
	var rec *session.Record

	BeforeEach(func() {
		rec = newRecord(protocol.TransportTCP)
		rec.Protocol = protocol.MQTT
	})

	It("replies CONNACK to a CONNECT and captures keepalive", func() {
		pkt := []byte{
			0x10, 0x12,
			0x00, 0x04, 'M', 'Q', 'T', 'T',
			0x04, 0x02, 0x00, 0x3C,
			0x00, 0x04, 't', 'e', 's', 't',
		}
		rec.ReadBuf.Append(pkt)

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Consumed).To(Equal(len(pkt)))
		Expect(rec.WriteBuf.Bytes()).To(Equal([]byte{0x20, 0x02, 0x00, 0x00}))
		Expect(rec.ProtocolData.MQTT.KeepAlive).To(Equal(uint16(60)))
		Expect(rec.ProtocolData.MQTT.ProtocolLevel).To(Equal(uint8(4)))
		Expect(rec.SessionState).To(Equal(session.StateAuthenticated))
	})

	It("replies PINGRESP to a PINGREQ", func() {
		rec.ReadBuf.Append([]byte{0xC0, 0x00})

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Consumed).To(Equal(2))
		Expect(rec.WriteBuf.Bytes()).To(Equal([]byte{0xD0, 0x00}))
	})

	It("moves to Disconnecting on DISCONNECT", func() {
		rec.ReadBuf.Append([]byte{0xE0, 0x00})

		_, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.SessionState).To(Equal(session.StateDisconnecting))
	})

	It("leaves pipelined bytes for the next dispatch", func() {
		rec.ReadBuf.Append([]byte{0xC0, 0x00, 0xC0, 0x00})

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		rec.ReadBuf.Consume(out.Consumed)
		Expect(rec.ReadBuf.Len()).To(Equal(2))

		rec.WriteBuf.Reset()
		out2, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out2.Consumed).To(Equal(2))
		Expect(rec.WriteBuf.Bytes()).To(Equal([]byte{0xD0, 0x00}))
	})

	It("reports NeedMore on a partial header", func() {
		rec.ReadBuf.Append([]byte{0x10})

		out, err := handler.Dispatch(rec, time.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(out.NeedMore).To(BeTrue())
	})
})
