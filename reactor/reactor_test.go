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

package reactor_test

import (
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reactor", func() {
	Context("TCP", func() {
		It("detects MQTT and replies CONNACK on a loopback connection", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()

			pkt := []byte{
				0x10, 0x12,
				0x00, 0x04, 'M', 'Q', 'T', 'T',
				0x04, 0x02, 0x00, 0x3C,
				0x00, 0x04, 't', 'e', 's', 't',
			}
			_, err = conn.Write(pkt)
			Expect(err).ToNot(HaveOccurred())

			reply := make([]byte, 4)
			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			_, err = readFull(conn, reply)
			Expect(err).ToNot(HaveOccurred())
			Expect(reply).To(Equal([]byte{0x20, 0x02, 0x00, 0x00}))
		})

		It("completes an MQTT session lifecycle and closes after DISCONNECT", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()
			Expect(conn.SetDeadline(time.Now().Add(2 * time.Second))).To(Succeed())

			connect := []byte{
				0x10, 0x12,
				0x00, 0x04, 'M', 'Q', 'T', 'T',
				0x04, 0x02, 0x00, 0x3C,
				0x00, 0x04, 't', 'e', 's', 't',
			}
			_, err = conn.Write(connect)
			Expect(err).ToNot(HaveOccurred())

			connack := make([]byte, 4)
			_, err = readFull(conn, connack)
			Expect(err).ToNot(HaveOccurred())
			Expect(connack).To(Equal([]byte{0x20, 0x02, 0x00, 0x00}))

			_, err = conn.Write([]byte{0xC0, 0x00})
			Expect(err).ToNot(HaveOccurred())

			pingresp := make([]byte, 2)
			_, err = readFull(conn, pingresp)
			Expect(err).ToNot(HaveOccurred())
			Expect(pingresp).To(Equal([]byte{0xD0, 0x00}))

			_, err = conn.Write([]byte{0xE0, 0x00})
			Expect(err).ToNot(HaveOccurred())

			// Server closes its side once DISCONNECT is processed.
			buf := make([]byte, 1)
			Eventually(func() error {
				_, e := conn.Read(buf)
				return e
			}, 2*time.Second, 10*time.Millisecond).Should(HaveOccurred())
		})

		It("serves an HTTP GET with a JSON body and closes the connection", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()
			Expect(conn.SetDeadline(time.Now().Add(2 * time.Second))).To(Succeed())

			_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
			Expect(err).ToNot(HaveOccurred())

			resp, err := io.ReadAll(conn)
			Expect(err).ToNot(HaveOccurred())

			body := string(resp)
			Expect(body).To(HavePrefix("HTTP/1.1 200 OK"))
			Expect(body).To(ContainSubstring(`"method":"GET"`))
			Expect(body).To(ContainSubstring(`"uri":"/"`))
			Expect(body).To(ContainSubstring(`"detection_confidence"`))
		})

		It("closes a connection whose bytes match no protocol", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()
			Expect(conn.SetDeadline(time.Now().Add(2 * time.Second))).To(Succeed())

			_, err = conn.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, 1)
			Eventually(func() error {
				_, e := conn.Read(buf)
				return e
			}, 2*time.Second, 10*time.Millisecond).Should(HaveOccurred())
		})

		It("rejects new connections once the session table is full", func() {
			r, ctx, cnl, addr := newTestReactorWithCapacity(1)
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			// capacity is forced to 1 in this test's own reactor above.
			first, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = first.Close() }()

			// Give the accept loop a moment to register the first session.
			time.Sleep(20 * time.Millisecond)

			second, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = second.Close() }()

			Expect(second.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			buf := make([]byte, 1)
			_, readErr := second.Read(buf)
			Expect(readErr).To(HaveOccurred())
		})

		It("force-closes open connections on graceful shutdown", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			conn, err := net.Dial("tcp", addr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()

			cnl()

			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			buf := make([]byte, 1)
			Eventually(func() error {
				_, e := conn.Read(buf)
				return e
			}, 2*time.Second, 10*time.Millisecond).Should(HaveOccurred())
		})
	})

	Context("UDP", func() {
		It("detects CoAP and replies with a 2.05 Content ACK", func() {
			r, ctx, cnl, addr := newTestReactor()
			defer cnl()
			startReactor(r, ctx)
			waitForAccepting(addr, 2*time.Second)

			raddr, err := net.ResolveUDPAddr("udp", addr)
			Expect(err).ToNot(HaveOccurred())
			conn, err := net.DialUDP("udp", nil, raddr)
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = conn.Close() }()

			pkt := []byte{0x43, 0x01, 0x12, 0x34}
			pkt = append(pkt, 'f', 'o', 'o')
			pkt = append(pkt, 0xFF)
			pkt = append(pkt, 'H', 'e', 'l', 'l', 'o')

			Expect(conn.SetDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			_, err = conn.Write(pkt)
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, 256)
			n, err := conn.Read(buf)
			Expect(err).ToNot(HaveOccurred())

			resp := buf[:n]
			Expect(resp[0]).To(Equal(byte(0x60)))
			Expect(resp[1]).To(Equal(byte(0x45)))
			Expect(resp[2]).To(Equal(byte(0x12)))
			Expect(resp[3]).To(Equal(byte(0x34)))
			Expect(resp[4]).To(Equal(byte(0xFF)))
			Expect(string(resp[5:])).To(ContainSubstring(`"status":"ok"`))
		})
	})
})

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
