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

package session_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/iotgw/protocol"
	"github.com/nabbar/iotgw/session"
)

var _ = Describe("Table", func() {
	var (
		tbl *session.Table
		now time.Time
	)

	BeforeEach(func() {
		tbl = session.New(4)
		now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	Describe("Create", func() {
		It("fills defaults and marks the session Active", func() {
			r, err := tbl.Create(10, "127.0.0.1:5555", protocol.TransportTCP, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Protocol).To(Equal(protocol.Unknown))
			Expect(r.Flags.Test(session.FlagActive)).To(BeTrue())
			Expect(r.CreatedAt).To(Equal(now))
			Expect(r.LastActivity).To(Equal(now))
			Expect(r.ProtocolData.MQTT.KeepAlive).To(Equal(uint16(60)))
			Expect(r.ProtocolData.CoAP.NextMessageID).To(Equal(uint16(1)))
			Expect(r.ProtocolData.HTTP.Version).To(Equal("HTTP/1.1"))
			Expect(r.ProtocolData.DNS.QueryType).To(Equal(uint16(1)))
		})

		It("rejects a double-create for the same fd", func() {
			_, err := tbl.Create(10, "a", protocol.TransportTCP, now)
			Expect(err).NotTo(HaveOccurred())

			_, err = tbl.Create(10, "a", protocol.TransportTCP, now)
			Expect(err).To(HaveOccurred())
		})

		It("fails once capacity is exhausted", func() {
			for i := 0; i < 4; i++ {
				_, err := tbl.Create(i, "a", protocol.TransportTCP, now)
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := tbl.Create(100, "a", protocol.TransportTCP, now)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get and Remove", func() {
		It("returns nil for an unknown fd", func() {
			Expect(tbl.Get(999)).To(BeNil())
		})

		It("makes the slot reusable after Remove", func() {
			_, err := tbl.Create(10, "a", protocol.TransportTCP, now)
			Expect(err).NotTo(HaveOccurred())

			tbl.Remove(10)
			Expect(tbl.Get(10)).To(BeNil())

			_, err = tbl.Create(10, "a", protocol.TransportTCP, now)
			Expect(err).NotTo(HaveOccurred())
		})

		It("bumps the generation on reuse so stale handles don't alias", func() {
			r1, _ := tbl.Create(10, "a", protocol.TransportTCP, now)
			gen1 := r1.Handle.Generation

			tbl.Remove(10)
			r2, _ := tbl.Create(10, "a", protocol.TransportTCP, now)

			Expect(r2.Handle.Index).To(Equal(r1.Handle.Index))
			Expect(r2.Handle.Generation).NotTo(Equal(gen1))
		})
	})

	Describe("SweepStale", func() {
		It("marks idle connections Closing after 60s", func() {
			tbl.Create(10, "a", protocol.TransportTCP, now)

			tbl.SweepStale(now.Add(61 * time.Second))

			Expect(tbl.Get(10).ConnState).To(Equal(session.Closing))
		})

		It("leaves fresh connections untouched", func() {
			tbl.Create(10, "a", protocol.TransportTCP, now)

			tbl.SweepStale(now.Add(10 * time.Second))

			Expect(tbl.Get(10).ConnState).To(Equal(session.Connected))
		})

		It("recovers Throttled connections idle more than 5s", func() {
			r, _ := tbl.Create(10, "a", protocol.TransportTCP, now)
			r.ConnState = session.Throttled
			r.LastActivity = now

			tbl.SweepStale(now.Add(6 * time.Second))

			got := tbl.Get(10)
			Expect(got.ConnState).To(Equal(session.Connected))
			Expect(got.Congestion.MsgsInWindow).To(Equal(0))
		})
	})

	Describe("UpdateActivity and UpdateProtocol", func() {
		It("stamps LastActivity", func() {
			tbl.Create(10, "a", protocol.TransportTCP, now)
			later := now.Add(5 * time.Second)

			tbl.UpdateActivity(10, later)

			Expect(tbl.Get(10).LastActivity).To(Equal(later))
		})

		It("updates the detected protocol", func() {
			tbl.Create(10, "a", protocol.TransportTCP, now)

			tbl.UpdateProtocol(10, protocol.MQTT)

			Expect(tbl.Get(10).Protocol).To(Equal(protocol.MQTT))
		})
	})

	Describe("NewDatagramRecord", func() {
		It("initializes protocol defaults without occupying a table slot", func() {
			r := session.NewDatagramRecord("10.0.0.1:5683", now)

			Expect(r.Transport).To(Equal(protocol.TransportUDP))
			Expect(r.Protocol).To(Equal(protocol.Unknown))
			Expect(r.ProtocolData.CoAP.NextMessageID).To(Equal(uint16(1)))
			Expect(r.ProtocolData.MQTT.KeepAlive).To(Equal(uint16(60)))
			Expect(r.CreatedAt).To(Equal(now))
			Expect(tbl.Count()).To(Equal(0))
		})
	})

	Describe("Count", func() {
		It("tracks active sessions through create and remove", func() {
			Expect(tbl.Count()).To(Equal(0))

			tbl.Create(10, "a", protocol.TransportTCP, now)
			tbl.Create(11, "b", protocol.TransportTCP, now)
			Expect(tbl.Count()).To(Equal(2))

			tbl.Remove(10)
			Expect(tbl.Count()).To(Equal(1))
		})
	})
})
