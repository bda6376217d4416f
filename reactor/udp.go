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

package reactor

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/iotgw/detect"
	"github.com/nabbar/iotgw/handler"
	"github.com/nabbar/iotgw/logger"
	"github.com/nabbar/iotgw/protocol"
	"github.com/nabbar/iotgw/session"
)

// udpDatagram is one received datagram handed off from the socket read
// loop to a worker through the reactor's bounded queue.
type udpDatagram struct {
	addr net.Addr
	data []byte
}

func (r *Reactor) udpLoop(ctx context.Context) {
	defer r.wg.Done()

	blockID, err := r.bufs.Alloc()
	if err != nil {
		r.log.Warn("udp scratch buffer allocation failed", logger.NewFields().Add("error", err.Error()))
		return
	}
	defer func() { _ = r.bufs.Free(blockID) }()
	buf := r.bufs.Block(blockID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, addr, err := r.pc.ReadFrom(buf)
		if err != nil {
			if r.closing.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			r.log.Warn("udp read failed", logger.NewFields().Add("error", err.Error()))
			continue
		}
		if n == 0 {
			continue
		}

		datagram := udpDatagram{addr: addr, data: append([]byte(nil), buf[:n]...)}
		if qerr := r.udpQueue.Enqueue(datagram); qerr != nil {
			r.log.Warn("udp handoff queue full, dropping datagram", logger.NewFields().Add("error", qerr.Error()))
			if r.met != nil {
				r.met.CongestionDrop("queue_full")
			}
		}
	}
}

// udpWorkerLoop drains datagrams handed off by udpLoop so a slow
// detector/handler pass never stalls the socket read itself.
func (r *Reactor) udpWorkerLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d, ok := r.udpQueue.Dequeue()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		r.handleUDPDatagram(d.addr, d.data)
	}
}

// handleUDPDatagram runs the stateless UDP pipeline: detect, dispatch,
// reply. UDP peers get a free-standing Record for the handlers to work
// against but never a session-table entry; the record dies with the
// datagram.
func (r *Reactor) handleUDPDatagram(addr net.Addr, data []byte) {
	now := time.Now()

	rec := session.NewDatagramRecord(addr.String(), now)
	if !rec.ReadBuf.Append(data) {
		r.log.Warn("udp datagram exceeds buffer, dropping", logger.NewFields().Add("peer", addr.String()))
		return
	}

	res := r.det.DetectFull(rec.ReadBuf.Bytes(), false)
	rec.DetectionAttempts = 1
	if res.Protocol == protocol.Unknown {
		_, _ = r.pc.WriteTo([]byte("error: unknown protocol\n"), addr)
		return
	}

	rec.Protocol = res.Protocol
	rec.DetectionConfidence = res.Confidence
	if r.met != nil {
		r.met.ObserveDetection(res.Protocol, detect.Bucket(res.Confidence))
	}
	r.log.Debug("detected protocol", logger.NewFields().
		Add("protocol", res.Protocol.String()).
		Add("peer", addr.String()).
		Add("size", len(data)).
		Add("confidence", res.Confidence))

	if _, err := handler.Dispatch(rec, now); err != nil {
		_, _ = r.pc.WriteTo([]byte("error: malformed packet\n"), addr)
		return
	}

	if rec.WriteBuf.Len() > 0 {
		if _, err := r.pc.WriteTo(rec.WriteBuf.Bytes(), addr); err != nil {
			r.log.Warn("udp write failed", logger.NewFields().Add("error", err.Error()))
		}
	}
}
