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
	"syscall"
	"time"

	"github.com/nabbar/iotgw/congestion"
	"github.com/nabbar/iotgw/detect"
	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/handler"
	"github.com/nabbar/iotgw/logger"
	"github.com/nabbar/iotgw/protocol"
	"github.com/nabbar/iotgw/session"
)

// fdOf extracts the kernel socket handle backing conn, which keys the
// session table.
func fdOf(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1, liberr.InvalidParam.Error(nil)
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, liberr.IOFailed.Error(err)
	}

	var fd int
	ctrlErr := raw.Control(func(p uintptr) {
		fd = int(p)
	})
	if ctrlErr != nil {
		return -1, liberr.IOFailed.Error(ctrlErr)
	}
	return fd, nil
}

func (r *Reactor) acceptLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		conn, err := r.ln.Accept()
		if err != nil {
			if r.closing.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			r.log.Warn("accept failed", logger.NewFields().Add("error", err.Error()))
			continue
		}

		if r.tbl.Count() >= r.tbl.Capacity() {
			r.log.Warn("session table full, rejecting connection", logger.NewFields())
			_ = conn.Close()
			continue
		}

		r.wg.Add(1)
		go r.serveTCP(ctx, conn)
	}
}

func (r *Reactor) serveTCP(ctx context.Context, conn net.Conn) {
	defer r.wg.Done()
	defer conn.Close()

	fd, err := fdOf(conn)
	if err != nil {
		r.log.Warn("fd extraction failed", logger.NewFields().Add("error", err.Error()))
		return
	}

	now := time.Now()
	rec, err := r.tbl.Create(fd, conn.RemoteAddr().String(), protocol.TransportTCP, now)
	if err != nil {
		r.log.Warn("session create failed", logger.NewFields().Add("error", err.Error()))
		return
	}
	r.conns.Store(fd, conn)
	defer func() {
		r.conns.Delete(fd)
		r.tbl.Remove(fd)
		r.det.ForgetFlow(flowKey(conn))
	}()

	blockID, err := r.bufs.Alloc()
	if err != nil {
		r.log.Warn("tcp scratch buffer allocation failed", logger.NewFields().Add("error", err.Error()))
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

		n, readErr := conn.Read(buf)
		if n > 0 {
			r.onBytes(rec, conn, buf[:n], time.Now())
		}
		if readErr != nil {
			return
		}
		if rec.ConnState == session.Closing {
			return
		}
		if rec.SessionState == session.StateDisconnecting {
			rec.SessionState = session.StateClosed
			return
		}
	}
}

// undetectableAfter is the buffered-byte count at which a stream still
// Unknown is closed as noise. It covers the TLS, QUIC, MQTT and CoAP
// headers; a DNS message shorter than its 12-byte header, or a partial
// HTTP method longer than five bytes, is closed at this point as well.
const undetectableAfter = 5

// onBytes buffers newly read bytes, classifies the stream if still
// Unknown, runs every complete frame through congestion admission and
// its protocol handler, then flushes any pending reply.
func (r *Reactor) onBytes(rec *session.Record, conn net.Conn, data []byte, now time.Time) {
	r.tbl.UpdateActivity(rec.FD, now)

	// Throttled connections are still drained so the peer's kernel
	// send buffer never stalls, but the bytes are discarded and no
	// handler runs until the stale sweeper clears the throttle.
	if rec.ConnState == session.Throttled {
		return
	}

	if !rec.ReadBuf.Append(data) {
		r.log.Warn("read buffer overflow, dropping connection", logger.NewFields().Add("session", rec.SessionID()))
		rec.ConnState = session.Closing
		return
	}

	if rec.Protocol == protocol.Unknown {
		res := r.det.DetectWithState(true, flowKey(conn), rec.ReadBuf.Bytes(), now)
		rec.DetectionAttempts++
		if res.Protocol == protocol.Unknown {
			if rec.ReadBuf.Len() >= undetectableAfter {
				r.log.Warn("undetectable protocol, closing connection", logger.NewFields().
					Add("session", rec.SessionID()).
					Add("buffered", rec.ReadBuf.Len()))
				rec.ConnState = session.Closing
			}
			return
		}

		rec.Protocol = res.Protocol
		rec.DetectionConfidence = res.Confidence
		if r.met != nil {
			r.met.ObserveDetection(res.Protocol, detect.Bucket(res.Confidence))
		}
		r.log.Debug("detected protocol", logger.NewFields().
			Add("protocol", res.Protocol.String()).
			Add("peer", rec.RemoteAddr).
			Add("size", rec.ReadBuf.Len()).
			Add("confidence", res.Confidence))
	}

	// Admission is per message, not per read: every buffered frame
	// passes the congestion controller before its handler runs, so a
	// burst coalesced into one read still counts each frame against
	// the rate window.
dispatch:
	for rec.ReadBuf.Len() > 0 {
		switch rec.Congestion.Admit(now) {
		case congestion.Drop:
			if r.met != nil {
				r.met.CongestionDrop("window_full")
			}
			rec.ConnState = session.Throttled
			rec.ReadBuf.Reset()
			break dispatch
		case congestion.Defer:
			// Leave the remaining frames buffered; the next read
			// retries admission.
			break dispatch
		}

		out, err := handler.Dispatch(rec, now)
		if err != nil {
			r.log.Warn("handler error", logger.NewFields().
				Add("session", rec.SessionID()).
				Add("protocol", rec.Protocol.String()).
				Add("error", err.Error()))
			rec.ConnState = session.Closing
			return
		}
		if out.Consumed > 0 {
			rec.ReadBuf.Consume(out.Consumed)
		}
		rec.Congestion.OnAck()
		if out.NeedMore || out.Consumed == 0 {
			break
		}
	}

	if rec.WriteBuf.Len() > 0 {
		if _, err := conn.Write(rec.WriteBuf.Bytes()); err != nil {
			rec.ConnState = session.Closing
			return
		}
		rec.WriteBuf.Reset()
	}
}

func flowKey(conn net.Conn) string {
	return conn.RemoteAddr().String() + "|" + conn.LocalAddr().String()
}
