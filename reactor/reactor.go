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

// Package reactor owns the gateway's sockets: a TCP accept loop and a
// UDP datagram loop, each driving the detector, the session table, the
// congestion controller and the protocol handlers for every connection.
// Rather than multiplexing readiness on one thread, it uses Go's
// goroutine-per-connection model; the reactor still owns every fd, and
// each session's Record is only ever mutated by the one goroutine
// serving its connection.
package reactor

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/iotgw/config"
	"github.com/nabbar/iotgw/detect"
	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/gwctx"
	"github.com/nabbar/iotgw/logger"
	"github.com/nabbar/iotgw/metrics"
	"github.com/nabbar/iotgw/pool"
	"github.com/nabbar/iotgw/queue"
	"github.com/nabbar/iotgw/session"
)

// udpWorkerCount is the number of goroutines draining the UDP handoff
// queue. UDP has one socket but many peers; decoupling the socket read
// from detection/handler dispatch keeps a slow handler from stalling
// ReadFrom on a busy gateway.
const udpWorkerCount = 4

// Reactor binds the TCP listener and UDP socket named in config and
// dispatches every byte that arrives on either to the detector, the
// session table and the protocol handlers.
type Reactor struct {
	cfg config.Config
	log logger.Logger
	det *detect.Detector
	tbl *session.Table
	met *metrics.Metrics

	ln net.Listener
	pc net.PacketConn

	bufs     *pool.Pool
	udpQueue *queue.Queue[udpDatagram]

	conns sync.Map // fd (int) -> net.Conn, tracked so shutdown can unblock pending reads

	closing atomic.Bool
	wg      sync.WaitGroup
}

// New builds a Reactor from the collaborators carried on ctx under the
// gwctx well-known keys: logger, config, detector, sessions. metrics is
// optional and silently skipped if absent.
func New(ctx context.Context) *Reactor {
	cfg, _ := gwctx.Value[config.Config](ctx, gwctx.KeyConfig)
	log := logger.OrNop(gwctx.MustValue[logger.Logger](ctx, gwctx.KeyLogger))
	det := gwctx.MustValue[*detect.Detector](ctx, gwctx.KeyDetector)
	tbl := gwctx.MustValue[*session.Table](ctx, gwctx.KeySessions)
	met, _ := gwctx.Value[*metrics.Metrics](ctx, gwctx.KeyStats)

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 4096
	}
	numBlocks := cfg.MaxClients + udpWorkerCount + 4
	if numBlocks <= 0 {
		numBlocks = 128
	}
	bufs, _ := pool.New(numBlocks, bufSize)

	qCap := nextPow2(cfg.MaxQueueDepth)
	udpQueue, _ := queue.New[udpDatagram](qCap)

	return &Reactor{cfg: cfg, log: log, det: det, tbl: tbl, met: met, bufs: bufs, udpQueue: udpQueue}
}

// nextPow2 rounds n up to the nearest power of two, the shape
// queue.Queue requires of its capacity.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ListenAndServe binds the TCP and UDP endpoints named in config, then
// runs both accept/read loops until ctx is cancelled. It blocks until
// every spawned goroutine has returned.
func (r *Reactor) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(r.cfg.ServerAddr, portString(r.cfg.ServerPort))

	ln, err := newTCPListener(addr)
	if err != nil {
		return liberr.IOFailed.Error(err)
	}
	r.ln = ln

	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		_ = ln.Close()
		return liberr.IOFailed.Error(err)
	}
	r.pc = pc

	r.log.Info("reactor listening", logger.NewFields().Add("addr", addr))

	r.wg.Add(3 + udpWorkerCount)
	go r.acceptLoop(ctx)
	go r.udpLoop(ctx)
	go r.sweepLoop(ctx)
	for i := 0; i < udpWorkerCount; i++ {
		go r.udpWorkerLoop(ctx)
	}

	<-ctx.Done()
	r.shutdown()

	r.wg.Wait()
	return nil
}

// shutdown marks the reactor Closing, stops admitting new connections,
// gives in-flight sessions with pending writes a bounded window to
// drain, then closes both sockets.
func (r *Reactor) shutdown() {
	r.closing.Store(true)

	if r.ln != nil {
		_ = r.ln.Close()
	}

	deadline := time.Now().Add(r.cfg.ShutdownDrainTimeout)
	for time.Now().Before(deadline) {
		if !r.hasPendingWrites() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	r.conns.Range(func(_, v interface{}) bool {
		_ = v.(net.Conn).Close()
		return true
	})

	if r.pc != nil {
		_ = r.pc.Close()
	}
}

func (r *Reactor) hasPendingWrites() bool {
	for _, fd := range r.tbl.ActiveFDs() {
		rec := r.tbl.Get(fd)
		if rec != nil && rec.WriteBuf.Len() > 0 {
			return true
		}
	}
	return false
}

func (r *Reactor) sweepLoop(ctx context.Context) {
	defer r.wg.Done()

	staleTicker := time.NewTicker(r.cfg.StaleSweepInterval)
	statsTicker := time.NewTicker(r.cfg.StatsEmitInterval)
	defer staleTicker.Stop()
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-staleTicker.C:
			r.tbl.SweepStale(now)
			r.det.SweepCache(now)
			r.det.Calibrate()
		case <-statsTicker.C:
			r.emitStats()
		}
	}
}

func (r *Reactor) emitStats() {
	if r.met != nil {
		r.met.SetActiveSessions(r.tbl.Count())
	}

	r.log.Info("gateway stats", logger.NewFields().
		Add("active_sessions", r.tbl.Count()).
		Add("total_packets", r.det.TotalPackets()).
		Add("identified_packets", r.det.IdentifiedPackets()))
}

func portString(p int) string {
	return strconv.Itoa(p)
}
