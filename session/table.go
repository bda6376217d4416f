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

// Package session implements the bounded session table: a fixed
// capacity slab of connection Records, keyed by file descriptor, with
// the per-connection state machine and streaming buffers.
package session

import (
	"sync"
	"time"

	"github.com/nabbar/iotgw/congestion"
	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/protocol"
)

const defaultCapacity = 10000

const (
	staleAfter           = 60 * time.Second
	throttleRecoverAfter = 5 * time.Second
)

// Table is a fixed-capacity, mutex-guarded collection of session
// Records. One coarse lock protects the whole table; creation and
// removal are rare next to per-connection reads, which the owning
// goroutine performs on records it alone mutates.
type Table struct {
	mu sync.Mutex

	slots []Record
	byFD  map[int]int // fd -> slot index, for Active slots only
	free  []int       // free slot indices

	count int
}

// New preallocates a Table with the given capacity, or defaultCapacity
// if capacity <= 0.
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	t := &Table{
		slots: make([]Record, capacity),
		byFD:  make(map[int]int, capacity),
		free:  make([]int, capacity),
	}
	for i := range t.slots {
		t.slots[i].Handle.Index = i
		t.free[capacity-1-i] = i
	}

	return t
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Count returns the number of currently active sessions.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Create allocates a slot for fd, initializing protocol-specific
// defaults (MQTT keepalive=60/QoS=0/level=4, CoAP message_id=1, HTTP
// version="HTTP/1.1", DNS query_type=1). Creation is idempotent with
// respect to fd: a second Create for an fd already Active returns an
// error without touching table state.
func (t *Table) Create(fd int, remoteAddr string, transport protocol.Transport, now time.Time) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byFD[fd]; exists {
		return nil, liberr.InvalidParam.Error(nil)
	}
	if len(t.free) == 0 {
		return nil, liberr.SessionTableFull.Error(nil)
	}

	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	r := &t.slots[idx]
	gen := r.Handle.Generation
	r.reset()
	r.Handle.Index = idx
	r.Handle.Generation = gen + 1

	r.FD = fd
	r.RemoteAddr = remoteAddr
	r.Transport = transport
	r.ConnState = Connected
	r.SessionState = StateConnected
	r.Flags = NewFlags()
	r.Flags.Set(FlagActive)
	r.Protocol = protocol.Unknown
	r.CreatedAt = now
	r.LastActivity = now
	r.Congestion = *congestion.New(now, 0)

	initProtocolDefaults(r)

	t.byFD[fd] = idx
	t.count++

	return r, nil
}

// Get returns the active record for fd, or nil if none exists.
func (t *Table) Get(fd int) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byFD[fd]
	if !ok {
		return nil
	}
	return &t.slots[idx]
}

// Remove clears fd's slot and returns it to the free-list.
func (t *Table) Remove(fd int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byFD[fd]
	if !ok {
		return
	}

	delete(t.byFD, fd)
	t.slots[idx].reset()
	t.slots[idx].Handle.Index = idx
	t.free = append(t.free, idx)
	t.count--
}

// UpdateActivity stamps fd's LastActivity and, when it had been
// Throttled, leaves the throttle decision to SweepStale.
func (t *Table) UpdateActivity(fd int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byFD[fd]
	if !ok {
		return
	}
	t.slots[idx].LastActivity = now
}

// ActiveFDs returns a snapshot of every fd currently holding a slot, for
// callers that need to iterate active sessions without holding the
// table's lock for the whole walk (e.g. the reactor's shutdown drain).
func (t *Table) ActiveFDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	fds := make([]int, 0, len(t.byFD))
	for fd := range t.byFD {
		fds = append(fds, fd)
	}
	return fds
}

// UpdateProtocol sets fd's detected application protocol.
func (t *Table) UpdateProtocol(fd int, p protocol.AppProtocol) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byFD[fd]
	if !ok {
		return
	}
	t.slots[idx].Protocol = p
}

// SweepStale walks every active slot: connections idle more than 60s
// are marked Closing (the reactor, not the sweeper, actually closes
// the fd, to preserve ownership); Throttled connections idle more than
// 5s are returned to Connected with their rate window reset.
func (t *Table) SweepStale(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, idx := range t.byFD {
		r := &t.slots[idx]
		idle := now.Sub(r.LastActivity)

		if idle > staleAfter {
			r.ConnState = Closing
			continue
		}
		if r.ConnState == Throttled && idle > throttleRecoverAfter {
			r.ConnState = Connected
			r.Congestion.MsgsInWindow = 0
			r.Congestion.WindowStart = now
		}
	}
}
