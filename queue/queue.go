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

// Package queue implements a lock-free, bounded, multi-producer
// multi-consumer ring buffer used for inter-task handoff (e.g. UDP
// datagrams waiting for a reactor tick).
//
// Each slot carries its own sequence number (Dmitry Vyukov's bounded
// MPMC queue algorithm). A producer claims a slot by winning a
// compare-and-swap on the enqueue position, writes the element, and
// only then stores the slot's sequence number (a release) so that a
// consumer's acquire-load of that same sequence number can never
// observe the slot before the element write lands. This is the
// release-store/acquire-load publish order the queue is required to
// give: a slot's contents are never visible to a dequeuer before the
// enqueuer has finished writing them.
package queue

import (
	"sync/atomic"

	liberr "github.com/nabbar/iotgw/errors"
)

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// Queue is a bounded MPMC ring buffer of capacity cells, capacity
// forced to a power of two at construction.
type Queue[T any] struct {
	buffer []cell[T]
	mask   uint64

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64
}

// New allocates a queue with room for exactly capacity elements.
// capacity must be a power of two and greater than zero.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, liberr.NotPowerOfTwo.Error(nil)
	}

	q := &Queue[T]{
		buffer: make([]cell[T], capacity),
		mask:   uint64(capacity - 1),
	}

	for i := range q.buffer {
		q.buffer[i].sequence.Store(uint64(i))
	}

	return q, nil
}

// Enqueue publishes v into the queue, returning a QueueFull error
// (never blocking) when every slot is currently occupied.
func (q *Queue[T]) Enqueue(v T) error {
	var c *cell[T]
	pos := q.enqueuePos.Load()

	for {
		c = &q.buffer[pos&q.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos)

		if diff == 0 {
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				break
			}
		} else if diff < 0 {
			return liberr.QueueFull.Error(nil)
		} else {
			pos = q.enqueuePos.Load()
		}
	}

	c.data = v
	c.sequence.Store(pos + 1) // release: publish after the write above

	return nil
}

// Dequeue removes and returns the oldest element still in the queue.
// ok is false if the queue was empty at the moment of the attempt.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	var c *cell[T]
	pos := q.dequeuePos.Load()

	for {
		c = &q.buffer[pos&q.mask]
		seq := c.sequence.Load() // acquire: paired with the release in Enqueue
		diff := int64(seq) - int64(pos+1)

		if diff == 0 {
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				break
			}
		} else if diff < 0 {
			var zero T
			return zero, false
		} else {
			pos = q.dequeuePos.Load()
		}
	}

	v = c.data
	var zero T
	c.data = zero
	c.sequence.Store(pos + q.mask + 1)

	return v, true
}

// Peek returns the element currently at the head of the queue without
// removing it. It is inherently racy against concurrent Dequeue calls;
// useful for statistics, not for correctness-critical logic.
func (q *Queue[T]) Peek() (v T, ok bool) {
	pos := q.dequeuePos.Load()
	c := &q.buffer[pos&q.mask]

	if c.sequence.Load() != pos+1 {
		var zero T
		return zero, false
	}

	return c.data, true
}

// Capacity returns the fixed number of slots the queue was built with.
func (q *Queue[T]) Capacity() int {
	return len(q.buffer)
}

// Size returns an approximation of the number of elements currently
// queued. Under concurrent access this is a snapshot, not an atomic
// count: sufficient for the invariant "size is within [0, capacity]
// at every observation" but not for exact bookkeeping.
func (q *Queue[T]) Size() int {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()

	if enq < deq {
		return 0
	}

	size := int(enq - deq)
	if size > len(q.buffer) {
		return len(q.buffer)
	}

	return size
}

func (q *Queue[T]) IsEmpty() bool {
	return q.Size() == 0
}

// Clear resets the queue to empty. Not safe to call concurrently with
// Enqueue/Dequeue; callers must quiesce producers and consumers first.
func (q *Queue[T]) Clear() {
	var zero T

	for i := range q.buffer {
		q.buffer[i].data = zero
		q.buffer[i].sequence.Store(uint64(i))
	}

	q.enqueuePos.Store(0)
	q.dequeuePos.Store(0)
}
