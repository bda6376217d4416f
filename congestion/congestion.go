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

// Package congestion implements the per-connection AIMD admission
// controller: slow start, congestion avoidance, and loss-triggered
// multiplicative backoff, gated by both a message-rate window and a
// queue-depth cap.
package congestion

import "time"

// Decision is the outcome of a State's Admit call.
type Decision uint8

const (
	Accept Decision = iota
	Defer
	Drop
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "Accept"
	case Defer:
		return "Defer"
	case Drop:
		return "Drop"
	}
	return "unknown"
}

// State is the AIMD state carried by one connection. The zero value is
// not ready for use; construct with New.
type State struct {
	MsgsInWindow     int
	WindowStart      time.Time
	QueueDepth       int
	Cwnd             int
	Ssthresh         int
	ConsecutiveDrops int
	BackoffFactor    float64
	InSlowStart      bool

	// ackSinceGrow counts acks toward the next congestion-avoidance
	// cwnd increment, which happens once per cwnd acks.
	ackSinceGrow int
}

const (
	rateLimitWindow = time.Second
	maxMsgsPerSec   = 100
	maxQueueDepth   = 1000
)

// New returns a State at its initial operating point: cwnd starts at
// 1, ssthresh defaults to 64, slow start is active.
func New(now time.Time, ssthresh int) *State {
	if ssthresh <= 0 {
		ssthresh = 64
	}
	return &State{
		WindowStart:   now,
		Cwnd:          1,
		Ssthresh:      ssthresh,
		InSlowStart:   true,
		BackoffFactor: 1,
	}
}

// Admit evaluates whether a new message may be accepted at time now.
// It mutates s's window/queue-depth bookkeeping according to the
// outcome and returns which of Accept/Defer/Drop applies.
func (s *State) Admit(now time.Time) Decision {
	if now.Sub(s.WindowStart) >= rateLimitWindow {
		s.MsgsInWindow = 0
		s.WindowStart = now
	}

	if s.MsgsInWindow >= maxMsgsPerSec {
		s.ConsecutiveDrops++
		s.onLoss()
		return Drop
	}
	if s.QueueDepth >= maxQueueDepth {
		s.ConsecutiveDrops++
		s.onLoss()
		return Drop
	}
	if s.QueueDepth >= s.Cwnd {
		return Defer
	}

	s.MsgsInWindow++
	s.QueueDepth++
	s.ConsecutiveDrops = 0
	return Accept
}

// OnAck reports a successful transmission: it decrements queue depth
// and grows cwnd per slow-start or congestion-avoidance rules.
func (s *State) OnAck() {
	if s.QueueDepth > 0 {
		s.QueueDepth--
	}

	if s.InSlowStart {
		s.Cwnd++
		if s.Cwnd >= s.Ssthresh {
			s.InSlowStart = false
		}
	} else {
		s.ackSinceGrow++
		if s.ackSinceGrow >= s.Cwnd {
			s.ackSinceGrow = 0
			s.Cwnd++
		}
	}

	s.BackoffFactor = 1
}

// OnLoss halves cwnd (floor 2), sets ssthresh to the new cwnd, exits
// slow start, and grows the backoff factor multiplicatively (cap 8).
func (s *State) OnLoss() {
	s.onLoss()
}

func (s *State) onLoss() {
	cwnd := s.Cwnd / 2
	if cwnd < 2 {
		cwnd = 2
	}
	s.Cwnd = cwnd
	s.Ssthresh = cwnd
	s.InSlowStart = false
	s.ackSinceGrow = 0

	s.BackoffFactor *= 1.5
	if s.BackoffFactor > 8 {
		s.BackoffFactor = 8
	}
}
