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

// Package metrics exposes the detector's enhanced statistics and the
// reactor's session/congestion counters as a self-contained Prometheus
// registry. No HTTP exporter is started here: an embedder pulls
// Registry() and wires its own /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/iotgw/protocol"
)

// Metrics is the gateway's Prometheus collector set: one counter vector
// per protocol detection, one per confidence bucket, a session gauge and
// a congestion-drop counter.
type Metrics struct {
	reg *prometheus.Registry

	detected   *prometheus.CounterVec
	buckets    *prometheus.CounterVec
	sessions   prometheus.Gauge
	congestion *prometheus.CounterVec
}

// New creates the collector set and registers every metric against a
// fresh Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		detected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_detected_total",
			Help: "Total packets classified per application protocol.",
		}, []string{"protocol"}),
		buckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_confidence_bucket_total",
			Help: "Total detections per confidence bucket (High/Medium/Low/None).",
		}, []string{"bucket"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iotgw_sessions_active",
			Help: "Number of session table slots currently occupied.",
		}),
		congestion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_congestion_drops_total",
			Help: "Total reads rejected by the congestion controller.",
		}, []string{"reason"}),
	}

	m.reg.MustRegister(m.detected, m.buckets, m.sessions, m.congestion)

	return m
}

// Registry returns the underlying Prometheus registry for an embedder
// to expose however it sees fit.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveDetection records one classified packet under its protocol and
// confidence bucket labels.
func (m *Metrics) ObserveDetection(p protocol.AppProtocol, bucket string) {
	m.detected.WithLabelValues(p.String()).Inc()
	m.buckets.WithLabelValues(bucket).Inc()
}

// SetActiveSessions sets the current session-table occupancy gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.sessions.Set(float64(n))
}

// CongestionDrop increments the drop counter for the given rejection
// reason (e.g. "window_full", "queue_full").
func (m *Metrics) CongestionDrop(reason string) {
	m.congestion.WithLabelValues(reason).Inc()
}
