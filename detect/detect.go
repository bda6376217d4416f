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

// Package detect classifies the application-layer protocol of a byte
// stream: a cheap byte-pattern fast path for the hot loop, a full
// path that runs every per-protocol validator and scores a weighted
// ten-feature confidence, and a learning loop that recalibrates the
// confidence formula against recorded outcomes.
package detect

import (
	"sync"

	"github.com/nabbar/iotgw/protocol"
)

const (
	minConfidence = 30.0
	maxConfidence = 100.0

	ConfidenceHigh   = 90.0
	ConfidenceMedium = 70.0
	ConfidenceLow    = 50.0
)

// Result is the outcome of a detection call.
type Result struct {
	Protocol   protocol.AppProtocol
	Confidence float64
}

// Bucket classifies a confidence value into High/Medium/Low/None.
func Bucket(confidence float64) string {
	switch {
	case confidence >= ConfidenceHigh:
		return "High"
	case confidence >= ConfidenceMedium:
		return "Medium"
	case confidence >= ConfidenceLow:
		return "Low"
	default:
		return "None"
	}
}

// Detector holds the enhanced statistics and TCP flow cache that make
// full detection stateful across calls, while remaining deterministic
// for any single call given a fresh Detector.
type Detector struct {
	mu sync.Mutex

	totalPackets      uint64
	identifiedPackets uint64
	protocolCount     map[protocol.AppProtocol]uint64
	bucketCount       map[string]uint64

	accuracy map[protocol.AppProtocol]*AccuracyRecord

	history     [1000]float64
	historyLen  int
	historyNext int

	calibrationFactor float64

	cache map[string]cacheEntry
}

// New returns a Detector with an empty statistics state and a
// calibration factor of 1.0.
func New() *Detector {
	d := &Detector{
		protocolCount:     make(map[protocol.AppProtocol]uint64),
		bucketCount:       make(map[string]uint64),
		accuracy:          make(map[protocol.AppProtocol]*AccuracyRecord),
		calibrationFactor: 1.0,
		cache:             make(map[string]cacheEntry),
	}
	for _, p := range protocol.All() {
		d.accuracy[p] = &AccuracyRecord{AccuracyRate: 0.7}
	}
	return d
}

// Reset clears every statistic, the flow cache, and the calibration
// factor back to a fresh Detector's state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalPackets = 0
	d.identifiedPackets = 0
	d.protocolCount = make(map[protocol.AppProtocol]uint64)
	d.bucketCount = make(map[string]uint64)
	d.accuracy = make(map[protocol.AppProtocol]*AccuracyRecord)
	for _, p := range protocol.All() {
		d.accuracy[p] = &AccuracyRecord{AccuracyRate: 0.7}
	}
	d.history = [1000]float64{}
	d.historyLen = 0
	d.historyNext = 0
	d.calibrationFactor = 1.0
	d.cache = make(map[string]cacheEntry)
}

// DetectFast returns the first candidate matching a short-circuit
// byte test, in fixed priority order, or protocol.Unknown if nothing
// matches. It performs no statistics bookkeeping.
func DetectFast(payload []byte) protocol.AppProtocol {
	if fastTLS(payload) {
		return protocol.TLS
	}
	if fastQUIC(payload) {
		return protocol.QUIC
	}
	if fastHTTP(payload) {
		return protocol.HTTP
	}
	if fastDNS(payload) {
		return protocol.DNS
	}
	if fastMQTT(payload) {
		return protocol.MQTT
	}
	if fastCoAP(payload) {
		return protocol.CoAP
	}
	return protocol.Unknown
}

// fullPathPriority is the tie-break order: earlier entries win when
// two validators score equally.
var fullPathPriority = []protocol.AppProtocol{
	protocol.TLS, protocol.QUIC, protocol.HTTP, protocol.DNS, protocol.MQTT, protocol.CoAP,
}

// DetectFull runs every enhanced validator and returns the
// highest-scoring candidate with its weighted confidence, or
// (Unknown, 0) if nothing validates.
func (d *Detector) DetectFull(payload []byte, isTCP bool) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalPackets++

	var (
		winner   = protocol.Unknown
		winScore = -1.0
	)

	for _, p := range fullPathPriority {
		ok, feat, checksPassed, checksTotal := validate(p, payload, isTCP)
		if !ok {
			continue
		}
		feat.validation = float64(checksPassed) / float64(checksTotal)
		feat.historicalAcc = d.accuracy[p].AccuracyRate

		score := rawScore(feat)
		if score > winScore {
			winScore = score
			winner = p
		}
	}

	if winner == protocol.Unknown {
		return Result{Protocol: protocol.Unknown, Confidence: 0}
	}

	conf := winScore * d.calibrationFactor * 100
	if conf < minConfidence {
		conf = minConfidence
	}
	if conf > maxConfidence {
		conf = maxConfidence
	}

	d.identifiedPackets++
	d.protocolCount[winner]++
	d.bucketCount[Bucket(conf)]++

	return Result{Protocol: winner, Confidence: conf}
}

// rawScore computes the weighted sum over the ten normalized
// features, before calibration and percentage scaling.
func rawScore(f features) float64 {
	return 0.15*f.entropy +
		0.20*f.pattern +
		0.15*f.validation +
		0.10*f.header +
		0.10*f.payload +
		0.05*f.transport +
		0.05*f.context +
		0.10*f.historicalAcc +
		0.05*(1-f.risk) +
		0.05*f.specificity
}
