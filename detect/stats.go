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

package detect

import "github.com/nabbar/iotgw/protocol"

// AccuracyRecord tracks one protocol's classification accuracy over
// time, feeding both the historical_accuracy confidence feature and
// the periodic calibration pass.
type AccuracyRecord struct {
	Total     int
	Correct   int
	FalsePos  int
	FalseNeg  int
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64

	// AccuracyRate is the running rate fed into the confidence
	// formula's historical-accuracy feature; it starts at 0.7 for an
	// unseen protocol.
	AccuracyRate float64

	ConfidenceAdjustment float64
}

func (r *AccuracyRecord) recompute() {
	if r.Total > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Total)
		r.AccuracyRate = r.Accuracy
	}

	tp := r.Correct
	if tp+r.FalsePos > 0 {
		r.Precision = float64(tp) / float64(tp+r.FalsePos)
	}
	if tp+r.FalseNeg > 0 {
		r.Recall = float64(tp) / float64(tp+r.FalseNeg)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
}

// RecordOutcome is the external feedback call: it updates p's
// accuracy record and appends the absolute prediction error to the
// circular confidence history used by Calibrate.
func (d *Detector) RecordOutcome(p protocol.AppProtocol, predictedConf, actualConf float64, wasCorrect bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.accuracy[p]
	if !ok {
		rec = &AccuracyRecord{AccuracyRate: 0.7}
		d.accuracy[p] = rec
	}

	rec.Total++
	if wasCorrect {
		rec.Correct++
	} else if predictedConf > actualConf {
		rec.FalsePos++
	} else {
		rec.FalseNeg++
	}

	absErr := predictedConf - actualConf
	if absErr < 0 {
		absErr = -absErr
	}
	rec.ConfidenceAdjustment = 1 - (absErr/100)*0.1

	rec.recompute()

	d.history[d.historyNext] = absErr / 100
	d.historyNext = (d.historyNext + 1) % len(d.history)
	if d.historyLen < len(d.history) {
		d.historyLen++
	}
}

// Calibrate averages the absolute error over the confidence history
// and adjusts the calibration factor: shrink it by 5% if the average
// error exceeds 0.20, grow it by 5% if under 0.10, always clamped to
// [0.5, 1.5].
func (d *Detector) Calibrate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.historyLen == 0 {
		return
	}

	var sum float64
	for i := 0; i < d.historyLen; i++ {
		sum += d.history[i]
	}
	avg := sum / float64(d.historyLen)

	switch {
	case avg > 0.20:
		d.calibrationFactor *= 0.95
	case avg < 0.10:
		d.calibrationFactor *= 1.05
	}

	if d.calibrationFactor < 0.5 {
		d.calibrationFactor = 0.5
	}
	if d.calibrationFactor > 1.5 {
		d.calibrationFactor = 1.5
	}
}

// CalibrationFactor returns the current calibration factor.
func (d *Detector) CalibrationFactor() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibrationFactor
}

// Accuracy returns a copy of p's accuracy record.
func (d *Detector) Accuracy(p protocol.AppProtocol) AccuracyRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rec, ok := d.accuracy[p]; ok {
		return *rec
	}
	return AccuracyRecord{AccuracyRate: 0.7}
}

// TotalPackets and IdentifiedPackets report the running counters.
func (d *Detector) TotalPackets() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalPackets
}

func (d *Detector) IdentifiedPackets() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identifiedPackets
}

// ProtocolCounts returns a snapshot of identified-packet counts per
// protocol.
func (d *Detector) ProtocolCounts() map[protocol.AppProtocol]uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[protocol.AppProtocol]uint64, len(d.protocolCount))
	for p, n := range d.protocolCount {
		out[p] = n
	}
	return out
}

// BucketCounts returns a snapshot of identified-packet counts per
// confidence bucket (High/Medium/Low/None).
func (d *Detector) BucketCounts() map[string]uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]uint64, len(d.bucketCount))
	for b, n := range d.bucketCount {
		out[b] = n
	}
	return out
}
