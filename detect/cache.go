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

import (
	"time"

	"github.com/nabbar/iotgw/protocol"
)

// cacheEntry is the TCP connection-state cache's value: the 5-tuple's
// previously classified protocol and when it was last confirmed,
// driving the 300s eviction rule.
type cacheEntry struct {
	Protocol protocol.AppProtocol
	LastSeen time.Time
}

const cacheEntryTTL = 300 * time.Second

// DetectWithState classifies payload using the TCP 5-tuple cache: if
// isTCP and flowKey already has a live cache entry, its protocol is
// returned with full confidence instead of re-running the full
// validators. Otherwise it runs DetectFull and, on a TCP success,
// inserts or refreshes the cache entry for flowKey.
func (d *Detector) DetectWithState(isTCP bool, flowKey string, payload []byte, now time.Time) Result {
	if isTCP {
		d.mu.Lock()
		if e, ok := d.cache[flowKey]; ok {
			e.LastSeen = now
			d.cache[flowKey] = e
			d.mu.Unlock()
			return Result{Protocol: e.Protocol, Confidence: 100}
		}
		d.mu.Unlock()
	}

	res := d.DetectFull(payload, isTCP)

	if isTCP && res.Protocol != protocol.Unknown {
		d.mu.Lock()
		d.cache[flowKey] = cacheEntry{Protocol: res.Protocol, LastSeen: now}
		d.mu.Unlock()
	}

	return res
}

// ForgetFlow removes a flow key from the TCP cache, used by the
// reactor when a connection closes.
func (d *Detector) ForgetFlow(flowKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, flowKey)
}

// SweepCache evicts every TCP flow-cache entry whose LastSeen is more
// than 300s old.
func (d *Detector) SweepCache(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, e := range d.cache {
		if now.Sub(e.LastSeen) > cacheEntryTTL {
			delete(d.cache, k)
		}
	}
}
