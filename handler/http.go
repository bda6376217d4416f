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

package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	liberr "github.com/nabbar/iotgw/errors"
	"github.com/nabbar/iotgw/session"
)

// httpResponseBody is the JSON body of the canned 200 OK reply,
// echoing the parsed request-line and the detector's confidence for
// this connection.
type httpResponseBody struct {
	Method     string  `json:"method"`
	URI        string  `json:"uri"`
	Confidence float64 `json:"detection_confidence"`
	Timestamp  string  `json:"timestamp"`
}

// HTTP parses one HTTP/1.1 request (request-line + headers terminated
// by a blank line) and enqueues a 200 OK JSON response. It requires
// the full header block to be buffered; NeedMore is returned for a
// request still arriving.
func HTTP(rec *session.Record, now time.Time) (Outcome, error) {
	buf := rec.ReadBuf.Bytes()

	end := bytes.Index(buf, []byte("\r\n\r\n"))
	if end < 0 {
		if len(buf) > 8192 {
			return Outcome{}, liberr.ProtocolMalformed.Error(nil)
		}
		return Outcome{NeedMore: true}, nil
	}
	head := buf[:end]
	total := end + 4

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 {
		return Outcome{}, liberr.ProtocolMalformed.Error(nil)
	}

	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) < 3 {
		return Outcome{}, liberr.ProtocolMalformed.Error(nil)
	}
	rec.ProtocolData.HTTP.Method = parts[0]
	rec.ProtocolData.HTTP.URI = parts[1]
	rec.ProtocolData.HTTP.Version = strings.TrimSpace(parts[2])

	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch strings.ToLower(name) {
		case "host":
			rec.ProtocolData.HTTP.Host = value
		case "connection":
			rec.ProtocolData.HTTP.Close = strings.EqualFold(value, "close")
		}
	}

	body, _ := json.Marshal(httpResponseBody{
		Method:     rec.ProtocolData.HTTP.Method,
		URI:        rec.ProtocolData.HTTP.URI,
		Confidence: rec.DetectionConfidence,
		Timestamp:  now.UTC().Format(time.RFC3339),
	})

	resp := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n"
	rec.WriteBuf.Append([]byte(resp))
	rec.WriteBuf.Append(body)

	rec.ProtocolData.HTTP.Close = true
	rec.SessionState = session.StateDisconnecting

	return Outcome{Consumed: total}, nil
}

