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

// Package errors carries the gateway's error kinds: numeric CodeError
// values grouped in blocks by kind, a registry resolving each code to
// its human-readable message, and an Error type wrapping a code around
// an optional cause.
package errors

import (
	"sort"
	"strconv"
	"sync"
)

// CodeError identifies one registered error kind. Codes are grouped in
// blocks of one thousand, one block per kind, so a single message
// function serves a whole block.
type CodeError uint16

const (
	// UnknownError is the zero CodeError: success when read as a
	// status, "no specific kind" when read as a code.
	UnknownError CodeError = 0

	// UnknownMessage is returned for any code no registered block covers.
	UnknownMessage = "unknown error"
)

// Message resolves a code within a registered block to its text. It
// returns the empty string for codes inside the block it does not know.
type Message func(code CodeError) string

var (
	msgMut    sync.RWMutex
	msgBlocks = make(map[CodeError]Message)
	msgStarts []CodeError
)

// RegisterIdFctMessage binds fct to the block starting at minCode:
// every code at or above minCode, up to the next registered block
// start, resolves through fct.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	msgMut.Lock()
	defer msgMut.Unlock()

	msgBlocks[minCode] = fct

	msgStarts = msgStarts[:0]
	for k := range msgBlocks {
		msgStarts = append(msgStarts, k)
	}
	sort.Slice(msgStarts, func(i, j int) bool {
		return msgStarts[i] < msgStarts[j]
	})
}

func blockFor(code CodeError) Message {
	msgMut.RLock()
	defer msgMut.RUnlock()

	for i := len(msgStarts) - 1; i >= 0; i-- {
		if msgStarts[i] <= code {
			return msgBlocks[msgStarts[i]]
		}
	}
	return nil
}

// Message returns the text registered for c, or UnknownMessage if no
// block covers it or its block does not know it.
func (c CodeError) Message() string {
	if fct := blockFor(c); fct != nil {
		if m := fct(c); m != "" {
			return m
		}
	}
	return UnknownMessage
}

// String renders the numeric code.
func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Uint16 returns the raw code value.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}
