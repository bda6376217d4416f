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

package session

import "github.com/bits-and-blooms/bitset"

// Flag is one of the eight legal session flags; Flags carries no bits
// outside this set.
type Flag uint

const (
	FlagActive Flag = iota
	FlagAuthenticated
	FlagKeepAlive
	FlagCleanSession
	FlagObserveActive
	FlagHttpKeepAlive
	FlagDnsRecursive
	FlagTlsEstablished

	flagCount
)

func (f Flag) String() string {
	switch f {
	case FlagActive:
		return "Active"
	case FlagAuthenticated:
		return "Authenticated"
	case FlagKeepAlive:
		return "KeepAlive"
	case FlagCleanSession:
		return "CleanSession"
	case FlagObserveActive:
		return "ObserveActive"
	case FlagHttpKeepAlive:
		return "HttpKeepAlive"
	case FlagDnsRecursive:
		return "DnsRecursive"
	case FlagTlsEstablished:
		return "TlsEstablished"
	}

	return "unknown"
}

// Flags is a fixed-width bitset over the eight defined session flags.
type Flags struct {
	b *bitset.BitSet
}

func NewFlags() Flags {
	return Flags{b: bitset.New(uint(flagCount))}
}

func (f *Flags) Set(flag Flag) {
	f.b.Set(uint(flag))
}

func (f *Flags) Clear(flag Flag) {
	f.b.Clear(uint(flag))
}

func (f *Flags) Test(flag Flag) bool {
	if f.b == nil {
		return false
	}
	return f.b.Test(uint(flag))
}
