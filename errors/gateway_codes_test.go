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

package errors_test

import (
	. "github.com/nabbar/iotgw/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Gateway error codes", func() {
	It("resolves every kind to its registered message", func() {
		expected := map[CodeError]string{
			InvalidParam:            "invalid parameter",
			NilHandle:               "nil handle",
			BufferTooSmall:          "buffer too small",
			NotPowerOfTwo:           "capacity must be a power of two",
			QueueFull:               "queue full",
			PoolExhausted:           "memory pool exhausted",
			SessionTableFull:        "session table full",
			DoubleFree:              "double free",
			IOWouldBlock:            "operation would block",
			IOClosed:                "connection closed",
			IOFailed:                "i/o operation failed",
			ProtocolUnknown:         "unknown protocol",
			ProtocolMalformed:       "malformed protocol packet",
			StateInvariantViolation: "state invariant violation",
		}

		for code, msg := range expected {
			Expect(code.Message()).To(Equal(msg), "code %s", code.String())
		}
	})

	It("keeps the kind blocks distinct", func() {
		Expect(InvalidParam.Uint16()).To(Equal(uint16(1000)))
		Expect(QueueFull.Uint16()).To(Equal(uint16(2000)))
		Expect(IOWouldBlock.Uint16()).To(Equal(uint16(3000)))
		Expect(ProtocolUnknown.Uint16()).To(Equal(uint16(4000)))
		Expect(StateInvariantViolation.Uint16()).To(Equal(uint16(5000)))
	})

	It("falls back to the unknown message inside a kind's unused range", func() {
		Expect(CodeError(1500).Message()).To(Equal(UnknownMessage))
	})

	Describe("IsSuccess", func() {
		It("is true only for the zero code", func() {
			Expect(IsSuccess(UnknownError)).To(BeTrue())
			Expect(IsSuccess(InvalidParam)).To(BeFalse())
			Expect(IsSuccess(SessionTableFull)).To(BeFalse())
		})
	})
})
