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

// testBlockStart sits far above the gateway's own kind blocks so these
// specs never collide with the registrations in gateway_codes.go.
const (
	testBlockStart CodeError = 50000
	testBlockOther CodeError = 50001
)

var _ = Describe("CodeError registry", func() {
	BeforeEach(func() {
		RegisterIdFctMessage(testBlockStart, func(code CodeError) string {
			switch code {
			case testBlockStart:
				return "test block start"
			case testBlockOther:
				return "test block other"
			}
			return ""
		})
	})

	It("resolves codes through the block they fall into", func() {
		Expect(testBlockStart.Message()).To(Equal("test block start"))
		Expect(testBlockOther.Message()).To(Equal("test block other"))
	})

	It("returns the unknown message for a code its block does not know", func() {
		Expect(CodeError(50999).Message()).To(Equal(UnknownMessage))
	})

	It("returns the unknown message below the lowest registered block", func() {
		Expect(CodeError(10).Message()).To(Equal(UnknownMessage))
	})

	It("renders the numeric code through String", func() {
		Expect(testBlockStart.String()).To(Equal("50000"))
		Expect(UnknownError.String()).To(Equal("0"))
	})
})
