/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package httpd_test

import (
	"strings"

	"github.com/nabbar/netagent/httpd"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Response", func() {
	It("computes Content-Length from the payload", func() {
		resp := httpd.NewResponse(httpd.StatusOK, []byte("hello"))
		raw := string(resp.Serialize())

		Expect(raw).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(raw).To(ContainSubstring("Content-Length: 5\r\n"))
		Expect(raw).To(HaveSuffix("hello"))
	})

	It("never duplicates Content-Length even if one was set manually", func() {
		resp := httpd.NewResponse(httpd.StatusOK, []byte("abc"))
		resp.SetHeader("Content-Length", "999")

		raw := string(resp.Serialize())

		Expect(strings.Count(raw, "Content-Length:")).To(Equal(1))
		Expect(raw).To(ContainSubstring("Content-Length: 3\r\n"))
	})

	It("is idempotent across repeated Serialize calls", func() {
		resp := httpd.NewResponse(httpd.StatusOK, []byte("xyz"))

		first := resp.Serialize()
		second := resp.Serialize()

		Expect(first).To(Equal(second))
	})

	It("preserves additional headers in registration order", func() {
		resp := httpd.NewResponse(httpd.StatusOK, nil)
		resp.SetHeader("X-One", "1")
		resp.SetHeader("X-Two", "2")

		raw := string(resp.Serialize())
		i := strings.Index(raw, "X-One")
		j := strings.Index(raw, "X-Two")

		Expect(i).To(BeNumerically(">", 0))
		Expect(j).To(BeNumerically(">", i))
	})

	It("builds a plain-text error body with the reason phrase", func() {
		resp := httpd.ErrorResponse(httpd.StatusNotFound)
		raw := string(resp.Serialize())

		Expect(raw).To(HavePrefix("HTTP/1.1 404 Not Found\r\n"))
		Expect(raw).To(ContainSubstring("404 Not Found"))
	})
})
