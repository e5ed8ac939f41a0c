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

var _ = Describe("Probe", func() {
	Context("a request arriving byte by byte", func() {
		It("stays Partial until the blank line arrives, then goes Full", func() {
			full := "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"

			for i := 1; i < len(full); i++ {
				Expect(httpd.Probe([]byte(full[:i]))).NotTo(Equal(httpd.ProbeBad))
			}

			Expect(httpd.Probe([]byte(full))).To(Equal(httpd.ProbeFull))
		})
	})

	Context("slow loris: method fragment that stalls", func() {
		It("goes Bad once 8 bytes have arrived with no whitespace", func() {
			Expect(httpd.Probe([]byte("GE"))).To(Equal(httpd.ProbePartial))
			Expect(httpd.Probe([]byte("GEGEGEGE"))).To(Equal(httpd.ProbeBad))
		})
	})

	Context("unrecognized method", func() {
		It("goes Bad immediately", func() {
			Expect(httpd.Probe([]byte("FROB /x HTTP/1.1\r\n"))).To(Equal(httpd.ProbeBad))
		})
	})

	Context("URL far past the limit with no second whitespace yet", func() {
		It("goes Bad", func() {
			req := "GET /" + strings.Repeat("a", 9100)
			Expect(httpd.Probe([]byte(req))).To(Equal(httpd.ProbeBad))
		})
	})

	Context("request line present but no CRLF in sight", func() {
		It("goes Bad once 14 trailing bytes have accumulated", func() {
			req := "GET /hello HTTP/1.1xxxxxxxxxxxxxxxxxx"
			Expect(httpd.Probe([]byte(req))).To(Equal(httpd.ProbeBad))
		})
	})
})

var _ = Describe("Parse", func() {
	It("parses a minimal GET", func() {
		raw := "GET /hello HTTP/1.1\r\nHost: example\r\nX-Requested-With: SPA\r\n\r\n"

		status, req := httpd.Parse([]byte(raw))

		Expect(status).To(Equal(httpd.StatusOK))
		Expect(req).NotTo(BeNil())
		Expect(req.Method).To(Equal(httpd.MethodGET))
		Expect(req.URL).To(Equal("/hello"))

		v, ok := req.Header("host")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("example"))

		Expect(req.HasRequestedWithSPA()).To(BeTrue())
	})

	It("captures the payload after the blank line", func() {
		raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"

		status, req := httpd.Parse([]byte(raw))

		Expect(status).To(Equal(httpd.StatusOK))
		Expect(req.Payload).To(Equal([]byte("hello")))
	})

	Context("URL boundary", func() {
		It("accepts exactly 9000 bytes", func() {
			url := "/" + strings.Repeat("a", 8999)
			raw := "GET " + url + " HTTP/1.1\r\n\r\n"

			status, req := httpd.Parse([]byte(raw))

			Expect(status).To(Equal(httpd.StatusOK))
			Expect(req.URL).To(HaveLen(9000))
		})

		It("rejects 9001 bytes with 414", func() {
			url := "/" + strings.Repeat("a", 9000)
			raw := "GET " + url + " HTTP/1.1\r\n\r\n"

			status, req := httpd.Parse([]byte(raw))

			Expect(status).To(Equal(httpd.StatusURITooLong))
			Expect(req).To(BeNil())
		})
	})

	Context("method token boundary", func() {
		It("accepts a 7-byte token (OPTIONS)", func() {
			raw := "OPTIONS / HTTP/1.1\r\n\r\n"

			status, req := httpd.Parse([]byte(raw))

			Expect(status).To(Equal(httpd.StatusOK))
			Expect(req.Method).To(Equal(httpd.MethodOPTIONS))
		})

		It("rejects an 8-byte token with 405", func() {
			raw := "OPTIONSX / HTTP/1.1\r\n\r\n"

			status, req := httpd.Parse([]byte(raw))

			Expect(status).To(Equal(httpd.StatusMethodNotAllowed))
			Expect(req).To(BeNil())
		})
	})
})
