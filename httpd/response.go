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

package httpd

import (
	"fmt"
	"strconv"
	"strings"
)

// Response is what a handler builds: a status, an ordered header list, and a
// payload. Handled lets a handler decline by leaving it false so the server
// walks to the next binding.
type Response struct {
	Status  StatusCode
	Headers []HeaderField
	Payload []byte
	Handled bool
}

// NewResponse returns a Handled response with the given status and payload.
func NewResponse(status StatusCode, payload []byte) *Response {
	return &Response{
		Status:  status,
		Payload: payload,
		Handled: true,
	}
}

// SetHeader appends a header field. Repeated calls with the same name append
// repeated lines rather than overwrite, matching the ordered-list model.
func (r *Response) SetHeader(name, value string) *Response {
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
	return r
}

// Serialize renders the status line, headers, a freshly computed
// Content-Length, the blank line, and the payload. Idempotent: calling it
// twice on the same Response yields byte-identical output and never
// duplicates Content-Length.
func (r *Response) Serialize() []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", int(r.Status), r.Status.Reason())

	for _, h := range r.Headers {
		if equalFold(h.Name, "Content-Length") {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}

	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Payload)))
	b.WriteString("\r\n\r\n")

	out := make([]byte, 0, b.Len()+len(r.Payload))
	out = append(out, b.String()...)
	out = append(out, r.Payload...)

	return out
}

// ErrorResponse builds a standard plain-text error body for the given
// status (e.g. "404 Not Found", "400 Bad Request").
func ErrorResponse(status StatusCode) *Response {
	body := fmt.Sprintf("%d %s", int(status), status.Reason())
	r := NewResponse(status, []byte(body))
	r.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return r
}
