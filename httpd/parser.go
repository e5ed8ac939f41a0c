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

// Package httpd implements the HTTP/1.1 application layer on top of an
// agent.Connection's byte stream: an incremental, slow-client-resistant
// parser, a handler registry, and a static/dynamic filesystem responder.
package httpd

import (
	"bytes"
	"strings"
)

// maxURLLen bounds the request-target length; 9000 bytes is accepted, 9001
// is rejected with 414.
const maxURLLen = 9000

// maxHeaderFields bounds the number of header field lines a full parse will
// walk before giving up.
const maxHeaderFields = 200

// probeTrailingNoCRLF is the trailing-byte threshold past the URL's end
// that, absent a CRLF, declares the request dead rather than merely slow.
const probeTrailingNoCRLF = 14

// probeNoMethodLen is the buffered-byte threshold absent any whitespace that
// declares "this can never be a method token".
const probeNoMethodLen = 8

// ProbeStatus is the outcome of the cheap completeness probe a caller
// retries as bytes trickle in.
type ProbeStatus int

const (
	// ProbePartial means: keep receiving and probe again.
	ProbePartial ProbeStatus = iota
	// ProbeFull means: the header block has fully arrived, call Parse.
	ProbeFull
	// ProbeBad means: this will never become a valid request; abandon it.
	ProbeBad
)

// Probe runs the cheap, total completeness check against whatever bytes
// have arrived so far. It never blocks and never allocates; it exists so a
// slow-loris client (one byte every few seconds) is rejected long before
// Parse would ever run.
func Probe(buf []byte) ProbeStatus {
	sp1 := bytes.IndexByte(buf, ' ')
	if sp1 < 0 {
		if len(buf) >= probeNoMethodLen {
			return ProbeBad
		}
		return ProbePartial
	}

	if parseMethod(string(buf[:sp1])) == MethodUnrecognized {
		return ProbeBad
	}

	sp2 := bytes.IndexByte(buf[sp1+1:], ' ')
	if sp2 < 0 {
		if len(buf)-(sp1+1) > maxURLLen {
			return ProbeBad
		}
		return ProbePartial
	}
	sp2 += sp1 + 1

	crlf := bytes.Index(buf[sp2:], []byte("\r\n"))
	if crlf < 0 {
		if len(buf)-sp2 >= probeTrailingNoCRLF {
			return ProbeBad
		}
		return ProbePartial
	}

	if bytes.Contains(buf, []byte("\r\n\r\n")) {
		return ProbeFull
	}

	return ProbePartial
}

// Parse runs the full, exception-free parse of a complete header block
// (Probe must have already returned ProbeFull). It always returns a
// (StatusCode, *Request) pair; no substring operation here is allowed to
// panic the caller, and any malformed input produces a definite status
// instead.
func Parse(buf []byte) (StatusCode, *Request) {
	sp1 := bytes.IndexByte(buf, ' ')
	if sp1 < 0 {
		return StatusBadRequest, nil
	}

	methodTok := string(buf[:sp1])
	if len(methodTok) > maxMethodLen {
		return StatusMethodNotAllowed, nil
	}

	method := parseMethod(methodTok)
	if method == MethodUnrecognized {
		return StatusMethodNotAllowed, nil
	}

	rest := buf[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 < 0 {
		return StatusBadRequest, nil
	}

	url := strings.TrimSpace(string(rest[:sp2]))
	if len(url) > maxURLLen {
		return StatusURITooLong, nil
	}
	if url == "" {
		return StatusBadRequest, nil
	}

	lineEnd := bytes.Index(rest[sp2:], []byte("\r\n"))
	if lineEnd < 0 {
		return StatusBadRequest, nil
	}
	lineEnd += sp2

	headerBlockEnd := bytes.Index(rest, []byte("\r\n\r\n"))
	if headerBlockEnd < 0 {
		return StatusBadRequest, nil
	}

	headers, ok := parseHeaders(rest[lineEnd+2 : headerBlockEnd+2])
	if !ok {
		return StatusBadRequest, nil
	}

	payload := rest[headerBlockEnd+4:]
	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	return StatusOK, &Request{
		Method:  method,
		URL:     url,
		Headers: headers,
		Payload: payloadCopy,
	}
}

// parseHeaders walks "Name: Value\r\n" lines up to maxHeaderFields. Header
// names are not validated as RFC 7230 tokens -- permissive on purpose.
func parseHeaders(block []byte) ([]HeaderField, bool) {
	var out []HeaderField

	lines := bytes.Split(block, []byte("\r\n"))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}

		if len(out) >= maxHeaderFields {
			return nil, false
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}

		name := strings.TrimSpace(string(line[:colon]))
		value := strings.TrimSpace(string(line[colon+1:]))

		if name == "" {
			continue
		}

		out = append(out, HeaderField{Name: name, Value: value})
	}

	return out, true
}
