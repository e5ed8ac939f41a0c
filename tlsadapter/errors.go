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

package tlsadapter

import (
	liberr "github.com/nabbar/netagent/errors"
)

const (
	ErrorProfileUnknown liberr.CodeError = liberr.MinPkgTLSAdapter + iota
	ErrorCertificateInvalid
	ErrorHandshake
)

// nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorProfileUnknown) {
		panic("tlsadapter: error code collision with package errors")
	}

	liberr.RegisterIdFctMessage(liberr.MinPkgTLSAdapter, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorProfileUnknown:
		return "unknown TLS security profile"
	case ErrorCertificateInvalid:
		return "invalid or unparseable TLS certificate"
	case ErrorHandshake:
		return "TLS handshake failed"
	}

	return liberr.NullMessage
}
