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

package sockprim

import (
	liberr "github.com/nabbar/netagent/errors"
)

const (
	ErrorAddressInvalid liberr.CodeError = liberr.MinPkgSockPrim + iota
	ErrorDial
	ErrorListen
	ErrorAccept
	ErrorSocketOption
	ErrorShutdown
	ErrorClose
	ErrorInvalidArgument
)

// nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorAddressInvalid) {
		panic("sockprim: error code collision with package errors")
	}

	liberr.RegisterIdFctMessage(liberr.MinPkgSockPrim, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorAddressInvalid:
		return "invalid or empty network address"
	case ErrorDial:
		return "unable to establish outbound connection"
	case ErrorListen:
		return "unable to bind listening socket"
	case ErrorAccept:
		return "unable to accept inbound connection"
	case ErrorSocketOption:
		return "unable to apply socket option"
	case ErrorShutdown:
		return "unable to shutdown socket write side"
	case ErrorClose:
		return "unable to close socket"
	case ErrorInvalidArgument:
		return "invalid argument for socket operation"
	}

	return liberr.NullMessage
}
