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
	liberr "github.com/nabbar/netagent/errors"
)

const (
	ErrorParserTimeout liberr.CodeError = liberr.MinPkgHTTPParser + iota
	ErrorParserBadRequest
)

const (
	ErrorSettingsInvalid liberr.CodeError = liberr.MinPkgHTTPServer + iota
	ErrorServerAlreadyStarted
	ErrorServerNotStarted
	ErrorHandlerNotFound
	ErrorServerTLSCertInvalid
)

const (
	ErrorFilesystemWebrootInvalid liberr.CodeError = liberr.MinPkgFilesystem + iota
	ErrorFilesystemFileNotFound
	ErrorFilesystemFileUnreadable
)

// nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorParserTimeout) {
		panic("httpd: error code collision with package errors")
	}

	liberr.RegisterIdFctMessage(liberr.MinPkgHTTPParser, getParserMessage)
	liberr.RegisterIdFctMessage(liberr.MinPkgHTTPServer, getServerMessage)
	liberr.RegisterIdFctMessage(liberr.MinPkgFilesystem, getFilesystemMessage)
}

func getParserMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParserTimeout:
		return "header parse timed out"
	case ErrorParserBadRequest:
		return "malformed request"
	}

	return liberr.NullMessage
}

func getServerMessage(code liberr.CodeError) string {
	switch code {
	case ErrorSettingsInvalid:
		return "invalid http server settings"
	case ErrorServerAlreadyStarted:
		return "http server is already started"
	case ErrorServerNotStarted:
		return "http server is not started"
	case ErrorHandlerNotFound:
		return "no handler bound for this request"
	case ErrorServerTLSCertInvalid:
		return "tls certificate pem could not be parsed"
	}

	return liberr.NullMessage
}

func getFilesystemMessage(code liberr.CodeError) string {
	switch code {
	case ErrorFilesystemWebrootInvalid:
		return "webroot path is invalid"
	case ErrorFilesystemFileNotFound:
		return "file not found under webroot"
	case ErrorFilesystemFileUnreadable:
		return "file could not be read"
	}

	return liberr.NullMessage
}
