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

package agent

import (
	liberr "github.com/nabbar/netagent/errors"
)

const (
	ErrorSettingsInvalid liberr.CodeError = liberr.MinPkgConnection + iota
	ErrorConnectionClosed
	ErrorConnectionFailed
	ErrorSendFailed
	ErrorReceiveFailed
	ErrorHostileBacklog
)

const (
	ErrorListenerBind liberr.CodeError = liberr.MinPkgListener + iota
	ErrorListenerAccept
	ErrorListenerStopped
)

const (
	ErrorAgentConnectionsExhausted liberr.CodeError = liberr.MinPkgAgent + iota
	ErrorAgentConnectionNotFound
	ErrorAgentAlreadyListening
	ErrorAgentNotListening
)

// nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorSettingsInvalid) {
		panic("agent: error code collision with package errors")
	}

	liberr.RegisterIdFctMessage(liberr.MinPkgConnection, getConnectionMessage)
	liberr.RegisterIdFctMessage(liberr.MinPkgListener, getListenerMessage)
	liberr.RegisterIdFctMessage(liberr.MinPkgAgent, getAgentMessage)
}

func getConnectionMessage(code liberr.CodeError) string {
	switch code {
	case ErrorSettingsInvalid:
		return "invalid agent settings"
	case ErrorConnectionClosed:
		return "connection is closed"
	case ErrorConnectionFailed:
		return "connection failed to establish"
	case ErrorSendFailed:
		return "socket send failed"
	case ErrorReceiveFailed:
		return "socket receive failed"
	case ErrorHostileBacklog:
		return "peekable receive backlog exceeds the configured maximum"
	}

	return liberr.NullMessage
}

func getListenerMessage(code liberr.CodeError) string {
	switch code {
	case ErrorListenerBind:
		return "unable to bind listening socket"
	case ErrorListenerAccept:
		return "unable to accept inbound connection"
	case ErrorListenerStopped:
		return "listener is stopped"
	}

	return liberr.NullMessage
}

func getAgentMessage(code liberr.CodeError) string {
	switch code {
	case ErrorAgentConnectionsExhausted:
		return "connection pool is at capacity"
	case ErrorAgentConnectionNotFound:
		return "no connection with the given id"
	case ErrorAgentAlreadyListening:
		return "agent is already listening"
	case ErrorAgentNotListening:
		return "agent is not listening"
	}

	return liberr.NullMessage
}
