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

// Package sockprim wraps the TCP socket primitives (resolve, connect,
// listen, peek-without-consume) that the agent and listener workers drive,
// as thin helpers over net.Dialer, net.TCPListener and net.TCPConn that
// return errors.Error.
package sockprim

import (
	"context"
	"net"
	"time"

	liberr "github.com/nabbar/netagent/errors"
)

// Resolve validates and resolves a "host:port" address for TCP use.
func Resolve(network, address string) (*net.TCPAddr, liberr.Error) {
	if address == "" {
		return nil, ErrorAddressInvalid.Error(nil)
	}

	a, e := net.ResolveTCPAddr(network, address)
	if e != nil {
		return nil, ErrorAddressInvalid.Error(e)
	}

	return a, nil
}

// Connect opens an outbound TCP connection, honoring ctx for cancellation
// and timeout the way the teacher's socket client package does via
// net.Dialer.DialContext.
func Connect(ctx context.Context, network, address string, timeout time.Duration) (*net.TCPConn, liberr.Error) {
	d := &net.Dialer{Timeout: timeout}

	c, e := d.DialContext(ctx, network, address)
	if e != nil {
		return nil, ErrorDial.Error(e)
	}

	tc, ok := c.(*net.TCPConn)
	if !ok {
		_ = c.Close()
		return nil, ErrorDial.Error(nil)
	}

	return tc, nil
}

// Listen opens a TCP listening socket bound to address.
func Listen(network, address string) (*net.TCPListener, liberr.Error) {
	a, e := Resolve(network, address)
	if e != nil {
		return nil, e
	}

	l, le := net.ListenTCP(network, a)
	if le != nil {
		return nil, ErrorListen.Error(le)
	}

	return l, nil
}

// Accept blocks for the next inbound connection on l.
func Accept(l *net.TCPListener) (*net.TCPConn, liberr.Error) {
	if l == nil {
		return nil, ErrorInvalidArgument.Error(nil)
	}

	c, e := l.AcceptTCP()
	if e != nil {
		return nil, ErrorAccept.Error(e)
	}

	return c, nil
}

// SetupStream applies the agent's socket-level knobs (keep-alive and
// no-delay) to a freshly dialed or accepted connection. Linger is left at
// the system default.
func SetupStream(c *net.TCPConn, keepAlive time.Duration, noDelay bool) liberr.Error {
	if c == nil {
		return ErrorInvalidArgument.Error(nil)
	}

	if keepAlive > 0 {
		if e := c.SetKeepAlive(true); e != nil {
			return ErrorSocketOption.Error(e)
		}
		if e := c.SetKeepAlivePeriod(keepAlive); e != nil {
			return ErrorSocketOption.Error(e)
		}
	} else {
		if e := c.SetKeepAlive(false); e != nil {
			return ErrorSocketOption.Error(e)
		}
	}

	if e := c.SetNoDelay(noDelay); e != nil {
		return ErrorSocketOption.Error(e)
	}

	return nil
}

// SetReceiveTimeout arms (or, when d <= 0, clears) the read deadline.
func SetReceiveTimeout(c *net.TCPConn, d time.Duration) liberr.Error {
	if c == nil {
		return ErrorInvalidArgument.Error(nil)
	}

	var dl time.Time
	if d > 0 {
		dl = time.Now().Add(d)
	}

	if e := c.SetReadDeadline(dl); e != nil {
		return ErrorSocketOption.Error(e)
	}

	return nil
}

// Shutdown half-closes the write side so the peer observes EOF while reads
// already in flight on this side can still drain.
func Shutdown(c *net.TCPConn) liberr.Error {
	if c == nil {
		return ErrorInvalidArgument.Error(nil)
	}

	if e := c.CloseWrite(); e != nil {
		return ErrorShutdown.Error(e)
	}

	return nil
}

// Close releases the socket unconditionally.
func Close(c *net.TCPConn) liberr.Error {
	if c == nil {
		return nil
	}

	if e := c.Close(); e != nil {
		return ErrorClose.Error(e)
	}

	return nil
}
