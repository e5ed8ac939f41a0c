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
	"context"
	"net"
	"sync"
	"time"

	"github.com/nabbar/netagent/lifecycle"
	"github.com/nabbar/netagent/sockprim"

	liberr "github.com/nabbar/netagent/errors"
)

// listener runs the accept loop for a server-mode Agent: it admits inbound
// sockets under a concurrency cap and hands each accepted socket to a
// callback, applying backpressure when the admission window is full.
type listener struct {
	run lifecycle.Runner

	settings func() NetAgentSettings
	onAccept func(*net.TCPConn)

	mu   sync.Mutex
	sock *net.TCPListener

	admitMu sync.Mutex
	inFlight int
}

func newListener(settings func() NetAgentSettings, onAccept func(*net.TCPConn)) *listener {
	l := &listener{
		settings: settings,
		onAccept: onAccept,
	}
	l.run = lifecycle.New(l.loop, l.drain)

	return l
}

// bind opens the listening socket. Must be called before start.
func (l *listener) bind(host, port string) liberr.Error {
	s, e := sockprim.Listen("tcp", net.JoinHostPort(host, port))
	if e != nil {
		return ErrorListenerBind.Error(e)
	}

	l.mu.Lock()
	l.sock = s
	l.mu.Unlock()

	return nil
}

func (l *listener) start(ctx context.Context) {
	_ = l.run.Start(ctx)
}

func (l *listener) stop(ctx context.Context) {
	_ = l.run.Stop(ctx)
}

func (l *listener) addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sock == nil {
		return nil
	}

	return l.sock.Addr()
}

// loop accepts connections one at a time, gating admission with the
// concurrent-connect-requests-max / connect-request-overload-delay-ms pair
// from settings so a burst of inbound sockets cannot starve the agent.
func (l *listener) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		l.mu.Lock()
		sock := l.sock
		l.mu.Unlock()

		if sock == nil {
			return nil
		}

		s := l.settings()

		if !l.admit(s.ConcurrentConnectRequestsMax) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(s.ConnectRequestOverloadDelayMs * float64(time.Millisecond))):
			}
			continue
		}

		_ = sock.SetDeadline(time.Now().Add(200 * time.Millisecond))

		c, e := sockprim.Accept(sock)
		if e != nil {
			l.release()

			if ctx.Err() != nil {
				return nil
			}

			// A plain accept timeout (from the 200ms deadline above, so
			// the loop keeps checking ctx/admission) and any other accept
			// error are both handled the same way: drop it and retry.
			continue
		}

		_ = sockprim.SetupStream(c, 30*time.Second, true)

		go func() {
			defer l.release()
			if l.onAccept != nil {
				l.onAccept(c)
			}
		}()
	}
}

func (l *listener) admit(max int) bool {
	l.admitMu.Lock()
	defer l.admitMu.Unlock()

	if l.inFlight >= max {
		return false
	}

	l.inFlight++
	return true
}

func (l *listener) release() {
	l.admitMu.Lock()
	defer l.admitMu.Unlock()

	if l.inFlight > 0 {
		l.inFlight--
	}
}

// drain closes the listening socket first, refusing any further inbound
// connection, then gives in-flight accepts one last chance to be handed
// off before returning -- the supplemented graceful-drain behavior.
func (l *listener) drain(_ context.Context) error {
	l.mu.Lock()
	sock := l.sock
	l.sock = nil
	l.mu.Unlock()

	if sock == nil {
		return nil
	}

	_ = sock.Close()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		l.admitMu.Lock()
		n := l.inFlight
		l.admitMu.Unlock()

		if n == 0 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	return nil
}
