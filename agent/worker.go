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
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/nabbar/netagent/lifecycle"
	"github.com/nabbar/netagent/sockprim"
)

// streamWorker drives one Connection's socket lifetime: dial-or-accept,
// then an indefinite loop of send/receive/idle phases (send and receive go
// through the TLS adapter when one is armed) until the connection is
// closed, fails, or is force-terminated.
type streamWorker struct {
	conn *Connection
	run  lifecycle.Runner

	settings func() NetAgentSettings
	tlsCfg   *tls.Config
	metrics  *Metrics

	onDone func(*Connection)
}

func newStreamWorker(conn *Connection, settings func() NetAgentSettings, tlsCfg *tls.Config, metrics *Metrics, onDone func(*Connection)) *streamWorker {
	w := &streamWorker{
		conn:     conn,
		settings: settings,
		tlsCfg:   tlsCfg,
		metrics:  metrics,
		onDone:   onDone,
	}
	w.run = lifecycle.New(w.loop, w.shutdown)

	return w
}

func (w *streamWorker) start(ctx context.Context) {
	_ = w.run.Start(ctx)
}

func (w *streamWorker) stop(ctx context.Context) {
	_ = w.run.Stop(ctx)
}

// loop is the runner's start function: it establishes the stream (for a
// client-mode connection) then drives the three-phase main loop until the
// connection ends.
func (w *streamWorker) loop(ctx context.Context) error {
	defer func() {
		if w.onDone != nil {
			w.onDone(w.conn)
		}
	}()

	if !w.conn.IsConnected() {
		if !w.clientConnect(ctx) {
			w.conn.state.connectionFailed.Store(true)
			return nil
		}
	}

	if w.tlsCfg != nil {
		w.conn.enableTLS(w.tlsCfg)

		s := w.settings()
		hctx, cancel := context.WithTimeout(ctx, time.Duration(s.ClientConnectTimeoutSec*float64(time.Second)))
		e := w.conn.tls.Handshake(hctx)
		cancel()

		if e != nil {
			w.conn.state.connectionFailed.Store(true)
			_ = w.conn.Close()
			return nil
		}
	}

	w.mainLoop(ctx)

	return nil
}

// clientConnect repeatedly attempts setupStream until it succeeds or the
// per-settings connect timeout budget is exhausted.
func (w *streamWorker) clientConnect(ctx context.Context) bool {
	s := w.settings()
	deadline := time.Now().Add(time.Duration(s.ClientConnectTimeoutSec * float64(time.Second)))

	for {
		if ctx.Err() != nil {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}

		remaining := time.Until(deadline)

		c, e := sockprim.Connect(ctx, "tcp", net.JoinHostPort(w.conn.host, w.conn.port), remaining)
		if e == nil {
			_ = sockprim.SetupStream(c, 30*time.Second, true)

			w.conn.mu.Lock()
			w.conn.sock = c
			w.conn.mu.Unlock()

			w.conn.state.streamConnected.Store(true)
			w.conn.touchIdle()

			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// mainLoop runs the three ordered phases (send, receive, idle policy) every
// iteration until the connection is closed, fails, or force-terminated.
// There is no separate TLS pump phase: writeApp/readApp route through the
// TLS adapter when one is armed.
func (w *streamWorker) mainLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			_ = w.conn.Close()
			return
		}
		if w.conn.state.forceTerminate.Load() {
			_ = w.conn.Close()
			return
		}

		s := w.settings()

		didSend := w.phaseSend()
		didRecv, hostile := w.phaseReceive(s)

		if hostile {
			w.conn.state.connectionFailed.Store(true)
			_ = w.conn.Close()
			return
		}
		if w.conn.state.connectionFailed.Load() {
			_ = w.conn.Close()
			return
		}

		w.phaseIdle(s, didSend, didRecv)
	}
}

// phaseSend drains the send ring buffer onto the socket (or TLS adapter).
func (w *streamWorker) phaseSend() bool {
	view := w.conn.sendBuf.PeekRead()
	if len(view) == 0 {
		return false
	}

	n, e := w.writeApp(view)
	if n > 0 {
		_ = w.conn.sendBuf.CommittedRead(n)
		w.conn.sentBytes.Add(uint64(n))
		w.metrics.addBytesSent(uint64(n))
		w.conn.touchIdle()
	}

	if e != nil {
		w.conn.state.connectionFailed.Store(true)
	}

	return n > 0
}

// phaseReceive peeks the socket's available byte count, rejects an
// obviously hostile backlog outright, then reads whatever fits into the
// receive ring buffer.
func (w *streamWorker) phaseReceive(s NetAgentSettings) (didRead bool, hostile bool) {
	w.conn.mu.Lock()
	sock := w.conn.sock
	w.conn.mu.Unlock()

	if sock == nil {
		return false, false
	}

	if avail, e := sockprim.PeekAvailable(sock); e == nil && int64(avail) > s.PendingReceiveMaxBytes {
		return false, true
	}

	_ = sockprim.SetReceiveTimeout(sock, time.Duration(s.SocketMaxReceiveWaitMs*float64(time.Millisecond)))

	buf := make([]byte, 64*1024)
	n, e := w.readApp(buf)

	if n > 0 {
		dst, rerr := w.conn.recvBuf.ReserveWrite(n)
		if rerr == nil {
			copy(dst, buf[:n])
			_ = w.conn.recvBuf.CommittedWrite(n)
			w.conn.recvBytes.Add(uint64(n))
			w.metrics.addBytesRecv(uint64(n))
			w.conn.touchIdle()
		}
	}

	if e != nil {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return n > 0, false
		}
		if e == io.EOF {
			w.conn.state.connectionFailed.Store(true)
			return n > 0, false
		}
		w.conn.state.connectionFailed.Store(true)
	}

	return n > 0, false
}

// phaseIdle applies the communication-gap slowdown policy: once idle
// exceeds communicationGapSlowdownDelaySec, sleep communicationGapSlowdownAmountMs
// each iteration; once idle exceeds communicationGapMaxSec, the connection
// is closed; otherwise, if neither phase made progress, yield briefly.
func (w *streamWorker) phaseIdle(s NetAgentSettings, didSend, didRecv bool) {
	idle := w.conn.idleSince()

	if idle.Seconds() > s.CommunicationGapMaxSec {
		w.conn.state.connectionFailed.Store(true)
		_ = w.conn.Close()
		return
	}

	if idle.Seconds() > s.CommunicationGapSlowdownDelaySec {
		time.Sleep(time.Duration(s.CommunicationGapSlowdownAmountMs * float64(time.Millisecond)))
		return
	}

	if !didSend && !didRecv {
		time.Sleep(5 * time.Millisecond)
	}
}

func (w *streamWorker) writeApp(p []byte) (int, error) {
	if w.conn.tls != nil {
		n, e := w.conn.tls.SendApp(p)
		if e != nil {
			return n, e
		}
		return n, nil
	}

	w.conn.mu.Lock()
	sock := w.conn.sock
	w.conn.mu.Unlock()

	if sock == nil {
		return 0, io.ErrClosedPipe
	}

	return sock.Write(p)
}

func (w *streamWorker) readApp(p []byte) (int, error) {
	if w.conn.tls != nil {
		n, e := w.conn.tls.RecvApp(p)
		if e != nil {
			return n, e
		}
		return n, nil
	}

	w.conn.mu.Lock()
	sock := w.conn.sock
	w.conn.mu.Unlock()

	if sock == nil {
		return 0, io.ErrClosedPipe
	}

	return sock.Read(p)
}

// shutdown is the runner's stop function, invoked once after the loop's
// context is cancelled.
func (w *streamWorker) shutdown(_ context.Context) error {
	if e := w.conn.Close(); e != nil {
		return e
	}
	return nil
}
