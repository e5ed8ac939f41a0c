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
	"context"
	"crypto/tls"
	"net"
	"time"

	liberr "github.com/nabbar/netagent/errors"
)

// Adapter wraps an accepted raw TCP connection in a server-side TLS session.
//
// The original four-lane contract (send-record, receive-record, send-app,
// receive-app as independently drivable queues) assumed a TLS engine that
// hands back ciphertext records for the caller to push onto the wire itself.
// crypto/tls does not expose that seam: tls.Conn owns the raw net.Conn and
// pumps ciphertext internally inside Read/Write/Handshake. Adapter therefore
// collapses the two ciphertext lanes into tls.Conn's own record pump and
// keeps only the two lanes a caller can still act on: SendApp (plaintext in)
// and RecvApp (plaintext out). This is a deliberate simplification, not an
// omission -- reimplementing TLS record framing by hand to recover the raw
// lanes would be the non-idiomatic choice in Go.
type Adapter struct {
	raw *net.TCPConn
	tls *tls.Conn
}

// New wraps raw as a TLS server connection using cfg. The handshake is not
// performed until Handshake is called.
func New(raw *net.TCPConn, cfg *tls.Config) *Adapter {
	return &Adapter{
		raw: raw,
		tls: tls.Server(raw, cfg),
	}
}

// Handshake drives the TLS handshake to completion or ctx's deadline,
// whichever comes first.
func (a *Adapter) Handshake(ctx context.Context) liberr.Error {
	if a == nil || a.tls == nil {
		return ErrorHandshake.Error(nil)
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = a.raw.SetDeadline(dl)
		defer a.raw.SetDeadline(time.Time{})
	}

	if e := a.tls.HandshakeContext(ctx); e != nil {
		return ErrorHandshake.Error(e)
	}

	return nil
}

// SendApp writes plaintext application bytes; the adapter encrypts and
// flushes the corresponding TLS record(s) before returning.
func (a *Adapter) SendApp(p []byte) (int, liberr.Error) {
	n, e := a.tls.Write(p)
	if e != nil {
		return n, ErrorHandshake.Error(e)
	}
	return n, nil
}

// RecvApp reads decrypted application bytes, blocking until at least one
// byte is available, EOF, or the connection's read deadline expires.
//
// A read-deadline timeout is not a connection failure -- it is the normal
// "no data yet" result of the per-iteration receive-wait bound the worker
// applies to the raw socket -- so it is reported as (n, nil) rather than
// wrapped into an Error, the same way a plain net.Conn timeout is treated
// on the unencrypted path.
func (a *Adapter) RecvApp(p []byte) (int, liberr.Error) {
	n, e := a.tls.Read(p)
	if e != nil {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		return n, ErrorHandshake.Error(e)
	}
	return n, nil
}

// ConnectionState exposes the negotiated TLS connection state (version,
// cipher suite, peer certificates) once the handshake has completed.
func (a *Adapter) ConnectionState() tls.ConnectionState {
	return a.tls.ConnectionState()
}

// SetReadDeadline forwards the deadline to the underlying TLS connection so
// RecvApp can be bounded the same way a plaintext read would be.
func (a *Adapter) SetReadDeadline(t time.Time) error {
	return a.tls.SetReadDeadline(t)
}

// Close shuts down the TLS session and the underlying socket.
func (a *Adapter) Close() error {
	return a.tls.Close()
}
