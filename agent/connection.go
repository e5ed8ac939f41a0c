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
	stdctx "context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	libctx "github.com/nabbar/netagent/context"
	"github.com/nabbar/netagent/ring"
	"github.com/nabbar/netagent/tlsadapter"

	liberr "github.com/nabbar/netagent/errors"
)

// tagDefaultKey is the key SetTag/Tag store under in the per-connection tag
// map, reserving the rest of the string key space for TagValue/SetTagValue.
const tagDefaultKey = "default"

// ConnectionId uniquely and monotonically identifies a Connection within
// its owning Agent.
type ConnectionId uint64

// connState holds the three sticky flags tracked for a Connection.
type connState struct {
	streamConnected  atomic.Bool
	connectionFailed atomic.Bool
	forceTerminate   atomic.Bool
}

// Connection is one live (or pre-connect) TCP endpoint: its socket, its two
// ring buffers, its TLS state, and its idle timer. Exactly one worker
// goroutine mutates the buffers; everything else communicates through the
// thread-safe methods below.
type Connection struct {
	id ConnectionId

	host string
	port string

	mu   sync.Mutex
	sock *net.TCPConn
	tls  *tlsadapter.Adapter

	recvBuf *ring.Buffer
	sendBuf *ring.Buffer

	state connState

	idleMu   sync.Mutex
	idleLast time.Time

	// tags is a request/embedder-scoped key-value store, one per
	// connection, carrying a context.Context an embedder's handler can
	// derive cancellation or deadlines from alongside arbitrary tag data.
	tags libctx.Config[string]

	sentBytes atomic.Uint64
	recvBytes atomic.Uint64
}

// newConnection constructs a Connection in client mode (host/port, no
// socket yet) or server mode (sock already accepted) depending on which
// argument is non-nil.
func newConnection(id ConnectionId, host, port string, sock *net.TCPConn) *Connection {
	c := &Connection{
		id:      id,
		host:    host,
		port:    port,
		sock:    sock,
		recvBuf: ring.New(),
		sendBuf: ring.New(),
		tags:    libctx.New[string](nil),
	}
	c.touchIdle()

	if sock != nil {
		c.state.streamConnected.Store(true)
	}

	return c
}

// ID returns the connection's stable identifier.
func (c *Connection) ID() ConnectionId {
	return c.id
}

// IsConnected reports whether the stream is currently established.
func (c *Connection) IsConnected() bool {
	return c.state.streamConnected.Load()
}

// IsFailed reports whether the connection failed: it gave up establishing a
// stream, or its worker ended it on a send/receive error, peer close, idle
// timeout or hostile receive backlog.
func (c *Connection) IsFailed() bool {
	return c.state.connectionFailed.Load()
}

// Stats returns the cumulative bytes sent and received over this connection.
func (c *Connection) Stats() (sent, recvd uint64) {
	return c.sentBytes.Load(), c.recvBytes.Load()
}

// SetTag attaches arbitrary embedder data to the connection under the
// default tag key. Use SetTagValue for additional, independently keyed
// values on the same connection.
func (c *Connection) SetTag(v any) {
	c.tags.Store(tagDefaultKey, v)
}

// Tag returns whatever was last passed to SetTag, or nil.
func (c *Connection) Tag() any {
	v, ok := c.tags.Load(tagDefaultKey)
	if !ok {
		return nil
	}
	return v
}

// SetTagValue attaches arbitrary embedder data to the connection under key,
// independent of the default SetTag/Tag slot.
func (c *Connection) SetTagValue(key string, v any) {
	c.tags.Store(key, v)
}

// TagValue returns the value last stored under key with SetTagValue, and
// whether it was present.
func (c *Connection) TagValue(key string) (any, bool) {
	return c.tags.Load(key)
}

// Context returns a context.Context scoped to this connection's lifetime,
// for embedders that want to derive per-connection cancellation or
// deadlines alongside the tag store above.
func (c *Connection) Context() stdctx.Context {
	return c.tags.GetContext()
}

// QueueSend copies b into the send buffer for the worker to drain. Returns
// false without mutating state for an empty slice or a terminating
// connection.
func (c *Connection) QueueSend(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if c.state.forceTerminate.Load() || c.state.connectionFailed.Load() {
		return false
	}

	dst, e := c.sendBuf.ReserveWrite(len(b))
	if e != nil {
		return false
	}

	copy(dst, b)

	if e = c.sendBuf.CommittedWrite(len(b)); e != nil {
		return false
	}

	return true
}

// GetReceiveBuffer atomically drains every currently readable byte into a
// freshly allocated slice.
func (c *Connection) GetReceiveBuffer() []byte {
	view := c.recvBuf.PeekRead()
	out := make([]byte, len(view))
	copy(out, view)

	_ = c.recvBuf.CommittedRead(len(view))

	return out
}

// GetReceiveDataSize is a best-effort, possibly-stale size query; callers
// that need an exact count must re-check under GetReceiveBuffer.
func (c *Connection) GetReceiveDataSize() int {
	return c.recvBuf.Readable()
}

// Stop requests the owning worker to exit at its next loop head.
func (c *Connection) Stop() {
	c.state.forceTerminate.Store(true)
}

// Close closes the underlying socket, idempotent if already closed or never
// connected.
func (c *Connection) Close() liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.streamConnected.Store(false)

	if c.tlsAdapter() != nil {
		_ = c.tls.Close()
		c.tls = nil
	}

	if c.sock == nil {
		return nil
	}

	s := c.sock
	c.sock = nil

	if e := s.Close(); e != nil {
		return ErrorConnectionClosed.Error(e)
	}

	return nil
}

func (c *Connection) tlsAdapter() *tlsadapter.Adapter {
	return c.tls
}

func (c *Connection) touchIdle() {
	c.idleMu.Lock()
	defer c.idleMu.Unlock()

	c.idleLast = time.Now()
}

func (c *Connection) idleSince() time.Duration {
	c.idleMu.Lock()
	defer c.idleMu.Unlock()

	return time.Since(c.idleLast)
}

// enableTLS wraps the connected socket in a server-side TLS session. Called
// by the worker before the main loop when the agent runs in
// ServerEncrypted mode.
func (c *Connection) enableTLS(cfg *tls.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock != nil {
		c.tls = tlsadapter.New(c.sock, cfg)
	}
}
