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
	"net"
	"sync"
	"sync/atomic"

	libatomic "github.com/nabbar/netagent/atomic"
	"github.com/nabbar/netagent/tlsadapter"

	liberr "github.com/nabbar/netagent/errors"
)

// Mode selects what role an Agent plays on the network.
type Mode uint8

const (
	// ModeClient dials outbound connections only.
	ModeClient Mode = iota
	// ModeServer accepts inbound plaintext connections.
	ModeServer
	// ModeServerEncrypted accepts inbound connections and TLS-wraps each one.
	ModeServerEncrypted
)

// AgentStats exposes cumulative admission counters, the supplemented
// observability surface beyond the wire protocol itself.
type AgentStats struct {
	Accepted uint64
	Rejected uint64
	Active   uint64
}

// Agent owns a pool of Connections, an optional listener, and the settings
// every Connection's stream worker reads from. One Agent runs in exactly
// one Mode for its whole lifetime.
type Agent struct {
	mode Mode

	settings libatomic.Value[NetAgentSettings]
	tlsCfg   *tls.Config

	nextID atomic.Uint64

	mu    sync.RWMutex
	conns map[ConnectionId]*Connection

	lst *listener

	accepted atomic.Uint64
	rejected atomic.Uint64

	metrics *Metrics
}

// New constructs an Agent in the given mode with the given settings. For
// ModeServerEncrypted, call EnableTLS afterwards to select the TLS
// configuration every accepted connection negotiates.
func New(mode Mode, settings NetAgentSettings) (*Agent, liberr.Error) {
	if e := settings.Validate(); e != nil {
		return nil, e
	}

	a := &Agent{
		mode:     mode,
		settings: libatomic.NewValueDefault[NetAgentSettings](settings, settings),
		conns:    make(map[ConnectionId]*Connection),
	}
	a.settings.Store(settings)

	return a, nil
}

// EnableTLS arms server-side TLS for a ModeServerEncrypted Agent. Must be
// called before Listen.
func (a *Agent) EnableTLS(profile tlsadapter.Profile, cert tls.Certificate) liberr.Error {
	cfg, e := tlsadapter.Build(profile, cert)
	if e != nil {
		return e
	}

	a.tlsCfg = cfg
	return nil
}

// ApplySettings swaps in a new, already-validated settings snapshot; every
// connection's stream worker picks it up on its next loop iteration.
func (a *Agent) ApplySettings(s NetAgentSettings) liberr.Error {
	if e := s.Validate(); e != nil {
		return e
	}

	a.settings.Store(s)
	return nil
}

func (a *Agent) currentSettings() NetAgentSettings {
	return a.settings.Load()
}

// Connect dials host:port in client mode and registers the resulting
// Connection.
func (a *Agent) Connect(ctx context.Context, host, port string) (*Connection, liberr.Error) {
	if full, e := a.atCapacity(); e != nil {
		return nil, e
	} else if full {
		return nil, ErrorAgentConnectionsExhausted.Error(nil)
	}

	id := ConnectionId(a.nextID.Add(1))
	conn := newConnection(id, host, port, nil)

	a.register(conn)

	w := newStreamWorker(conn, a.currentSettings, nil, a.metrics, a.unregisterOnDone)
	w.start(ctx)

	return conn, nil
}

// Listen starts accepting inbound connections on host:port. Only valid for
// ModeServer and ModeServerEncrypted.
func (a *Agent) Listen(ctx context.Context, host, port string) liberr.Error {
	if a.mode == ModeClient {
		return ErrorAgentNotListening.Error(nil)
	}

	a.mu.Lock()
	if a.lst != nil {
		a.mu.Unlock()
		return ErrorAgentAlreadyListening.Error(nil)
	}
	a.mu.Unlock()

	lst := newListener(a.currentSettings, func(c *net.TCPConn) {
		a.handleAccepted(ctx, c)
	})

	if e := lst.bind(host, port); e != nil {
		return e
	}

	a.mu.Lock()
	a.lst = lst
	a.mu.Unlock()

	lst.start(ctx)

	return nil
}

func (a *Agent) handleAccepted(ctx context.Context, sock *net.TCPConn) {
	full, e := a.atCapacity()
	if e != nil || full {
		a.rejected.Add(1)
		a.observeRejected()
		_ = sock.Close()
		return
	}

	a.accepted.Add(1)
	a.observeAccepted()

	id := ConnectionId(a.nextID.Add(1))
	conn := newConnection(id, "", "", sock)

	a.register(conn)

	var tlsCfg *tls.Config
	if a.mode == ModeServerEncrypted {
		tlsCfg = a.tlsCfg
	}

	w := newStreamWorker(conn, a.currentSettings, tlsCfg, a.metrics, a.unregisterOnDone)
	w.start(ctx)
}

// StopListening stops the accept loop; already-active connections are
// unaffected.
func (a *Agent) StopListening(ctx context.Context) liberr.Error {
	a.mu.Lock()
	lst := a.lst
	a.lst = nil
	a.mu.Unlock()

	if lst == nil {
		return ErrorAgentNotListening.Error(nil)
	}

	lst.stop(ctx)
	return nil
}

// ListenAddr returns the bound listening address, or nil if not listening.
func (a *Agent) ListenAddr() net.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.lst == nil {
		return nil
	}
	return a.lst.addr()
}

func (a *Agent) atCapacity() (bool, liberr.Error) {
	s := a.currentSettings()

	a.mu.RLock()
	n := len(a.conns)
	a.mu.RUnlock()

	return n >= s.ConnectionsMax, nil
}

func (a *Agent) register(c *Connection) {
	a.mu.Lock()
	a.conns[c.id] = c
	n := len(a.conns)
	a.mu.Unlock()

	a.observeActive(float64(n))
}

func (a *Agent) unregisterOnDone(c *Connection) {
	a.mu.Lock()
	delete(a.conns, c.id)
	n := len(a.conns)
	a.mu.Unlock()

	a.observeActive(float64(n))
}

// GetConnection returns the Connection with the given id, if still tracked.
func (a *Agent) GetConnection(id ConnectionId) (*Connection, liberr.Error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, ok := a.conns[id]
	if !ok {
		return nil, ErrorAgentConnectionNotFound.Error(nil)
	}

	return c, nil
}

// GetAllConnections returns a snapshot slice of every currently tracked
// Connection.
func (a *Agent) GetAllConnections() []*Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Connection, 0, len(a.conns))
	for _, c := range a.conns {
		out = append(out, c)
	}

	return out
}

// UpdateConnections reconciles the connection pool. This goroutine-per-
// connection design already admits and reaps connections as they are
// accepted and as their workers exit (handleAccepted, unregisterOnDone), so
// there is no queue to drain here; the method exists so an embedder's
// driver loop has a tick-driven reconciliation point to call, and returns
// the current live count for that caller's own bookkeeping (e.g.
// httpd.Server.HandleRequests' first step).
func (a *Agent) UpdateConnections() (int, liberr.Error) {
	a.mu.RLock()
	n := len(a.conns)
	a.mu.RUnlock()

	return n, nil
}

// Stats returns the agent-level admission counters.
func (a *Agent) Stats() AgentStats {
	a.mu.RLock()
	active := uint64(len(a.conns))
	a.mu.RUnlock()

	return AgentStats{
		Accepted: a.accepted.Load(),
		Rejected: a.rejected.Load(),
		Active:   active,
	}
}

// Shutdown stops listening (if applicable) and closes every tracked
// connection.
func (a *Agent) Shutdown(ctx context.Context) {
	_ = a.StopListening(ctx)

	for _, c := range a.GetAllConnections() {
		c.Stop()
		_ = c.Close()
	}
}
