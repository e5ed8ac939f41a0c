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
	"context"
	"crypto/tls"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/netagent/agent"
	libatomic "github.com/nabbar/netagent/atomic"
	"github.com/nabbar/netagent/certificates/certs"
	"github.com/nabbar/netagent/logx"
	"github.com/nabbar/netagent/tlsadapter"

	liberr "github.com/nabbar/netagent/errors"
)

// HTTPMode selects whether a Server's underlying agent accepts plaintext or
// TLS-wrapped connections.
type HTTPMode uint8

const (
	HTTPModeHTTP HTTPMode = iota
	HTTPModeHTTPS
)

// ServerMode selects the filesystem responder's behavior for extensionless
// and ".html" URLs.
type ServerMode uint8

const (
	ServerModeStatic ServerMode = iota
	ServerModeDynamic
)

const (
	defaultHTTPPort  = 80
	defaultHTTPSPort = 443
)

// Server is the HTTP/1.1 application layer sitting on an agent.Agent: a
// handler registry, an optional filesystem responder, and the per-tick
// request pipeline HandleRequests drives.
type Server struct {
	httpMode   HTTPMode
	serverMode ServerMode

	ag  *agent.Agent
	log logx.FuncLog

	settings libatomic.Value[HTTPServerSettings]

	mu       sync.RWMutex
	bindings []binding
	fs       *HttpFilesystem

	inFlightMu sync.Mutex
	inFlight   map[agent.ConnectionId]struct{}
}

// New constructs a Server. httpMode picks the agent's mode (plaintext vs.
// TLS-capable); serverMode picks the filesystem responder's behavior.
func New(httpMode HTTPMode, serverMode ServerMode, agentSettings agent.NetAgentSettings, settings HTTPServerSettings, log logx.FuncLog) (*Server, liberr.Error) {
	if e := settings.Validate(); e != nil {
		return nil, e
	}

	mode := agent.ModeServer
	if httpMode == HTTPModeHTTPS {
		mode = agent.ModeServerEncrypted
	}

	ag, e := agent.New(mode, agentSettings)
	if e != nil {
		return nil, e
	}

	if log == nil {
		log = func() logx.Logger { return logx.Discard() }
	}

	return &Server{
		httpMode:   httpMode,
		serverMode: serverMode,
		ag:         ag,
		log:        log,
		settings:   libatomic.NewValueDefault[HTTPServerSettings](settings, settings),
		inFlight:   make(map[agent.ConnectionId]struct{}),
	}, nil
}

// Agent exposes the underlying connection pool, e.g. for Stats().
func (s *Server) Agent() *agent.Agent {
	return s.ag
}

// EnableTLS arms server-side TLS; only meaningful for a Server constructed
// with HTTPModeHTTPS. Must be called before Start.
func (s *Server) EnableTLS(profile tlsadapter.Profile, cert tls.Certificate) liberr.Error {
	return s.ag.EnableTLS(profile, cert)
}

// EnableTLSFromPEM parses chainPEM (a PEM-encoded private key followed by
// its certificate, optionally followed by intermediates) and arms
// server-side TLS with the resulting certificate, saving the caller from
// assembling a tls.Certificate by hand.
func (s *Server) EnableTLSFromPEM(profile tlsadapter.Profile, chainPEM string) liberr.Error {
	c, e := certs.Parse(chainPEM)
	if e != nil {
		return ErrorServerTLSCertInvalid.Error(e)
	}

	return s.EnableTLS(profile, c.TLS())
}

// ApplySettings swaps in a new, already-validated settings snapshot.
func (s *Server) ApplySettings(settings HTTPServerSettings) liberr.Error {
	if e := settings.Validate(); e != nil {
		return e
	}

	s.settings.Store(settings)
	return nil
}

func (s *Server) currentSettings() HTTPServerSettings {
	return s.settings.Load()
}

// BindRequestHandler registers fn for method (or every method, if method is
// MethodAny), appended to the end of the handler list. Bindings are tried
// in registration order; the first whose method matches and whose Response
// has Handled=true wins.
func (s *Server) BindRequestHandler(method Method, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings = append(s.bindings, binding{method: method, fn: fn})
}

// BindFilesystem verifies webroot, scans it, and binds the static/dynamic
// filesystem handler for every method (it handles its own 405 for
// non-GET).
func (s *Server) BindFilesystem(webroot string) liberr.Error {
	fs, e := NewHttpFilesystem(webroot)
	if e != nil {
		return e
	}

	s.mu.Lock()
	s.fs = fs
	s.mu.Unlock()

	s.BindRequestHandler(MethodAny, newFilesystemHandler(fs, s.serverMode))

	return nil
}

func (s *Server) filesystem() *HttpFilesystem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fs
}

// Start binds the listening socket. port defaults to 80 (HTTP) or 443
// (HTTPS) when 0 is passed.
func (s *Server) Start(ctx context.Context, address string, port int) liberr.Error {
	if port == 0 {
		if s.httpMode == HTTPModeHTTPS {
			port = defaultHTTPSPort
		} else {
			port = defaultHTTPPort
		}
	}

	return s.ag.Listen(ctx, address, strconv.Itoa(port))
}

// Stop stops listening and closes every tracked connection.
func (s *Server) Stop(ctx context.Context) {
	s.ag.Shutdown(ctx)
}

// HandleRequests is the embedder's tick: reconcile the connection pool,
// rescan the filesystem if due, and dispatch one request task per
// connection with enough buffered bytes to be worth probing.
func (s *Server) HandleRequests(ctx context.Context) {
	_, _ = s.ag.UpdateConnections()

	set := s.currentSettings()

	if fs := s.filesystem(); fs != nil {
		_ = fs.RefreshTimed(set.FilesystemRefreshIntervalSec)
	}

	for _, conn := range s.ag.GetAllConnections() {
		if !conn.IsConnected() {
			continue
		}
		if conn.GetReceiveDataSize() < set.MinReadableBytesToDispatch {
			continue
		}
		if !s.tryMarkDispatch(conn.ID()) {
			continue
		}

		c := conn
		task := func() {
			defer s.unmarkDispatch(c.ID())
			s.handleConnection(ctx, c, set)
		}

		if set.DispatchAsync {
			go task()
		} else {
			task()
		}
	}
}

func (s *Server) tryMarkDispatch(id agent.ConnectionId) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if _, busy := s.inFlight[id]; busy {
		return false
	}

	s.inFlight[id] = struct{}{}
	return true
}

func (s *Server) unmarkDispatch(id agent.ConnectionId) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	delete(s.inFlight, id)
}

// handleConnection is the request task: it incrementally drains the
// connection's receive buffer and re-probes until the header block is
// complete or the header-parse timeout budget elapses, parses the full
// request, dispatches to the first matching handler, and writes the
// serialized response back. Request tasks share no mutable state with each
// other, so synchronous and goroutine-offloaded dispatch produce identical
// results.
func (s *Server) handleConnection(_ context.Context, conn *agent.Connection, set HTTPServerSettings) {
	reqId := uuid.New()
	start := time.Now()
	deadline := start.Add(time.Duration(set.HeaderParseTimeoutSec * float64(time.Second)))

	var buf []byte
	status := ProbePartial

	for {
		buf = append(buf, conn.GetReceiveBuffer()...)
		status = Probe(buf)

		if status != ProbePartial {
			break
		}
		if time.Now().After(deadline) {
			status = ProbeBad
			break
		}

		time.Sleep(5 * time.Millisecond)
	}

	var resp *Response

	switch status {
	case ProbeBad:
		resp = ErrorResponse(StatusBadRequest)
	default:
		code, req := Parse(buf)
		if req == nil {
			resp = ErrorResponse(code)
		} else {
			resp = s.dispatch(req)
		}
	}

	resp.SetHeader("X-Request-Id", reqId.String())
	conn.QueueSend(resp.Serialize())

	if status == ProbeBad {
		conn.Stop()
	}

	s.log().Info("request handled", logx.Fields{
		"requestId":    reqId.String(),
		"connectionId": uint64(conn.ID()),
		"status":       int(resp.Status),
		"elapsedMs":    time.Since(start).Milliseconds(),
	})
}

// dispatch walks the handler list in registration order and returns the
// first Handled response, or 405 if none matched.
func (s *Server) dispatch(req *Request) *Response {
	s.mu.RLock()
	bindings := make([]binding, len(s.bindings))
	copy(bindings, s.bindings)
	s.mu.RUnlock()

	for _, b := range bindings {
		if !b.matches(req.Method) {
			continue
		}

		resp := b.fn(req)
		if resp != nil && resp.Handled {
			return resp
		}
	}

	return ErrorResponse(StatusMethodNotAllowed)
}
