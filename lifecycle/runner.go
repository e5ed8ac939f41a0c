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

// Package lifecycle provides the start/stop/restart state machine the
// listener worker and every stream worker run on: a background function plus a
// shutdown function, started and stopped through a context.
package lifecycle

import (
	"context"
	"sync"
)

// Runner drives a single background function through Start/Stop/Restart,
// tracking whether it is currently active.
type Runner interface {
	// Start launches the runner's start function in a new goroutine. If the
	// runner is already running, the previous instance is stopped first.
	// Start itself does not block on the start function's completion.
	Start(ctx context.Context) error

	// Stop signals the running instance to shut down and waits for its stop
	// function to return. Calling Stop when not running is a no-op.
	Stop(ctx context.Context) error

	// Restart stops the current instance (if any) and starts a new one.
	Restart(ctx context.Context) error

	// IsRunning reports whether a start function is currently active.
	IsRunning() bool
}

type runner struct {
	mu      sync.Mutex
	start   func(context.Context) error
	stop    func(context.Context) error
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// New returns a Runner driving start/stop. start is invoked with a context
// cancelled by Stop/Restart/a subsequent Start; stop is invoked once, after
// cancellation, to release any resources start held.
func New(start, stop func(context.Context) error) Runner {
	return &runner{start: start, stop: stop}
}

func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()

	if r.running {
		r.stopLocked(ctx)
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.cancel = cancel
	r.running = true
	r.done = done

	fn := r.start
	r.mu.Unlock()

	go func() {
		defer close(done)
		_ = fn(cctx)
	}()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stopLocked(ctx)
}

// stopLocked must be called with r.mu held.
func (r *runner) stopLocked(ctx context.Context) error {
	if !r.running {
		return nil
	}

	cancel := r.cancel
	done := r.done

	r.running = false
	r.cancel = nil
	r.done = nil

	cancel()
	<-done

	return r.stop(ctx)
}

func (r *runner) Restart(ctx context.Context) error {
	r.mu.Lock()
	r.stopLocked(ctx)
	r.mu.Unlock()

	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running
}
