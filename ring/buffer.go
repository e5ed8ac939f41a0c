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

// Package ring implements the single-producer/single-consumer byte buffer
// shared by every Connection: a mutex-guarded region with a read cursor and
// a write cursor that self-compacts on drain and grows on overflow.
package ring

import (
	"sync"

	liberr "github.com/nabbar/netagent/errors"
)

const (
	// defaultCapacity is the initial allocation for a new Buffer.
	defaultCapacity = 4096

	// canaryByte is written once past the addressable capacity and checked
	// on every committed operation to detect a writer that overran its
	// reserved region.
	canaryByte byte = 0xA5
)

// Buffer is a growable byte ring guarded by a single mutex. The zero value
// is not usable; construct with New or NewSize.
type Buffer struct {
	mu    sync.Mutex
	buf   []byte // len(buf) == capacity+1; buf[capacity] is the canary
	read  int
	write int
}

// New returns a Buffer with the default initial capacity.
func New() *Buffer {
	return NewSize(defaultCapacity)
}

// NewSize returns a Buffer with at least the given initial capacity.
func NewSize(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	b := &Buffer{
		buf: make([]byte, capacity+1),
	}
	b.buf[capacity] = canaryByte

	return b
}

func (b *Buffer) capacity() int {
	return len(b.buf) - 1
}

func (b *Buffer) checkCanary() {
	if b.buf[b.capacity()] != canaryByte {
		panic("ring: canary byte overwritten, buffer overrun past capacity")
	}
}

// Readable returns the number of bytes currently available to read.
// Non-destructive; safe to call at any time.
func (b *Buffer) Readable() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write - b.read
}

// ReserveWrite guarantees at least `required` contiguous writable bytes,
// compacting first and reallocating only if still insufficient. The caller
// writes into the returned slice (len == required) and must call
// CommittedWrite with the number of bytes actually written, holding no
// reference to the slice afterward.
func (b *Buffer) ReserveWrite(required int) ([]byte, liberr.Error) {
	if required < 0 {
		return nil, ErrorInvalidArgument.Error(nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if required == 0 {
		return b.buf[b.write:b.write], nil
	}

	b.compact()

	if b.capacity()-b.write < required {
		if e := b.grow(b.write - b.read + required); e != nil {
			return nil, e
		}
	}

	return b.buf[b.write : b.write+required : b.write+required], nil
}

// compact shifts [read,write) to the front of the buffer and resets both
// cursors to 0 when there is unread data sitting past offset 0.
func (b *Buffer) compact() {
	if b.read == 0 {
		return
	}

	if b.read == b.write {
		b.read, b.write = 0, 0
		return
	}

	n := copy(b.buf, b.buf[b.read:b.write])
	b.read = 0
	b.write = n
}

// grow reallocates the backing array to at least `need` bytes of capacity,
// preserving unread bytes and the trailing canary.
func (b *Buffer) grow(need int) liberr.Error {
	cap2 := b.capacity() * 2
	if cap2 < need {
		cap2 = need
	}

	nb := make([]byte, cap2+1)
	n := copy(nb, b.buf[b.read:b.write])
	nb[cap2] = canaryByte

	b.buf = nb
	b.read = 0
	b.write = n

	return nil
}

// CommittedWrite advances the write cursor by n, which must not exceed the
// size most recently reserved via ReserveWrite. Returns BufferOverflow if
// the commit would run past capacity -- a caller bug, not a runtime
// condition.
func (b *Buffer) CommittedWrite(n int) liberr.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < 0 {
		return ErrorInvalidArgument.Error(nil)
	}

	if b.write+n > b.capacity() {
		return ErrorBufferOverflow.Error(nil)
	}

	b.write += n
	b.checkCanary()

	return nil
}

// PeekRead returns a read view over every currently readable byte. The
// buffer's compact-on-drain invariant keeps readable bytes contiguous, so
// this never needs to return more than one slice. The caller may consume
// any prefix and must call CommittedRead with the number of bytes consumed.
func (b *Buffer) PeekRead() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf[b.read:b.write:b.write]
}

// CommittedRead advances the read cursor by n. If the buffer becomes empty
// (read == write) both cursors reset to 0, matching the compaction
// invariant described in the package doc.
func (b *Buffer) CommittedRead(n int) liberr.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < 0 || b.read+n > b.write {
		return ErrorInvalidArgument.Error(nil)
	}

	b.read += n

	if b.read == b.write {
		b.read, b.write = 0, 0
	}

	b.checkCanary()

	return nil
}

// Reset drops all buffered bytes without reallocating.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.read, b.write = 0, 0
}
