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

//go:build windows

package sockprim

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"

	liberr "github.com/nabbar/netagent/errors"
)

// PeekAvailable reports how many bytes winsock currently holds for c without
// consuming any of them, via the FIONREAD ioctl equivalent on the raw socket
// handle.
func PeekAvailable(c *net.TCPConn) (int, liberr.Error) {
	if c == nil {
		return 0, ErrorInvalidArgument.Error(nil)
	}

	rc, e := c.SyscallConn()
	if e != nil {
		return 0, ErrorSocketOption.Error(e)
	}

	var n uint32
	var ctlErr error

	e = rc.Control(func(fd uintptr) {
		var avail uint32
		var bytesReturned uint32

		ctlErr = windows.WSAIoctl(
			windows.Handle(fd),
			windows.FIONREAD,
			nil, 0,
			(*byte)(unsafe.Pointer(&avail)), uint32(unsafe.Sizeof(avail)),
			&bytesReturned, nil, 0,
		)
		n = avail
	})

	if e != nil {
		return 0, ErrorSocketOption.Error(e)
	}
	if ctlErr != nil {
		return 0, ErrorSocketOption.Error(ctlErr)
	}

	return int(n), nil
}
