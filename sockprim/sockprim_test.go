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

package sockprim_test

import (
	"context"
	"time"

	"github.com/nabbar/netagent/sockprim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("sockprim", func() {
	Describe("Resolve", func() {
		It("rejects an empty address", func() {
			_, err := sockprim.Resolve("tcp", "")
			Expect(err).NotTo(BeNil())
		})

		It("resolves a loopback address", func() {
			a, err := sockprim.Resolve("tcp", "127.0.0.1:0")
			Expect(err).To(BeNil())
			Expect(a).NotTo(BeNil())
		})
	})

	Describe("Listen, Connect, Accept", func() {
		It("accepts a dialed loopback connection and exchanges bytes", func() {
			l, err := sockprim.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(BeNil())
			defer func() { _ = sockprim.Close(nil) }()
			defer l.Close()

			addr := l.Addr().String()

			ch := make(chan error, 1)

			go func() {
				sc, e := sockprim.Accept(l)
				if e != nil {
					ch <- e
					return
				}
				defer sc.Close()

				Expect(sockprim.SetupStream(sc, 0, true)).To(BeNil())

				buf := make([]byte, 5)
				_, rerr := sc.Read(buf)
				if rerr != nil {
					ch <- nil
					return
				}
				Expect(string(buf)).To(Equal("hello"))
				ch <- nil
			}()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			cc, cerr := sockprim.Connect(ctx, "tcp", addr, time.Second)
			Expect(cerr).To(BeNil())
			defer cc.Close()

			_, werr := cc.Write([]byte("hello"))
			Expect(werr).To(BeNil())

			Eventually(ch).Should(Receive(BeNil()))
		})
	})

	Describe("PeekAvailable", func() {
		It("reports bytes sitting in the kernel buffer without consuming them", func() {
			l, err := sockprim.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(BeNil())
			defer l.Close()

			addr := l.Addr().String()
			accepted := make(chan error, 1)

			go func() {
				sc, e := sockprim.Accept(l)
				if e != nil {
					accepted <- e
					return
				}
				defer sc.Close()

				Eventually(func() int {
					n, _ := sockprim.PeekAvailable(sc)
					return n
				}, time.Second).Should(BeNumerically(">=", 3))

				buf := make([]byte, 3)
				_, _ = sc.Read(buf)
				Expect(string(buf)).To(Equal("abc"))
				accepted <- nil
			}()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			cc, cerr := sockprim.Connect(ctx, "tcp", addr, time.Second)
			Expect(cerr).To(BeNil())
			defer cc.Close()

			_, werr := cc.Write([]byte("abc"))
			Expect(werr).To(BeNil())

			Eventually(accepted).Should(Receive(BeNil()))
		})
	})

	Describe("invalid arguments", func() {
		It("rejects nil connections on every socket-option helper", func() {
			Expect(sockprim.SetupStream(nil, 0, false)).NotTo(BeNil())
			Expect(sockprim.SetReceiveTimeout(nil, time.Second)).NotTo(BeNil())
			Expect(sockprim.Shutdown(nil)).NotTo(BeNil())
			Expect(sockprim.Close(nil)).To(BeNil())

			_, perr := sockprim.PeekAvailable(nil)
			Expect(perr).NotTo(BeNil())
		})
	})
})
