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

// This file is a white-box test (package agent, not agent_test) so it can
// reach the unexported addBytesSent/addBytesRecv methods directly.
package agent

import (
	dto "github.com/prometheus/client_model/go"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func counterValue(c interface{ Write(*dto.Metric) error }) float64 {
	var m dto.Metric
	Expect(c.Write(&m)).To(Succeed())
	return m.GetCounter().GetValue()
}

var _ = Describe("Metrics byte counters", func() {
	It("accumulates bytes sent and received via addBytesSent/addBytesRecv", func() {
		m := NewMetrics(nil, "bytes-test")

		m.addBytesSent(5)
		m.addBytesSent(7)
		m.addBytesRecv(3)

		Expect(counterValue(m.bytesSent)).To(Equal(float64(12)))
		Expect(counterValue(m.bytesRecv)).To(Equal(float64(3)))
	})

	It("ignores zero-length additions without touching the counters", func() {
		m := NewMetrics(nil, "bytes-zero-test")

		m.addBytesSent(0)
		m.addBytesRecv(0)

		Expect(counterValue(m.bytesSent)).To(BeZero())
		Expect(counterValue(m.bytesRecv)).To(BeZero())
	})

	It("is safe to call on a nil *Metrics", func() {
		var m *Metrics

		Expect(func() {
			m.addBytesSent(1)
			m.addBytesRecv(1)
		}).NotTo(Panic())
	})
})
