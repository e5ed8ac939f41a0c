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
	prmsdk "github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the optional Prometheus collectors an Agent reports
// through. A nil *Metrics (the default) means metrics are simply not
// collected; nothing in the agent's core logic depends on it.
type Metrics struct {
	accepted  prmsdk.Counter
	rejected  prmsdk.Counter
	active    prmsdk.Gauge
	bytesSent prmsdk.Counter
	bytesRecv prmsdk.Counter
}

// NewMetrics builds and registers the Agent's counters/gauge under reg,
// labeled with name so a process running several Agents can tell them
// apart in one registry.
func NewMetrics(reg prmsdk.Registerer, name string) *Metrics {
	m := &Metrics{
		accepted: prmsdk.NewCounter(prmsdk.CounterOpts{
			Name:        "netagent_connections_accepted_total",
			Help:        "Total inbound connections accepted.",
			ConstLabels: prmsdk.Labels{"agent": name},
		}),
		rejected: prmsdk.NewCounter(prmsdk.CounterOpts{
			Name:        "netagent_connections_rejected_total",
			Help:        "Total inbound connections rejected for capacity.",
			ConstLabels: prmsdk.Labels{"agent": name},
		}),
		active: prmsdk.NewGauge(prmsdk.GaugeOpts{
			Name:        "netagent_connections_active",
			Help:        "Connections currently tracked by the agent.",
			ConstLabels: prmsdk.Labels{"agent": name},
		}),
		bytesSent: prmsdk.NewCounter(prmsdk.CounterOpts{
			Name:        "netagent_bytes_sent_total",
			Help:        "Total application bytes sent.",
			ConstLabels: prmsdk.Labels{"agent": name},
		}),
		bytesRecv: prmsdk.NewCounter(prmsdk.CounterOpts{
			Name:        "netagent_bytes_received_total",
			Help:        "Total application bytes received.",
			ConstLabels: prmsdk.Labels{"agent": name},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.accepted, m.rejected, m.active, m.bytesSent, m.bytesRecv)
	}

	return m
}

// Attach wires m to a so the agent's accept/reject/byte-count events drive
// it. Safe to call with a nil m (no-op).
func (a *Agent) Attach(m *Metrics) {
	a.metrics = m
}

func (a *Agent) observeAccepted() {
	if a.metrics != nil {
		a.metrics.accepted.Inc()
	}
}

func (a *Agent) observeRejected() {
	if a.metrics != nil {
		a.metrics.rejected.Inc()
	}
}

func (a *Agent) observeActive(n float64) {
	if a.metrics != nil {
		a.metrics.active.Set(n)
	}
}

// addBytesSent and addBytesRecv are called by each connection's stream
// worker after a successful send/receive phase. Both are nil-receiver safe
// so a worker can call them unconditionally whether or not metrics were
// attached to the owning Agent.
func (m *Metrics) addBytesSent(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) addBytesRecv(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.bytesRecv.Add(float64(n))
}
