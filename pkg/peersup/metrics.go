/*
Copyright 2024 The KEDA Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package peersup

import "github.com/prometheus/client_golang/prometheus"

// DefaultMetricsNamespace is the prometheus namespace every peersup metric
// is registered under, mirroring pkg/metricscollector's
// DefaultPromMetricsNamespace convention.
const DefaultMetricsNamespace = "peersup"

var sessionLabels = []string{"peer"}

var (
	sessionsConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: DefaultMetricsNamespace,
			Subsystem: "session",
			Name:      "connected",
			Help:      "Whether a peer session is currently connected (1) or not (0).",
		},
		sessionLabels,
	)
	sessionReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: DefaultMetricsNamespace,
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "The total number of times a peer session has been re-dialed after a drop.",
		},
		sessionLabels,
	)
	heartbeatsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: DefaultMetricsNamespace,
			Subsystem: "session",
			Name:      "heartbeats_sent_total",
			Help:      "The total number of heartbeats sent on a peer session's service.",
		},
		sessionLabels,
	)
	storeFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: DefaultMetricsNamespace,
			Subsystem: "store",
			Name:      "flushes_total",
			Help:      "The total number of times the background store flusher wrote session state to redis.",
		},
		[]string{"outcome"},
	)
)

// Metrics is a handle on the peersup prometheus collectors, registered
// against a caller-supplied registry rather than the global default so a
// Supervisor can be exercised more than once per process (tests included)
// without a MustRegister panic on the second registration.
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics registers the peersup collectors against registry and returns
// a handle used by the supervisor and its sessions to record observations.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	registry.MustRegister(
		sessionsConnected,
		sessionReconnectsTotal,
		heartbeatsSentTotal,
		storeFlushesTotal,
	)
	return &Metrics{registry: registry}
}

func (m *Metrics) setConnected(peer string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	sessionsConnected.WithLabelValues(peer).Set(v)
}

func (m *Metrics) recordReconnect(peer string) {
	sessionReconnectsTotal.WithLabelValues(peer).Inc()
}

func (m *Metrics) recordHeartbeat(peer string) {
	heartbeatsSentTotal.WithLabelValues(peer).Inc()
}

func (m *Metrics) recordStoreFlush(outcome string) {
	storeFlushesTotal.WithLabelValues(outcome).Inc()
}
