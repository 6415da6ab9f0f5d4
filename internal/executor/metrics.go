// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vk/provisiongrid/internal/node"
)

// Metrics holds the Prometheus collectors of the run controller. A nil
// *Metrics records nothing.
type Metrics struct {
	nodes     *prometheus.CounterVec
	durations *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	deletes   *prometheus.CounterVec
}

// NewMetrics registers the executor collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		nodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provisiongrid",
			Name:      "nodes_finished_total",
			Help:      "Nodes that reached a terminal state, by kind and state.",
		}, []string{"kind", "state"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "provisiongrid",
			Name:      "node_duration_seconds",
			Help:      "Time spent running a node, by kind.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "provisiongrid",
			Name:      "nodes_in_flight",
			Help:      "Nodes currently running.",
		}),
		deletes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provisiongrid",
			Name:      "resources_deleted_total",
			Help:      "Teardown delete calls, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(kind node.Kind, state node.State, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.nodes.WithLabelValues(kind.String(), state.String()).Inc()
	m.durations.WithLabelValues(kind.String()).Observe(d.Seconds())
}

// interrupted balances started for a gate that was handed back unfinished.
func (m *Metrics) interrupted() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *Metrics) skipped(kind node.Kind) {
	if m == nil {
		return
	}
	m.nodes.WithLabelValues(kind.String(), node.StateDependencyFailed.String()).Inc()
}

func (m *Metrics) deleted(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.deletes.WithLabelValues(outcome).Inc()
}
