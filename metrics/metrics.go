// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package metrics wraps the Prometheus instrumentation SPEC_FULL.md §E
// adds on top of the distilled spec: presence cache size, subscription
// count, lookup and probe counters, and router deliveries by rule.
package metrics // import "kontalk.im/resolver/metrics"

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the resolver registers. Registry is
// exposed separately so cmd/resolverd can wire it to promhttp.Handler.
type Metrics struct {
	Registry *prometheus.Registry

	CacheSize           prometheus.Gauge
	SubscriptionCount   prometheus.Gauge
	LookupsStarted      prometheus.Counter
	LookupsCompleted    prometheus.Counter
	LookupsTimedOut     prometheus.Counter
	ProbesSent          *prometheus.CounterVec // labeled by peer host
	RouterDeliveries    *prometheus.CounterVec // labeled by delivery rule
}

// New builds and registers a Metrics bundle against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resolver",
			Name:      "presence_cache_size",
			Help:      "Number of bare users currently held in the presence cache.",
		}),
		SubscriptionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resolver",
			Name:      "subscriptions",
			Help:      "Number of (watched, subscriber) entries in the subscription registry.",
		}),
		LookupsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resolver",
			Name:      "lookups_started_total",
			Help:      "Total lookup fan-outs started by the Lookup Engine.",
		}),
		LookupsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resolver",
			Name:      "lookups_completed_total",
			Help:      "Total lookup fan-outs that completed via full collection or an error reply.",
		}),
		LookupsTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resolver",
			Name:      "lookups_timed_out_total",
			Help:      "Total lookup fan-outs that completed via deadline expiry.",
		}),
		ProbesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resolver",
			Name:      "probes_sent_total",
			Help:      "Total presence/last-activity probes sent, by peer host.",
		}, []string{"peer"}),
		RouterDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resolver",
			Name:      "router_deliveries_total",
			Help:      "Total stanzas delivered by the Stanza Router, by delivery rule.",
		}, []string{"rule"}),
	}
	reg.MustRegister(
		m.CacheSize,
		m.SubscriptionCount,
		m.LookupsStarted,
		m.LookupsCompleted,
		m.LookupsTimedOut,
		m.ProbesSent,
		m.RouterDeliveries,
	)
	return m
}
