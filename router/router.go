// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package router implements the Stanza Router: inbound classification and
// the delivery rules of spec.md §4.5, dispatching presence, IQ, and message
// stanzas received from the central router stream.
package router // import "kontalk.im/resolver/router"

import (
	"time"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/keyring"
	"kontalk.im/resolver/lookup"
	"kontalk.im/resolver/metrics"
	"kontalk.im/resolver/presence"
	"kontalk.im/resolver/stanza"
	"kontalk.im/resolver/storage"
	"kontalk.im/resolver/subscription"
)

// Router holds every collaborator the Stanza Router consults: the Presence
// Cache, Subscription Registry, Lookup Engine, and Presence Storage, plus
// the identity constants needed to classify and translate addresses.
type Router struct {
	Servername string
	Network    string

	Cache   *presence.Cache
	Subs    *subscription.Registry
	Lookup  *lookup.Engine
	Storage storage.PresenceStorage
	Metrics *metrics.Metrics

	// Keyring is consulted by the receipt-purge side effect (spec.md §4.5)
	// to tell a peer-server recipient from a locally-resolved one. Derived
	// from eng.Keyring when eng is non-nil; tests that build a Router
	// without a Lookup Engine may set it directly.
	Keyring keyring.Keyring

	// VersionName/VersionVersion answer jabber:iq:version queries addressed
	// to the network itself.
	VersionName    string
	VersionVersion string

	// StartedAt is used to answer jabber:iq:last queries addressed to the
	// network itself (server uptime).
	StartedAt time.Time
	Now       func() time.Time

	iqRules []iqRule
}

// New builds a Router and wires its priority-ordered IQ handler list.
func New(servername, network string, cache *presence.Cache, subs *subscription.Registry, eng *lookup.Engine, store storage.PresenceStorage, m *metrics.Metrics) *Router {
	r := &Router{
		Servername: servername,
		Network:    network,
		Cache:      cache,
		Subs:       subs,
		Lookup:     eng,
		Storage:    store,
		Metrics:    m,
		StartedAt:  time.Now(),
		Now:        time.Now,
	}
	if eng != nil {
		r.Keyring = eng.Keyring
	}
	r.iqRules = []iqRule{
		{priority: 200, match: isRosterQuery, handle: r.handleRosterGet},
		{priority: 100, match: isLastActivityQuery, handle: r.handleLastActivityGet},
		{priority: 100, match: isVersionQuery, handle: r.handleVersionGet},
		{priority: 80, match: func(InboundIQ) bool { return true }, handle: r.handleUnsupportedIQ},
	}
	return r
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// isPeerHost reports whether host is a configured peer, per Keyring.
func (r *Router) isPeerHost(host string) bool {
	if r.Keyring == nil {
		return false
	}
	for _, h := range r.Keyring.Hostlist() {
		if h == host {
			return true
		}
	}
	return false
}

func (r *Router) metricRoute(rule string) {
	if r.Metrics != nil {
		r.Metrics.RouterDeliveries.WithLabelValues(rule).Inc()
	}
}

// networkBare is the network's own bare identifier, the recipient "the
// server itself" queries are addressed to (spec.md §4.5's "network-
// addressed" branch).
func (r *Router) networkBare() jid.JID {
	return jid.JID{Domain: r.Network}
}
