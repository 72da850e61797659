// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package subscription implements the resolver's Subscription Registry: an
// advisory, process-lifetime map from a watched bare user to the full
// identifiers of its presence subscribers, and the broadcast fan-out used
// to push presence updates to them.
package subscription // import "kontalk.im/resolver/subscription"

import (
	"sync"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

// Registry is the Subscription Registry. Servername and Network are used to
// translate a broadcast sender's identifier to network scope before
// forwarding, per spec.md §4.3.
type Registry struct {
	Servername string
	Network    string

	mu   sync.Mutex
	subs map[string][]jid.JID
}

// NewRegistry returns an empty Registry scoped to servername/network.
func NewRegistry(servername, network string) *Registry {
	return &Registry{
		Servername: servername,
		Network:    network,
		subs:       make(map[string][]jid.JID),
	}
}

// Subscribe adds subscriber to watched's subscriber list, ignoring
// duplicates, and returns the synthetic "subscribed" presence the caller
// should send back to subscriber.
func (r *Registry) Subscribe(watched, subscriber jid.JID) stanza.Presence {
	key := watched.Bare().Local
	r.mu.Lock()
	found := false
	for _, s := range r.subs[key] {
		if s.Equal(subscriber) {
			found = true
			break
		}
	}
	if !found {
		r.subs[key] = append(r.subs[key], subscriber)
	}
	r.mu.Unlock()

	return stanza.Presence{
		Type: stanza.SubscribedPresence,
		From: watched.Bare(),
		To:   subscriber,
	}
}

// Unsubscribe removes one entry equal to subscriber from watched's list.
// Absent keys or entries are silently tolerated.
func (r *Registry) Unsubscribe(watched, subscriber jid.JID) {
	key := watched.Bare().Local
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[key]
	for i, s := range list {
		if s.Equal(subscriber) {
			r.subs[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// CancelAll removes subscriber from every watched list.
func (r *Registry) CancelAll(subscriber jid.JID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, list := range r.subs {
		for i, s := range list {
			if s.Equal(subscriber) {
				r.subs[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Broadcast returns one copy of p per current subscriber of p.From's bare
// identifier, with To rewritten to each subscriber's bare identifier. The
// sender is translated to network scope first if its host is the
// Registry's servername.
func (r *Registry) Broadcast(p stanza.Presence) []stanza.Presence {
	sender := jid.TranslateToNetwork(p.From, r.Servername, r.Network)
	key := sender.Bare().Local

	r.mu.Lock()
	list := make([]jid.JID, len(r.subs[key]))
	copy(list, r.subs[key])
	r.mu.Unlock()

	out := make([]stanza.Presence, 0, len(list))
	for _, sub := range list {
		cp := p
		cp.From = sender
		cp.To = sub.Bare()
		out = append(out, cp)
	}
	return out
}

// Subscribers returns the current subscriber list for a watched bare
// identifier, for diagnostics and tests.
func (r *Registry) Subscribers(watched jid.JID) []jid.JID {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[watched.Bare().Local]
	out := make([]jid.JID, len(list))
	copy(out, list)
	return out
}
