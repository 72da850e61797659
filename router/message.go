// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package router

import (
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/presence"
	"kontalk.im/resolver/stanza"
)

// RouteMessage classifies an inbound message per spec.md §4.5's three-way
// split on the recipient's host before applying any delivery rule: a
// message addressed to the network's own bare identity is a local no-op, a
// host-scoped recipient is forwarded unchanged, and only a network-scoped
// recipient is resolved through the Presence Cache.
func (r *Router) RouteMessage(m stanza.Message) ([]any, error) {
	to := m.To
	if to.IsZero() {
		to = m.From.Bare()
	}

	if to.Equal(r.networkBare()) {
		// resolver.py's send(), to.full()==network branch: nothing to
		// answer for a message.
		r.metricRoute("message_network_bare_noop")
		return nil, nil
	}

	if to.Domain != r.Network {
		// Host-scoped: not this resolver's concern, forward unchanged
		// (resolver.py's send(), else branch).
		r.metricRoute("message_forward_unchanged")
		out := []any{m}
		return append(out, r.receiptSideEffect(m, to)...), nil
	}

	stub := r.Cache.Lookup(to.Local)
	if stub == nil {
		r.metricRoute("message_item_not_found")
		return []any{ErrorMessage{
			Message: stanza.Message{ID: m.ID, From: m.To, To: m.From, Type: stanza.ErrorMessage},
			Error:   stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound, By: to},
		}}, nil
	}

	rcpts := r.Cache.CacheLookup(to)
	return r.deliverMessage(m, to, stub, rcpts), nil
}

// ErrorMessage composes a message stanza with a stanza-level error payload.
type ErrorMessage struct {
	stanza.Message
	Error stanza.Error `xml:"error"`
}

func (r *Router) deliverMessage(m stanza.Message, to jid.JID, stub *presence.Stub, rcpts []jid.JID) []any {
	fwd := m
	fwd.OriginalTo = to

	if to.IsFull() {
		for _, full := range rcpts {
			if full.Resource == to.Resource {
				fwd.To = full
				r.metricRoute("message_full_match")
				out := []any{fwd}
				return append(out, r.receiptSideEffect(m, full)...)
			}
		}
		// No resource matches: dropped silently (spec.md §9, open question
		// resolved as the source's literal no-op branch).
		r.metricRoute("message_full_no_match_dropped")
		return nil
	}

	if len(rcpts) == 0 {
		fwd.To = stub.JID
		r.metricRoute("message_bare_offline")
		out := []any{fwd}
		return append(out, r.receiptSideEffect(m, stub.JID)...)
	}

	out := make([]any, 0, len(rcpts)*2)
	for _, full := range rcpts {
		cp := fwd
		cp.To = full
		out = append(out, cp)
		out = append(out, r.receiptSideEffect(m, full)...)
	}
	r.metricRoute("message_bare_fanout")
	return out
}

// receiptSideEffect synthesizes the internal purge notice spec.md §4.5
// requires when a message carries a receipt whose *resolved* recipient
// host is a peer server, not this process's own servername (resolver.py's
// _send(): "to.host != self.servername and to.host in self.keyring.hostlist()").
func (r *Router) receiptSideEffect(m stanza.Message, resolvedTo jid.JID) []any {
	if m.Received == nil || resolvedTo.Domain == r.Servername || !r.isPeerHost(resolvedTo.Domain) {
		return nil
	}
	return []any{stanza.Message{
		From:     jid.JID{Domain: r.Network},
		To:       jid.JID{Domain: r.Servername},
		Received: &stanza.Received{ID: m.Received.ID},
	}}
}
