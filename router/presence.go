// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package router

import (
	"context"

	"kontalk.im/resolver/stanza"
)

// ErrorPresence composes a presence stanza with a stanza-level error
// payload, the wire shape for the "type=error" replies this package
// synthesizes (spec.md §7).
type ErrorPresence struct {
	stanza.Presence
	Error stanza.Error `xml:"error"`
}

// RoutePresence dispatches an inbound presence stanza per the table in
// spec.md §6, returning the stanzas to send in response (if any).
func (r *Router) RoutePresence(ctx context.Context, p stanza.Presence) ([]any, error) {
	switch p.Type {
	case "":
		r.Cache.ObserveAvailable(p)
		if r.Storage != nil {
			_ = r.Storage.Touch(ctx, p.From, p)
		}
		r.metricRoute("presence_available")
		return presencesToAny(r.Subs.Broadcast(p)), nil

	case stanza.UnavailablePresence:
		r.Cache.ObserveUnavailable(p)
		r.Subs.CancelAll(p.From)
		r.metricRoute("presence_unavailable")
		return presencesToAny(r.Subs.Broadcast(p)), nil

	case stanza.ProbePresence:
		r.metricRoute("presence_probe")
		return r.handleProbe(ctx, p)

	case stanza.SubscribePresence:
		reply := r.Subs.Subscribe(p.To.Bare(), p.From)
		r.metricRoute("presence_subscribe")
		return []any{reply}, nil

	case stanza.UnsubscribePresence:
		r.Subs.Unsubscribe(p.To.Bare(), p.From)
		r.metricRoute("presence_unsubscribe")
		return nil, nil

	default:
		return nil, nil
	}
}

// handleProbe answers a local presence probe from the Presence Cache,
// replying with a presence chain (one reply per resource, framed by a
// shared correlation id and a count that counts down from the total to 1).
// A bare target with no live resource is answered from the presence last
// recorded in Presence Storage, when one is found there; otherwise the reply
// is an item-not-found error.
func (r *Router) handleProbe(ctx context.Context, p stanza.Presence) ([]any, error) {
	stub := r.Cache.Lookup(p.To.Local)

	var replies []stanza.Presence
	if stub != nil {
		if p.To.IsFull() {
			if res, ok := stub.Resource(p.To.Resource); ok {
				replies = []stanza.Presence{res}
			}
		} else {
			replies = stub.Presences()
		}
	}

	if len(replies) == 0 && !p.To.IsFull() && r.Storage != nil {
		// No live resource in the Presence Cache: fall back to the last
		// durably recorded presence rather than answering item-not-found
		// outright.
		if last, ok, err := r.Storage.Presence(ctx, p.To.Local); err == nil && ok {
			replies = []stanza.Presence{last}
		}
	}

	if len(replies) == 0 {
		return []any{ErrorPresence{
			Presence: stanza.Presence{ID: p.ID, From: p.To, To: p.From, Type: stanza.ErrorPresence},
			Error:    stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound, By: p.To},
		}}, nil
	}

	n := len(replies)
	out := make([]any, 0, n)
	for i, res := range replies {
		reply := res
		reply.ID = p.ID
		reply.To = p.From
		reply.Group = &stanza.Group{ID: p.ID, Index: i, Count: n - i}
		out = append(out, reply)
	}
	return out, nil
}

func presencesToAny(ps []stanza.Presence) []any {
	if len(ps) == 0 {
		return nil
	}
	out := make([]any, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}
