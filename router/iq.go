// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package router

import (
	"context"
	"encoding/xml"

	"kontalk.im/resolver/internal/attr"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

// RosterQuery is the jabber:iq:roster query payload: a get lists the items
// the requester wants resolved.
type RosterQuery struct {
	XMLName xml.Name    `xml:"jabber:iq:roster query"`
	Items   []RosterItem `xml:"item"`
}

// RosterItem is one roster entry, in both the request and the result.
type RosterItem struct {
	JID          jid.JID `xml:"jid,attr"`
	Subscription string  `xml:"subscription,attr,omitempty"`
}

// LastActivityQuery is the jabber:iq:last query/result payload.
type LastActivityQuery struct {
	XMLName xml.Name `xml:"jabber:iq:last query"`
	Seconds int      `xml:"seconds,attr"`
}

// VersionQuery is the jabber:iq:version query/result payload.
type VersionQuery struct {
	XMLName xml.Name `xml:"jabber:iq:version query"`
	Name    string   `xml:"name,omitempty"`
	Version string   `xml:"version,omitempty"`
}

// ErrorIQ composes an IQ stanza with a stanza-level error payload.
type ErrorIQ struct {
	stanza.IQ
	Error stanza.Error `xml:"error"`
}

// RosterResultIQ is the result IQ answering a roster get.
type RosterResultIQ struct {
	stanza.IQ
	Query RosterQuery
}

// LastActivityResultIQ is the result IQ answering a last-activity get.
type LastActivityResultIQ struct {
	stanza.IQ
	Query LastActivityQuery
}

// VersionResultIQ is the result IQ answering a version get.
type VersionResultIQ struct {
	stanza.IQ
	Query VersionQuery
}

// ForwardedIQ carries an inbound get/set IQ that this resolver has no
// business answering or resolving — either a host-scoped recipient
// (resolver.py's send(), else branch) or a network-scoped query rewritten
// to a resolved peer recipient (handleVersionGet's resolve-and-forward
// case) — and is serialized with its original query payload untouched.
type ForwardedIQ struct {
	stanza.IQ
	Roster  *RosterQuery       `xml:"jabber:iq:roster query,omitempty"`
	Last    *LastActivityQuery `xml:"jabber:iq:last query,omitempty"`
	Version *VersionQuery      `xml:"jabber:iq:version query,omitempty"`
}

// forwardedIQ wraps in for unmodified (or recipient-rewritten) forwarding,
// carrying along whichever query payload in.Body held.
func forwardedIQ(iq stanza.IQ, body any) ForwardedIQ {
	fwd := ForwardedIQ{IQ: iq}
	switch b := body.(type) {
	case *RosterQuery:
		fwd.Roster = b
	case *LastActivityQuery:
		fwd.Last = b
	case *VersionQuery:
		fwd.Version = b
	}
	return fwd
}

// InboundIQ pairs a decoded IQ header with its already-demultiplexed query
// payload (one of *RosterQuery, *LastActivityQuery, *VersionQuery, or nil
// for anything else), the responsibility of the component layer that reads
// the raw XML off the wire.
type InboundIQ struct {
	IQ   stanza.IQ
	Body any
}

type iqRule struct {
	priority int
	match    func(InboundIQ) bool
	handle   func(context.Context, InboundIQ) ([]any, error)
}

func isRosterQuery(in InboundIQ) bool {
	_, ok := in.Body.(*RosterQuery)
	return ok
}

func isLastActivityQuery(in InboundIQ) bool {
	_, ok := in.Body.(*LastActivityQuery)
	return ok
}

func isVersionQuery(in InboundIQ) bool {
	_, ok := in.Body.(*VersionQuery)
	return ok
}

// RouteIQ classifies an inbound IQ per spec.md §4.5's split on the
// recipient's host before running the priority-ordered rule list (200
// roster > 100 last-activity/version > 80 unsupported catch-all, per
// spec.md §9's "handler list with ordered dispatch" design note). An IQ
// with no "to" attribute is implicitly addressed to the network itself,
// matching XMPP component conventions. A host-scoped recipient falls
// outside the rule list entirely and is forwarded unchanged
// (resolver.py's send(), else branch).
func (r *Router) RouteIQ(ctx context.Context, in InboundIQ) ([]any, error) {
	if in.IQ.Type == stanza.ResultIQ {
		// "iq type=result -> forward": nothing for this package to answer;
		// the caller forwards the original stanza upstream unchanged.
		return nil, nil
	}

	to := in.IQ.To
	if to.IsZero() {
		to = r.networkBare()
		in.IQ.To = to
	}
	if to.Domain != r.Network {
		r.metricRoute("iq_forward_unchanged")
		return []any{forwardedIQ(in.IQ, in.Body)}, nil
	}

	for _, rule := range r.iqRules {
		if rule.match(in) {
			return rule.handle(ctx, in)
		}
	}
	return r.handleUnsupportedIQ(ctx, in)
}

func (r *Router) handleUnsupportedIQ(_ context.Context, in InboundIQ) ([]any, error) {
	r.metricRoute("iq_unsupported")
	return []any{ErrorIQ{
		IQ:    in.IQ.ErrorReply(),
		Error: stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable},
	}}, nil
}

func (r *Router) handleVersionGet(_ context.Context, in InboundIQ) ([]any, error) {
	r.metricRoute("iq_version")
	if in.IQ.To.Equal(r.networkBare()) {
		return []any{VersionResultIQ{
			IQ: in.IQ.Result(),
			Query: VersionQuery{
				Name:    r.VersionName,
				Version: r.VersionVersion,
			},
		}}, nil
	}

	// Addressed to a specific network-scoped entity rather than the
	// network itself: resolve through the Presence Cache and forward the
	// query unanswered, so the resolved device answers with its own
	// version (resolver.py's version(), else branch: "send(stanza)").
	stub := r.Cache.Lookup(in.IQ.To.Local)
	if stub == nil {
		return []any{ErrorIQ{
			IQ:    in.IQ.ErrorReply(),
			Error: stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound, By: in.IQ.To},
		}}, nil
	}
	rcpts := r.Cache.CacheLookup(in.IQ.To)
	if len(rcpts) == 0 {
		return []any{ErrorIQ{
			IQ:    in.IQ.ErrorReply(),
			Error: stanza.Error{Type: stanza.Cancel, Condition: stanza.ItemNotFound, By: in.IQ.To},
		}}, nil
	}
	resolved := rcpts[0]
	if in.IQ.To.IsFull() {
		for _, full := range rcpts {
			if full.Resource == in.IQ.To.Resource {
				resolved = full
				break
			}
		}
	}
	fwd := in.IQ
	fwd.To = resolved
	return []any{forwardedIQ(fwd, in.Body)}, nil
}

func (r *Router) handleLastActivityGet(ctx context.Context, in InboundIQ) ([]any, error) {
	r.metricRoute("iq_last_activity")
	if in.IQ.To.Equal(r.networkBare()) {
		seconds := int(r.now().Sub(r.StartedAt).Seconds())
		return []any{LastActivityResultIQ{
			IQ:    in.IQ.Result(),
			Query: LastActivityQuery{Seconds: seconds},
		}}, nil
	}

	seconds, _, err := r.Lookup.LastActivity(ctx, in.IQ.To)
	if err != nil {
		return []any{ErrorIQ{
			IQ:    in.IQ.ErrorReply(),
			Error: stanza.Error{Type: stanza.Wait, Condition: stanza.RemoteServerTimeout},
		}}, nil
	}
	return []any{LastActivityResultIQ{
		IQ:    in.IQ.Result(),
		Query: LastActivityQuery{Seconds: seconds},
	}}, nil
}

func (r *Router) handleRosterGet(_ context.Context, in InboundIQ) ([]any, error) {
	r.metricRoute("iq_roster")
	query, _ := in.Body.(*RosterQuery)

	resultItems := make([]RosterItem, 0, len(query.Items))
	var probeChains []any
	for _, item := range query.Items {
		stub := r.Cache.Lookup(item.JID.Local)
		sub := "none"
		if stub != nil && stub.IsAvailable() {
			sub = "both"
			probeChains = append(probeChains, r.synthesizeProbeChain(item.JID, in.IQ.From, stub.Presences())...)
		}
		resultItems = append(resultItems, RosterItem{
			JID:          jid.TranslateToNetwork(item.JID, r.Servername, r.Network),
			Subscription: sub,
		})
	}

	out := make([]any, 0, 1+len(probeChains))
	out = append(out, RosterResultIQ{
		IQ:    in.IQ.Result(),
		Query: RosterQuery{Items: resultItems},
	})
	out = append(out, probeChains...)
	return out, nil
}

// synthesizeProbeChain builds the presence chain spec.md §4.5 requires
// after resolving a roster item with available presence: one presence per
// resource, sharing a fresh correlation id, with a count that counts down
// from the total to 1.
func (r *Router) synthesizeProbeChain(watched, requester jid.JID, resources []stanza.Presence) []any {
	if len(resources) == 0 {
		return nil
	}
	cid := attr.CorrelationID()
	n := len(resources)
	out := make([]any, 0, n)
	for i, res := range resources {
		reply := res
		reply.ID = cid
		reply.To = requester
		reply.Group = &stanza.Group{ID: cid, Index: i, Count: n - i}
		out = append(out, reply)
	}
	return out
}
