// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package lookup implements the resolver's Lookup Engine: fanning presence
// probes and last-activity queries out to every peer host in parallel and
// aggregating the bounded-latency replies, per spec.md §4.4.
package lookup // import "kontalk.im/resolver/lookup"

import (
	"context"
	"encoding/xml"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"kontalk.im/resolver/internal/attr"
	"kontalk.im/resolver/internal/ns"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/keyring"
	"kontalk.im/resolver/presence"
	"kontalk.im/resolver/stanza"
)

// MaxLookupTimeout is the per-probe deadline (spec.md §4.4); the whole
// fan-out's deadline is MaxLookupTimeout × WaitFactor × |peers|.
const MaxLookupTimeout = 5 * time.Second

// Errors returned by the Lookup Engine.
var (
	ErrNoPeers = errors.New("lookup: no peer hosts in keyring")
	ErrNoReply = errors.New("lookup: no peer replied before deadline")
)

// PresenceSender sends an outbound presence stanza to the component stream.
type PresenceSender func(p stanza.Presence) error

// IQSender sends an outbound IQ stanza wrapping payload to the component
// stream.
type IQSender func(iq stanza.IQ, payload xml.TokenReader) error

// Engine is the Lookup Engine.
type Engine struct {
	Network    string
	Keyring    keyring.Keyring
	SendPresence PresenceSender
	SendIQ     IQSender

	// WaitFactor scales the per-peer deadline into the fan-out deadline.
	// Zero means 1.0.
	WaitFactor float64

	// ProbeRateLimit bounds how often the same peer host is re-probed.
	// Zero disables rate limiting (unbounded, the original behavior).
	ProbeRateLimit rate.Limit
	ProbeBurst     int

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	mu          sync.Mutex
	pendingProb map[string]*pendingProbe
	pendingLast map[string]*pendingLast
}

// NewEngine returns an Engine ready to use. SendPresence and SendIQ must be
// set by the caller before FindPresence/LastActivity is called.
func NewEngine(network string, kr keyring.Keyring) *Engine {
	return &Engine{
		Network:     network,
		Keyring:     kr,
		pendingProb: make(map[string]*pendingProbe),
		pendingLast: make(map[string]*pendingLast),
	}
}

func (e *Engine) waitFactor() float64 {
	if e.WaitFactor == 0 {
		return 1.0
	}
	return e.WaitFactor
}

func (e *Engine) limiterFor(host string) *rate.Limiter {
	if e.ProbeRateLimit == 0 {
		return nil
	}
	e.limMu.Lock()
	defer e.limMu.Unlock()
	if e.limiters == nil {
		e.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := e.limiters[host]
	if !ok {
		burst := e.ProbeBurst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(e.ProbeRateLimit, burst)
		e.limiters[host] = l
	}
	return l
}

type pendingProbe struct {
	mu        sync.Mutex
	completed bool
	buf       []stanza.Presence
	expectedN int
	done      chan struct{}
	timer     *time.Timer
}

// FindPresence probes every peer host for target in parallel and returns
// the deduplicated, merged set of full-JID presences collected before the
// fan-out deadline.
func (e *Engine) FindPresence(ctx context.Context, target jid.JID) ([]stanza.Presence, error) {
	hosts := e.Keyring.Hostlist()
	if len(hosts) == 0 {
		return nil, ErrNoPeers
	}

	deadline := time.Duration(float64(MaxLookupTimeout) * e.waitFactor() * float64(len(hosts)))
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	buffers := make([][]stanza.Presence, len(hosts))
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			buffers[i] = e.probeOne(ctx, host, target)
			return nil
		})
	}
	_ = g.Wait()
	return mergeBuffers(buffers), nil
}

func (e *Engine) probeOne(ctx context.Context, host string, target jid.JID) []stanza.Presence {
	cid := attr.CorrelationID()
	pp := &pendingProbe{done: make(chan struct{}), expectedN: -1}

	e.mu.Lock()
	e.pendingProb[cid] = pp
	e.mu.Unlock()

	if lim := e.limiterFor(host); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			e.completeProbe(cid)
			return nil
		}
	}

	to := jid.JID{Local: target.Local, Domain: host, Resource: target.Resource}
	probe := stanza.Presence{
		ID:   cid,
		From: jid.JID{Domain: e.Network},
		To:   to,
		Type: stanza.ProbePresence,
	}
	if e.SendPresence == nil || e.SendPresence(probe) != nil {
		e.completeProbe(cid)
		return nil
	}

	timer := time.AfterFunc(MaxLookupTimeout, func() { e.completeProbe(cid) })
	pp.mu.Lock()
	pp.timer = timer
	pp.mu.Unlock()

	select {
	case <-pp.done:
	case <-ctx.Done():
		e.completeProbe(cid)
	}

	pp.mu.Lock()
	buf := pp.buf
	pp.mu.Unlock()
	return buf
}

// HandleProbeReply feeds a success-chain presence reply carrying a group
// element back to the pending probe it correlates with. Unknown or already
// completed correlation ids are ignored.
func (e *Engine) HandleProbeReply(cid string, p stanza.Presence) {
	e.mu.Lock()
	pp := e.pendingProb[cid]
	e.mu.Unlock()
	if pp == nil {
		return
	}

	pp.mu.Lock()
	if pp.completed {
		pp.mu.Unlock()
		return
	}
	pp.buf = append(pp.buf, p)
	if p.Group != nil && pp.expectedN < 0 {
		pp.expectedN = p.Group.Count
	}
	// Count descends from the chain total to 1 on the last reply
	// (spec.md §6), so either signal is sufficient to close the chain.
	complete := p.Group != nil && (p.Group.Count == 1 || len(pp.buf) >= pp.expectedN)
	pp.mu.Unlock()

	if complete {
		e.completeProbe(cid)
	}
}

// HandleProbeError completes the pending probe for cid with whatever was
// collected so far, per the routing-error path of spec.md §4.4.
func (e *Engine) HandleProbeError(cid string) {
	e.completeProbe(cid)
}

// ClaimedProbe reports whether cid names a probe fan-out this Engine
// currently has in flight, so the component dispatch loop can route a
// matching inbound presence to HandleProbeReply/HandleProbeError instead of
// the Stanza Router.
func (e *Engine) ClaimedProbe(cid string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pendingProb[cid]
	return ok
}

func (e *Engine) completeProbe(cid string) {
	e.mu.Lock()
	pp := e.pendingProb[cid]
	if pp != nil {
		delete(e.pendingProb, cid)
	}
	e.mu.Unlock()
	if pp == nil {
		return
	}

	pp.mu.Lock()
	if pp.completed {
		pp.mu.Unlock()
		return
	}
	pp.completed = true
	if pp.timer != nil {
		pp.timer.Stop()
	}
	pp.mu.Unlock()
	close(pp.done)
}

// mergeBuffers folds every peer's buffer down to one presence per resource,
// using the §3 tie-break comparator on resources observed more than once.
func mergeBuffers(buffers [][]stanza.Presence) []stanza.Presence {
	byResource := make(map[string][]stanza.Presence)
	for _, buf := range buffers {
		for _, p := range buf {
			r := p.From.Resource
			byResource[r] = append(byResource[r], p)
		}
	}
	out := make([]stanza.Presence, 0, len(byResource))
	for _, dups := range byResource {
		out = append(out, presence.Merge(dups))
	}
	return out
}

var lastQueryStart = xml.StartElement{Name: xml.Name{Space: ns.IQLast, Local: "query"}}
