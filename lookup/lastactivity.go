// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lookup

import (
	"context"
	"sync"
	"time"

	"mellium.im/xmlstream"

	"kontalk.im/resolver/internal/attr"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

type lastReply struct {
	seconds int
	from    jid.JID
}

type pendingLast struct {
	mu        sync.Mutex
	completed bool
	best      *lastReply
	count     int
	total     int
	done      chan struct{}
	timer     *time.Timer
}

// LastActivity forwards a last-activity query to every peer host under a
// shared correlation id and returns the minimum-seconds reply, per spec.md
// §4.4.
func (e *Engine) LastActivity(ctx context.Context, target jid.JID) (seconds int, from jid.JID, err error) {
	hosts := e.Keyring.Hostlist()
	if len(hosts) == 0 {
		return 0, jid.JID{}, ErrNoPeers
	}

	cid := attr.CorrelationID()
	pl := &pendingLast{done: make(chan struct{}), total: len(hosts)}
	e.mu.Lock()
	e.pendingLast[cid] = pl
	e.mu.Unlock()

	for _, host := range hosts {
		to := jid.JID{Local: target.Local, Domain: host, Resource: target.Resource}
		req := stanza.IQ{ID: cid, From: jid.JID{Domain: e.Network}, To: to, Type: stanza.GetIQ}
		payload := xmlstream.Wrap(nil, lastQueryStart)
		if e.SendIQ != nil {
			_ = e.SendIQ(req, payload)
		}
	}

	timer := time.AfterFunc(MaxLookupTimeout, func() { e.completeLast(cid) })
	pl.mu.Lock()
	pl.timer = timer
	pl.mu.Unlock()

	select {
	case <-pl.done:
	case <-ctx.Done():
		e.completeLast(cid)
	}

	pl.mu.Lock()
	best := pl.best
	pl.mu.Unlock()
	if best == nil {
		return 0, jid.JID{}, ErrNoReply
	}
	return best.seconds, best.from, nil
}

// HandleLastActivityReply feeds a last-activity result back to the pending
// aggregation it correlates with.
func (e *Engine) HandleLastActivityReply(cid string, seconds int, from jid.JID) {
	e.mu.Lock()
	pl := e.pendingLast[cid]
	e.mu.Unlock()
	if pl == nil {
		return
	}

	pl.mu.Lock()
	if pl.completed {
		pl.mu.Unlock()
		return
	}
	pl.count++
	if pl.best == nil || seconds < pl.best.seconds {
		pl.best = &lastReply{seconds: seconds, from: from}
	}
	complete := seconds == 0 || pl.count >= pl.total
	pl.mu.Unlock()

	if complete {
		e.completeLast(cid)
	}
}

// ClaimedLast reports whether cid names a last-activity fan-out this Engine
// currently has in flight, the IQ-reply counterpart of ClaimedProbe.
func (e *Engine) ClaimedLast(cid string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pendingLast[cid]
	return ok
}

func (e *Engine) completeLast(cid string) {
	e.mu.Lock()
	pl := e.pendingLast[cid]
	if pl != nil {
		delete(e.pendingLast, cid)
	}
	e.mu.Unlock()
	if pl == nil {
		return
	}

	pl.mu.Lock()
	if pl.completed {
		pl.mu.Unlock()
		return
	}
	pl.completed = true
	if pl.timer != nil {
		pl.timer.Stop()
	}
	pl.mu.Unlock()
	close(pl.done)
}
