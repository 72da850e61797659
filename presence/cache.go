// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package presence

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

// Cache is the resolver's Presence Cache: a map from a bare user's local
// part to their aggregated Stub. Entries are created on first observed
// presence and are never evicted unless TTL is set.
type Cache struct {
	// TTL, if non-zero, is the age beyond which an already-unavailable
	// stub becomes eligible for eviction by EvictStale. The zero value
	// disables eviction, matching the unbounded-growth behavior this
	// package is grounded on.
	TTL time.Duration

	mu   sync.RWMutex
	stub map[string]*Stub

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewCache returns an empty Cache with eviction disabled.
func NewCache() *Cache {
	return &Cache{stub: make(map[string]*Stub), Now: time.Now}
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ObserveAvailable records p as an available presence push. The bare user is
// taken from p.From; a malformed (empty) local part is ignored silently.
func (c *Cache) ObserveAvailable(p stanza.Presence) {
	if p.From.Local == "" {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stub[p.From.Local]
	if !ok {
		c.stub[p.From.Local] = newStub(p, now)
		return
	}
	s.push(p, now)
}

// ObserveUnavailable pops p's resource from its stub. If no stub existed one
// is created already-unavailable, and the event is logged: the source
// tolerates this case but treats it as noteworthy.
func (c *Cache) ObserveUnavailable(p stanza.Presence) {
	if p.From.Local == "" {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stub[p.From.Local]
	if !ok {
		s = newStub(p, now)
		s.pop(p.From.Resource, now)
		c.stub[p.From.Local] = s
		logrus.WithField("jid", p.From.String()).Debug("presence: unavailable for unknown stub")
		return
	}
	s.pop(p.From.Resource, now)
}

// Lookup returns the Stub for a bare identifier, or nil if none exists.
func (c *Cache) Lookup(bareLocal string) *Stub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stub[bareLocal]
}

// IsAvailable reports whether j (a full identifier) currently has a pushed
// presence for its resource.
func (c *Cache) IsAvailable(j jid.JID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stub[j.Local]
	if !ok {
		return false
	}
	_, ok = s.Resource(j.Resource)
	return ok
}

// CacheLookup resolves j to the set of full identifiers it currently maps
// to: if j is full and its resource is present, the From of the presence
// stored for that resource (carrying the host it was observed on, not j's
// own domain); if j is bare, every resource's full identifier.
func (c *Cache) CacheLookup(j jid.JID) []jid.JID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stub[j.Local]
	if !ok {
		return nil
	}
	if j.IsFull() {
		if p, ok := s.Resource(j.Resource); ok {
			return []jid.JID{p.From}
		}
		return nil
	}
	out := make([]jid.JID, 0, len(s.resources))
	for _, p := range s.Presences() {
		out = append(out, p.From)
	}
	return out
}

// EvictStale removes every unavailable stub whose last push is older than
// TTL. It is a no-op when TTL is 0. Available stubs are never evicted.
func (c *Cache) EvictStale(now time.Time) {
	if c.TTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, s := range c.stub {
		if s.IsAvailable() {
			continue
		}
		if now.Sub(s.touchedAt) >= c.TTL {
			delete(c.stub, k)
		}
	}
}

// Size returns the current number of cached stubs, for metrics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stub)
}
