// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package presence implements the resolver's Presence Cache: the in-memory
// map from a bare user to their aggregated per-resource presence, and the
// tie-break rule used to merge duplicate observations collected from
// different peer servers.
package presence // import "kontalk.im/resolver/presence"

import (
	"time"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

// Stub aggregates one bare user's live presence across every resource that
// has pushed one, in push order.
type Stub struct {
	JID        jid.JID
	Type       stanza.PresenceType
	Show       stanza.ShowState
	Status     string
	Priority   int8
	resources  []string
	byResource map[string]stanza.Presence
	touchedAt  time.Time
}

func newStub(p stanza.Presence, now time.Time) *Stub {
	s := &Stub{
		JID:        p.From.Bare(),
		byResource: make(map[string]stanza.Presence),
	}
	s.push(p, now)
	return s
}

// push inserts p, replacing any prior presence for the same resource and
// updating the stub's summary fields (type/show/status/priority) to p's,
// matching the "last push wins for the summary" behavior of the source this
// package is grounded on.
func (s *Stub) push(p stanza.Presence, now time.Time) {
	r := p.From.Resource
	if _, exists := s.byResource[r]; !exists {
		s.resources = append(s.resources, r)
	}
	s.byResource[r] = p
	s.Type = p.Type
	s.Show = p.Show
	s.Status = p.Status
	s.Priority = p.Priority
	s.touchedAt = now
}

// pop removes resource from the stub. If it was the last resource the stub
// becomes unavailable. Reports whether the resource was present.
func (s *Stub) pop(resource string, now time.Time) bool {
	if _, ok := s.byResource[resource]; !ok {
		return false
	}
	delete(s.byResource, resource)
	for i, r := range s.resources {
		if r == resource {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			break
		}
	}
	if len(s.resources) == 0 {
		s.Type = stanza.UnavailablePresence
	}
	s.touchedAt = now
	return true
}

// IsAvailable reports whether the stub currently has any resource.
func (s *Stub) IsAvailable() bool {
	return len(s.resources) > 0
}

// Presences returns the stub's per-resource presence stanzas in push order.
func (s *Stub) Presences() []stanza.Presence {
	out := make([]stanza.Presence, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, s.byResource[r])
	}
	return out
}

// Resource returns the stanza pushed for resource, if any.
func (s *Stub) Resource(resource string) (stanza.Presence, bool) {
	p, ok := s.byResource[resource]
	return p, ok
}
