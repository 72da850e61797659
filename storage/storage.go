// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package storage defines the Presence Storage collaborator: persistence
// for presence history lives outside the Resolver's functional scope, so
// this package specifies only the interface the Resolver consumes, plus a
// logging implementation suitable for development and for deployments that
// don't need durable history.
package storage // import "kontalk.im/resolver/storage"

import (
	"context"

	"github.com/sirupsen/logrus"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

// PresenceStorage is the external collaborator the Resolver consults to
// durably record presence transitions, independent of the in-memory
// Presence Cache.
type PresenceStorage interface {
	// Touch records that j pushed p. Implementations may persist this
	// asynchronously; the call should not block stanza processing for long.
	Touch(ctx context.Context, j jid.JID, p stanza.Presence) error

	// Presence returns the most recently stored presence for a bare user,
	// if any durable record exists (independent of whether the in-memory
	// cache still holds one).
	Presence(ctx context.Context, bareLocal string) (stanza.Presence, bool, error)
}

// Logging is a PresenceStorage that only logs; it durably records nothing.
// It is the default used by cmd/resolverd until a real backend is wired.
type Logging struct {
	Log *logrus.Logger
}

// NewLogging returns a Logging storage using log, or logrus's standard
// logger if log is nil.
func NewLogging(log *logrus.Logger) *Logging {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logging{Log: log}
}

// Touch satisfies PresenceStorage.
func (l *Logging) Touch(_ context.Context, j jid.JID, p stanza.Presence) error {
	l.Log.WithFields(logrus.Fields{
		"jid":  j.String(),
		"type": string(p.Type),
	}).Debug("storage: presence touch")
	return nil
}

// Presence satisfies PresenceStorage; Logging never has a durable record.
func (l *Logging) Presence(_ context.Context, bareLocal string) (stanza.Presence, bool, error) {
	l.Log.WithField("user", bareLocal).Debug("storage: presence lookup (no durable backend)")
	return stanza.Presence{}, false, nil
}
