// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package resolver wires the Presence Cache, Subscription Registry, Lookup
// Engine, Stanza Router, and component transport into the running federated
// Resolver service, and owns the dial/negotiate/run/reconnect loop against
// the central router.
package resolver // import "kontalk.im/resolver/resolver"

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"kontalk.im/resolver/component"
	"kontalk.im/resolver/internal/config"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/keyring"
	"kontalk.im/resolver/lookup"
	"kontalk.im/resolver/metrics"
	"kontalk.im/resolver/presence"
	"kontalk.im/resolver/router"
	"kontalk.im/resolver/stanza"
	"kontalk.im/resolver/storage"
	"kontalk.im/resolver/subscription"
)

// Sentinel errors the Resolver returns, orthogonal to stanza.Error (the
// wire-level XMPP error element used for protocol-visible failures).
var (
	// ErrNotConnected is returned by operations attempted before Run has
	// established a component connection.
	ErrNotConnected = errors.New("resolver: not connected to router")

	// ErrUnknownPeer is returned by PeerKnown for a host that is not in the
	// configured peer list.
	ErrUnknownPeer = errors.New("resolver: unknown peer host")
)

// Resolver is the fully wired federated Resolver service.
type Resolver struct {
	Config *config.Config

	Cache   *presence.Cache
	Subs    *subscription.Registry
	Keyring *keyring.Static
	Engine  *lookup.Engine
	Storage storage.PresenceStorage
	Metrics *metrics.Metrics
	Router  *router.Router

	dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// New builds a Resolver from cfg, wiring every collaborator but not yet
// dialing the router; call Run to connect and serve.
func New(cfg *config.Config) *Resolver {
	cache := presence.NewCache()
	cache.TTL = cfg.CacheTTL

	subs := subscription.NewRegistry(cfg.ServerName, cfg.Network)
	kr := keyring.NewStatic(cfg.Peers)
	store := storage.NewLogging(nil)
	m := metrics.New()

	eng := lookup.NewEngine(cfg.Network, kr)
	eng.WaitFactor = cfg.WaitFactor

	r := router.New(cfg.ServerName, cfg.Network, cache, subs, eng, store, m)

	return &Resolver{
		Config:  cfg,
		Cache:   cache,
		Subs:    subs,
		Keyring: kr,
		Engine:  eng,
		Storage: store,
		Metrics: m,
		Router:  r,
		dialer:  dialTCP,
	}
}

func dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Run dials the router, negotiates the component handshake, and serves the
// stanza dispatch loop until ctx is canceled, reconnecting with a fixed
// backoff after any connection error. When the Presence Cache has a non-zero
// TTL, Run also calls EvictStale once every TTL until ctx is canceled.
func (r *Resolver) Run(ctx context.Context) error {
	addr, err := jid.Parse(r.Config.ServerName)
	if err != nil {
		return fmt.Errorf("resolver: invalid server_name %q: %w", r.Config.ServerName, err)
	}

	if ttl := r.Cache.TTL; ttl > 0 {
		go func() {
			t := time.NewTicker(ttl)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-t.C:
					r.Cache.EvictStale(now)
				}
			}
		}()
	}

	const reconnectDelay = 5 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.runOnce(ctx, addr); err != nil {
			logrus.WithError(err).WithField("router_addr", r.Config.RouterAddr).
				Warn("resolver: component connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (r *Resolver) runOnce(ctx context.Context, addr jid.JID) error {
	nc, err := r.dialer(ctx, r.Config.RouterAddr)
	if err != nil {
		return fmt.Errorf("resolver: dial %s: %w", r.Config.RouterAddr, err)
	}
	defer nc.Close()

	conn := component.NewConn(nc)
	if err := conn.Negotiate(addr, []byte(r.Config.Secret)); err != nil {
		return fmt.Errorf("resolver: negotiate: %w", err)
	}
	logrus.WithField("router_addr", r.Config.RouterAddr).Info("resolver: component connected")

	w := component.NewWriter(conn)
	r.wireEngineTransport(w)
	defer func() {
		r.Engine.SendPresence = nil
		r.Engine.SendIQ = nil
		_ = w.Close()
	}()

	return component.Run(ctx, conn, w, r.Router)
}

// SendPresence routes p through the Lookup Engine's currently active
// transport, returning ErrNotConnected before the first successful
// negotiation (or after a connection has dropped and not yet reconnected).
func (r *Resolver) SendPresence(p stanza.Presence) error {
	if r.Engine.SendPresence == nil {
		return ErrNotConnected
	}
	return r.Engine.SendPresence(p)
}

// PeerKnown reports whether host is a configured peer, returning
// ErrUnknownPeer otherwise.
func (r *Resolver) PeerKnown(host string) error {
	for _, h := range r.Keyring.Hostlist() {
		if h == host {
			return nil
		}
	}
	return ErrUnknownPeer
}

// wireEngineTransport points the Lookup Engine's outbound sends at the
// writer for the connection just negotiated.
func (r *Resolver) wireEngineTransport(w *component.Writer) {
	r.Engine.SendPresence = func(p stanza.Presence) error {
		w.Send(p)
		return nil
	}
	r.Engine.SendIQ = func(iq stanza.IQ, payload xml.TokenReader) error {
		w.Send(stanza.WrapIQ(iq, payload))
		return nil
	}
}
