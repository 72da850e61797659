// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package router_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/keyring"
	"kontalk.im/resolver/router"
	"kontalk.im/resolver/stanza"
)

func TestRouteMessageItemNotFound(t *testing.T) {
	r := newTestRouter()
	out, err := r.RouteMessage(stanza.Message{
		ID:   "m1",
		From: jid.MustParse("alice@kontalk.net"),
		To:   jid.MustParse("nobody@kontalk.net"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	em, ok := out[0].(router.ErrorMessage)
	require.True(t, ok)
	require.Equal(t, stanza.ItemNotFound, em.Error.Condition)
}

func TestRouteMessageFullMatch(t *testing.T) {
	r := newTestRouter()
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:   "m2",
		From: jid.MustParse("alice@kontalk.net"),
		To:   jid.MustParse("bob@kontalk.net/phone"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	m, ok := out[0].(stanza.Message)
	require.True(t, ok)
	require.Equal(t, "bob@prime.kontalk.net/phone", m.To.String())
	require.Equal(t, "bob@kontalk.net/phone", m.OriginalTo.String())
}

func TestRouteMessageFullNoMatchDropped(t *testing.T) {
	r := newTestRouter()
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:   "m3",
		From: jid.MustParse("alice@kontalk.net"),
		To:   jid.MustParse("bob@kontalk.net/desktop"),
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRouteMessageBareOffline(t *testing.T) {
	r := newTestRouter()
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})
	r.Cache.ObserveUnavailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:   "m4",
		From: jid.MustParse("alice@kontalk.net"),
		To:   jid.MustParse("bob@kontalk.net"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	m := out[0].(stanza.Message)
	require.Equal(t, "bob@prime.kontalk.net", m.To.String())
}

func TestRouteMessageBareFanout(t *testing.T) {
	r := newTestRouter()
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/desktop")})

	out, err := r.RouteMessage(stanza.Message{
		ID:   "m5",
		From: jid.MustParse("alice@kontalk.net"),
		To:   jid.MustParse("bob@kontalk.net"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestRouteMessageReceiptSideEffectFiresForPeerHost(t *testing.T) {
	r := newTestRouter()
	r.Keyring = keyring.NewStatic([]string{"beta.kontalk.net"})
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@beta.kontalk.net/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:       "m6",
		From:     jid.MustParse("alice@kontalk.net"),
		To:       jid.MustParse("bob@kontalk.net/phone"),
		Received: &stanza.Received{ID: "receipt1"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	notice, ok := out[1].(stanza.Message)
	require.True(t, ok)
	require.NotNil(t, notice.Received)
	require.Equal(t, "receipt1", notice.Received.ID)
	require.Equal(t, "prime.kontalk.net", notice.To.Domain)
}

func TestRouteMessageReceiptSideEffectSkippedForLocalDelivery(t *testing.T) {
	r := newTestRouter()
	r.Keyring = keyring.NewStatic([]string{"beta.kontalk.net"})
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@prime.kontalk.net/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:       "m7",
		From:     jid.MustParse("alice@kontalk.net"),
		To:       jid.MustParse("bob@kontalk.net/phone"),
		Received: &stanza.Received{ID: "receipt2"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestRouteMessageReceiptSideEffectSkippedForUnknownHost(t *testing.T) {
	r := newTestRouter()
	r.Keyring = keyring.NewStatic([]string{"beta.kontalk.net"})
	r.Cache.ObserveAvailable(stanza.Presence{From: jid.MustParse("bob@stranger.example/phone")})

	out, err := r.RouteMessage(stanza.Message{
		ID:       "m8",
		From:     jid.MustParse("alice@kontalk.net"),
		To:       jid.MustParse("bob@kontalk.net/phone"),
		Received: &stanza.Received{ID: "receipt3"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestRouteMessageNetworkBareAddressedIsNoop(t *testing.T) {
	r := newTestRouter()
	out, err := r.RouteMessage(stanza.Message{
		ID:   "m9",
		From: jid.MustParse("alice@kontalk.net/phone"),
		To:   jid.JID{Domain: "kontalk.net"},
	})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestRouteMessageHostScopedForwardedUnchanged(t *testing.T) {
	r := newTestRouter()
	in := stanza.Message{
		ID:   "m10",
		From: jid.MustParse("alice@kontalk.net/phone"),
		To:   jid.MustParse("bob@beta.kontalk.net/desktop"),
	}
	out, err := r.RouteMessage(in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	m, ok := out[0].(stanza.Message)
	require.True(t, ok)
	require.Equal(t, in, m)
}
