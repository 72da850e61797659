// Copyright 2015 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package jid_test

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/jid"
)

var _ xml.MarshalerAttr = jid.JID{}
var _ xml.UnmarshalerAttr = (*jid.JID)(nil)

func TestParseValid(t *testing.T) {
	tests := []struct {
		in                   string
		local, domain, rsrc string
	}{
		{"example.net", "", "example.net", ""},
		{"example.net/rp", "", "example.net", "rp"},
		{"mercutio@example.net", "mercutio", "example.net", ""},
		{"mercutio@example.net/rp", "mercutio", "example.net", "rp"},
		{"alice@kontalk.net/phone", "alice", "kontalk.net", "phone"},
	}
	for _, tc := range tests {
		j, err := jid.Parse(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.local, j.Local, tc.in)
		require.Equal(t, tc.domain, j.Domain, tc.in)
		require.Equal(t, tc.rsrc, j.Resource, tc.in)
		require.Equal(t, tc.in, j.String(), tc.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"@example.net", "example.net/", "user@"} {
		_, err := jid.Parse(in)
		require.Error(t, err, in)
	}
}

func TestBareAndFull(t *testing.T) {
	full := jid.MustParse("alice@kontalk.net/phone")
	require.True(t, full.IsFull())
	require.False(t, full.IsBare())

	bare := full.Bare()
	require.True(t, bare.IsBare())
	require.Equal(t, "alice@kontalk.net", bare.String())

	require.True(t, full.Equal(bare.Full("phone")))
}

func TestEqual(t *testing.T) {
	a := jid.MustParse("alice@kontalk.net/phone")
	b := jid.MustParse("alice@kontalk.net/phone")
	c := jid.MustParse("alice@kontalk.net/desktop")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestTranslate(t *testing.T) {
	const servername = "prime.kontalk.net"
	const network = "kontalk.net"

	server := jid.MustParse("alice@prime.kontalk.net/phone")
	net := jid.TranslateToNetwork(server, servername, network)
	require.Equal(t, "alice@kontalk.net/phone", net.String())

	back := jid.TranslateToServer(net, servername, network)
	require.Equal(t, server, back)

	// Unchanged for any other host.
	other := jid.MustParse("bob@beta.kontalk.net/tablet")
	require.Equal(t, other, jid.TranslateToNetwork(other, servername, network))
}

func TestTranslateIdempotent(t *testing.T) {
	const servername = "prime.kontalk.net"
	const network = "kontalk.net"

	j := jid.MustParse("alice@kontalk.net")
	once := jid.TranslateToServer(j, servername, network)
	twice := jid.TranslateToServer(once, servername, network)
	require.Equal(t, once, twice)
}
