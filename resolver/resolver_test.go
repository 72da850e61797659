// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package resolver

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/internal/config"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

func testConfig() *config.Config {
	return &config.Config{
		Network:    "kontalk.net",
		ServerName: "prime.kontalk.net",
		Secret:     "sekrit",
		RouterAddr: "router.invalid:5347",
		Peers:      []string{"peer1.kontalk.net", "peer2.kontalk.net"},
	}
}

func TestNewWiresCollaborators(t *testing.T) {
	r := New(testConfig())
	require.NotNil(t, r.Cache)
	require.NotNil(t, r.Subs)
	require.NotNil(t, r.Keyring)
	require.NotNil(t, r.Engine)
	require.NotNil(t, r.Storage)
	require.NotNil(t, r.Metrics)
	require.NotNil(t, r.Router)

	require.Same(t, r.Cache, r.Router.Cache)
	require.Same(t, r.Subs, r.Router.Subs)
	require.Same(t, r.Engine, r.Router.Lookup)
	require.Same(t, r.Storage, r.Router.Storage)
	require.Same(t, r.Metrics, r.Router.Metrics)
	require.Equal(t, []string{"peer1.kontalk.net", "peer2.kontalk.net"}, r.Keyring.Hostlist())
}

func TestSendPresenceBeforeConnectedErrNotConnected(t *testing.T) {
	r := New(testConfig())
	p := stanza.Presence{From: jid.MustParse("alice@kontalk.net"), To: jid.MustParse("bob@kontalk.net")}
	require.ErrorIs(t, r.SendPresence(p), ErrNotConnected)
}

func TestPeerKnown(t *testing.T) {
	r := New(testConfig())
	require.NoError(t, r.PeerKnown("peer1.kontalk.net"))
	require.ErrorIs(t, r.PeerKnown("stranger.example"), ErrUnknownPeer)
}

func TestRunReturnsContextErrAfterCancel(t *testing.T) {
	r := New(testConfig())
	r.dialer = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("dial should not be attempted after cancel")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunOnceNegotiatesOverPipe(t *testing.T) {
	r := New(testConfig())

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r.dialer = func(ctx context.Context, addr string) (net.Conn, error) {
		return client, nil
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- serveFakeRouter(server, "prime.kontalk.net", "sekrit") }()

	addr := jid.MustParse("prime.kontalk.net")
	err := r.runOnce(context.Background(), addr)
	require.Error(t, err) // the fake router closes the stream once negotiated, ending the read loop
	require.NoError(t, <-serverDone)
}

// serveFakeRouter plays the central router's side of a single XEP-0114
// handshake over conn, discarding whatever the client writes (net.Pipe is
// unbuffered, so unread client writes would block both sides), then hangs up
// so the client's dispatch read loop sees a clean error and runOnce returns
// instead of blocking the test.
func serveFakeRouter(conn net.Conn, to, secret string) error {
	go func() { _, _ = io.Copy(io.Discard, conn) }()

	const id = "test-stream-id"
	greeting := fmt.Sprintf("<stream:stream xmlns='jabber:component:accept' xmlns:stream='http://etherx.jabber.org/streams' from='%s' id='%s'>", to, id)
	if _, err := conn.Write([]byte(greeting)); err != nil {
		return err
	}

	h := sha1.New()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte(secret))
	digest := fmt.Sprintf("<handshake>%x</handshake>", h.Sum(nil))
	if _, err := conn.Write([]byte(digest)); err != nil {
		return err
	}

	time.Sleep(10 * time.Millisecond)
	return conn.Close()
}
