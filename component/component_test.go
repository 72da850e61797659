// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package component_test

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/component"
	"kontalk.im/resolver/jid"
)

// loopback feeds a canned server response and captures whatever the client
// writes, mimicking the io.ReadWriter the teacher package's tests drive its
// negotiator with.
type loopback struct {
	r *bytes.Reader
	w bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.r.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.w.Write(p) }

func serverGreeting(id string) string {
	return fmt.Sprintf(`<stream:stream xmlns='jabber:component:accept' xmlns:stream='http://etherx.jabber.org/streams' from='kontalk.net' id='%s'>`, id)
}

func TestNegotiateSuccess(t *testing.T) {
	secret := []byte("sekrit")
	const id = "1234"
	h := sha1.New()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write(secret)
	digest := fmt.Sprintf("%x", h.Sum(nil))

	server := serverGreeting(id) + "<handshake></handshake>"
	lb := &loopback{r: bytes.NewReader([]byte(server))}

	conn := component.NewConn(lb)
	err := conn.Negotiate(jid.MustParse("kontalk.net"), secret)
	require.NoError(t, err)
	require.Contains(t, lb.w.String(), "<stream:stream")
	require.Contains(t, lb.w.String(), "<handshake>"+digest+"</handshake>")
}

func TestNegotiateRejected(t *testing.T) {
	server := serverGreeting("1234") + "<error></error>"
	lb := &loopback{r: bytes.NewReader([]byte(server))}

	conn := component.NewConn(lb)
	err := conn.Negotiate(jid.MustParse("kontalk.net"), []byte("sekrit"))
	require.ErrorIs(t, err, component.ErrNotAuthorized)
}

func TestNegotiateMissingStreamID(t *testing.T) {
	server := `<stream:stream xmlns='jabber:component:accept' xmlns:stream='http://etherx.jabber.org/streams' from='kontalk.net'>`
	lb := &loopback{r: bytes.NewReader([]byte(server))}

	conn := component.NewConn(lb)
	err := conn.Negotiate(jid.MustParse("kontalk.net"), []byte("sekrit"))
	require.ErrorIs(t, err, component.ErrUnexpectedStream)
}

var _ io.ReadWriter = (*loopback)(nil)
