// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"
	"mellium.im/xmlstream"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

func TestWrapIQAddsPayload(t *testing.T) {
	iq := stanza.IQ{
		ID:   "abc",
		To:   jid.MustParse("resolver.kontalk.net"),
		Type: stanza.GetIQ,
	}
	ping := xml.StartElement{Name: xml.Name{Space: "urn:xmpp:ping", Local: "ping"}}
	payload := xmlstream.Wrap(nil, ping)

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	_, err := xmlstream.Copy(e, stanza.WrapIQ(iq, payload))
	require.NoError(t, err)
	require.NoError(t, e.Flush())

	out := buf.String()
	require.Contains(t, out, `to="resolver.kontalk.net"`)
	require.Contains(t, out, `type="get"`)
	require.Contains(t, out, `<ping xmlns="urn:xmpp:ping">`)
}

func TestWrapPresenceAddsPayload(t *testing.T) {
	p := stanza.Presence{From: jid.MustParse("alice@kontalk.net/phone"), Type: stanza.ProbePresence}
	status := xmlstream.Wrap(xmlstream.Token(xml.CharData("busy")), xml.StartElement{Name: xml.Name{Local: "status"}})

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	_, err := xmlstream.Copy(e, stanza.WrapPresence(p, status))
	require.NoError(t, err)
	require.NoError(t, e.Flush())

	out := buf.String()
	require.Contains(t, out, `from="alice@kontalk.net/phone"`)
	require.Contains(t, out, `type="probe"`)
	require.Contains(t, out, "busy")
}
