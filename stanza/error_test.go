// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

func TestErrorMarshalUnmarshalRoundTrip(t *testing.T) {
	se := stanza.Error{
		By:        jid.MustParse("resolver.kontalk.net"),
		Type:      stanza.Cancel,
		Condition: stanza.ItemNotFound,
		Lang:      language.English,
		Text:      "no such peer",
	}
	out, err := xml.Marshal(se)
	require.NoError(t, err)
	require.Contains(t, string(out), `type="cancel"`)
	require.Contains(t, string(out), `<item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas">`)
	require.Contains(t, string(out), "no such peer")

	var decoded stanza.Error
	require.NoError(t, xml.Unmarshal(out, &decoded))
	require.Equal(t, stanza.ItemNotFound, decoded.Condition)
	require.Equal(t, "no such peer", decoded.Text)
}

func TestErrorSatisfiesErrorInterface(t *testing.T) {
	se := stanza.Error{Condition: stanza.ServiceUnavailable}
	require.EqualError(t, se, "service-unavailable")
}
