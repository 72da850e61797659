// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/stanza"
)

func TestMessageReceivedMarshal(t *testing.T) {
	m := stanza.Message{
		To:       jid.MustParse("c2s.kontalk.net"),
		Received: &stanza.Received{ID: "msg-1"},
	}
	out, err := xml.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(out), `to="c2s.kontalk.net"`)
	require.Contains(t, string(out), `<received xmlns="http://kontalk.org/extensions/message/receipt" id="msg-1">`)
}
