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

func TestIQResultSwapsAddressing(t *testing.T) {
	req := stanza.IQ{
		ID:   "abc123",
		To:   jid.MustParse("resolver.kontalk.net"),
		From: jid.MustParse("alice@kontalk.net/phone"),
		Type: stanza.GetIQ,
	}
	res := req.Result()
	require.Equal(t, req.ID, res.ID)
	require.Equal(t, req.From, res.To)
	require.Equal(t, req.To, res.From)
	require.Equal(t, stanza.ResultIQ, res.Type)
}

func TestIQTypeMarshalEmpty(t *testing.T) {
	var typ stanza.IQType
	_, err := typ.MarshalXMLAttr(xml.Name{Local: "type"})
	require.ErrorIs(t, err, stanza.ErrEmptyIQType)
}

func TestNewIQGeneratesID(t *testing.T) {
	to := jid.MustParse("resolver.kontalk.net")
	a := stanza.NewIQ(stanza.GetIQ, to)
	b := stanza.NewIQ(stanza.GetIQ, to)
	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, to, a.To)
}
