// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains the wire types for the three XMPP stanza kinds
// (presence, message, IQ) and the stanza-level error element, scoped to the
// subset spec.md §6 enumerates: the resolver does not implement the XMPP
// specification in full.
package stanza // import "kontalk.im/resolver/stanza"

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"kontalk.im/resolver/jid"
)

// WrapIQ wraps a payload in an IQ start element carrying to/from/id/type.
// The caller is responsible for setting those elsewhere if payload alone
// isn't enough (this mirrors the teacher package's WrapIQ, generalized to a
// value JID).
func WrapIQ(iq IQ, payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.start())
}

// WrapMessage wraps a payload in a message start element.
func WrapMessage(m Message, payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, m.start())
}

// WrapPresence wraps a payload in a presence start element.
func WrapPresence(p Presence, payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, p.start())
}

func attrIfSet(name, value string) []xml.Attr {
	if value == "" {
		return nil
	}
	return []xml.Attr{{Name: xml.Name{Local: name}, Value: value}}
}

func jidAttrIfSet(name string, j jid.JID) []xml.Attr {
	if j.IsZero() {
		return nil
	}
	return []xml.Attr{{Name: xml.Name{Local: name}, Value: j.String()}}
}
