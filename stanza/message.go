// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"kontalk.im/resolver/jid"
)

// Message is an XMPP stanza used to push information to another entity; the
// resolver never originates chat content but does emit the internal
// receipt-purge notice the router sends when it delivers a message carrying
// a receipt to a peer host (spec.md §4.5).
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      jid.JID     `xml:"to,attr"`
	From    jid.JID     `xml:"from,attr"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`

	// OriginalTo preserves the network-scoped address a forwarded message
	// was originally addressed to, for downstream components (spec.md
	// §4.5).
	OriginalTo jid.JID `xml:"original-to,attr,omitempty"`

	Received *Received `xml:"http://kontalk.org/extensions/message/receipt received,omitempty"`
}

// MessageType is the type of a message stanza.
type MessageType string

const (
	// NormalMessage is a standalone message sent outside the context of a
	// one-to-one conversation or groupchat.
	NormalMessage MessageType = "normal"

	// ChatMessage is a message sent in the context of a one-to-one chat.
	ChatMessage MessageType = "chat"

	// ErrorMessage indicates that an earlier message from the sender has
	// failed for some reason.
	ErrorMessage MessageType = "error"

	// HeadlineMessage provides an alert, notice, or other transient
	// information.
	HeadlineMessage MessageType = "headline"
)

func (m Message) start() xml.StartElement {
	se := xml.StartElement{Name: xml.Name{Local: "message"}}
	if m.ID != "" {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: m.ID})
	}
	se.Attr = append(se.Attr, jidAttrIfSet("to", m.To)...)
	se.Attr = append(se.Attr, jidAttrIfSet("from", m.From)...)
	if m.Type != "" {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(m.Type)})
	}
	return se
}

// Received marks a prior message, identified by ID, as delivered. When the
// router delivers a message carrying one to a recipient resolved on a peer
// host, it also sends a notice with the same ID from the network to this
// process's servername, so the client-to-server subsystem can purge the
// messages it stored (spec.md §4.5).
type Received struct {
	XMLName xml.Name `xml:"http://kontalk.org/extensions/message/receipt received"`
	ID      string   `xml:"id,attr"`
}
