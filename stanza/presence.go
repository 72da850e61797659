// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"kontalk.im/resolver/jid"
)

// Presence is an XMPP stanza used as an indication that an entity is
// available for communication. It is used to set a status message, broadcast
// availability, and advertise entity capabilities. It can be directed
// (one-to-one, a probe reply) or broadcast (one-to-many, a subscriber push).
//
// Unlike the general-purpose presence stanza of the wider protocol, the
// resolver only ever produces or consumes the fixed set of children spec.md
// §3 and §6 enumerate, so those children are plain struct fields rather than
// an extensible payload list.
type Presence struct {
	XMLName  xml.Name     `xml:"presence"`
	ID       string       `xml:"id,attr"`
	To       jid.JID      `xml:"to,attr"`
	From     jid.JID      `xml:"from,attr"`
	Lang     string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type     PresenceType `xml:"type,attr,omitempty"`
	Show     ShowState    `xml:"show,omitempty"`
	Status   string       `xml:"status,omitempty"`
	Priority int8         `xml:"priority,omitempty"`
	Delay    *Delay       `xml:"urn:xmpp:delay delay,omitempty"`
	Group    *Group       `xml:"http://kontalk.org/ns/stanza-group group,omitempty"`
}

// PresenceType is the type of a presence stanza.
type PresenceType string

const (
	// ErrorPresence indicates that an error occurred while processing a
	// previously sent presence stanza; it MUST include an <error/> child.
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence, generated
	// and sent by servers on a user's behalf.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is sent when the sender wishes to subscribe to the
	// recipient's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that the sender has allowed the recipient
	// to receive future presence broadcasts.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence indicates that the sender is no longer available
	// for communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence indicates that the sender is unsubscribing from the
	// receiver's presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that a subscription request has been
	// denied, or a previously granted subscription has been revoked.
	UnsubscribedPresence PresenceType = "unsubscribed"
)

// ShowState refines an available presence with the entity's particular
// availability (away, busy, and so on).
type ShowState string

// Show states defined by the protocol; the zero value means plain "available".
const (
	ShowAway ShowState = "away"
	ShowChat ShowState = "chat"
	ShowDND  ShowState = "dnd"
	ShowXA   ShowState = "xa"
)

// IsAvailable reports whether the presence type represents the entity being
// reachable (the zero PresenceType, not Unavailable/Error/Probe/...).
func (p Presence) IsAvailable() bool {
	return p.Type == ""
}

func (p Presence) start() xml.StartElement {
	se := xml.StartElement{Name: xml.Name{Local: "presence"}}
	if p.ID != "" {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	}
	se.Attr = append(se.Attr, jidAttrIfSet("to", p.To)...)
	se.Attr = append(se.Attr, jidAttrIfSet("from", p.From)...)
	if p.Type != "" {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(p.Type)})
	}
	return se
}
