// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants used across the resolver and its
// supporting packages.
package ns // import "kontalk.im/resolver/internal/ns"

// Stream and stanza namespaces.
const (
	Client   = "jabber:client"
	Server   = "jabber:server"
	Stream   = "http://etherx.jabber.org/streams"
	XML      = "http://www.w3.org/XML/1998/namespace"
	Stanzas  = "urn:ietf:params:xml:ns:xmpp-stanzas"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
)

// ComponentAccept is the XEP-0114 Jabber Component Protocol namespace used
// for the resolver's connection to the central router.
const ComponentAccept = "jabber:component:accept"

// IQ payload namespaces handled by the resolver (spec.md §6).
const (
	IQRoster  = "jabber:iq:roster"
	IQLast    = "jabber:iq:last"
	IQVersion = "jabber:iq:version"
)

// Delay is the namespace for XEP-0203 delayed delivery stamps.
const Delay = "urn:xmpp:delay"

// StanzaGroup is the namespace for the chain/group element used to frame
// multi-resource presence replies (spec.md §6).
const StanzaGroup = "http://kontalk.org/ns/stanza-group"

// ServerReceipts is the namespace used for the internal receipt-purge notice
// sent to the client-to-server subsystem (spec.md §4.5 receipt side-effect).
const ServerReceipts = "http://kontalk.org/extensions/message/receipt"
