// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"

	"kontalk.im/resolver/internal/attr"
	"kontalk.im/resolver/jid"
)

// ErrEmptyIQType is returned when marshaling an IQ with no type attribute.
var ErrEmptyIQType = errors.New("stanza: empty IQ type")

// IQ ("Information Query") is used as a general request/response mechanism.
// IQs are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	To      jid.JID  `xml:"to,attr"`
	From    jid.JID  `xml:"from,attr"`
	Lang    string   `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    IQType   `xml:"type,attr"`
}

// IQType is the type of an IQ stanza.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// MarshalXMLAttr satisfies xml.MarshalerAttr for IQType.
func (t IQType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if t == "" {
		return xml.Attr{}, ErrEmptyIQType
	}
	return xml.Attr{Name: name, Value: string(t)}, nil
}

func (iq IQ) start() xml.StartElement {
	se := xml.StartElement{Name: xml.Name{Local: "iq"}}
	se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	se.Attr = append(se.Attr, jidAttrIfSet("to", iq.To)...)
	se.Attr = append(se.Attr, jidAttrIfSet("from", iq.From)...)
	se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(iq.Type)})
	return se
}

// Result builds the ResultIQ reply to iq: to/from are swapped and the id is
// preserved, since that's how a requester correlates the reply (spec.md §6,
// every router-generated IQ response echoes the request id).
func (iq IQ) Result() IQ {
	return IQ{
		ID:   iq.ID,
		To:   iq.From,
		From: iq.To,
		Type: ResultIQ,
	}
}

// ErrorReply builds the ErrorIQ addressing for a reply to iq; the caller
// pairs it with the Error payload (the router embeds it in a composite
// struct alongside a stanza.Error).
func (iq IQ) ErrorReply() IQ {
	return IQ{
		ID:   iq.ID,
		To:   iq.From,
		From: iq.To,
		Type: ErrorIQ,
	}
}

// NewIQ builds a GetIQ or SetIQ addressed to "to" with a freshly generated id.
func NewIQ(typ IQType, to jid.JID) IQ {
	return IQ{ID: attr.RandomID(), To: to, Type: typ}
}
