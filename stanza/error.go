// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"golang.org/x/text/language"

	"kontalk.im/resolver/internal/ns"
	"kontalk.im/resolver/jid"
)

type errorType int

const (
	// Cancel indicates that the error cannot be remedied and the operation
	// should not be retried.
	Cancel errorType = iota

	// Auth indicates that an operation should be retried after providing
	// credentials.
	Auth

	// Continue indicates that the operation can proceed (the condition was
	// only a warning).
	Continue

	// Modify indicates that the operation can be retried after changing the
	// data sent.
	Modify

	// Wait indicates that an error is temporary and may be retried.
	Wait
)

func (t errorType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	v := "cancel"
	switch t {
	case Auth:
		v = "auth"
	case Continue:
		v = "continue"
	case Modify:
		v = "modify"
	case Wait:
		v = "wait"
	}
	return xml.Attr{Name: name, Value: v}, nil
}

func (t *errorType) UnmarshalXMLAttr(a xml.Attr) error {
	switch a.Value {
	case "auth":
		*t = Auth
	case "continue":
		*t = Continue
	case "modify":
		*t = Modify
	case "wait":
		*t = Wait
	default: // case "cancel":
		*t = Cancel
	}
	return nil
}

// condition represents a stanza error condition encapsulated by an <error/>
// element.
type condition string

// A subset of the stanza error conditions defined in RFC 6120 §8.3.3. The
// router raises item-not-found, service-unavailable and
// remote-server-timeout; the others are declared but not raised.
const (
	BadRequest           condition = "bad-request"
	FeatureNotImplemented condition = "feature-not-implemented"
	InternalServerError  condition = "internal-server-error"
	ItemNotFound         condition = "item-not-found"
	JIDMalformed         condition = "jid-malformed"
	RecipientUnavailable condition = "recipient-unavailable"
	RemoteServerTimeout  condition = "remote-server-timeout"
	ServiceUnavailable   condition = "service-unavailable"
)

// Error is an implementation of error intended to be marshalable and
// unmarshalable as XML.
type Error struct {
	XMLName   xml.Name
	By        jid.JID
	Type      errorType
	Condition condition
	Lang      language.Tag
	Text      string
}

// Error satisfies the error interface, returning the text if set, or the
// condition otherwise.
func (se Error) Error() string {
	if se.Text != "" {
		return se.Text
	}
	return string(se.Condition)
}

// MarshalXML satisfies the xml.Marshaler interface for Error.
func (se Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) (err error) {
	start := xml.StartElement{Name: xml.Name{Local: "error"}}
	typAttr, _ := se.Type.MarshalXMLAttr(xml.Name{Local: "type"})
	start.Attr = append(start.Attr, typAttr)
	if !se.By.IsZero() {
		a, _ := se.By.MarshalXMLAttr(xml.Name{Local: "by"})
		start.Attr = append(start.Attr, a)
	}
	if err = e.EncodeToken(start); err != nil {
		return err
	}
	cond := xml.StartElement{Name: xml.Name{Space: ns.Stanzas, Local: string(se.Condition)}}
	if err = e.EncodeToken(cond); err != nil {
		return err
	}
	if err = e.EncodeToken(cond.End()); err != nil {
		return err
	}
	if se.Text != "" {
		text := xml.StartElement{
			Name: xml.Name{Space: ns.Stanzas, Local: "text"},
			Attr: []xml.Attr{{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: se.Lang.String()}},
		}
		if err = e.EncodeToken(text); err != nil {
			return err
		}
		if err = e.EncodeToken(xml.CharData(se.Text)); err != nil {
			return err
		}
		if err = e.EncodeToken(text.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for Error.
func (se *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	decoded := struct {
		Condition struct {
			XMLName xml.Name
		} `xml:",any"`
		Type errorType `xml:"type,attr"`
		By   jid.JID   `xml:"by,attr"`
		Text []struct {
			Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Data string `xml:",chardata"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-stanzas text"`
	}{}
	if err := d.DecodeElement(&decoded, &start); err != nil {
		return err
	}
	se.Type = decoded.Type
	se.By = decoded.By
	if decoded.Condition.XMLName.Space == ns.Stanzas {
		se.Condition = condition(decoded.Condition.XMLName.Local)
	}

	tags := make([]language.Tag, 0, len(decoded.Text))
	data := make(map[language.Tag]string)
	for _, text := range decoded.Text {
		tag, err := language.Parse(text.Lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		data[tag] = text.Data
	}
	tag, _, _ := language.NewMatcher(tags).Match(se.Lang)
	se.Lang = tag
	se.Text = data[tag]
	return nil
}
