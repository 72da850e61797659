// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"time"

	"mellium.im/xmlstream"

	"kontalk.im/resolver/internal/ns"
	"kontalk.im/resolver/jid"
)

// Delay marks a stanza as having been generated or redelivered later than it
// was originally produced. A Presence carries one as received from a peer;
// presence.Merge compares Delay stamps when choosing between duplicate
// observations. The router does not add one to the replies it synthesizes.
type Delay struct {
	From   jid.JID
	Stamp  time.Time
	Reason string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (d Delay) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(xmlstream.Token(xml.CharData(d.Reason)), xml.StartElement{
		Name: xml.Name{Space: ns.Delay, Local: "delay"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "from"}, Value: d.From.String()},
			{Name: xml.Name{Local: "stamp"}, Value: d.Stamp.UTC().Format(time.RFC3339Nano)},
		},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (d Delay) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, d.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (d Delay) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := d.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (d *Delay) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var err error
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "from":
			d.From, err = jid.Parse(a.Value)
			if err != nil {
				return err
			}
		case "stamp":
			d.Stamp, err = time.Parse(time.RFC3339Nano, a.Value)
			if err != nil {
				return err
			}
		}
	}
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case xml.EndElement:
		return nil
	case xml.CharData:
		d.Reason = string(t)
	case xml.StartElement:
		if err := dec.Skip(); err != nil {
			return err
		}
	}
	return dec.Skip()
}
