// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package component

import (
	"context"
	"encoding/xml"

	"github.com/sirupsen/logrus"

	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/router"
	"kontalk.im/resolver/stanza"
)

// auxIQ decodes an inbound IQ and, in the same pass, whichever one of the
// three query payloads the resolver understands is present as a child
// element — the component layer's only demultiplexing responsibility,
// leaving classification of what to do with the result to the router.
type auxIQ struct {
	XMLName xml.Name                  `xml:"iq"`
	ID      string                    `xml:"id,attr"`
	To      jid.JID                   `xml:"to,attr"`
	From    jid.JID                   `xml:"from,attr"`
	Type    stanza.IQType             `xml:"type,attr"`
	Roster  *router.RosterQuery       `xml:"jabber:iq:roster query"`
	Last    *router.LastActivityQuery `xml:"jabber:iq:last query"`
	Version *router.VersionQuery      `xml:"jabber:iq:version query"`
}

func decodeIQ(dec *xml.Decoder, start xml.StartElement) (router.InboundIQ, error) {
	var aux auxIQ
	if err := dec.DecodeElement(&aux, &start); err != nil {
		return router.InboundIQ{}, err
	}
	in := router.InboundIQ{IQ: stanza.IQ{
		ID:   aux.ID,
		To:   aux.To,
		From: aux.From,
		Type: aux.Type,
	}}
	switch {
	case aux.Roster != nil:
		in.Body = aux.Roster
	case aux.Last != nil:
		in.Body = aux.Last
	case aux.Version != nil:
		in.Body = aux.Version
	}
	return in, nil
}

// Run drives the negotiated connection's read loop: it decodes every
// top-level stanza the router sends, dispatches it to rt, and hands
// whatever stanza(s) the router produces to w for serialization. Run
// returns (nearly always due to a read error) when the stream should be
// considered broken; the caller is responsible for reconnecting.
func Run(ctx context.Context, conn *Conn, w *Writer, rt *router.Router) error {
	dec := conn.Decoder()

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		var out []any
		var rerr error
		switch start.Name.Local {
		case "presence":
			var p stanza.Presence
			if err := dec.DecodeElement(&p, &start); err != nil {
				return err
			}
			if rt.Lookup != nil && rt.Lookup.ClaimedProbe(p.ID) {
				// A reply chain to a probe the Lookup Engine itself sent out:
				// consumed there, never reaches the Stanza Router (spec.md §4.4).
				if p.Type == stanza.ErrorPresence {
					rt.Lookup.HandleProbeError(p.ID)
				} else {
					rt.Lookup.HandleProbeReply(p.ID, p)
				}
				continue
			}
			out, rerr = rt.RoutePresence(ctx, p)
		case "message":
			var m stanza.Message
			if err := dec.DecodeElement(&m, &start); err != nil {
				return err
			}
			out, rerr = rt.RouteMessage(m)
		case "iq":
			in, err := decodeIQ(dec, start)
			if err != nil {
				return err
			}
			if last, ok := in.Body.(*router.LastActivityQuery); ok && in.IQ.Type == stanza.ResultIQ &&
				rt.Lookup != nil && rt.Lookup.ClaimedLast(in.IQ.ID) {
				rt.Lookup.HandleLastActivityReply(in.IQ.ID, last.Seconds, in.IQ.From)
				continue
			}
			out, rerr = rt.RouteIQ(ctx, in)
			if rerr == nil && in.IQ.Type == stanza.ResultIQ {
				// RouteIQ answers nothing for a result; it is forwarded here
				// with whichever known query payload it carried.
				fwd := router.ForwardedIQ{IQ: in.IQ}
				switch b := in.Body.(type) {
				case *router.RosterQuery:
					fwd.Roster = b
				case *router.LastActivityQuery:
					fwd.Last = b
				case *router.VersionQuery:
					fwd.Version = b
				}
				out = []any{fwd}
			}
		default:
			if err := dec.Skip(); err != nil {
				return err
			}
			continue
		}
		if rerr != nil {
			logrus.WithError(rerr).WithField("element", start.Name.Local).Warn("component: router returned an error")
			continue
		}

		for _, item := range out {
			w.Send(item)
		}
	}
}
