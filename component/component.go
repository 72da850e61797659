// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package component establishes and drives the resolver's XEP-0114 Jabber
// Component Protocol connection to the central router: the SHA-1 handshake
// negotiation, and the read loop that decodes inbound stanzas for the
// Stanza Router.
package component // import "kontalk.im/resolver/component"

import (
	"crypto/sha1"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"kontalk.im/resolver/internal/ns"
	"kontalk.im/resolver/jid"
)

// ErrNotAuthorized is returned when the router rejects the handshake.
var ErrNotAuthorized = errors.New("component: handshake rejected by router")

// ErrUnexpectedStream is returned when the router's opening stream header
// is malformed or missing a stream ID.
var ErrUnexpectedStream = errors.New("component: unexpected or malformed stream header from router")

// Conn wraps an established, but not yet negotiated, connection to the
// central router and the decoder/encoder pair used to drive it after
// Negotiate succeeds.
type Conn struct {
	rw  io.ReadWriter
	dec *xml.Decoder
}

// NewConn wraps rw for use with Negotiate.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, dec: xml.NewDecoder(rw)}
}

// Negotiate performs the XEP-0114 handshake as the initiating (component)
// side: send the opening stream header addressed to addr, read the
// router's stream header and extract its stream ID, then send
// sha1(id+secret) as the handshake digest and wait for the router's
// acknowledgement.
func (c *Conn) Negotiate(addr jid.JID, secret []byte) error {
	_, err := fmt.Fprintf(c.rw, "<stream:stream xmlns='%s' xmlns:stream='%s' to='%s'>", ns.ComponentAccept, ns.Stream, addr)
	if err != nil {
		return err
	}

	start, err := c.nextStreamHeader()
	if err != nil {
		return err
	}
	id := attrValue(start, "id")
	if id == "" {
		return ErrUnexpectedStream
	}

	h := sha1.New()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write(secret)
	if _, err = fmt.Fprintf(c.rw, "<handshake>%x</handshake>", h.Sum(nil)); err != nil {
		return err
	}

	tok, err := c.dec.Token()
	if err != nil {
		return err
	}
	reply, ok := tok.(xml.StartElement)
	if !ok {
		return ErrUnexpectedStream
	}
	switch reply.Name.Local {
	case "handshake":
		return c.dec.Skip()
	case "error":
		return ErrNotAuthorized
	default:
		return fmt.Errorf("component: unexpected start element %q from router", reply.Name.Local)
	}
}

// nextStreamHeader skips any leading processing instruction and returns the
// opening stream:stream start element, validating its name and namespace.
func (c *Conn) nextStreamHeader() (xml.StartElement, error) {
	foundProc := false
	for {
		tok, err := c.dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.ProcInst:
			if foundProc {
				return xml.StartElement{}, ErrUnexpectedStream
			}
			foundProc = true
		case xml.StartElement:
			if t.Name.Local != "stream" || t.Name.Space != ns.Stream {
				return xml.StartElement{}, ErrUnexpectedStream
			}
			return t, nil
		default:
			return xml.StartElement{}, ErrUnexpectedStream
		}
	}
}

func attrValue(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// Decoder returns the decoder positioned just after the negotiated stream
// header, ready to read the stream's stanza tokens.
func (c *Conn) Decoder() *xml.Decoder {
	return c.dec
}

// Encoder returns a fresh encoder writing to the connection's underlying
// writer, for marshaling outbound stanzas.
func (c *Conn) Encoder() *xml.Encoder {
	return xml.NewEncoder(c.rw)
}
