// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

// Package jid implements XMPP addresses (historically called "Jabber ID"s, or
// JIDs) as described in RFC 7622: a triple of localpart, domainpart, and an
// optional resourcepart.
//
// A JID with no resourcepart is "bare"; one with a resourcepart is "full".
// The resolver never needs more than one concrete representation of a JID
// (the teacher module's Safe/Unsafe/Prepared split exists for a much larger
// surface of use cases than this package has), so this package keeps a
// single value type and always normalizes on construction.
package jid // import "kontalk.im/resolver/jid"

import (
	"encoding/xml"
	"errors"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/precis"
)

// Errors returned while parsing or constructing a JID.
var (
	ErrEmptyLocal   = errors.New("jid: localpart must be larger than 0 bytes")
	ErrEmptyDomain  = errors.New("jid: domainpart must be larger than 0 bytes")
	ErrLongPart     = errors.New("jid: a JID part is longer than 1023 bytes")
	ErrIllegalLocal = errors.New("jid: localpart contains forbidden characters")
)

// JID is an XMPP address in canonical form.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// New builds a JID from its three parts, normalizing and validating each.
func New(local, domain, resource string) (JID, error) {
	var err error
	if local != "" {
		local, err = precis.UsernameCaseMapped.String(local)
		if err != nil {
			return JID{}, err
		}
		if strings.ContainsAny(local, "\"&'/:<>@") {
			return JID{}, ErrIllegalLocal
		}
	}
	domain, err = idna.ToUnicode(domain)
	if err != nil {
		return JID{}, err
	}
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" {
		return JID{}, ErrEmptyDomain
	}
	if resource != "" {
		resource, err = precis.OpaqueString.String(resource)
		if err != nil {
			return JID{}, err
		}
	}
	if len(local) > 1023 || len(domain) > 1023 || len(resource) > 1023 {
		return JID{}, ErrLongPart
	}
	return JID{Local: local, Domain: domain, Resource: resource}, nil
}

// Parse splits s into localpart, domainpart, and resourcepart following
// RFC 7622 §3.1's separator rules, then builds a normalized JID.
func Parse(s string) (JID, error) {
	local, domain, resource, err := split(s)
	if err != nil {
		return JID{}, err
	}
	return New(local, domain, resource)
}

// MustParse is like Parse but panics on error. Useful for static addresses
// known to be valid (servername, network) at startup.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}

func split(s string) (local, domain, resource string, err error) {
	parts := strings.SplitAfterN(s, "/", 2)
	if strings.HasSuffix(parts[0], "/") {
		if len(parts) == 2 && parts[1] != "" {
			resource = parts[1]
		} else {
			return "", "", "", errors.New("jid: resourcepart must be larger than 0 bytes")
		}
	}
	noResource := strings.TrimSuffix(parts[0], "/")

	atParts := strings.SplitAfterN(noResource, "@", 2)
	if atParts[0] == "@" {
		return "", "", "", ErrEmptyLocal
	}
	switch len(atParts) {
	case 1:
		domain = atParts[0]
	case 2:
		domain = atParts[1]
		local = strings.TrimSuffix(atParts[0], "@")
	}
	return local, domain, resource, nil
}

// Bare returns a copy of j with the resourcepart removed.
func (j JID) Bare() JID {
	j.Resource = ""
	return j
}

// Full returns a copy of j with the resourcepart set to resource.
func (j JID) Full(resource string) JID {
	j.Resource = resource
	return j
}

// IsBare reports whether j has no resourcepart.
func (j JID) IsBare() bool {
	return j.Resource == ""
}

// IsFull reports whether j has a resourcepart.
func (j JID) IsFull() bool {
	return j.Resource != ""
}

// IsZero reports whether j is the zero value (no domain set).
func (j JID) IsZero() bool {
	return j.Domain == "" && j.Local == ""
}

// Equal reports whether j and other name the same address.
func (j JID) Equal(other JID) bool {
	return j.Local == other.Local && j.Domain == other.Domain && j.Resource == other.Resource
}

// String returns the canonical string form of j, e.g. "user@domain/resource".
func (j JID) String() string {
	var b strings.Builder
	if j.Local != "" {
		b.WriteString(j.Local)
		b.WriteByte('@')
	}
	b.WriteString(j.Domain)
	if j.Resource != "" {
		b.WriteByte('/')
		b.WriteString(j.Resource)
	}
	return b.String()
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		*j = JID{}
		return nil
	}
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}
