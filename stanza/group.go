// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import "encoding/xml"

// Group frames one reply out of a multi-resource presence chain (every
// per-resource presence reply to a probe or roster resolution) so a
// requester can tell how many replies to expect and match them by a shared
// correlation id (spec.md §6). Last-activity replies carry no Group.
type Group struct {
	XMLName xml.Name `xml:"http://kontalk.org/ns/stanza-group group"`
	ID      string   `xml:"id,attr"`
	Index   int      `xml:"index,attr"`
	Count   int      `xml:"count,attr"`
}
