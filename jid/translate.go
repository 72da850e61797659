// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package jid

// TranslateToNetwork maps a host-scoped identifier (user@servername) to its
// network-scoped form (user@network). Identifiers on any other domain are
// returned unchanged. The operation is pure, total, and idempotent.
func TranslateToNetwork(j JID, servername, network string) JID {
	if j.Domain == servername {
		j.Domain = network
	}
	return j
}

// TranslateToServer is the dual of TranslateToNetwork, mapping
// user@network to user@servername.
func TranslateToServer(j JID, servername, network string) JID {
	if j.Domain == network {
		j.Domain = servername
	}
	return j
}
