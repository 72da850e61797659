// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package component_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/component"
	"kontalk.im/resolver/jid"
	"kontalk.im/resolver/presence"
	"kontalk.im/resolver/router"
	"kontalk.im/resolver/subscription"
)

func TestRunDecodesAndRoutesUntilEOF(t *testing.T) {
	input := `<presence from='alice@kontalk.net/phone'/>` +
		`<iq id='v1' type='get' to='kontalk.net'><query xmlns='jabber:iq:version'/></iq>`
	lb := &loopback{r: bytes.NewReader([]byte(input))}
	conn := component.NewConn(lb)

	cache := presence.NewCache()
	subs := subscription.NewRegistry("prime.kontalk.net", "kontalk.net")
	rt := router.New("prime.kontalk.net", "kontalk.net", cache, subs, nil, nil, nil)
	rt.VersionName = "resolver"
	rt.VersionVersion = "1.0"

	w := component.NewWriter(conn)
	err := component.Run(context.Background(), conn, w, rt)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, w.Close())
	require.True(t, cache.IsAvailable(jid.MustParse("alice@kontalk.net/phone")))
	require.Contains(t, lb.w.String(), "jabber:iq:version")
}
