// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"kontalk.im/resolver/metrics"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	m := metrics.New()
	m.CacheSize.Set(3)
	m.LookupsStarted.Inc()
	m.ProbesSent.WithLabelValues("beta.kontalk.net").Inc()

	require.Equal(t, float64(3), testutil.ToFloat64(m.CacheSize))
	require.Equal(t, float64(1), testutil.ToFloat64(m.LookupsStarted))

	gathered, err := m.Registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, gathered)
}
