// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcbt-project/btcbtd/mining"
)

func TestParseDefaults(t *testing.T) {
	opts, err := Parse([]string{})
	require.NoError(t, err)
	require.Equal(t, 0.00001, opts.BlockMinTxFee)
	require.Equal(t, int32(0), opts.BlockVersion)
	require.False(t, opts.PrintPriority)
}

func TestParseOverrides(t *testing.T) {
	opts, err := Parse([]string{
		"-blockmaxweight", "4000000",
		"-blockmintxfee", "0.0002",
		"-blockversion", "536870912",
		"-printpriority",
	})
	require.NoError(t, err)
	require.Equal(t, int64(4000000), opts.BlockMaxWeight)
	require.Equal(t, 0.0002, opts.BlockMinTxFee)
	require.Equal(t, int32(536870912), opts.BlockVersion)
	require.True(t, opts.PrintPriority)
}

func TestPolicyConvertsFeeRateToWeightScale(t *testing.T) {
	opts := &Options{BlockMinTxFee: 0.00001, BlockMaxWeight: 4000000, PrintPriority: true}
	policy, err := opts.Policy()
	require.NoError(t, err)

	wantRate := int64(1000) / mining.WitnessScaleFactor // 0.00001 BTC = 1000 sat
	require.Equal(t, wantRate, policy.BlockMinFeeRate)
	require.Equal(t, int64(4000000), policy.BlockMaxWeight)
	require.True(t, policy.PrintPriority)
}
