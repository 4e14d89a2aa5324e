// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcbt-project/btcbtd/chaincfg"
)

func testParams() *chaincfg.Params {
	p := chaincfg.MainNetParams
	return &p
}

func TestAdaptiveMaxBlockWeightRegtestAlwaysHardCap(t *testing.T) {
	p := chaincfg.RegressionNetParams
	require.Equal(t, int64(MaxBlockWeight), AdaptiveMaxBlockWeight(0, 1, &p))
	require.Equal(t, int64(MaxBlockWeight), AdaptiveMaxBlockWeight(1_000_000, 500, &p))
}

func TestAdaptiveMaxBlockWeightBounds(t *testing.T) {
	p := testParams()

	// With MaxBlockWeight as the binding hard cap, the low and high bounds
	// coincide and every mempool size maps to the cap itself, before and
	// after the fork. The interpolation only opens up if the hard weight
	// ceiling is ever lifted.
	for _, count := range []int{0, 10, 50_000, 1_000_000} {
		assert.Equal(t, int64(MaxBlockWeight), AdaptiveMaxBlockWeight(count, 1, p))
		assert.Equal(t, int64(MaxBlockWeight), AdaptiveMaxBlockWeight(count, p.ForkBlockHeight, p))
	}

	// A params-imposed serialized-size ceiling below MaxBlockWeight becomes
	// the binding cap instead.
	small := *p
	small.MaxBlockSize = 2_000_000
	assert.Equal(t, int64(2_000_000), AdaptiveMaxBlockWeight(10, 1, &small))
	assert.Equal(t, int64(2_000_000), AdaptiveMaxBlockWeight(1_000_000, 1, &small))
}

func TestClampBlockMaxWeight(t *testing.T) {
	p := testParams()
	assert.Equal(t, int64(4000), ClampBlockMaxWeight(100, p, MaxBlockWeight))
	assert.Equal(t, int64(MaxBlockWeight), ClampBlockMaxWeight(MaxBlockWeight+1, p, MaxBlockWeight))
	assert.Equal(t, int64(1_000_000), ClampBlockMaxWeight(1_000_000, p, MaxBlockWeight))

	rp := chaincfg.RegressionNetParams
	assert.Equal(t, int64(MaxBlockWeight), ClampBlockMaxWeight(500, &rp, MaxBlockWeight))
}

func TestSigOpsLimit(t *testing.T) {
	p := testParams()
	assert.Equal(t, int64(MaxBlockSigOpsCost), sigOpsLimit(1, p))
	assert.Equal(t, p.MaxBlockSigOpsCost, sigOpsLimit(p.ForkBlockHeight, p))
}
