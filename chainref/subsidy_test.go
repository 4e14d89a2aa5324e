// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btcbt-project/btcbtd/chaincfg"
)

func subsidyTestParams() *chaincfg.Params {
	p := chaincfg.MainNetParams
	p.SubsidyHalvingInterval = 100
	p.BaseSubsidy = 50 * 1e8
	p.ForkBlockHeight = 1000
	p.HalvingInterval = 200
	p.PostForkBaseSubsidy = 25 * 1e8
	p.ForkActivationSubsidy = 625 * 1e8
	return &p
}

func TestBlockSubsidyPreFork(t *testing.T) {
	p := subsidyTestParams()
	assert.Equal(t, p.BaseSubsidy, BlockSubsidy(0, p))
	assert.Equal(t, p.BaseSubsidy, BlockSubsidy(99, p))
	assert.Equal(t, p.BaseSubsidy/2, BlockSubsidy(100, p))
	assert.Equal(t, p.BaseSubsidy/4, BlockSubsidy(200, p))
}

func TestBlockSubsidyForkActivation(t *testing.T) {
	p := subsidyTestParams()
	assert.Equal(t, p.ForkActivationSubsidy, BlockSubsidy(p.ForkBlockHeight, p))
	assert.Equal(t, p.PostForkBaseSubsidy, BlockSubsidy(p.ForkBlockHeight+1, p))
	assert.Equal(t, p.PostForkBaseSubsidy/2, BlockSubsidy(p.ForkBlockHeight+p.HalvingInterval, p))
}

func TestBlockSubsidyZeroPastMaxHalvings(t *testing.T) {
	p := subsidyTestParams()
	p.ForkBlockHeight = 0
	assert.Equal(t, int64(0), BlockSubsidy(p.SubsidyHalvingInterval*64, p))
}
