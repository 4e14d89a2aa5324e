// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import "github.com/btcbt-project/btcbtd/chaincfg"

// maxHalvings bounds the halving loop: past this many halvings, the
// subsidy shift would be undefined behavior in Bitcoin Core's own C++
// (shifting a 64-bit value by more than 63 bits), so it is simply zero.
const maxHalvings = 64

// BlockSubsidy computes the block reward at height for params: pre-fork
// blocks halve BaseSubsidy every
// SubsidyHalvingInterval blocks; the fork-activation block at
// ForkBlockHeight pays the fixed ForkActivationSubsidy instead of a halved
// amount; every block after it halves PostForkBaseSubsidy every
// HalvingInterval blocks counted from the activation height.
func BlockSubsidy(height int32, params *chaincfg.Params) int64 {
	if params.ForkBlockHeight > 0 && height >= params.ForkBlockHeight {
		if height == params.ForkBlockHeight {
			return params.ForkActivationSubsidy
		}
		return halvedSubsidy(params.PostForkBaseSubsidy, height-params.ForkBlockHeight, params.HalvingInterval)
	}
	return halvedSubsidy(params.BaseSubsidy, height, params.SubsidyHalvingInterval)
}

func halvedSubsidy(base int64, height, interval int32) int64 {
	if interval <= 0 {
		return base
	}
	halvings := height / interval
	if halvings >= maxHalvings {
		return 0
	}
	return base >> uint(halvings)
}
