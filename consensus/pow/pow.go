// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow implements the BTCBT proof-of-work difficulty engine: the
// next-work-required dispatcher, the legacy timespan-clamp retarget, the
// ASERT exponential retarget used post-fork, the permitted-transition check
// consulted by block validation, and proof-of-work verification.
//
// All arithmetic here must be bit-exact — any deviation forks the chain —
// so every computation routes through package arith rather than floating
// point or a rounding big-integer library.
package pow

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"

	"github.com/btcbt-project/btcbtd/arith"
	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/consensus/collab"
)

// log is this package's logger. It defaults to disabled; callers wire in a
// real backend with UseLogger, matching the convention used throughout the
// btcd family.
var log btclog.Logger

func init() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

var (
	// ErrAsertAnchorNotFound is returned when the ASERT retarget cannot
	// locate the configured anchor by walking prev pointers from prev.
	ErrAsertAnchorNotFound = errors.New("pow: asert anchor not found")

	// ErrAsertAnchorMismatch is returned when a block is found at the
	// anchor height but its hash does not match the configured anchor.
	ErrAsertAnchorMismatch = errors.New("pow: asert anchor hash mismatch")

	// ErrInvalidTargetTimespan is returned when params.TargetTimespan is
	// not positive.
	ErrInvalidTargetTimespan = errors.New("pow: non-positive target timespan")

	// ErrInvalidBlockInterval is returned when neither BlockInterval nor
	// TargetSpacing is positive for the ASERT retarget.
	ErrInvalidBlockInterval = errors.New("pow: non-positive asert block interval")
)

// NextWorkRequired decides the nbits for the block that will follow prev,
// given the timestamp of the header under construction. The dispatch is
// fork-aware: legacy before the fork, a one-block
// bootstrap easing immediately after, ASERT when an anchor is configured,
// and legacy as the safe fallback otherwise.
func NextWorkRequired(prev collab.BlockIndexNode, newBlockTime int64, params *chaincfg.Params) uint32 {
	if prev == nil {
		return params.PowLimitBits
	}

	if params.ForkBlockHeight <= 0 {
		return legacyNextWork(prev, newBlockTime, params)
	}

	h := prev.Height() + 1
	switch {
	case h <= params.ForkBlockHeight:
		return legacyNextWork(prev, newBlockTime, params)

	case h == params.ForkBlockHeight+1:
		return arith.FromBig(params.PowLimit).GetCompact(false)

	case params.AsertAnchorHeight >= 0 && params.AsertAnchorBits != 0:
		bits, err := asertNextWork(prev, params)
		if err != nil {
			log.Warnf("asert retarget unavailable, falling back to legacy: %v", err)
			return legacyNextWork(prev, newBlockTime, params)
		}
		return bits

	default:
		return legacyNextWork(prev, newBlockTime, params)
	}
}

// legacyNextWork implements the pre-fork (and no-anchor-fallback) retarget:
// no-op on no-retargeting networks, inheritance off a period boundary (with
// the allow-min-difficulty escape hatch), and CalculateNextWorkRequired at a
// boundary.
func legacyNextWork(prev collab.BlockIndexNode, newBlockTime int64, params *chaincfg.Params) uint32 {
	if params.PoWNoRetargeting {
		return prev.Bits()
	}

	interval := params.DifficultyAdjustmentInterval()
	height := prev.Height() + 1

	if int64(height)%interval != 0 {
		if params.AllowMinDifficultyBlocks {
			if newBlockTime > prev.BlockTime()+2*params.TargetSpacing {
				return arith.FromBig(params.PowLimit).GetCompact(false)
			}

			node := prev
			for node.Prev() != nil &&
				int64(node.Height())%interval != 0 &&
				node.Bits() == params.PowLimitBits {
				node = node.Prev()
			}
			return node.Bits()
		}
		return prev.Bits()
	}

	first := prev
	for i := int64(0); i < interval-1 && first.Prev() != nil; i++ {
		first = first.Prev()
	}
	return CalculateNextWorkRequired(prev, first.BlockTime(), params)
}

// CalculateNextWorkRequired computes the legacy timespan-clamp retarget at a
// period boundary: the actual elapsed time across the window is clamped to
// [timespan/4, timespan*4], and the previous target is scaled by
// actual/timespan and re-clamped to pow_limit.
func CalculateNextWorkRequired(prev collab.BlockIndexNode, firstBlockTime int64, params *chaincfg.Params) uint32 {
	if params.PoWNoRetargeting {
		return prev.Bits()
	}

	actualTimespan := prev.BlockTime() - firstBlockTime
	minTimespan := params.TargetTimespan / 4
	maxTimespan := params.TargetTimespan * 4
	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}

	target := arith.New()
	if neg, overflow := target.SetCompact(prev.Bits()); neg || overflow || target.IsZero() {
		target = arith.FromBig(params.PowLimit)
	}

	target.MulInt64(actualTimespan)
	target.DivInt64(params.TargetTimespan)
	target.Clamp(arith.FromBig(params.PowLimit))

	return target.GetCompact(false)
}

// asertNextWork implements the height/time-anchored integer approximation of
// an exponential retarget. It is NOT the canonical BCH ASERT formula and
// must not be "upgraded" to it: the approximation is consensus and any
// deviation forks the chain.
func asertNextWork(prev collab.BlockIndexNode, params *chaincfg.Params) (uint32, error) {
	anchor := prev
	for anchor != nil && anchor.Height() != params.AsertAnchorHeight {
		anchor = anchor.Prev()
	}
	if anchor == nil {
		return 0, ErrAsertAnchorNotFound
	}
	if anchor.BlockHash() != params.AsertAnchorHash {
		return 0, ErrAsertAnchorMismatch
	}

	t := params.BlockInterval
	if t <= 0 {
		t = params.TargetSpacing
	}
	if t <= 0 {
		return 0, ErrInvalidBlockInterval
	}

	timeDiff := prev.BlockTime() - anchor.BlockTime()
	heightDiff := int64(prev.Height()) - int64(anchor.Height())
	offset := timeDiff - heightDiff*t

	target := arith.New()
	if neg, overflow := target.SetCompact(params.AsertAnchorBits); neg || overflow {
		return 0, errors.New("pow: invalid asert anchor bits")
	}

	exp := offset * 65536 / t
	shift, frac := floorDivMod(exp, 65536)

	if shift >= 0 {
		target.Lsh(uint(shift))
	} else {
		target.Rsh(uint(-shift))
	}

	target.MulInt64(10000 + frac*10000/65536)
	target.DivInt64(10000)
	target.Clamp(arith.FromBig(params.PowLimit))

	return target.GetCompact(false), nil
}

// floorDivMod returns the floored quotient and the corresponding
// non-negative remainder of a/b for positive b, i.e. q*b+r == a with
// 0 <= r < b. Go's native "/" and "%" truncate toward zero, which gives the
// wrong shift count and a negative fraction for negative exponents.
func floorDivMod(a, b int64) (q, r int64) {
	q = a / b
	r = a % b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}

// PermittedDifficultyTransition reports whether newBits is an acceptable
// retarget from oldBits at height. Post-fork, the policy
// is delegated entirely to the retarget function (accept unconditionally);
// pre-fork, a boundary transition must fall within the legacy clamp window
// and an off-boundary transition must be a no-op.
func PermittedDifficultyTransition(params *chaincfg.Params, height int32, oldBits, newBits uint32) (bool, error) {
	if params.AllowMinDifficultyBlocks {
		return true, nil
	}

	if params.ForkBlockHeight > 0 && height > params.ForkBlockHeight {
		return true, nil
	}

	timespan := params.TargetTimespan
	if timespan <= 0 {
		return false, ErrInvalidTargetTimespan
	}

	interval := params.DifficultyAdjustmentInterval()
	if int64(height)%interval != 0 {
		return oldBits == newBits, nil
	}

	oldTarget := arith.New()
	if neg, overflow := oldTarget.SetCompact(oldBits); neg || overflow {
		return false, nil
	}
	newTarget := arith.New()
	if neg, overflow := newTarget.SetCompact(newBits); neg || overflow {
		return false, nil
	}

	minTimespan := timespan / 4
	maxTimespan := timespan * 4

	powLimit := arith.FromBig(params.PowLimit)
	lower := arith.New().Set(oldTarget).MulInt64(minTimespan).DivInt64(timespan)
	lower.Clamp(powLimit)
	upper := arith.New().Set(oldTarget).MulInt64(maxTimespan).DivInt64(timespan)
	upper.Clamp(powLimit)

	return newTarget.Cmp(lower) >= 0 && newTarget.Cmp(upper) <= 0, nil
}

// CheckProofOfWork reports whether hash, interpreted as a little-endian
// 256-bit unsigned integer, satisfies the target encoded by nbits: the
// target must decode without a negative or overflow flag, must not exceed
// pow_limit, and hash must be at most the target.
func CheckProofOfWork(hash chainhash.Hash, nbits uint32, params *chaincfg.Params) bool {
	target := arith.New()
	neg, overflow := target.SetCompact(nbits)
	if neg || overflow || target.IsZero() {
		return false
	}
	if target.Cmp(arith.FromBig(params.PowLimit)) > 0 {
		return false
	}

	hashNum := arith.New().SetBytesLE(hash[:])
	return hashNum.Cmp(target) <= 0
}
