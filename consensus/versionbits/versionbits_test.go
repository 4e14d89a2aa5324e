// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package versionbits

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/consensus/collab"
)

type fakeNode struct {
	height  int32
	version int32
	mtp     int64
	prev    *fakeNode
}

func (n *fakeNode) Height() int32    { return n.height }
func (n *fakeNode) Version() int32   { return n.version }
func (n *fakeNode) BlockTime() int64 { return n.mtp }
func (n *fakeNode) MedianTimePast() int64 {
	return n.mtp
}
func (n *fakeNode) Bits() uint32             { return 0 }
func (n *fakeNode) BlockHash() chainhash.Hash { return chainhash.Hash{} }
func (n *fakeNode) Prev() collab.BlockIndexNode {
	if n.prev == nil {
		return nil
	}
	return n.prev
}

// buildChain constructs a linear chain of n blocks (height 0..n-1). version
// is applied to every block; mtpAt customizes median-time-past per height
// (defaulting to a steady 600 seconds per block otherwise).
func buildChain(n int32, version int32, mtpAt func(height int32) int64) *fakeNode {
	var tip *fakeNode
	for h := int32(0); h < n; h++ {
		var mtp int64
		if mtpAt != nil {
			mtp = mtpAt(h)
		} else {
			mtp = int64(h) * 600
		}
		tip = &fakeNode{height: h, version: version, mtp: mtp, prev: tip}
	}
	return tip
}

func testParamsWithDeployment(bit uint8, start, timeout int64) *chaincfg.Params {
	p := chaincfg.RegressionNetParams
	p.MinerConfirmationWindow = 100
	p.RuleChangeActivationThreshold = 75
	p.Deployments[chaincfg.DeploymentTestDummy] = chaincfg.ConsensusDeployment{
		BitNumber: bit,
		StartTime: start,
		Timeout:   timeout,
	}
	return &p
}

// TestNeverActiveAlwaysFailed exercises the NEVER_ACTIVE sentinel.
func TestNeverActiveAlwaysFailed(t *testing.T) {
	params := testParamsWithDeployment(1, chaincfg.NeverActive, chaincfg.NoTimeout)
	cache := NewCache()

	prev := buildChain(300, 0, nil)
	state, err := cache.State(prev, params, chaincfg.DeploymentTestDummy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != ThresholdFailed {
		t.Fatalf("state = %v, want failed", state)
	}
}

// TestAlwaysActive exercises the ALWAYS_ACTIVE sentinel: the deployment is
// Active at every height without any block actually setting the bit.
func TestAlwaysActive(t *testing.T) {
	params := testParamsWithDeployment(1, chaincfg.AlwaysActive, chaincfg.NoTimeout)
	cache := NewCache()

	for _, n := range []int32{1, 50, int32(params.MinerConfirmationWindow) * 3} {
		// version 0: no bits set anywhere.
		prev := buildChain(n, 0, nil)
		state, err := cache.State(prev, params, chaincfg.DeploymentTestDummy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != ThresholdActive {
			t.Fatalf("state at height %d = %v, want active", n, state)
		}
	}
}

// TestLockInRequiresThreshold exercises Defined -> Started -> LockedIn: a
// Started period in which exactly threshold blocks signal moves the
// deployment to LockedIn for the period that follows it.
func TestLockInRequiresThreshold(t *testing.T) {
	const window = 100
	const threshold = 75
	const bit = 3
	const signalVersion = int32(topBits | (1 << bit))

	params := testParamsWithDeployment(bit, 500, chaincfg.NoTimeout)
	params.MinerConfirmationWindow = window
	params.RuleChangeActivationThreshold = threshold

	// Build three periods: period 0 ([0,99]) has mtp<500, so period 1
	// ([100,199]) is still Defined; period 1 ends with mtp>=500, so period 2
	// ([200,299]) is Started (no signalling needed to start); period 2
	// signals exactly threshold times, so the block after the tip reads back
	// LockedIn.
	mtpAt := func(h int32) int64 {
		if h < window {
			return 0 // before start_time
		}
		return 1000 // at/after start_time for every later period
	}

	var tip *fakeNode
	for h := int32(0); h < window*3; h++ {
		v := int32(0)
		if h >= 2*window {
			// third period: exactly `threshold` blocks signal.
			if h-2*window < threshold {
				v = signalVersion
			}
		}
		tip = &fakeNode{height: h, version: v, mtp: mtpAt(h), prev: tip}
	}

	cache := NewCache()
	state, err := cache.State(tip, params, chaincfg.DeploymentTestDummy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != ThresholdLockedIn {
		t.Fatalf("state after signalling period = %v, want locked_in", state)
	}
}

// TestTimeoutFailsWithoutLockIn exercises Started -> Failed.
func TestTimeoutFailsWithoutLockIn(t *testing.T) {
	const window = 100
	params := testParamsWithDeployment(5, 0, 1000)
	params.MinerConfirmationWindow = window
	params.RuleChangeActivationThreshold = 75

	mtpAt := func(h int32) int64 {
		if h < window {
			return 500 // started, no signalling
		}
		return 2000 // timed out
	}
	prev := buildChain(window*2, 0, mtpAt)

	cache := NewCache()
	state, err := cache.State(prev, params, chaincfg.DeploymentTestDummy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != ThresholdFailed {
		t.Fatalf("state = %v, want failed", state)
	}
}

func TestComputeBlockVersionSetsStartedBits(t *testing.T) {
	params := testParamsWithDeployment(10, 0, chaincfg.NoTimeout)
	params.MinerConfirmationWindow = 100
	params.RuleChangeActivationThreshold = 75

	prev := buildChain(150, 0, func(h int32) int64 { return 1000 })

	cache := NewCache()
	version, err := cache.ComputeBlockVersion(prev, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version&topBits != topBits {
		t.Fatalf("expected top bits set in %#x", version)
	}
	if version&(1<<10) == 0 {
		t.Fatalf("expected bit 10 set for started deployment, got %#x", version)
	}
}

func TestMask(t *testing.T) {
	params := testParamsWithDeployment(7, chaincfg.AlwaysActive, chaincfg.NoTimeout)
	if got := Mask(params, chaincfg.DeploymentTestDummy); got != 1<<7 {
		t.Fatalf("Mask() = %#x, want %#x", got, 1<<7)
	}
}
