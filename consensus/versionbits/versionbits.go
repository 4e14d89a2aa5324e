// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package versionbits implements the BIP9-style threshold finite-state
// machine used to activate consensus deployments: per-deployment state
// memoized at period boundaries, block-version composition, and the
// unknown-rule warning detector.
package versionbits

import (
	"errors"
	"sync"

	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/consensus/collab"
)

// ThresholdState is a node in the BIP9 deployment state machine.
type ThresholdState int

const (
	// ThresholdDefined is the starting state for every deployment; the
	// genesis block is, by definition, in this state.
	ThresholdDefined ThresholdState = iota

	// ThresholdStarted is reached once a period's parent block's
	// median-time-past is at or past the deployment's start time.
	ThresholdStarted

	// ThresholdLockedIn is reached once a STARTED period accumulates at
	// least threshold signalling blocks; it lasts until min_activation_height
	// is reached.
	ThresholdLockedIn

	// ThresholdActive is the final state reached after a LOCKED_IN period.
	ThresholdActive

	// ThresholdFailed is the final state reached when a period's timeout
	// passes without having locked in.
	ThresholdFailed
)

// String implements fmt.Stringer.
func (s ThresholdState) String() string {
	switch s {
	case ThresholdDefined:
		return "defined"
	case ThresholdStarted:
		return "started"
	case ThresholdLockedIn:
		return "locked_in"
	case ThresholdActive:
		return "active"
	case ThresholdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// legacyBlockVersion is the highest block version used before
	// versionbits signalling.
	legacyBlockVersion = 4

	// topBits/topMask mark and detect the versionbits signalling scheme in
	// a block's version field.
	topBits = 0x20000000
	topMask = 0xe0000000

	// numBits is the number of bits usable for deployment signalling.
	numBits = 29
)

// ErrInvalidPeriod is returned when a checker reports a non-positive period.
var ErrInvalidPeriod = errors.New("versionbits: non-positive period")

// Cache maps a period-boundary ancestor node to its computed threshold
// state. A nil key stands for the state attributed to (and rooted at)
// genesis. Cache entries are only ever added; reorgs below a cached
// boundary are not possible since boundaries are keyed by block identity,
// not height alone.
type Cache map[collab.BlockIndexNode]ThresholdState

// conditionChecker abstracts over the deployment or warning-bit condition
// under evaluation.
type conditionChecker interface {
	alwaysActive() bool
	neverActive() bool
	hasStarted(node collab.BlockIndexNode) bool
	hasEnded(node collab.BlockIndexNode) bool
	threshold() uint32
	period() uint32
	minActivationHeight() int32
	condition(node collab.BlockIndexNode) (bool, error)
}

// deploymentChecker tests one named consensus deployment.
type deploymentChecker struct {
	deployment *chaincfg.ConsensusDeployment
	params     *chaincfg.Params
}

func (c deploymentChecker) alwaysActive() bool {
	return c.deployment.StartTime == chaincfg.AlwaysActive
}

func (c deploymentChecker) neverActive() bool {
	return c.deployment.StartTime == chaincfg.NeverActive
}

func (c deploymentChecker) hasStarted(node collab.BlockIndexNode) bool {
	return node.MedianTimePast() >= c.deployment.StartTime
}

func (c deploymentChecker) hasEnded(node collab.BlockIndexNode) bool {
	if c.deployment.Timeout == chaincfg.NoTimeout {
		return false
	}
	return node.MedianTimePast() >= c.deployment.Timeout
}

func (c deploymentChecker) threshold() uint32 {
	if c.deployment.CustomActivationThreshold != 0 {
		return c.deployment.CustomActivationThreshold
	}
	return c.params.RuleChangeActivationThreshold
}

func (c deploymentChecker) period() uint32 {
	return c.params.MinerConfirmationWindow
}

func (c deploymentChecker) minActivationHeight() int32 {
	return int32(c.deployment.MinActivationHeight)
}

func (c deploymentChecker) condition(node collab.BlockIndexNode) (bool, error) {
	mask := uint32(1) << c.deployment.BitNumber
	version := uint32(node.Version())
	return version&topMask == topBits && version&mask != 0, nil
}

// bitConditionChecker tests whether an arbitrary bit is set when it is not
// known to correspond to any defined deployment, for the unknown-rule
// warning detector. Blocks below Params.MinBIP9WarningHeight never count.
type bitConditionChecker struct {
	bit    uint8
	params *chaincfg.Params
}

func (c bitConditionChecker) alwaysActive() bool                      { return false }
func (c bitConditionChecker) neverActive() bool                       { return false }
func (c bitConditionChecker) hasStarted(_ collab.BlockIndexNode) bool { return true }
func (c bitConditionChecker) hasEnded(_ collab.BlockIndexNode) bool   { return false }
func (c bitConditionChecker) threshold() uint32                       { return c.params.RuleChangeActivationThreshold }
func (c bitConditionChecker) period() uint32                          { return c.params.MinerConfirmationWindow }
func (c bitConditionChecker) minActivationHeight() int32              { return 0 }

func (c bitConditionChecker) condition(node collab.BlockIndexNode) (bool, error) {
	if node.Height() < c.params.MinBIP9WarningHeight {
		return false, nil
	}
	for i := range c.params.Deployments {
		if c.params.Deployments[i].BitNumber == c.bit {
			return false, nil
		}
	}
	mask := uint32(1) << c.bit
	version := uint32(node.Version())
	return version&topMask == topBits && version&mask != 0, nil
}

// ancestorAtHeight walks node's Prev chain back to the given height, which
// must not exceed node.Height().
func ancestorAtHeight(node collab.BlockIndexNode, height int32) collab.BlockIndexNode {
	for node != nil && node.Height() > height {
		node = node.Prev()
	}
	return node
}

// getStateFor computes the threshold state for the block that would follow
// prevNode, for the deployment/condition described by checker, filling
// cache as it recurses back through prior periods.
func getStateFor(checker conditionChecker, prevNode collab.BlockIndexNode, cache Cache) (ThresholdState, error) {
	if checker.alwaysActive() {
		return ThresholdActive, nil
	}
	if checker.neverActive() {
		return ThresholdFailed, nil
	}

	period := int32(checker.period())
	if period <= 0 {
		return ThresholdDefined, ErrInvalidPeriod
	}

	if prevNode != nil {
		prevNode = ancestorAtHeight(prevNode, prevNode.Height()-((prevNode.Height()+1)%period))
	}

	var toCompute []collab.BlockIndexNode
	for {
		if _, ok := cache[prevNode]; ok {
			break
		}
		if prevNode == nil {
			cache[prevNode] = ThresholdDefined
			break
		}
		if !checker.hasStarted(prevNode) {
			cache[prevNode] = ThresholdDefined
			break
		}
		toCompute = append(toCompute, prevNode)
		prevNode = ancestorAtHeight(prevNode, prevNode.Height()-period)
	}

	state := cache[prevNode]

	for len(toCompute) > 0 {
		node := toCompute[len(toCompute)-1]
		toCompute = toCompute[:len(toCompute)-1]
		next := state

		switch state {
		case ThresholdDefined:
			switch {
			case checker.hasEnded(node):
				next = ThresholdFailed
			case checker.hasStarted(node):
				next = ThresholdStarted
			}

		case ThresholdStarted:
			count := uint32(0)
			walk := node
			for i := int32(0); i < period && walk != nil; i++ {
				ok, err := checker.condition(walk)
				if err != nil {
					return ThresholdDefined, err
				}
				if ok {
					count++
				}
				walk = walk.Prev()
			}
			if count >= checker.threshold() {
				next = ThresholdLockedIn
			} else if checker.hasEnded(node) {
				next = ThresholdFailed
			}

		case ThresholdLockedIn:
			if node.Height()+1 >= checker.minActivationHeight() {
				next = ThresholdActive
			}

		case ThresholdActive, ThresholdFailed:
			// Terminal states never transition further.
		}

		cache[node] = next
		state = next
	}

	return state, nil
}

// VersionBitsCache holds one period-boundary Cache per defined deployment
// plus a warning cache per signalling bit, guarded by a single mutex.
// Readers never observe partial fill: the recursion completes under the
// lock.
type VersionBitsCache struct {
	mu              sync.Mutex
	deploymentCache [chaincfg.DefinedDeployments]Cache
	warningCache    [numBits]Cache
}

// NewCache returns an empty, ready-to-use VersionBitsCache.
func NewCache() *VersionBitsCache {
	c := &VersionBitsCache{}
	for i := range c.deploymentCache {
		c.deploymentCache[i] = make(Cache)
	}
	for i := range c.warningCache {
		c.warningCache[i] = make(Cache)
	}
	return c
}

// Clear discards all cached state, forcing every subsequent query to
// recompute from genesis. Intended for use after a reconfiguration (e.g. a
// changed deployment's start/timeout).
func (c *VersionBitsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.deploymentCache {
		c.deploymentCache[i] = make(Cache)
	}
	for i := range c.warningCache {
		c.warningCache[i] = make(Cache)
	}
}

// State returns the threshold state for the deployment at pos, for the
// block that would follow prev.
func (c *VersionBitsCache) State(prev collab.BlockIndexNode, params *chaincfg.Params, pos int) (ThresholdState, error) {
	if pos < 0 || pos >= len(params.Deployments) {
		return ThresholdDefined, errors.New("versionbits: deployment position out of range")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	checker := deploymentChecker{deployment: &params.Deployments[pos], params: params}
	return getStateFor(checker, prev, c.deploymentCache[pos])
}

// StateSinceHeight returns the height at which the deployment at pos most
// recently changed state, relative to the block that would follow prev.
func (c *VersionBitsCache) StateSinceHeight(prev collab.BlockIndexNode, params *chaincfg.Params, pos int) (int32, error) {
	if pos < 0 || pos >= len(params.Deployments) {
		return 0, errors.New("versionbits: deployment position out of range")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	checker := deploymentChecker{deployment: &params.Deployments[pos], params: params}
	period := int32(checker.period())
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}

	targetState, err := getStateFor(checker, prev, c.deploymentCache[pos])
	if err != nil {
		return 0, err
	}

	// Walk back one period boundary at a time while the state matches,
	// mirroring Core's GetStateSinceHeightFor.
	node := prev
	if node != nil {
		node = ancestorAtHeight(node, node.Height()-((node.Height()+1)%period))
	}
	for node != nil {
		prevNode := ancestorAtHeight(node, node.Height()-period)
		state, err := getStateFor(checker, prevNode, c.deploymentCache[pos])
		if err != nil {
			return 0, err
		}
		if state != targetState {
			break
		}
		node = prevNode
	}

	if node == nil {
		return 0, nil
	}
	return node.Height() + 1, nil
}

// ComputeBlockVersion builds the expected version field for the block that
// would follow prev: VERSIONBITS_TOP_BITS, with one bit set per deployment
// currently Started or LockedIn.
func (c *VersionBitsCache) ComputeBlockVersion(prev collab.BlockIndexNode, params *chaincfg.Params) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expected := uint32(topBits)
	for pos := range params.Deployments {
		deployment := &params.Deployments[pos]
		checker := deploymentChecker{deployment: deployment, params: params}
		state, err := getStateFor(checker, prev, c.deploymentCache[pos])
		if err != nil {
			return 0, err
		}
		if state == ThresholdStarted || state == ThresholdLockedIn {
			expected |= uint32(1) << deployment.BitNumber
		}
	}
	return int32(expected), nil
}

// Mask returns the bitmask corresponding to the deployment at pos.
func Mask(params *chaincfg.Params, pos int) uint32 {
	return uint32(1) << params.Deployments[pos].BitNumber
}

// Statistics is a point-in-time snapshot of a deployment's progress through
// its current signalling period.
type Statistics struct {
	Period    int32
	Threshold uint32
	Elapsed   int32
	Count     uint32
	Possible  bool
}

// GetStatistics computes a Statistics snapshot for the deployment at pos, as
// of the block that would follow prev. It does not touch the cache: it
// recomputes directly over the current period's blocks.
func GetStatistics(prev collab.BlockIndexNode, params *chaincfg.Params, pos int) (Statistics, error) {
	checker := deploymentChecker{deployment: &params.Deployments[pos], params: params}
	period := int32(checker.period())
	if period <= 0 || prev == nil {
		return Statistics{}, ErrInvalidPeriod
	}

	stats := Statistics{
		Period:    period,
		Threshold: checker.threshold(),
	}

	height := prev.Height() + 1
	stats.Elapsed = height % period
	if stats.Elapsed == 0 {
		stats.Elapsed = period
	}

	walk := prev
	for i := int32(0); i < stats.Elapsed && walk != nil; i++ {
		ok, err := checker.condition(walk)
		if err != nil {
			return Statistics{}, err
		}
		if ok {
			stats.Count++
		}
		walk = walk.Prev()
	}

	remaining := stats.Period - stats.Elapsed
	stats.Possible = stats.Count+uint32(remaining) >= stats.Threshold

	return stats, nil
}

// UnknownRuleWarning describes a signalling bit not corresponding to any
// known deployment, active or about to activate.
type UnknownRuleWarning struct {
	Bit              uint8
	State            ThresholdState
	ActivationHeight int32 // first height of the next period; valid only when State == ThresholdLockedIn
}

// CheckUnknownRuleActivations reports, for each of the numBits signalling
// bits, whether it is Active or LockedIn (about to activate) without a known
// deployment behind it. It returns data rather than logging in place so
// callers decide how (or whether) to surface the warning.
func (c *VersionBitsCache) CheckUnknownRuleActivations(node collab.BlockIndexNode, params *chaincfg.Params) ([]UnknownRuleWarning, error) {
	if node == nil {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var warnings []UnknownRuleWarning
	for bit := uint8(0); bit < numBits; bit++ {
		checker := bitConditionChecker{bit: bit, params: params}
		state, err := getStateFor(checker, node.Prev(), c.warningCache[bit])
		if err != nil {
			return nil, err
		}

		switch state {
		case ThresholdActive:
			warnings = append(warnings, UnknownRuleWarning{Bit: bit, State: state})
		case ThresholdLockedIn:
			window := int32(checker.period())
			warnings = append(warnings, UnknownRuleWarning{
				Bit:              bit,
				State:            state,
				ActivationHeight: node.Height() + window - (node.Height() % window),
			})
		}
	}
	return warnings, nil
}
