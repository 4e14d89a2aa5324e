// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validation implements the result/reason carrier consulted by the
// rest of the consensus core (and, ultimately, peer-scoring logic) to report
// why a transaction or block failed validation.
package validation

import "fmt"

// TxValidationResult is an exhaustive reason code for why a transaction
// failed validation.
type TxValidationResult int

const (
	TxResultUnset TxValidationResult = iota
	TxConsensus
	TxRecentConsensusChange
	TxInputsNotStandard
	TxNotStandard
	TxMissingInputs
	TxPrematureSpend
	TxWitnessMutated
	TxWitnessStripped
	TxConflict
	TxMempoolPolicy
	TxNoMempool
)

func (r TxValidationResult) String() string {
	switch r {
	case TxResultUnset:
		return "unset"
	case TxConsensus:
		return "consensus"
	case TxRecentConsensusChange:
		return "recent-consensus-change"
	case TxInputsNotStandard:
		return "inputs-not-standard"
	case TxNotStandard:
		return "not-standard"
	case TxMissingInputs:
		return "missing-inputs"
	case TxPrematureSpend:
		return "premature-spend"
	case TxWitnessMutated:
		return "witness-mutated"
	case TxWitnessStripped:
		return "witness-stripped"
	case TxConflict:
		return "conflict"
	case TxMempoolPolicy:
		return "mempool-policy"
	case TxNoMempool:
		return "no-mempool"
	default:
		return "unknown"
	}
}

// BlockValidationResult is an exhaustive reason code for why a block failed
// validation.
type BlockValidationResult int

const (
	BlockValid BlockValidationResult = iota
	BlockHeader
	BlockMutated
	BlockMissingPrev
	BlockInvalidHeader
	BlockInvalidPrev
	BlockConsensus
	BlockNonfinal
	BlockTimeFuture
	BlockCheckpoint
	BlockTransactions
	BlockValidationFailed
	BlockSerialization
	BlockWeight
	BlockResultUnset
	BlockHeaderLowWork
	BlockCachedInvalid
	BlockRecentConsensusChange
)

func (r BlockValidationResult) String() string {
	switch r {
	case BlockValid:
		return "valid"
	case BlockHeader:
		return "header"
	case BlockMutated:
		return "mutated"
	case BlockMissingPrev:
		return "missing-prev"
	case BlockInvalidHeader:
		return "invalid-header"
	case BlockInvalidPrev:
		return "invalid-prev"
	case BlockConsensus:
		return "consensus"
	case BlockNonfinal:
		return "nonfinal"
	case BlockTimeFuture:
		return "time-future"
	case BlockCheckpoint:
		return "checkpoint"
	case BlockTransactions:
		return "transactions"
	case BlockValidationFailed:
		return "validation-failed"
	case BlockSerialization:
		return "serialization"
	case BlockWeight:
		return "weight"
	case BlockResultUnset:
		return "result-unset"
	case BlockHeaderLowWork:
		return "header-low-work"
	case BlockCachedInvalid:
		return "cached-invalid"
	case BlockRecentConsensusChange:
		return "recent-consensus-change"
	default:
		return "unknown"
	}
}

// mode is the internal tri-state mode of a ValidationState, independent of
// the caller-supplied result code.
type mode int

const (
	modeValid mode = iota
	modeInvalid
	modeError
)

// State carries either a TxValidationResult or a BlockValidationResult
// (selected by the instantiation's Result type) plus a reject reason and a
// debug string. The zero value is Valid.
//
// SetInvalid and SetError both return false, so call sites can write
// `return state.SetInvalid(...)` as an early-exit idiom.
type State[Result any] struct {
	mode         mode
	result       Result
	rejectReason string
	debugMessage string
}

// SetInvalid transitions the state to Invalid (a network rule violation)
// recording result, rejectReason, and debugMessage. It is idempotent: once
// the state has errored, SetInvalid no longer downgrades it back to
// Invalid. Always returns false.
func (s *State[Result]) SetInvalid(result Result, rejectReason, debugMessage string) bool {
	s.result = result
	s.rejectReason = rejectReason
	s.debugMessage = debugMessage
	if s.mode != modeError {
		s.mode = modeInvalid
	}
	return false
}

// SetError transitions the state to the sticky RuntimeError mode, recording
// rejectReason only if the state was still Valid. Always returns false.
func (s *State[Result]) SetError(rejectReason string) bool {
	if s.mode == modeValid {
		s.rejectReason = rejectReason
	}
	s.mode = modeError
	return false
}

// IsValid reports whether the state is still in its initial Valid mode.
func (s *State[Result]) IsValid() bool { return s.mode == modeValid }

// IsInvalid reports whether the state was set Invalid (and has not since
// become an Error).
func (s *State[Result]) IsInvalid() bool { return s.mode == modeInvalid }

// IsError reports whether the state has entered the sticky RuntimeError
// mode. IsValid, IsInvalid, and IsError are mutually exclusive.
func (s *State[Result]) IsError() bool { return s.mode == modeError }

// Result returns the last result code recorded by SetInvalid, or the zero
// value if the state is still Valid.
func (s *State[Result]) Result() Result { return s.result }

// RejectReason returns the short machine-oriented reject reason.
func (s *State[Result]) RejectReason() string { return s.rejectReason }

// DebugMessage returns the longer, human-oriented debug string.
func (s *State[Result]) DebugMessage() string { return s.debugMessage }

// String renders the state for logging.
func (s *State[Result]) String() string {
	if s.IsValid() {
		return "Valid"
	}
	if s.debugMessage != "" {
		return fmt.Sprintf("%s, %s", s.rejectReason, s.debugMessage)
	}
	return s.rejectReason
}

// TxState is a ValidationState specialized for transaction validation.
type TxState = State[TxValidationResult]

// BlockState is a ValidationState specialized for block validation.
type BlockState = State[BlockValidationResult]

// Witness-commitment constants from BIP141.
const (
	// NoWitnessCommitment marks the absence of a witness commitment output.
	NoWitnessCommitment = -1

	// MinimumWitnessCommitment is the minimum scriptPubKey length for a
	// witness commitment output to be recognized.
	MinimumWitnessCommitment = 38
)

// WitnessCommitmentMagic is the 6-byte marker (OP_RETURN, OP_DATA_36, then
// the 4-byte BIP141 magic) that prefixes a witness commitment's
// scriptPubKey.
var WitnessCommitmentMagic = [6]byte{0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed}
