// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the block-template assembler: adaptive weight
// capping, ancestor-score package selection under weight/sigops limits,
// coinbase construction with the correct subsidy, and witness-commitment
// placement.
package mining

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"

	"github.com/btcbt-project/btcbtd/consensus/collab"
	"github.com/btcbt-project/btcbtd/consensus/validation"
)

// log is this package's logger. It defaults to disabled; callers wire in a
// real backend with UseLogger.
var log btclog.Logger

func init() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// BlockTemplate is a to-be-mined block plus parallel per-transaction
// arrays: fee (index 0 holds the negated total fee), sigops cost, and the
// raw witness-commitment output bytes.
type BlockTemplate struct {
	// Block is ready to be solved except for satisfying proof-of-work.
	Block *wire.MsgBlock

	// Fees holds each transaction's fee in base units; Fees[0] is the
	// negated sum of every other transaction's fee.
	Fees []int64

	// SigOpCosts holds each transaction's sigops cost.
	SigOpCosts []int64

	// Height is the height at which this template connects to the chain.
	Height int32

	// WitnessCommitment is the raw scriptPubKey bytes of the coinbase's
	// witness-commitment output.
	WitnessCommitment []byte
}

// AssemblyError distinguishes a runtime error raised by the assembler's
// TestBlockValidity option from an ordinary Go error: a failed
// self-validation of a template the assembler itself built is an internal
// invariant breach, not an "invalid input" rejection.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("mining: assembled template failed validation: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// WitnessCommitmentIndex returns the index of block's witness-commitment
// output — the last coinbase output whose scriptPubKey starts with the
// witness-commitment magic bytes and is at least MinimumWitnessCommitment
// bytes long — or validation.NoWitnessCommitment if none is present.
func WitnessCommitmentIndex(block *wire.MsgBlock) int {
	if len(block.Transactions) == 0 {
		return validation.NoWitnessCommitment
	}
	coinbase := block.Transactions[0]

	idx := validation.NoWitnessCommitment
	for i, txOut := range coinbase.TxOut {
		if len(txOut.PkScript) >= validation.MinimumWitnessCommitment &&
			bytes.HasPrefix(txOut.PkScript, validation.WitnessCommitmentMagic[:]) {
			idx = i
		}
	}
	return idx
}

// RegenerateCommitments removes block's existing witness-commitment output
// (if any), rebuilds it through the chain collaborator, and recomputes the
// merkle root in place, used after a caller mutates the coinbase (e.g. to
// change the extra nonce).
func RegenerateCommitments(block *wire.MsgBlock, chain collab.ChainCollaborator, prev collab.BlockIndexNode) error {
	if len(block.Transactions) == 0 {
		return fmt.Errorf("mining: cannot regenerate commitments on an empty block")
	}
	coinbase := block.Transactions[0]

	if idx := WitnessCommitmentIndex(block); idx >= 0 {
		coinbase.TxOut = append(coinbase.TxOut[:idx], coinbase.TxOut[idx+1:]...)
	}

	commitScript, err := chain.GenerateCoinbaseCommitment(block, prev)
	if err != nil {
		return fmt.Errorf("mining: generate coinbase commitment: %w", err)
	}
	coinbase.TxOut = append(coinbase.TxOut, &wire.TxOut{Value: 0, PkScript: commitScript})

	root := chain.BlockMerkleRoot(block)
	block.Header.MerkleRoot = root
	return nil
}
