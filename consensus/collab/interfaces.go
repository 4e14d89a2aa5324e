// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package collab defines the interfaces the consensus core consumes from
// its external collaborators: the chain index and the mempool. The core
// never owns chain storage, reorganization, or mempool admission policy; it
// only reads through these interfaces.
package collab

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcbt-project/btcbtd/chaincfg"
)

// BlockIndexNode is a read-only handle into the chain's block-index tree.
// Nodes are consumed, never mutated, by the consensus core; back-references
// form a tree rooted at genesis, but many assembler calls may hold read
// pointers into the same nodes concurrently.
type BlockIndexNode interface {
	// Height is this node's height above genesis (genesis is 0).
	Height() int32

	// Prev returns the parent node, or nil at genesis.
	Prev() BlockIndexNode

	// BlockTime is this block's header timestamp, in Unix seconds.
	BlockTime() int64

	// MedianTimePast is the median of this block and its ten predecessors'
	// timestamps, in Unix seconds, as used by BIP9 threshold evaluation
	// and the assembler's block-time floor and lock-time cutoff.
	MedianTimePast() int64

	// Bits is this block's compact-encoded target ("nBits").
	Bits() uint32

	// Version is this block's signalled version field.
	Version() int32

	// BlockHash is this block's identity hash.
	BlockHash() chainhash.Hash
}

// ChainCollaborator is consumed by the Assembler and PoW engine to read
// chain state and to delegate serialization-adjacent computations that the
// core intentionally does not own.
type ChainCollaborator interface {
	// Tip returns the current best-chain tip.
	Tip() BlockIndexNode

	// LookupBlockIndex resolves a hash to a node, if known.
	LookupBlockIndex(hash chainhash.Hash) (BlockIndexNode, bool)

	// BlockSubsidy returns the coinbase value for the block at height,
	// honoring the pre-/post-fork halving schedule in params.
	BlockSubsidy(height int32, params *chaincfg.Params) int64

	// GenerateCoinbaseCommitment builds the witness-commitment output
	// bytes for block given its parent prev, returning the scriptPubKey
	// to append as a new coinbase output.
	GenerateCoinbaseCommitment(block *wire.MsgBlock, prev BlockIndexNode) ([]byte, error)

	// BlockMerkleRoot computes block's (non-witness) merkle root.
	BlockMerkleRoot(block *wire.MsgBlock) chainhash.Hash

	// GetSerializeSize returns tx's serialized byte size.
	GetSerializeSize(tx *wire.MsgTx) int

	// GetLegacySigOpCount returns tx's legacy (non-witness-discounted)
	// sigop count.
	GetLegacySigOpCount(tx *wire.MsgTx) int64

	// IsFinalTx reports whether tx is final at height with the given
	// median-time-past lock-time cutoff.
	IsFinalTx(tx *wire.MsgTx, height int32, cutoff int64) bool

	// AdjustedTimeSeconds returns the node's network-adjusted clock, in
	// Unix seconds.
	AdjustedTimeSeconds() int64
}

// MempoolEntry is a single mempool transaction plus the ancestor-aggregated
// metrics the assembler's package-selection algorithm needs.
type MempoolEntry struct {
	Tx *btcutil.Tx

	// Size and Weight describe this transaction alone.
	Size   int64
	Weight int64

	// Fee and ModifiedFee are this transaction's own fee; ModifiedFee
	// reflects any fee delta (e.g. prioritisetransaction) applied on top
	// of Fee.
	Fee         int64
	ModifiedFee int64

	// SigOpCost is this transaction's own sigops cost.
	SigOpCost int64

	// AncestorSize, AncestorFee (using ModifiedFee), and AncestorSigOps
	// are aggregated over this entry and all of its in-mempool ancestors.
	// The mempool collaborator guarantees the ancestor set is closed: every
	// in-mempool ancestor of an included entry is itself present.
	AncestorSize   int64
	AncestorFee    int64
	AncestorSigOps int64

	// AncestorCount is the number of in-mempool ancestors, including this
	// entry itself; used to sort a selected package into topological order
	// (ascending ancestor count).
	AncestorCount int64
}

// FeeRate returns fee divided by weight, in the same fixed-point sense used
// throughout the assembler (satoshis per weight unit, scaled by 1000 so
// integer comparisons stay exact).
func (e *MempoolEntry) FeeRate() int64 {
	if e.Weight == 0 {
		return 0
	}
	return e.ModifiedFee * 1000 / e.Weight
}

// AncestorFeeRate returns the package (self + ancestors) fee rate, the
// assembler's package-selection sort key.
func (e *MempoolEntry) AncestorFeeRate() int64 {
	if e.AncestorSize == 0 {
		return 0
	}
	return e.AncestorFee * 1000 / e.AncestorSize
}

// MempoolSource is consumed by the Assembler for package selection.
type MempoolSource interface {
	// Size returns the number of transactions currently in the mempool.
	Size() int

	// AncestorScoreOrder returns all entries ordered by descending
	// ancestor fee rate (the "ancestor score" ordering).
	AncestorScoreOrder() []*MempoolEntry

	// CalculateDescendants returns every not-yet-confirmed descendant of
	// entry, keyed by txid, including entry itself.
	CalculateDescendants(entry *MempoolEntry) map[chainhash.Hash]*MempoolEntry

	// Ancestors returns entry's in-mempool ancestor set, including entry
	// itself, for the assembler's package-expansion step. The mempool
	// collaborator guarantees this set is closed.
	Ancestors(entry *MempoolEntry) []*MempoolEntry
}
