// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import (
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"

	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/consensus/collab"
	"github.com/btcbt-project/btcbtd/consensus/validation"
)

// blockIndexCacheSize bounds the recently-looked-up hint cache; the
// authoritative store is the unbounded nodes map below.
const blockIndexCacheSize = 5000

// Chain is a reference collab.ChainCollaborator: an in-memory block index
// plus the block-construction helpers (subsidy, witness commitment, merkle
// root, sigop counting, tx finality) the assembler and PoW engine delegate
// to an external collaborator. It is not a full node: no script
// verification, no UTXO set, no disk persistence. Only what the assembler
// and PoW engine actually consume through the collaborator seam.
type Chain struct {
	mu sync.RWMutex

	params *chaincfg.Params
	nodes  map[chainhash.Hash]*IndexNode
	tip    *IndexNode

	// recent tracks which hashes were looked up lately; a direct use of
	// decred/dcrd/lru's bounded generic membership cache, not a value
	// store (the nodes map above remains the authoritative store).
	recent *lru.Cache

	// now, if set, overrides AdjustedTimeSeconds (tests only); defaults to
	// the wall clock.
	now func() int64
}

// NewChain returns an empty Chain for params.
func NewChain(params *chaincfg.Params) *Chain {
	return &Chain{
		params: params,
		nodes:  make(map[chainhash.Hash]*IndexNode),
		recent: func() *lru.Cache { c := lru.NewCache(blockIndexCacheSize); return &c }(),
		now:    func() int64 { return time.Now().Unix() },
	}
}

// AddNode inserts node into the index and, if it is the chain's first node
// or its height exceeds the current tip's, advances the tip.
func (c *Chain) AddNode(node *IndexNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[node.BlockHash()] = node
	if c.tip == nil || node.height > c.tip.height {
		c.tip = node
	}
}

// Tip implements collab.ChainCollaborator.
func (c *Chain) Tip() collab.BlockIndexNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tip == nil {
		return nil
	}
	return c.tip
}

// LookupBlockIndex implements collab.ChainCollaborator.
func (c *Chain) LookupBlockIndex(hash chainhash.Hash) (collab.BlockIndexNode, bool) {
	c.mu.RLock()
	node, ok := c.nodes[hash]
	c.mu.RUnlock()
	if ok {
		c.recent.Add(hash)
	}
	return node, ok
}

// BlockSubsidy implements collab.ChainCollaborator with the
// pre-fork/activation/post-fork schedule; see subsidy.go.
func (c *Chain) BlockSubsidy(height int32, params *chaincfg.Params) int64 {
	return BlockSubsidy(height, params)
}

// GetSerializeSize implements collab.ChainCollaborator.
func (c *Chain) GetSerializeSize(tx *wire.MsgTx) int {
	return tx.SerializeSize()
}

// GetLegacySigOpCount implements collab.ChainCollaborator: the classic,
// non-precise sigop count (OP_CHECKMULTISIG(VERIFY) always counts as 20)
// summed over every input's signature script and every output's public-key
// script, matching Bitcoin Core's GetLegacySigOpCount.
func (c *Chain) GetLegacySigOpCount(tx *wire.MsgTx) int64 {
	var n int64
	for _, txIn := range tx.TxIn {
		n += int64(txscript.GetSigOpCount(txIn.SignatureScript))
	}
	for _, txOut := range tx.TxOut {
		n += int64(txscript.GetSigOpCount(txOut.PkScript))
	}
	return n
}

// IsFinalTx implements collab.ChainCollaborator, matching Bitcoin's
// CheckFinalTx: a transaction with LockTime zero, or with every input at
// the maximum sequence number, is always final; otherwise it is final once
// height/cutoff pass the locktime.
func (c *Chain) IsFinalTx(tx *wire.MsgTx, height int32, cutoff int64) bool {
	if tx.LockTime == 0 {
		return true
	}

	blockLimit := int64(tx.LockTime) < lockTimeThreshold
	var cmp int64
	if blockLimit {
		cmp = int64(height)
	} else {
		cmp = cutoff
	}
	if int64(tx.LockTime) < cmp {
		return true
	}

	for _, txIn := range tx.TxIn {
		if txIn.Sequence != wire.MaxTxInSequenceNum {
			return false
		}
	}
	return true
}

// lockTimeThreshold is LOCKTIME_THRESHOLD: locktimes below it are block
// heights, at or above it they are Unix timestamps.
const lockTimeThreshold = 500000000

// AdjustedTimeSeconds implements collab.ChainCollaborator.
func (c *Chain) AdjustedTimeSeconds() int64 {
	return c.now()
}

// BlockMerkleRoot implements collab.ChainCollaborator, computing the
// non-witness merkle root over block's transactions.
func (c *Chain) BlockMerkleRoot(block *wire.MsgBlock) chainhash.Hash {
	txs := make([]*btcutil.Tx, len(block.Transactions))
	for i, tx := range block.Transactions {
		txs[i] = btcutil.NewTx(tx)
	}
	return CalcMerkleRoot(txs, false)
}

// GenerateCoinbaseCommitment implements collab.ChainCollaborator: it
// computes the witness merkle root over block's transactions (using the
// coinbase's witness stack entry as the commitment nonce) and returns the
// OP_RETURN scriptPubKey to append as a new coinbase output.
func (c *Chain) GenerateCoinbaseCommitment(block *wire.MsgBlock, prev collab.BlockIndexNode) ([]byte, error) {
	if len(block.Transactions) == 0 {
		return nil, fmt.Errorf("chainref: cannot commit an empty block")
	}
	coinbase := block.Transactions[0]
	if len(coinbase.TxIn) == 0 || len(coinbase.TxIn[0].Witness) != 1 {
		return nil, fmt.Errorf("chainref: coinbase missing its witness-nonce stack entry")
	}
	nonce := coinbase.TxIn[0].Witness[0]

	txs := make([]*btcutil.Tx, len(block.Transactions))
	for i, tx := range block.Transactions {
		txs[i] = btcutil.NewTx(tx)
	}
	witnessRoot := CalcMerkleRoot(txs, true)

	var preimage [chainhash.HashSize * 2]byte
	copy(preimage[:], witnessRoot[:])
	copy(preimage[chainhash.HashSize:], nonce)
	commitment := chainhash.DoubleHashB(preimage[:])

	script := make([]byte, 0, len(WitnessCommitmentMagic)+len(commitment))
	script = append(script, WitnessCommitmentMagic[:]...)
	script = append(script, commitment...)
	return script, nil
}

// WitnessCommitmentMagic re-exports validation.WitnessCommitmentMagic as
// the raw bytes chainref prefixes a commitment script with.
var WitnessCommitmentMagic = validation.WitnessCommitmentMagic
