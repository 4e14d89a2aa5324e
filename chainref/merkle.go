// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import (
	"io"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// nextPowerOfTwo returns the next power of two at or above n.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	exponent := uint(math.Log2(float64(n))) + 1
	return 1 << exponent
}

// hashMerkleBranches hashes the concatenation of two tree nodes.
func hashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		_, err := w.Write(buf[:])
		return err
	})
}

// CalcMerkleRoot computes the (non-witness, or witness when witness=true)
// merkle root over transactions, following the classic pairwise-duplication
// tree construction: a node with no right-hand sibling at any level is
// hashed with itself. The coinbase's wtxid is always treated as the zero hash when
// witness is true.
func CalcMerkleRoot(transactions []*btcutil.Tx, witness bool) chainhash.Hash {
	if len(transactions) == 0 {
		return chainhash.Hash{}
	}

	nextPoT := nextPowerOfTwo(len(transactions))
	arraySize := nextPoT*2 - 1
	nodes := make([]*chainhash.Hash, arraySize)

	for i, tx := range transactions {
		switch {
		case witness && i == 0:
			var zero chainhash.Hash
			nodes[i] = &zero
		case witness:
			h := tx.MsgTx().WitnessHash()
			nodes[i] = &h
		default:
			h := *tx.Hash()
			nodes[i] = &h
		}
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case nodes[i] == nil:
			nodes[offset] = nil
		case nodes[i+1] == nil:
			h := hashMerkleBranches(nodes[i], nodes[i])
			nodes[offset] = &h
		default:
			h := hashMerkleBranches(nodes[i], nodes[i+1])
			nodes[offset] = &h
		}
		offset++
	}

	return *nodes[arraySize-1]
}
