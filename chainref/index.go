// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainref is a reference implementation of the external
// collaborators the consensus core consumes but does not own: chain
// storage/traversal and a mempool view. It exists so the core can be
// exercised end to end without a full node's block database or transaction
// relay stack.
package chainref

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcbt-project/btcbtd/consensus/collab"
)

// IndexNode is an in-memory collab.BlockIndexNode. Unlike a production
// node's block index, it is built up directly by a caller (typically a
// test or a simulation harness) rather than by flat-file chain storage.
type IndexNode struct {
	height         int32
	prev           *IndexNode
	blockTime      int64
	medianTimePast int64
	bits           uint32
	version        int32
	hash           chainhash.Hash
}

// NewIndexNode constructs a node linked to prev (nil at genesis) and
// computes its median-time-past over itself and up to ten ancestors, per
// the standard Bitcoin GetMedianTimePast window.
func NewIndexNode(prev *IndexNode, hash chainhash.Hash, blockTime int64, bits uint32, version int32) *IndexNode {
	height := int32(0)
	if prev != nil {
		height = prev.height + 1
	}
	n := &IndexNode{
		height:    height,
		prev:      prev,
		blockTime: blockTime,
		bits:      bits,
		version:   version,
		hash:      hash,
	}
	n.medianTimePast = computeMedianTimePast(n)
	return n
}

// computeMedianTimePast returns the median timestamp of n and up to its ten
// direct predecessors.
func computeMedianTimePast(n *IndexNode) int64 {
	var times []int64
	cur := n
	for i := 0; i < 11 && cur != nil; i++ {
		times = append(times, cur.blockTime)
		cur = cur.prev
	}
	for i := 1; i < len(times); i++ {
		v := times[i]
		j := i - 1
		for j >= 0 && times[j] > v {
			times[j+1] = times[j]
			j--
		}
		times[j+1] = v
	}
	return times[len(times)/2]
}

func (n *IndexNode) Height() int32 { return n.height }

func (n *IndexNode) Prev() collab.BlockIndexNode {
	if n.prev == nil {
		return nil
	}
	return n.prev
}

func (n *IndexNode) BlockTime() int64 { return n.blockTime }

func (n *IndexNode) MedianTimePast() int64 { return n.medianTimePast }

func (n *IndexNode) Bits() uint32 { return n.bits }

func (n *IndexNode) Version() int32 { return n.version }

func (n *IndexNode) BlockHash() chainhash.Hash { return n.hash }

// Ancestor returns n's ancestor at the given height (nil if height is
// negative or above n's), like btcd's blockNode.Ancestor.
func (n *IndexNode) Ancestor(height int32) *IndexNode {
	if height < 0 || height > n.height {
		return nil
	}
	cur := n
	for cur != nil && cur.height > height {
		cur = cur.prev
	}
	return cur
}
