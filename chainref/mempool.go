// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcbt-project/btcbtd/consensus/collab"
)

// Mempool is a reference collab.MempoolSource: an in-memory transaction
// graph with ancestor/descendant bookkeeping, enough to drive the
// assembler's package-selection algorithm in tests and simulations. It has
// no admission policy, no orphan pool, and no relay; those belong to a
// full node's mempool, not to this reference view.
type Mempool struct {
	mu sync.RWMutex

	entries  map[chainhash.Hash]*collab.MempoolEntry
	parents  map[chainhash.Hash]map[chainhash.Hash]struct{}
	children map[chainhash.Hash]map[chainhash.Hash]struct{}
}

// NewMempool returns an empty Mempool.
func NewMempool() *Mempool {
	return &Mempool{
		entries:  make(map[chainhash.Hash]*collab.MempoolEntry),
		parents:  make(map[chainhash.Hash]map[chainhash.Hash]struct{}),
		children: make(map[chainhash.Hash]map[chainhash.Hash]struct{}),
	}
}

// AddTx inserts tx into the mempool with its own fee and sigop cost,
// deriving its parent set from any input that spends another in-mempool
// transaction's output, and recomputing the ancestor aggregates of tx and
// of every in-mempool descendant of tx.
func (m *Mempool) AddTx(tx *btcutil.Tx, fee, sigOpCost int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txid := *tx.Hash()
	size := int64(tx.MsgTx().SerializeSize())
	weight := int64(tx.MsgTx().SerializeSizeStripped())*3 + size

	m.entries[txid] = &collab.MempoolEntry{
		Tx:          tx,
		Size:        size,
		Weight:      weight,
		Fee:         fee,
		ModifiedFee: fee,
		SigOpCost:   sigOpCost,
	}
	m.parents[txid] = make(map[chainhash.Hash]struct{})
	m.children[txid] = make(map[chainhash.Hash]struct{})

	for _, txIn := range tx.MsgTx().TxIn {
		parent := txIn.PreviousOutPoint.Hash
		if _, ok := m.entries[parent]; !ok {
			continue
		}
		m.parents[txid][parent] = struct{}{}
		if m.children[parent] == nil {
			m.children[parent] = make(map[chainhash.Hash]struct{})
		}
		m.children[parent][txid] = struct{}{}
	}

	m.recomputeAncestors(txid)
	for did := range m.descendantSetLocked(txid) {
		if did != txid {
			m.recomputeAncestors(did)
		}
	}
}

// recomputeAncestors walks txid's closed ancestor set and refreshes its
// AncestorSize/AncestorFee/AncestorSigOps/AncestorCount fields.
func (m *Mempool) recomputeAncestors(txid chainhash.Hash) {
	set := m.ancestorSetLocked(txid)
	var size, fee, sigops int64
	for id := range set {
		e := m.entries[id]
		size += e.Size
		fee += e.ModifiedFee
		sigops += e.SigOpCost
	}
	e := m.entries[txid]
	e.AncestorSize = size
	e.AncestorFee = fee
	e.AncestorSigOps = sigops
	e.AncestorCount = int64(len(set))
}

// ancestorSetLocked returns the closed set of txid's in-mempool ancestors,
// including txid itself. Caller must hold m.mu.
func (m *Mempool) ancestorSetLocked(txid chainhash.Hash) map[chainhash.Hash]struct{} {
	seen := map[chainhash.Hash]struct{}{txid: {}}
	queue := []chainhash.Hash{txid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for p := range m.parents[cur] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return seen
}

// descendantSetLocked returns the closed set of txid's in-mempool
// descendants, including txid itself. Caller must hold m.mu.
func (m *Mempool) descendantSetLocked(txid chainhash.Hash) map[chainhash.Hash]struct{} {
	seen := map[chainhash.Hash]struct{}{txid: {}}
	queue := []chainhash.Hash{txid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for c := range m.children[cur] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			queue = append(queue, c)
		}
	}
	return seen
}

// Size implements collab.MempoolSource.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// AncestorScoreOrder implements collab.MempoolSource, returning every entry
// sorted by descending package (ancestor) fee rate.
func (m *Mempool) AncestorScoreOrder() []*collab.MempoolEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*collab.MempoolEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AncestorFeeRate() > out[j].AncestorFeeRate()
	})
	return out
}

// CalculateDescendants implements collab.MempoolSource.
func (m *Mempool) CalculateDescendants(entry *collab.MempoolEntry) map[chainhash.Hash]*collab.MempoolEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txid := *entry.Tx.Hash()
	out := make(map[chainhash.Hash]*collab.MempoolEntry)
	for id := range m.descendantSetLocked(txid) {
		out[id] = m.entries[id]
	}
	return out
}

// Ancestors implements collab.MempoolSource.
func (m *Mempool) Ancestors(entry *collab.MempoolEntry) []*collab.MempoolEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txid := *entry.Tx.Hash()
	set := m.ancestorSetLocked(txid)
	out := make([]*collab.MempoolEntry, 0, len(set))
	for id := range set {
		out = append(out, m.entries[id])
	}
	return out
}
