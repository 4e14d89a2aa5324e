// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sort"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcbt-project/btcbtd/arith"
	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/consensus/collab"
	"github.com/btcbt-project/btcbtd/consensus/pow"
	"github.com/btcbt-project/btcbtd/consensus/versionbits"
)

// recoveryBits is the hard-coded fallback nbits used when the PoW engine
// returns a value that fails to decode (negative or overflowed). 0x1d00ffff
// is Bitcoin's own genesis difficulty and is always a legal, decodable
// target under any registered Params.PowLimit.
const recoveryBits = 0x1d00ffff

// Policy holds the assembler's externally configurable knobs, sourced from
// the -blockmaxweight/-blockmintxfee/-blockversion/-printpriority options
// (see package config).
type Policy struct {
	// BlockMaxWeight is the user-supplied -blockmaxweight option, in weight
	// units, before clamping. Zero means "use the adaptive cap".
	BlockMaxWeight int64

	// BlockMinFeeRate is the minimum package fee rate, in satoshis per 1000
	// weight units (matching collab.MempoolEntry.FeeRate's scale), below
	// which package selection stops.
	BlockMinFeeRate int64

	// PrintPriority requests the assembler log selection decisions at Debug
	// level (a debug aid, not a correctness knob).
	PrintPriority bool
}

// AssemblerConfig wires the Assembler to its collaborators and parameters.
// Params is threaded explicitly rather than read from a process-wide
// singleton.
type AssemblerConfig struct {
	Chain    collab.ChainCollaborator
	Mempool  collab.MempoolSource
	Versions *versionbits.VersionBitsCache
	Params   *chaincfg.Params
	Policy   Policy

	// BlockVersionOverride is the -blockversion option; honored only when
	// Params.MineBlocksOnDemand.
	BlockVersionOverride int32

	// TestBlockValidity, if non-nil, is invoked on the finished template
	// before it is returned; a non-nil error is wrapped in an
	// AssemblyError. A template the assembler built failing its own
	// validity check is an internal invariant breach, not an invalid input.
	TestBlockValidity func(*wire.MsgBlock) error
}

// Assembler constructs block templates from the current tip and a mempool
// snapshot.
type Assembler struct {
	cfg AssemblerConfig
}

// NewAssembler returns an Assembler wired to cfg.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// CreateNewBlock builds a candidate block paying the block subsidy (plus any
// selected fees) to scriptPubKeyIn.
func (a *Assembler) CreateNewBlock(scriptPubKeyIn []byte) (*BlockTemplate, error) {
	params := a.cfg.Params
	tip := a.cfg.Chain.Tip()
	nextHeight := tip.Height() + 1

	version, err := a.computeBlockVersion(tip)
	if err != nil {
		return nil, err
	}

	blockTime := tip.MedianTimePast() + 1
	if adj := a.cfg.Chain.AdjustedTimeSeconds(); adj > blockTime {
		blockTime = adj
	}
	lockTimeCutoff := tip.MedianTimePast()

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   version,
			PrevBlock: tip.BlockHash(),
			Timestamp: time.Unix(blockTime, 0),
		},
	}

	empty := a.cfg.Mempool == nil || a.cfg.Mempool.Size() == 0
	if empty {
		return a.createEmptyTemplate(block, tip, nextHeight, scriptPubKeyIn)
	}

	blockWeight := int64(blockReserveWeight)
	blockSigOps := int64(blockReserveSigOps)
	var fees int64
	txFees := make(map[chainhash.Hash]int64)
	txSigOps := make(map[chainhash.Hash]int64)

	coinbase, err := newCoinbaseTx(nextHeight, scriptPubKeyIn, 0)
	if err != nil {
		return nil, err
	}
	block.Transactions = append(block.Transactions, coinbase)

	hardCap := int64(MaxBlockWeight)
	if int64(params.MaxBlockSize) < hardCap {
		hardCap = int64(params.MaxBlockSize)
	}
	var maxWeight int64
	if a.cfg.Policy.BlockMaxWeight > 0 {
		maxWeight = ClampBlockMaxWeight(a.cfg.Policy.BlockMaxWeight, params, hardCap)
	} else {
		maxWeight = AdaptiveMaxBlockWeight(a.cfg.Mempool.Size(), nextHeight, params)
	}
	sigopsCap := sigOpsLimit(nextHeight, params)

	a.selectPackages(a.cfg.Mempool, nextHeight, lockTimeCutoff, maxWeight, sigopsCap,
		a.cfg.Policy.BlockMinFeeRate, block, &blockWeight, &blockSigOps, &fees, txFees, txSigOps)

	subsidy := a.cfg.Chain.BlockSubsidy(nextHeight, params)
	if err := a.finalizeCoinbase(block, nextHeight, scriptPubKeyIn, fees+subsidy); err != nil {
		return nil, err
	}

	commitScript, err := a.cfg.Chain.GenerateCoinbaseCommitment(block, tip)
	if err != nil {
		return nil, err
	}
	block.Transactions[0].TxOut = append(block.Transactions[0].TxOut, &wire.TxOut{Value: 0, PkScript: commitScript})

	block.Header.MerkleRoot = a.cfg.Chain.BlockMerkleRoot(block)
	block.Header.PrevBlock = tip.BlockHash()
	if adj := a.cfg.Chain.AdjustedTimeSeconds(); adj > blockTime {
		block.Header.Timestamp = time.Unix(adj, 0)
	}
	block.Header.Bits = a.safeNextBits(tip, block.Header.Timestamp.Unix())
	block.Header.Nonce = 0

	fees2 := make([]int64, len(block.Transactions))
	sigops2 := make([]int64, len(block.Transactions))
	fees2[0] = -fees
	sigops2[0] = WitnessScaleFactor * a.cfg.Chain.GetLegacySigOpCount(block.Transactions[0])
	for i, tx := range block.Transactions[1:] {
		hash := tx.TxHash()
		fees2[i+1] = txFees[hash]
		sigops2[i+1] = txSigOps[hash]
	}

	tmpl := &BlockTemplate{
		Block:             block,
		Fees:              fees2,
		SigOpCosts:        sigops2,
		Height:            nextHeight,
		WitnessCommitment: commitScript,
	}

	if a.cfg.TestBlockValidity != nil {
		if err := a.cfg.TestBlockValidity(block); err != nil {
			return nil, &AssemblyError{Err: err}
		}
	}

	return tmpl, nil
}

// createEmptyTemplate builds the coinbase-only fast path: no mempool
// transactions, a single coinbase paying the full subsidy to
// scriptPubKeyIn.
func (a *Assembler) createEmptyTemplate(block *wire.MsgBlock, tip collab.BlockIndexNode, nextHeight int32, scriptPubKeyIn []byte) (*BlockTemplate, error) {
	subsidy := a.cfg.Chain.BlockSubsidy(nextHeight, a.cfg.Params)

	coinbase, err := newCoinbaseTx(nextHeight, scriptPubKeyIn, subsidy)
	if err != nil {
		return nil, err
	}
	block.Transactions = []*wire.MsgTx{coinbase}

	commitScript, err := a.cfg.Chain.GenerateCoinbaseCommitment(block, tip)
	if err != nil {
		return nil, err
	}
	coinbase.TxOut = append(coinbase.TxOut, &wire.TxOut{Value: 0, PkScript: commitScript})

	block.Header.MerkleRoot = a.cfg.Chain.BlockMerkleRoot(block)
	block.Header.PrevBlock = tip.BlockHash()
	block.Header.Bits = a.safeNextBits(tip, block.Header.Timestamp.Unix())
	block.Header.Nonce = 0

	tmpl := &BlockTemplate{
		Block:             block,
		Fees:              []int64{0},
		SigOpCosts:        []int64{WitnessScaleFactor * a.cfg.Chain.GetLegacySigOpCount(coinbase)},
		Height:            nextHeight,
		WitnessCommitment: commitScript,
	}

	if a.cfg.TestBlockValidity != nil {
		if err := a.cfg.TestBlockValidity(block); err != nil {
			return nil, &AssemblyError{Err: err}
		}
	}
	return tmpl, nil
}

// computeBlockVersion delegates to VersionBits, honoring a -blockversion
// override on mine-blocks-on-demand (regtest-style) networks.
func (a *Assembler) computeBlockVersion(tip collab.BlockIndexNode) (int32, error) {
	if a.cfg.Params.MineBlocksOnDemand && a.cfg.BlockVersionOverride != 0 {
		return a.cfg.BlockVersionOverride, nil
	}
	return a.cfg.Versions.ComputeBlockVersion(tip, a.cfg.Params)
}

// safeNextBits asks the PoW engine for the next block's nbits and applies a
// numerical guard: a zero result clamps to pow_limit's
// compact encoding, and an otherwise-undecodable result clamps to a
// hard-coded recovery constant, so a running assembler never propagates a
// broken target into a header.
func (a *Assembler) safeNextBits(tip collab.BlockIndexNode, blockTime int64) uint32 {
	bits := pow.NextWorkRequired(tip, blockTime, a.cfg.Params)
	if bits == 0 {
		return arith.FromBig(a.cfg.Params.PowLimit).GetCompact(false)
	}
	t := arith.New()
	if neg, overflow := t.SetCompact(bits); neg || overflow {
		log.Warnf("next_work_required produced an undecodable nbits %08x, using recovery constant", bits)
		return recoveryBits
	}
	return bits
}

// finalizeCoinbase rewrites the coinbase's scriptSig (in case next_height
// changed between construction and finalization) and sets its sole
// fee-bearing output's value to the given amount.
func (a *Assembler) finalizeCoinbase(block *wire.MsgBlock, height int32, scriptPubKeyIn []byte, value int64) error {
	scriptSig, err := coinbaseScriptSig(height)
	if err != nil {
		return err
	}
	coinbase := block.Transactions[0]
	coinbase.TxIn[0].SignatureScript = scriptSig
	coinbase.TxOut[0].Value = value
	coinbase.TxOut[0].PkScript = scriptPubKeyIn
	return nil
}

// coinbaseScriptSig builds the BIP34 height-commitment scriptSig:
// push(height) OP_0.
func coinbaseScriptSig(height int32) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddInt64(int64(height)).
		AddOp(txscript.OP_0).
		Script()
}

// newCoinbaseTx builds a fresh coinbase transaction: one null-prevout input
// with scriptSig push(height) OP_0 and a 32-byte zero witness stack entry
// (a placeholder witness nonce later folded into the witness commitment),
// and one output paying value to scriptPubKeyIn.
func newCoinbaseTx(height int32, scriptPubKeyIn []byte, value int64) (*wire.MsgTx, error) {
	scriptSig, err := coinbaseScriptSig(height)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		SignatureScript:  scriptSig,
		Witness:          wire.TxWitness{make([]byte, 32)},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(value, scriptPubKeyIn))
	return tx, nil
}

// modEntry is a mempool entry whose package aggregates have been adjusted
// downward because one or more of its ancestors were already added to the
// block, mirroring Bitcoin Core's mapModifiedTx.
type modEntry struct {
	entry  *collab.MempoolEntry
	size   int64
	fee    int64
	sigops int64
}

func (m *modEntry) feeRate() int64 {
	if m.size == 0 {
		return 0
	}
	return m.fee * 1000 / m.size
}

// selectPackages runs ancestor-score package selection across the main
// mempool stream and the modified stream,
// expanding each accepted candidate to its ancestor set and updating the
// running block totals and the descendants' modified records.
func (a *Assembler) selectPackages(
	mp collab.MempoolSource,
	nextHeight int32,
	lockTimeCutoff int64,
	maxWeight, sigopsCap, blockMinFeeRate int64,
	block *wire.MsgBlock,
	blockWeight, blockSigOps *int64,
	fees *int64,
	txFees, txSigOps map[chainhash.Hash]int64,
) {
	entries := mp.AncestorScoreOrder()
	mainIdx := 0
	modified := make(map[chainhash.Hash]*modEntry)
	included := make(map[chainhash.Hash]bool)
	failed := make(map[chainhash.Hash]bool)
	consecutiveFailures := 0

	for {
		for mainIdx < len(entries) {
			txid := *entries[mainIdx].Tx.Hash()
			if included[txid] || failed[txid] {
				mainIdx++
				continue
			}
			if _, ok := modified[txid]; ok {
				mainIdx++
				continue
			}
			break
		}

		var mainCandidate *collab.MempoolEntry
		if mainIdx < len(entries) {
			mainCandidate = entries[mainIdx]
		}

		var modCandidate *modEntry
		for _, m := range modified {
			if modCandidate == nil || m.feeRate() > modCandidate.feeRate() {
				modCandidate = m
			}
		}

		if mainCandidate == nil && modCandidate == nil {
			return
		}

		var (
			chosen                     *collab.MempoolEntry
			pkgSize, pkgFee, pkgSigOps int64
			fromModified               bool
		)
		useModified := modCandidate != nil &&
			(mainCandidate == nil || modCandidate.feeRate() >= mainCandidate.AncestorFeeRate())
		if useModified {
			chosen = modCandidate.entry
			pkgSize, pkgFee, pkgSigOps = modCandidate.size, modCandidate.fee, modCandidate.sigops
			fromModified = true
		} else {
			chosen = mainCandidate
			pkgSize, pkgFee, pkgSigOps = mainCandidate.AncestorSize, mainCandidate.AncestorFee, mainCandidate.AncestorSigOps
			mainIdx++
		}

		txid := *chosen.Tx.Hash()
		if included[txid] {
			continue
		}

		feeRate := int64(0)
		if pkgSize > 0 {
			feeRate = pkgFee * 1000 / (WitnessScaleFactor * pkgSize)
		}
		if feeRate < blockMinFeeRate {
			return
		}

		reject := func() {
			if fromModified {
				delete(modified, txid)
				failed[txid] = true
			}
		}

		if *blockWeight+WitnessScaleFactor*pkgSize >= maxWeight || *blockSigOps+pkgSigOps >= sigopsCap {
			consecutiveFailures++
			reject()
			if consecutiveFailures > MaxConsecutiveFailures && *blockWeight > maxWeight-4000 {
				return
			}
			continue
		}

		ancestors := mp.Ancestors(chosen)
		toAdd := make([]*collab.MempoolEntry, 0, len(ancestors))
		final := true
		for _, anc := range ancestors {
			aid := *anc.Tx.Hash()
			if included[aid] {
				continue
			}
			if !a.cfg.Chain.IsFinalTx(anc.Tx.MsgTx(), nextHeight, lockTimeCutoff) {
				final = false
				break
			}
			toAdd = append(toAdd, anc)
		}
		if !final {
			reject()
			continue
		}

		sort.Slice(toAdd, func(i, j int) bool { return toAdd[i].AncestorCount < toAdd[j].AncestorCount })

		for _, e := range toAdd {
			eid := *e.Tx.Hash()
			block.Transactions = append(block.Transactions, e.Tx.MsgTx())
			*blockWeight += WitnessScaleFactor * e.Size
			*blockSigOps += e.SigOpCost
			*fees += e.ModifiedFee
			txFees[eid] = e.ModifiedFee
			txSigOps[eid] = e.SigOpCost
			included[eid] = true
			delete(modified, eid)
		}
		consecutiveFailures = 0

		for _, e := range toAdd {
			for did, desc := range mp.CalculateDescendants(e) {
				if did == *e.Tx.Hash() || included[did] {
					continue
				}
				m, ok := modified[did]
				if !ok {
					m = &modEntry{entry: desc, size: desc.AncestorSize, fee: desc.AncestorFee, sigops: desc.AncestorSigOps}
					modified[did] = m
				}
				m.size -= e.Size
				m.fee -= e.ModifiedFee
				m.sigops -= e.SigOpCost
			}
		}

		if a.cfg.Policy.PrintPriority {
			log.Debugf("added package rooted at %s: %d txs, feerate %d", txid, len(toAdd), feeRate)
		}
	}
}
