// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/btcbt-project/btcbtd/chaincfg"
)

// Boundary constants, bit-exact. These are consensus values
// shared by every block built or validated against this module; changing any
// of them forks the chain.
const (
	// MaxBlockSerializedSize is the maximum permitted serialized size of a
	// block, not counting witness data.
	MaxBlockSerializedSize = 32_000_000

	// MaxBlockWeight is the hard ceiling on a block's weight.
	MaxBlockWeight = 4_000_000

	// MaxBlockSigOpsCost is the pre-fork sigops-cost ceiling. Post-fork
	// blocks use chaincfg.Params.MaxBlockSigOpsCost instead.
	MaxBlockSigOpsCost = 80_000

	// CoinbaseMaturity is the number of confirmations required before a
	// coinbase output may be spent.
	CoinbaseMaturity = 100

	// WitnessScaleFactor converts a stripped size into its weight
	// contribution: weight = strippedSize*WitnessScaleFactor + witnessSize.
	WitnessScaleFactor = 4

	MinTransactionWeight             = 240
	MinSerializableTransactionWeight = 40

	// LockTimeVerifySequence is the CTxIn::SEQUENCE_LOCKTIME_DISABLE_FLAG
	// companion bit used by IsFinalTx-adjacent sequence-lock logic.
	LockTimeVerifySequence = 1

	// MaxConsecutiveFailures bounds how many back-to-back test_package
	// rejections the assembler tolerates before abandoning selection near
	// the weight cap.
	MaxConsecutiveFailures = 1000

	// blockReserveWeight and blockReserveSigOps are the running totals'
	// starting values: headroom reserved for the coinbase and the witness
	// commitment output before any transaction is selected.
	blockReserveWeight = 4000
	blockReserveSigOps = 400
)

// GetTransactionWeight returns tx's weight: strippedSize*3 + totalSize,
// where totalSize includes witness data and strippedSize does not.
func GetTransactionWeight(tx *wire.MsgTx) int64 {
	stripped := tx.SerializeSizeStripped()
	total := tx.SerializeSize()
	return int64(stripped)*(WitnessScaleFactor-1) + int64(total)
}

// GetBlockWeight returns block's weight using the same formula as
// GetTransactionWeight, applied to the serialized block as a whole
// (header + transaction count prefix + every transaction).
func GetBlockWeight(block *wire.MsgBlock) int64 {
	overhead := wire.MaxBlockHeaderPayload + wire.VarIntSerializeSize(uint64(len(block.Transactions)))

	stripped := overhead
	total := overhead
	for _, tx := range block.Transactions {
		stripped += tx.SerializeSizeStripped()
		total += tx.SerializeSize()
	}
	return int64(stripped)*(WitnessScaleFactor-1) + int64(total)
}

// sigOpsLimit returns the per-block sigops-cost ceiling in effect at
// nextHeight: the post-fork limit once BTCBT rules apply, the legacy
// MaxBlockSigOpsCost otherwise.
func sigOpsLimit(nextHeight int32, params *chaincfg.Params) int64 {
	if params.ForkBlockHeight > 0 && nextHeight >= params.ForkBlockHeight {
		return params.MaxBlockSigOpsCost
	}
	return MaxBlockSigOpsCost
}

// AdaptiveMaxBlockWeight computes the adaptive weight cap: a pure function
// of mempool size, target height, and params. Regtest always returns
// MaxBlockWeight regardless of the adaptive scheme.
func AdaptiveMaxBlockWeight(mempoolTxCount int, nextHeight int32, params *chaincfg.Params) int64 {
	if params.IsRegTest {
		return MaxBlockWeight
	}

	hardCap := int64(MaxBlockWeight)
	if int64(params.MaxBlockSize) < hardCap {
		hardCap = int64(params.MaxBlockSize)
	}

	postFork := params.ForkBlockHeight > 0 && nextHeight >= params.ForkBlockHeight
	lowBound := int64(4_000_000)
	if postFork {
		lowBound = 8_000_000
	}

	minW := hardCap
	if lowBound < minW {
		minW = lowBound
	}
	maxW := hardCap
	if int64(32_000_000) < maxW {
		maxW = 32_000_000
	}

	switch {
	case mempoolTxCount <= 1000:
		return minW
	case mempoolTxCount >= 100_000:
		return maxW
	default:
		span := maxW - minW
		w := minW + int64(mempoolTxCount)*span/100_000
		if w < minW {
			w = minW
		}
		if w > maxW {
			w = maxW
		}
		return w
	}
}

// ClampBlockMaxWeight clamps a user-supplied -blockmaxweight option to
// [4000, hardCap], forcing MaxBlockWeight unconditionally on regtest.
func ClampBlockMaxWeight(opt int64, params *chaincfg.Params, hardCap int64) int64 {
	if params.IsRegTest {
		return MaxBlockWeight
	}
	if opt < 4000 {
		return 4000
	}
	if opt > hardCap {
		return hardCap
	}
	return opt
}
