// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainref

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcbt-project/btcbtd/chaincfg"
)

func TestIsFinalTxLockTimeZero(t *testing.T) {
	c := NewChain(func() *chaincfg.Params { p := chaincfg.MainNetParams; return &p }())
	tx := wire.NewMsgTx(wire.TxVersion)
	require.True(t, c.IsFinalTx(tx, 100, 1000))
}

func TestIsFinalTxHeightLockedAllMaxSequence(t *testing.T) {
	c := NewChain(func() *chaincfg.Params { p := chaincfg.MainNetParams; return &p }())
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.LockTime = 500
	tx.AddTxIn(&wire.TxIn{Sequence: wire.MaxTxInSequenceNum})
	require.True(t, c.IsFinalTx(tx, 100, 1000))
}

func TestIsFinalTxHeightLockedNotYetReached(t *testing.T) {
	c := NewChain(func() *chaincfg.Params { p := chaincfg.MainNetParams; return &p }())
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.LockTime = 500
	tx.AddTxIn(&wire.TxIn{Sequence: 0})
	require.False(t, c.IsFinalTx(tx, 100, 1000))
	require.True(t, c.IsFinalTx(tx, 501, 1000))
}

func TestGenerateCoinbaseCommitmentRoundTrip(t *testing.T) {
	c := NewChain(func() *chaincfg.Params { p := chaincfg.MainNetParams; return &p }())

	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		Witness:          wire.TxWitness{make([]byte, 32)},
	})
	coinbase.AddTxOut(wire.NewTxOut(50*1e8, []byte{0x51}))

	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{coinbase}}

	script, err := c.GenerateCoinbaseCommitment(block, nil)
	require.NoError(t, err)
	require.True(t, len(script) >= 38)
	require.Equal(t, WitnessCommitmentMagic[:], script[:6])
}

func TestGetLegacySigOpCount(t *testing.T) {
	c := NewChain(func() *chaincfg.Params { p := chaincfg.MainNetParams; return &p }())

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{SignatureScript: []byte{}})
	tx.AddTxOut(wire.NewTxOut(1, []byte{0x51})) // OP_TRUE, no sigops

	require.Equal(t, int64(0), c.GetLegacySigOpCount(tx))
}
