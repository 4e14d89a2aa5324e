// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcbt-project/btcbtd/consensus/validation"
)

func commitmentScript(tag byte) []byte {
	s := append([]byte{}, validation.WitnessCommitmentMagic[:]...)
	s = append(s, make([]byte, 32)...)
	s[len(s)-1] = tag
	return s
}

func TestWitnessCommitmentIndexNoBlock(t *testing.T) {
	assert.Equal(t, validation.NoWitnessCommitment, WitnessCommitmentIndex(&wire.MsgBlock{}))
}

func TestWitnessCommitmentIndexNoCommitment(t *testing.T) {
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{
		{TxOut: []*wire.TxOut{{PkScript: []byte{0x51}}}},
	}}
	assert.Equal(t, validation.NoWitnessCommitment, WitnessCommitmentIndex(block))
}

func TestWitnessCommitmentIndexLastMatchWins(t *testing.T) {
	coinbase := &wire.MsgTx{TxOut: []*wire.TxOut{
		{PkScript: commitmentScript(1)},
		{PkScript: []byte{0x51}},
		{PkScript: commitmentScript(2)},
	}}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{coinbase}}
	require.Equal(t, 2, WitnessCommitmentIndex(block))
}

func TestAssemblyErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &AssemblyError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "boom")
}
