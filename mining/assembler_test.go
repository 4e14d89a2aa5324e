// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcbt-project/btcbtd/chaincfg"
	"github.com/btcbt-project/btcbtd/chainref"
	"github.com/btcbt-project/btcbtd/consensus/versionbits"
)

func regtestParams() *chaincfg.Params {
	p := chaincfg.RegressionNetParams
	return &p
}

func regtestAssemblerFixture(t *testing.T) (*Assembler, *chainref.Chain, *chainref.Mempool) {
	t.Helper()
	params := regtestParams()

	chain := chainref.NewChain(params)
	var prev *chainref.IndexNode
	for i := int32(0); i < 10; i++ {
		var h chainhash.Hash
		h[0] = byte(i + 1)
		node := chainref.NewIndexNode(prev, h, 1_600_000_000+int64(i)*600, params.PowLimitBits, 1)
		chain.AddNode(node)
		prev = node
	}

	mp := chainref.NewMempool()
	asm := NewAssembler(AssemblerConfig{
		Chain:    chain,
		Mempool:  mp,
		Versions: versionbits.NewCache(),
		Params:   params,
	})
	return asm, chain, mp
}

func payToTrueScript(t *testing.T) []byte {
	t.Helper()
	script, err := txscript.NewScriptBuilder().AddOp(txscript.OP_TRUE).Script()
	require.NoError(t, err)
	return script
}

// TestCreateNewBlockEmptyMempool checks the coinbase-only fast path: an
// empty mempool yields a single-transaction block paying the full subsidy with a
// height-commitment scriptSig and a witness commitment.
func TestCreateNewBlockEmptyMempool(t *testing.T) {
	asm, chain, _ := regtestAssemblerFixture(t)
	params := asm.cfg.Params

	tmpl, err := asm.CreateNewBlock(payToTrueScript(t))
	require.NoError(t, err)

	require.Len(t, tmpl.Block.Transactions, 1)
	coinbase := tmpl.Block.Transactions[0]

	wantHeight := chain.Tip().Height() + 1
	require.Equal(t, wantHeight, tmpl.Height)

	wantSubsidy := chainref.BlockSubsidy(wantHeight, params)
	require.Equal(t, wantSubsidy, coinbase.TxOut[0].Value)

	wantScriptSig, err := coinbaseScriptSig(wantHeight)
	require.NoError(t, err)
	require.Equal(t, wantScriptSig, coinbase.TxIn[0].SignatureScript)

	require.Equal(t, int64(0), tmpl.Fees[0])
	require.NotEqual(t, -1, WitnessCommitmentIndex(tmpl.Block))
}

// TestCreateNewBlockSelectsPackage checks that a paying transaction in the
// mempool is selected into the block and its fee flows into the coinbase.
func TestCreateNewBlockSelectsPackage(t *testing.T) {
	asm, _, mp := regtestAssemblerFixture(t)

	payScript := payToTrueScript(t)
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{0x01}, 0),
		SignatureScript:  []byte{},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(50_000, payScript))
	btx := btcutil.NewTx(tx)
	mp.AddTx(btx, 1000, 4)

	tmpl, err := asm.CreateNewBlock(payScript)
	require.NoError(t, err)

	require.Len(t, tmpl.Block.Transactions, 2)
	require.Equal(t, *btx.Hash(), tmpl.Block.Transactions[1].TxHash())

	coinbase := tmpl.Block.Transactions[0]
	subsidy := chainref.BlockSubsidy(tmpl.Height, asm.cfg.Params)
	require.Equal(t, subsidy+1000, coinbase.TxOut[0].Value)
	require.Equal(t, int64(-1000), tmpl.Fees[0])
	require.Equal(t, int64(1000), tmpl.Fees[1])
	require.Equal(t, int64(4), tmpl.SigOpCosts[1])
}

// TestCreateNewBlockParentChildPackage checks that a high-fee parent and its
// low-fee child are both selected (the parent on its own score, the child
// afterwards through its modified package), with the parent placed before
// the child and both fees flowing into the coinbase.
func TestCreateNewBlockParentChildPackage(t *testing.T) {
	asm, _, mp := regtestAssemblerFixture(t)

	payScript := payToTrueScript(t)

	parent := wire.NewMsgTx(wire.TxVersion)
	parent.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{0x02}, 0),
		Sequence:         wire.MaxTxInSequenceNum,
	})
	parent.AddTxOut(wire.NewTxOut(100_000, payScript))
	bparent := btcutil.NewTx(parent)
	mp.AddTx(bparent, 1000, 4)

	child := wire.NewMsgTx(wire.TxVersion)
	child.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(bparent.Hash(), 0),
		Sequence:         wire.MaxTxInSequenceNum,
	})
	child.AddTxOut(wire.NewTxOut(99_000, payScript))
	bchild := btcutil.NewTx(child)
	mp.AddTx(bchild, 10, 4)

	tmpl, err := asm.CreateNewBlock(payScript)
	require.NoError(t, err)

	require.Len(t, tmpl.Block.Transactions, 3)
	require.Equal(t, *bparent.Hash(), tmpl.Block.Transactions[1].TxHash())
	require.Equal(t, *bchild.Hash(), tmpl.Block.Transactions[2].TxHash())

	require.Equal(t, int64(-1010), tmpl.Fees[0])
	subsidy := chainref.BlockSubsidy(tmpl.Height, asm.cfg.Params)
	require.Equal(t, subsidy+1010, tmpl.Block.Transactions[0].TxOut[0].Value)
}
