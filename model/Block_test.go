package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinbaseDetection(t *testing.T) {
	ts := 1700000000.0
	coinbase := NewTestCoinbase(1, 50, ts)

	transfer := &Transaction{Sender: "alice", Recipient: "bob", Amount: 5, Fee: 0.1, Timestamp: ts, TxType: TxTypeTransfer}
	transfer.TxID = transfer.ComputeTxID()

	block := MineTestBlock(nil, 1, ts, []*Transaction{coinbase, transfer})
	require.NotNil(t, block.Coinbase())
	assert.Equal(t, CoinbaseSender, block.Coinbase().Sender)

	// A block whose first transaction is not the coinbase has none.
	block2 := MineTestBlock(nil, 1, ts, []*Transaction{transfer, coinbase})
	assert.Nil(t, block2.Coinbase())

	empty := MineTestBlock(nil, 1, ts, nil)
	assert.Nil(t, empty.Coinbase())
}

func TestTotalFeesSkipsExemptTransactions(t *testing.T) {
	ts := 1700000000.0
	coinbase := NewTestCoinbase(1, 50, ts)
	transfer := &Transaction{Sender: "alice", Recipient: "bob", Amount: 5, Fee: 0.25, Timestamp: ts, TxType: TxTypeTransfer}
	system := &Transaction{Sender: "SYSTEM", Recipient: "bob", Amount: 1, Fee: 0.5, Timestamp: ts, TxType: TxTypeSystem}

	block := MineTestBlock(nil, 1, ts, []*Transaction{coinbase, transfer, system})

	assert.InDelta(t, 0.25, block.TotalFees(), 1e-12)
}

func TestComputeMerkleRoot(t *testing.T) {
	ts := 1700000000.0

	t.Run("empty list commits to the zero hash", func(t *testing.T) {
		b := &Block{Header: &BlockHeader{}}
		assert.Equal(t, GenesisPreviousHash, b.ComputeMerkleRoot())
	})

	t.Run("root changes with transaction order", func(t *testing.T) {
		tx1 := NewTestCoinbase(0, 50, ts)
		tx2 := &Transaction{Sender: "alice", Recipient: "bob", Amount: 5, Timestamp: ts, TxType: TxTypeTransfer}
		tx2.TxID = tx2.ComputeTxID()
		tx3 := &Transaction{Sender: "bob", Recipient: "carol", Amount: 2, Timestamp: ts, TxType: TxTypeTransfer}
		tx3.TxID = tx3.ComputeTxID()

		a := &Block{Transactions: []*Transaction{tx1, tx2, tx3}}
		b := &Block{Transactions: []*Transaction{tx1, tx3, tx2}}

		assert.Len(t, a.ComputeMerkleRoot(), HashLength)
		assert.NotEqual(t, a.ComputeMerkleRoot(), b.ComputeMerkleRoot())
	})
}

func TestBlockRoundTrip(t *testing.T) {
	ts := 1700000000.0
	block := MineTestBlock(nil, 1, ts, []*Transaction{NewTestCoinbase(0, 50, ts)})

	raw, err := block.Bytes()
	require.NoError(t, err)

	parsed, err := NewBlockFromBytes(raw)
	require.NoError(t, err)

	assert.Equal(t, block.Hash(), parsed.Hash())
	assert.Equal(t, block.Header.Timestamp, parsed.Header.Timestamp)
	require.Len(t, parsed.Transactions, 1)
	assert.Equal(t, block.Transactions[0].TxID, parsed.Transactions[0].TxID)
}

func TestNewBlockFromBytesRejectsGarbage(t *testing.T) {
	_, err := NewBlockFromBytes([]byte("not json"))
	require.Error(t, err)

	_, err = NewBlockFromBytes([]byte(`{"transactions":[]}`))
	require.Error(t, err)
}
