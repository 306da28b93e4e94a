package blockchain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
)

func TestUTXOSpendAndRollback(t *testing.T) {
	utxo := blockchain.NewMemoryUTXO()
	ts := float64(time.Now().Unix())

	coinbase := model.NewTestCoinbase(0, 50, ts)
	require.NoError(t, utxo.ProcessTransactionOutputs(coinbase))
	require.True(t, utxo.Has(coinbase.TxID, 0))
	assert.Equal(t, 50.0, utxo.BalanceOf("miner-0"))

	transfer := transferSpending(coinbase, "miner-0", "alice", 50, 0, ts+1)
	require.NoError(t, utxo.ProcessTransactionInputs(transfer))
	require.NoError(t, utxo.ProcessTransactionOutputs(transfer))

	assert.False(t, utxo.Has(coinbase.TxID, 0))
	assert.True(t, utxo.Has(transfer.TxID, 0))
	assert.Equal(t, 50.0, utxo.BalanceOf("alice"))

	// Rollback restores the spent output and removes the created one.
	require.NoError(t, utxo.RollbackTransaction(transfer))
	assert.True(t, utxo.Has(coinbase.TxID, 0))
	assert.False(t, utxo.Has(transfer.TxID, 0))
	assert.Equal(t, 0.0, utxo.BalanceOf("alice"))
}

func TestUTXORejectsDoubleSpend(t *testing.T) {
	utxo := blockchain.NewMemoryUTXO()
	ts := float64(time.Now().Unix())

	coinbase := model.NewTestCoinbase(0, 50, ts)
	require.NoError(t, utxo.ProcessTransactionOutputs(coinbase))

	first := transferSpending(coinbase, "miner-0", "alice", 50, 0, ts+1)
	require.NoError(t, utxo.ProcessTransactionInputs(first))

	second := transferSpending(coinbase, "miner-0", "bob", 50, 0, ts+2)
	err := utxo.ProcessTransactionInputs(second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUtxoSpent))
}

func TestUTXORejectsDuplicateInputInOneTx(t *testing.T) {
	utxo := blockchain.NewMemoryUTXO()
	ts := float64(time.Now().Unix())

	coinbase := model.NewTestCoinbase(0, 50, ts)
	require.NoError(t, utxo.ProcessTransactionOutputs(coinbase))

	tx := transferSpending(coinbase, "miner-0", "alice", 100, 0, ts+1)
	tx.Inputs = append(tx.Inputs, model.TxInput{TxID: coinbase.TxID, Vout: 0})

	err := utxo.ProcessTransactionInputs(tx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxInvalid))

	// Nothing was mutated: the output is still spendable.
	assert.True(t, utxo.Has(coinbase.TxID, 0))
}
