package blockchain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

func newTestMempool(t *testing.T, maxPerSender int) (*blockchain.MemoryMempool, *blockchain.MemoryUTXO) {
	t.Helper()

	tSettings := settings.NewTestSettings()
	tSettings.Mempool.MaxPerSender = maxPerSender

	utxo := blockchain.NewMemoryUTXO()

	return blockchain.NewMemoryMempool(ulogger.TestLogger{}, tSettings, utxo), utxo
}

func pendingTx(sender string, n int) *model.Transaction {
	tx := &model.Transaction{
		Sender:    sender,
		Recipient: "recipient",
		Amount:    float64(n + 1),
		Timestamp: float64(time.Now().Unix()) + float64(n),
		TxType:    model.TxTypeTransfer,
	}
	tx.TxID = tx.ComputeTxID()

	return tx
}

func TestMempoolAddAndRemove(t *testing.T) {
	mempool, _ := newTestMempool(t, 0)

	tx := pendingTx("alice", 0)
	require.True(t, mempool.Add(tx))
	assert.False(t, mempool.Add(tx), "duplicate add must be rejected")

	assert.Equal(t, 1, mempool.PendingBySender("alice"))

	mempool.Remove(tx.TxID)
	assert.Empty(t, mempool.Pending())
	assert.Equal(t, 0, mempool.PendingBySender("alice"))
}

func TestMempoolPerSenderLimit(t *testing.T) {
	mempool, _ := newTestMempool(t, 2)

	require.True(t, mempool.Add(pendingTx("alice", 0)))
	require.True(t, mempool.Add(pendingTx("alice", 1)))
	assert.False(t, mempool.Add(pendingTx("alice", 2)))

	// Other senders are unaffected.
	assert.True(t, mempool.Add(pendingTx("bob", 0)))
}

func TestMempoolRemoveMined(t *testing.T) {
	mempool, _ := newTestMempool(t, 0)

	txs := make([]*model.Transaction, 0, 3)
	for i := 0; i < 3; i++ {
		tx := pendingTx(fmt.Sprintf("sender-%d", i), i)
		txs = append(txs, tx)
		require.True(t, mempool.Add(tx))
	}

	mempool.RemoveMined(txs[:2])

	pending := mempool.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, txs[2].TxID, pending[0].TxID)
}

func TestMempoolValidate(t *testing.T) {
	mempool, utxo := newTestMempool(t, 0)
	ts := float64(time.Now().Unix())

	coinbase := model.NewTestCoinbase(0, 50, ts)

	// Coinbase transactions never enter the mempool.
	assert.False(t, mempool.Validate(coinbase))

	// Inputs must reference live outputs.
	transfer := transferSpending(coinbase, "miner-0", "alice", 10, 0, ts+1)
	assert.False(t, mempool.Validate(transfer))

	require.NoError(t, utxo.ProcessTransactionOutputs(coinbase))
	assert.True(t, mempool.Validate(transfer))

	// Account-style transactions without inputs pass the UTXO check.
	assert.True(t, mempool.Validate(pendingTx("alice", 0)))

	negative := pendingTx("alice", 1)
	negative.Amount = -5
	assert.False(t, mempool.Validate(negative))
}

func TestMempoolSnapshot(t *testing.T) {
	mempool, _ := newTestMempool(t, 0)

	for i := 0; i < 4; i++ {
		require.True(t, mempool.Add(pendingTx(fmt.Sprintf("sender-%d", i), i)))
	}

	snap := mempool.Snapshot(2)
	assert.Equal(t, 4, snap.Count)
	assert.Len(t, snap.Sampled, 2)
	assert.Positive(t, snap.SizeBytes)

	// limit 0 samples nothing but still counts.
	snap = mempool.Snapshot(0)
	assert.Equal(t, 4, snap.Count)
	assert.Empty(t, snap.Sampled)
}
