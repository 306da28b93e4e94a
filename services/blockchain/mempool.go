package blockchain

import (
	"sync"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// MemoryMempool is the in-memory pending-transaction pool. Insertion order
// is preserved so sampling and pruning are deterministic.
//
// Lock order: the chain lock, when held, is always taken before this one.
type MemoryMempool struct {
	mu        sync.Mutex
	logger    ulogger.Logger
	utxo      *MemoryUTXO
	maxPerTx  int
	txs       map[string]*model.Transaction
	order     []string
	bySender  map[string]int
	sizeBytes int
}

// NewMemoryMempool creates an empty mempool validating against the given
// UTXO set.
func NewMemoryMempool(logger ulogger.Logger, tSettings *settings.Settings, utxo *MemoryUTXO) *MemoryMempool {
	return &MemoryMempool{
		logger:   logger,
		utxo:     utxo,
		maxPerTx: tSettings.Mempool.MaxPerSender,
		txs:      make(map[string]*model.Transaction),
		bySender: make(map[string]int),
	}
}

// Validate re-checks a transaction against the current UTXO set. Coinbase
// transactions never enter the mempool. Account-style transactions without
// explicit inputs pass the UTXO check trivially.
func (m *MemoryMempool) Validate(tx *model.Transaction) bool {
	if tx == nil || tx.IsCoinbase() {
		return false
	}

	if tx.Amount < 0 || tx.Fee < 0 {
		return false
	}

	for _, in := range tx.Inputs {
		if !m.utxo.Has(in.TxID, in.Vout) {
			return false
		}
	}

	return true
}

// Add inserts a pending transaction. Returns false when the transaction is
// already known or the sender is at the pending limit.
func (m *MemoryMempool) Add(tx *model.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txs[tx.TxID]; ok {
		return false
	}

	if m.maxPerTx > 0 && m.bySender[tx.Sender] >= m.maxPerTx {
		m.logger.Debugf("sender %s at pending limit, rejecting tx %.16s [mempool_sender_limit]", tx.Sender, tx.TxID)
		return false
	}

	m.txs[tx.TxID] = tx
	m.order = append(m.order, tx.TxID)
	m.bySender[tx.Sender]++
	m.sizeBytes += txWireSize(tx)

	return true
}

// RemoveMined drops newly mined transactions.
func (m *MemoryMempool) RemoveMined(txs []*model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range txs {
		m.removeLocked(tx.TxID)
	}
}

// Remove drops a single transaction by id.
func (m *MemoryMempool) Remove(txid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(txid)
}

func (m *MemoryMempool) removeLocked(txid string) {
	tx, ok := m.txs[txid]
	if !ok {
		return
	}

	delete(m.txs, txid)
	m.sizeBytes -= txWireSize(tx)

	if m.bySender[tx.Sender] > 1 {
		m.bySender[tx.Sender]--
	} else {
		delete(m.bySender, tx.Sender)
	}

	for i, id := range m.order {
		if id == txid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Pending returns the pending transactions in insertion order.
func (m *MemoryMempool) Pending() []*model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.txs[id])
	}

	return out
}

// PendingBySender returns the pending count for one sender.
func (m *MemoryMempool) PendingBySender(sender string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bySender[sender]
}

// Snapshot returns a consistent view taken under the mempool lock, sampling
// at most limit transactions. limit <= 0 samples none.
func (m *MemoryMempool) Snapshot(limit int) MempoolSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MempoolSnapshot{
		Count:     len(m.txs),
		SizeBytes: m.sizeBytes,
	}

	if limit > 0 {
		n := limit
		if n > len(m.order) {
			n = len(m.order)
		}

		snap.Sampled = make([]*model.Transaction, 0, n)
		for _, id := range m.order[:n] {
			snap.Sampled = append(snap.Sampled, m.txs[id])
		}
	}

	return snap
}

func txWireSize(tx *model.Transaction) int {
	b, err := tx.Bytes()
	if err != nil {
		return 0
	}

	return len(b)
}
