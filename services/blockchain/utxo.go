package blockchain

import (
	"fmt"
	"sync"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
)

// MemoryUTXO is the in-memory unspent-output set. Spent outputs are kept in
// a journal so a rollback can restore them exactly.
type MemoryUTXO struct {
	mu      sync.Mutex
	unspent map[string]model.TxOutput
	spent   map[string]model.TxOutput
}

// NewMemoryUTXO creates an empty UTXO set.
func NewMemoryUTXO() *MemoryUTXO {
	return &MemoryUTXO{
		unspent: make(map[string]model.TxOutput),
		spent:   make(map[string]model.TxOutput),
	}
}

func utxoKey(txid string, vout uint32) string {
	return fmt.Sprintf("%s:%d", txid, vout)
}

// ProcessTransactionInputs spends the transaction's inputs. The check runs
// in two phases so nothing is mutated when any input is missing or listed
// twice.
func (u *MemoryUTXO) ProcessTransactionInputs(tx *model.Transaction) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	seen := make(map[string]struct{}, len(tx.Inputs))

	for _, in := range tx.Inputs {
		key := utxoKey(in.TxID, in.Vout)

		if _, dup := seen[key]; dup {
			return errors.NewTxInvalidError("tx %.16s references input %s twice", tx.TxID, key)
		}

		seen[key] = struct{}{}

		if _, ok := u.unspent[key]; !ok {
			return errors.NewUtxoSpentError("tx %.16s spends missing or already spent output %s", tx.TxID, key)
		}
	}

	for _, in := range tx.Inputs {
		key := utxoKey(in.TxID, in.Vout)
		u.spent[key] = u.unspent[key]
		delete(u.unspent, key)
	}

	return nil
}

// ProcessTransactionOutputs adds the transaction's outputs as new unspent
// outputs.
func (u *MemoryUTXO) ProcessTransactionOutputs(tx *model.Transaction) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for vout := range tx.Outputs {
		key := utxoKey(tx.TxID, uint32(vout))

		if _, ok := u.unspent[key]; ok {
			return errors.NewTxInvalidError("output %s already exists", key)
		}
	}

	for vout, out := range tx.Outputs {
		u.unspent[utxoKey(tx.TxID, uint32(vout))] = out
	}

	return nil
}

// RollbackTransaction removes the transaction's created outputs and restores
// its spent inputs from the journal.
func (u *MemoryUTXO) RollbackTransaction(tx *model.Transaction) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for vout := range tx.Outputs {
		delete(u.unspent, utxoKey(tx.TxID, uint32(vout)))
	}

	for _, in := range tx.Inputs {
		key := utxoKey(in.TxID, in.Vout)

		out, ok := u.spent[key]
		if !ok {
			return errors.NewProcessingError("no journal entry for spent output %s", key)
		}

		u.unspent[key] = out
		delete(u.spent, key)
	}

	return nil
}

// Has reports whether an output is currently unspent.
func (u *MemoryUTXO) Has(txid string, vout uint32) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	_, ok := u.unspent[utxoKey(txid, vout)]

	return ok
}

// UTXOCount returns the number of unspent outputs.
func (u *MemoryUTXO) UTXOCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.unspent)
}

// BalanceOf sums the unspent outputs paying the address.
func (u *MemoryUTXO) BalanceOf(address string) float64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	var total float64

	for _, out := range u.unspent {
		if out.Address == address {
			total += out.Amount
		}
	}

	return total
}
