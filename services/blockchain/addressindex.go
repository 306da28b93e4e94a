package blockchain

import (
	"sync"

	"github.com/xai-blockchain/xai-sub015/model"
)

// MemoryAddressIndex maps addresses to the txids that touch them. It is a
// best-effort convenience index; the chain never depends on it.
type MemoryAddressIndex struct {
	mu      sync.Mutex
	byAddr  map[string][]string
	byBlock map[string][]string
}

// NewMemoryAddressIndex creates an empty address index.
func NewMemoryAddressIndex() *MemoryAddressIndex {
	return &MemoryAddressIndex{
		byAddr:  make(map[string][]string),
		byBlock: make(map[string][]string),
	}
}

// IndexBlock records every address touched by the block's transactions.
func (a *MemoryAddressIndex) IndexBlock(block *model.Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	blockHash := block.Hash()

	for _, tx := range block.Transactions {
		for _, addr := range txAddresses(tx) {
			a.byAddr[addr] = append(a.byAddr[addr], tx.TxID)
			a.byBlock[blockHash] = append(a.byBlock[blockHash], addr)
		}
	}

	return nil
}

// RemoveBlock drops the block's entries, used when a reorg disconnects it.
func (a *MemoryAddressIndex) RemoveBlock(block *model.Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	blockHash := block.Hash()
	touched := a.byBlock[blockHash]
	delete(a.byBlock, blockHash)

	remove := make(map[string]map[string]struct{})

	for _, tx := range block.Transactions {
		for _, addr := range txAddresses(tx) {
			if remove[addr] == nil {
				remove[addr] = make(map[string]struct{})
			}

			remove[addr][tx.TxID] = struct{}{}
		}
	}

	for _, addr := range touched {
		drop, ok := remove[addr]
		if !ok {
			continue
		}

		kept := a.byAddr[addr][:0]

		for _, txid := range a.byAddr[addr] {
			if _, gone := drop[txid]; !gone {
				kept = append(kept, txid)
			}
		}

		if len(kept) == 0 {
			delete(a.byAddr, addr)
		} else {
			a.byAddr[addr] = kept
		}
	}

	return nil
}

// TxIDsFor returns the txids recorded for an address.
func (a *MemoryAddressIndex) TxIDsFor(address string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.byAddr[address]))
	copy(out, a.byAddr[address])

	return out
}

func txAddresses(tx *model.Transaction) []string {
	seen := make(map[string]struct{}, 2+len(tx.Outputs))
	addrs := make([]string, 0, 2+len(tx.Outputs))

	add := func(addr string) {
		if addr == "" || addr == model.CoinbaseSender {
			return
		}

		if _, ok := seen[addr]; ok {
			return
		}

		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	add(tx.Sender)
	add(tx.Recipient)

	for _, out := range tx.Outputs {
		add(out.Address)
	}

	return addrs
}
