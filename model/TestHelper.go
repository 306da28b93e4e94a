package model

import (
	"fmt"
	"time"
)

// Helpers for constructing valid test chains. Kept outside _test.go files so
// service and store tests can share them.

// NewTestCoinbase returns a coinbase transaction minting amount at the given
// height.
func NewTestCoinbase(height uint32, amount float64, timestamp float64) *Transaction {
	tx := &Transaction{
		Sender:    CoinbaseSender,
		Recipient: fmt.Sprintf("miner-%d", height),
		Amount:    amount,
		Timestamp: timestamp,
		TxType:    TxTypeCoinbase,
		Outputs: []TxOutput{
			{Address: fmt.Sprintf("miner-%d", height), Amount: amount},
		},
	}
	tx.TxID = tx.ComputeTxID()

	return tx
}

// MineTestBlock builds a block on top of prev and grinds the nonce until the
// hash meets the difficulty. A nil prev mines a genesis block.
func MineTestBlock(prev *Block, difficulty uint32, timestamp float64, txs []*Transaction) *Block {
	var (
		height   uint32
		prevHash = GenesisPreviousHash
	)

	if prev != nil {
		height = prev.Header.Height + 1
		prevHash = prev.Hash()
	}

	block := &Block{
		Header: &BlockHeader{
			Height:       height,
			PreviousHash: prevHash,
			Timestamp:    timestamp,
			Difficulty:   difficulty,
			Version:      1,
		},
		Transactions: txs,
	}
	block.Header.MerkleRoot = block.ComputeMerkleRoot()

	for !block.Header.MeetsDifficulty() {
		block.Header.Nonce++
	}

	return block
}

// BuildTestChain mines a connected chain of n blocks (genesis included) at
// constant difficulty and reward, spaced at blockSpacing seconds ending near
// the current time.
func BuildTestChain(n int, difficulty uint32, reward float64, blockSpacing float64) []*Block {
	chain := make([]*Block, 0, n)
	base := float64(time.Now().Unix()) - float64(n)*blockSpacing

	var prev *Block

	for i := 0; i < n; i++ {
		ts := base + float64(i)*blockSpacing
		coinbase := NewTestCoinbase(uint32(i), reward, ts)
		block := MineTestBlock(prev, difficulty, ts, []*Transaction{coinbase})
		chain = append(chain, block)
		prev = block
	}

	return chain
}
