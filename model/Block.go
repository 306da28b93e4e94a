package model

import (
	"crypto/sha256"
	"encoding/hex"

	jsoniter "github.com/json-iterator/go"

	"github.com/xai-blockchain/xai-sub015/errors"
)

var blockJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Block is a header plus its ordered transaction list. Transaction[0] must be
// the coinbase.
type Block struct {
	Header       *BlockHeader   `json:"header"`
	Transactions []*Transaction `json:"transactions"`
}

// NewBlock constructs a block and recomputes the header merkle root
// commitment check.
func NewBlock(header *BlockHeader, txs []*Transaction) (*Block, error) {
	if header == nil {
		return nil, errors.NewInvalidArgumentError("block header must not be nil")
	}

	return &Block{
		Header:       header,
		Transactions: txs,
	}, nil
}

// Hash returns the block's header hash.
func (b *Block) Hash() string {
	return b.Header.Hash()
}

// Coinbase returns the reward-minting transaction, or nil if transaction[0]
// is missing or not a coinbase.
func (b *Block) Coinbase() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}

	if !b.Transactions[0].IsCoinbase() {
		return nil
	}

	return b.Transactions[0]
}

// TotalFees sums the fees of all fee-paying transactions.
func (b *Block) TotalFees() float64 {
	var fees float64

	for _, tx := range b.Transactions {
		if tx.IsFeeExempt() {
			continue
		}

		fees += tx.Fee
	}

	return fees
}

// ComputeMerkleRoot hashes the ordered txids pairwise; an odd level
// duplicates its last entry. An empty transaction list commits to the zero
// hash.
func (b *Block) ComputeMerkleRoot() string {
	if len(b.Transactions) == 0 {
		return GenesisPreviousHash
	}

	level := make([]string, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		level = append(level, tx.TxID)
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]string, 0, len(level)/2)

		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}

		level = next
	}

	return level[0]
}

// EstimatedSize returns the serialized size of the block in bytes.
func (b *Block) EstimatedSize() int {
	raw, err := b.Bytes()
	if err != nil {
		return 0
	}

	return len(raw)
}

// Bytes returns the JSON wire form of the block, as written to flat block
// files (one block per line).
func (b *Block) Bytes() ([]byte, error) {
	return blockJSON.Marshal(b)
}

// NewBlockFromBytes parses a block from its JSON wire form. The header hash
// is not trusted from the wire; callers recompute it.
func NewBlockFromBytes(raw []byte) (*Block, error) {
	b := &Block{}
	if err := blockJSON.Unmarshal(raw, b); err != nil {
		return nil, errors.NewBlockInvalidError("could not parse block", err)
	}

	if b.Header == nil {
		return nil, errors.NewBlockInvalidError("block has no header")
	}

	return b, nil
}
