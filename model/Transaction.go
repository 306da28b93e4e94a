package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var txJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// CoinbaseSender is the sentinel sender of reward-minting transactions.
	CoinbaseSender = "COINBASE"

	// TxTypeCoinbase marks the reward-minting transaction required first in
	// every block.
	TxTypeCoinbase = "coinbase"

	// TxTypeTransfer is a normal value transfer.
	TxTypeTransfer = "transfer"

	// TxTypeSystem marks fee-exempt system transactions.
	TxTypeSystem = "system"
)

// TxInput references an unspent output by (txid, vout).
type TxInput struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// TxOutput is a newly created spendable output.
type TxOutput struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// Transaction is a single chain transaction. Transaction[0] of every block is
// the coinbase.
type Transaction struct {
	TxID      string     `json:"txid"`
	Sender    string     `json:"sender"`
	Recipient string     `json:"recipient"`
	Amount    float64    `json:"amount"`
	Fee       float64    `json:"fee"`
	Timestamp float64    `json:"timestamp"`
	TxType    string     `json:"tx_type"`
	Inputs    []TxInput  `json:"inputs,omitempty"`
	Outputs   []TxOutput `json:"outputs,omitempty"`
	Signature string     `json:"signature,omitempty"`
	PubKey    string     `json:"pubkey,omitempty"`
}

// IsCoinbase reports whether this is a reward-minting transaction.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Sender == CoinbaseSender && tx.TxType == TxTypeCoinbase
}

// IsFeeExempt reports whether this transaction's fee is excluded from the
// coinbase fee total.
func (tx *Transaction) IsFeeExempt() bool {
	return tx.IsCoinbase() || tx.TxType == TxTypeSystem
}

// ComputeTxID returns the content digest of the transaction, excluding the
// signature fields.
func (tx *Transaction) ComputeTxID() string {
	var sb strings.Builder

	sb.WriteString(tx.Sender)
	sb.WriteByte('|')
	sb.WriteString(tx.Recipient)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(tx.Amount, 'f', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(tx.Fee, 'f', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(tx.Timestamp, 'f', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(tx.TxType)

	for _, in := range tx.Inputs {
		sb.WriteByte('|')
		sb.WriteString(in.TxID)
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(in.Vout), 10))
	}

	for _, out := range tx.Outputs {
		sb.WriteByte('|')
		sb.WriteString(out.Address)
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(out.Amount, 'f', -1, 64))
	}

	sum := sha256.Sum256([]byte(sb.String()))

	return hex.EncodeToString(sum[:])
}

// Bytes returns the JSON wire form of the transaction.
func (tx *Transaction) Bytes() ([]byte, error) {
	return txJSON.Marshal(tx)
}

// NewTransactionFromBytes parses a transaction from its JSON wire form.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	if err := txJSON.Unmarshal(b, tx); err != nil {
		return nil, err
	}

	return tx, nil
}
