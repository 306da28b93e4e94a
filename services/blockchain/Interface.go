// Package blockchain implements the chain-state side of the engine: the live
// chain container, the consensus rules (reward schedule and difficulty
// retargeting), checkpoint bookkeeping and the state manager that applies
// validated blocks.
//
// External collaborators (UTXO set, mempool, address index, signature
// verification) are injected through the interfaces in this file; the engine
// never reaches for a global.
package blockchain

import (
	"context"

	"github.com/xai-blockchain/xai-sub015/model"
)

// UTXOManager mutates the unspent-output set as blocks are applied and
// rolled back.
type UTXOManager interface {
	// ProcessTransactionInputs spends the transaction's inputs. Returns an
	// error on a double-spend or duplicate input; nothing is mutated on
	// error.
	ProcessTransactionInputs(tx *model.Transaction) error

	// ProcessTransactionOutputs adds the transaction's outputs as new
	// unspent outputs. Returns an error on duplicate outputs.
	ProcessTransactionOutputs(tx *model.Transaction) error

	// RollbackTransaction undoes a previously applied transaction: its
	// created outputs are removed and its spent inputs restored.
	RollbackTransaction(tx *model.Transaction) error

	// UTXOCount returns the current number of unspent outputs.
	UTXOCount() int
}

// Mempool is the pending-transaction pool.
type Mempool interface {
	// Validate re-checks a transaction against the current UTXO set.
	Validate(tx *model.Transaction) bool

	// Add inserts a pending transaction, returning false if it is already
	// known.
	Add(tx *model.Transaction) bool

	// RemoveMined drops newly mined transactions and decrements the
	// per-sender pending counters.
	RemoveMined(txs []*model.Transaction)

	// Remove drops a single transaction by id.
	Remove(txid string)

	// Pending returns a copy of the pending transactions.
	Pending() []*model.Transaction

	// PendingBySender returns the pending count for one sender.
	PendingBySender(sender string) int

	// Snapshot returns a consistent read-only view, sampling at most limit
	// transactions.
	Snapshot(limit int) MempoolSnapshot
}

// MempoolSnapshot is a point-in-time view of the mempool taken under its
// lock.
type MempoolSnapshot struct {
	Count     int
	SizeBytes int
	Sampled   []*model.Transaction
}

// AddressIndex maintains the per-address transaction index. Indexing is
// best-effort: failures are logged and never block acceptance.
type AddressIndex interface {
	IndexBlock(block *model.Block) error
	RemoveBlock(block *model.Block) error
}

// CheckpointManager records finality checkpoints. Any chain that would
// rewrite history at or before the last checkpoint height is rejected
// outright.
type CheckpointManager interface {
	// MaybeCreateCheckpoint records (height, hash) when height falls on
	// the checkpoint interval.
	MaybeCreateCheckpoint(height uint32, blockHash string) error

	// LastCheckpointHeight returns the highest recorded checkpoint height,
	// or 0 with ok=false when none exist.
	LastCheckpointHeight() (uint32, bool)

	// HashAt returns the checkpointed hash for a height, if recorded.
	HashAt(height uint32) (string, bool)
}

// BlockStorage persists blocks to the authoritative flat files.
// Implemented by stores/blockfile.
type BlockStorage interface {
	SaveBlockToDisk(block *model.Block) (filePath string, fileOffset, fileSize int64, err error)
	LoadBlockFromDisk(height uint32) (*model.Block, error)
	HandleReorg(startHeight uint32) error
}

// BlockIndexer records block locations in the durable index. Implemented by
// stores/blockindex. Index failures are soft: the flat files stay
// authoritative.
type BlockIndexer interface {
	IndexBlock(ctx context.Context, height uint32, blockHash, filePath string, fileOffset, fileSize int64) error
	RemoveBlocksFrom(ctx context.Context, startHeight uint32) (int64, error)
	MaxIndexedHeight(ctx context.Context) (uint32, bool, error)
}

// SignatureVerifier checks a header signature over the header hash. The
// algorithm is opaque to this engine.
type SignatureVerifier interface {
	Verify(headerHash, signature, pubKey string) bool
}

// SupplyTracker reports the circulating supply, read by the reward schedule
// to enforce the emission cap.
type SupplyTracker interface {
	CirculatingSupply() float64
}

// DynamicAdjuster is an optional pluggable difficulty adjuster with a
// shorter, more responsive window. When its trigger fires it pre-empts the
// interval retarget for that call.
type DynamicAdjuster interface {
	// ShouldAdjust reports whether the adjuster wants to override the
	// retarget for the chain's next block.
	ShouldAdjust(chain []*model.Block) bool

	// NextDifficulty computes the override difficulty.
	NextDifficulty(chain []*model.Block, currentDifficulty uint32) uint32
}
