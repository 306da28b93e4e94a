package blockchain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/looplab/fsm"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// orphanTxMaxAge is how long an orphaned transaction may wait for its inputs
// before eviction.
const orphanTxMaxAge = time.Hour

// maxDiagnosticSnapshots bounds the diagnostic ring buffer.
const maxDiagnosticSnapshots = 100

// DiagnosticSnapshot captures the chain state right after a block was
// applied.
type DiagnosticSnapshot struct {
	ID           string
	Height       uint32
	BlockHash    string
	TxCount      int
	UTXOCount    int
	MempoolCount int
	TakenAt      time.Time
}

// MempoolOverview is the read-only mempool summary returned by
// GetMempoolOverview.
type MempoolOverview struct {
	Count       int
	SizeBytes   int
	Sampled     []*model.Transaction
	OrphanCount int
}

// ChainState applies validated blocks to the live chain and keeps the
// dependent state (UTXO set, mempool, address index, checkpoints, block
// index) in step.
type ChainState struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	chain       *Chain
	utxo        UTXOManager
	mempool     Mempool
	addrIndex   AddressIndex
	checkpoints CheckpointManager
	storage     BlockStorage
	indexer     BlockIndexer
	fsm         *fsm.FSM

	orphanTxs *ttlcache.Cache[string, *model.Transaction]

	snapMu    sync.Mutex
	snapshots []*DiagnosticSnapshot

	mempoolPrunedTotal  atomic.Uint64
	orphanTxPrunedTotal atomic.Uint64
}

// NewChainState wires the state manager. addrIndex and indexer may be nil
// (both are best-effort layers); everything else is required.
func NewChainState(logger ulogger.Logger, tSettings *settings.Settings, chain *Chain,
	utxo UTXOManager, mempool Mempool, addrIndex AddressIndex,
	checkpoints CheckpointManager, storage BlockStorage, indexer BlockIndexer) *ChainState {
	initPrometheusMetrics()

	sm := &ChainState{
		logger:      logger,
		settings:    tSettings,
		chain:       chain,
		utxo:        utxo,
		mempool:     mempool,
		addrIndex:   addrIndex,
		checkpoints: checkpoints,
		storage:     storage,
		indexer:     indexer,
		fsm:         NewFiniteStateMachine(),
		orphanTxs: ttlcache.New[string, *model.Transaction](
			ttlcache.WithTTL[string, *model.Transaction](orphanTxMaxAge),
		),
	}

	return sm
}

// Chain returns the live chain container.
func (sm *ChainState) Chain() *Chain {
	return sm.chain
}

// AddBlockToChain applies a validated block under the chain-mutation lock.
// Linkage is re-checked against the authoritative tip inside the critical
// section: there is no validate-then-apply gap for a reorg to race through.
// Returns false if anything in the apply sequence failed; no partial
// mutation survives a failure.
func (sm *ChainState) AddBlockToChain(ctx context.Context, block *model.Block) bool {
	start := time.Now()

	sm.chain.lock()
	err := sm.applyBlockLocked(ctx, block, true)

	if err == nil {
		sm.recordCheckpoint(block)
	}

	sm.chain.unlock()

	if err != nil {
		prometheusBlockchainBlocksRejected.Inc()
		sm.logger.Errorf("failed to apply block %d (%.16s) [block_apply_failed]: %v", block.Header.Height, block.Hash(), err)

		return false
	}

	prometheusBlockchainBlocksAdded.Inc()
	prometheusBlockchainAddBlock.Observe(time.Since(start).Seconds())

	// Orphaned transactions may now have their inputs.
	sm.ProcessOrphanTransactions()

	return true
}

// applyBlockLocked runs the full apply sequence. The caller holds the chain
// lock. With persist false the block is assumed to already sit in the flat
// files and the index at its original location (restoring after an aborted
// reorg whose storage truncation failed); disk and index writes are skipped
// so the files stay free of duplicate lines.
//
// Checkpoints are not recorded here: they only become final once the caller
// commits (immediately for a tip extension, after the whole branch applied
// for a reorg), so an aborted reorg can never leave a checkpoint from the
// abandoned branch behind.
func (sm *ChainState) applyBlockLocked(ctx context.Context, block *model.Block, persist bool) error {
	tip := sm.chain.tipLocked()

	if tip == nil {
		if !block.Header.IsGenesis() {
			return errors.NewBlockInvalidError("first block must be genesis, got height %d", block.Header.Height)
		}
	} else {
		if block.Header.PreviousHash != tip.Hash() {
			return errors.NewBlockInvalidError("block %d does not extend the tip (%.16s != %.16s)",
				block.Header.Height, block.Header.PreviousHash, tip.Hash())
		}

		if block.Header.Height != tip.Header.Height+1 {
			return errors.NewBlockInvalidError("block height %d does not follow tip height %d",
				block.Header.Height, tip.Header.Height)
		}
	}

	if !block.Header.MeetsDifficulty() {
		return errors.NewBlockInvalidError("block %d hash does not meet difficulty %d", block.Header.Height, block.Header.Difficulty)
	}

	if block.Header.MerkleRoot != block.ComputeMerkleRoot() {
		return errors.NewBlockInvalidError("block %d merkle root mismatch", block.Header.Height)
	}

	// UTXO update. Track what has been applied so a failure can unwind.
	applied := make([]*model.Transaction, 0, len(block.Transactions))

	for _, tx := range block.Transactions {
		var err error

		if !tx.IsCoinbase() {
			err = sm.utxo.ProcessTransactionInputs(tx)
		}

		if err == nil {
			err = sm.utxo.ProcessTransactionOutputs(tx)
		}

		if err != nil {
			sm.unwindTransactions(applied)
			return errors.NewProcessingError("utxo update failed for tx %.16s in block %d", tx.TxID, block.Header.Height, err)
		}

		applied = append(applied, tx)
	}

	var (
		filePath             string
		fileOffset, fileSize int64
	)

	if persist {
		// Block durability outranks everything that follows: a failed save
		// is fatal to acceptance.
		var err error

		filePath, fileOffset, fileSize, err = sm.storage.SaveBlockToDisk(block)
		if err != nil {
			sm.unwindTransactions(applied)
			return errors.NewStorageError("failed to persist block %d", block.Header.Height, err)
		}
	}

	sm.chain.appendLocked(block)

	// Chain lock is held; the mempool lock nests inside it.
	sm.mempool.RemoveMined(block.Transactions)

	// Everything below is best-effort and never fails acceptance.
	if sm.addrIndex != nil {
		if err := sm.addrIndex.IndexBlock(block); err != nil {
			sm.logger.Warnf("address indexing failed for block %d (%.16s) [address_index_failed]: %v", block.Header.Height, block.Hash(), err)
		}
	}

	if persist && sm.indexer != nil {
		if err := sm.indexer.IndexBlock(ctx, block.Header.Height, block.Hash(), filePath, fileOffset, fileSize); err != nil {
			sm.logger.Warnf("block indexing failed for block %d [block_index_failed]: %v", block.Header.Height, err)
		}
	}

	sm.appendSnapshot(block)

	sm.logger.Infof("applied block %d (%.16s) with %d txs [block_applied]", block.Header.Height, block.Hash(), len(block.Transactions))

	return nil
}

func (sm *ChainState) unwindTransactions(applied []*model.Transaction) {
	for i := len(applied) - 1; i >= 0; i-- {
		if err := sm.utxo.RollbackTransaction(applied[i]); err != nil {
			sm.logger.Errorf("failed to unwind tx %.16s [utxo_unwind_failed]: %v", applied[i].TxID, err)
		}
	}
}

// rollbackBlockLocked undoes a block's effects: UTXO mutations are reversed
// and its non-coinbase transactions return to the mempool. The caller holds
// the chain lock.
func (sm *ChainState) rollbackBlockLocked(block *model.Block) {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]

		if err := sm.utxo.RollbackTransaction(tx); err != nil {
			sm.logger.Errorf("utxo rollback failed for tx %.16s in block %d [utxo_rollback_failed]: %v", tx.TxID, block.Header.Height, err)
		}

		if !tx.IsCoinbase() {
			sm.mempool.Add(tx)
		}
	}

	if sm.addrIndex != nil {
		if err := sm.addrIndex.RemoveBlock(block); err != nil {
			sm.logger.Warnf("address index rollback failed for block %d [address_index_rollback_failed]: %v", block.Header.Height, err)
		}
	}
}

// ReorgTo atomically replaces the chain suffix above ancestorHeight with the
// candidate blocks. The whole rollback+reapply runs under one chain lock
// acquisition; a failure during reapplication restores the previous chain
// before returning. Candidates touching checkpointed history are rejected
// outright.
func (sm *ChainState) ReorgTo(ctx context.Context, ancestorHeight uint32, candidate []*model.Block) error {
	if len(candidate) == 0 {
		return errors.NewInvalidArgumentError("reorg candidate is empty")
	}

	if err := sm.fsm.Event(ctx, FSMEventStartReorg); err != nil {
		return errors.NewProcessingError("cannot start reorg in state %s", sm.fsm.Current(), err)
	}

	defer func() {
		_ = sm.fsm.Event(ctx, FSMEventFinishReorg)
	}()

	sm.chain.lock()
	defer sm.chain.unlock()

	// Checkpoint finality: the first rewritten height is ancestorHeight+1,
	// which must lie strictly beyond the last checkpoint.
	if cpHeight, ok := sm.checkpoints.LastCheckpointHeight(); ok && ancestorHeight < cpHeight {
		prometheusBlockchainReorgsFailed.Inc()
		return errors.NewCheckpointViolationError("reorg would rewrite checkpointed history (fork at %d, checkpoint at %d)", ancestorHeight, cpHeight)
	}

	ancestor := sm.chain.blockAtHeightLocked(ancestorHeight)
	if ancestor == nil {
		return errors.NewInvalidArgumentError("no block at fork point %d", ancestorHeight)
	}

	if candidate[0].Header.PreviousHash != ancestor.Hash() {
		return errors.NewBlockInvalidError("candidate does not connect to fork point %d", ancestorHeight)
	}

	removed := make([]*model.Block, len(sm.chain.blocks)-int(ancestorHeight)-1)
	copy(removed, sm.chain.blocks[ancestorHeight+1:])

	oldTipHash := ""
	if tip := sm.chain.tipLocked(); tip != nil {
		oldTipHash = tip.Hash()
	}

	// Roll back the divergent suffix, tip first.
	for i := len(removed) - 1; i >= 0; i-- {
		sm.rollbackBlockLocked(removed[i])
	}

	sm.chain.truncateLocked(int(ancestorHeight) + 1)

	if err := sm.storage.HandleReorg(ancestorHeight + 1); err != nil {
		// Disk still holds the old suffix; restore in-memory state to
		// match it.
		sm.restoreLocked(ctx, ancestorHeight, removed, false)
		prometheusBlockchainReorgsFailed.Inc()

		return errors.NewReorgFailedError("storage truncation failed at height %d", ancestorHeight+1, err)
	}

	if sm.indexer != nil {
		if _, err := sm.indexer.RemoveBlocksFrom(ctx, ancestorHeight+1); err != nil {
			sm.logger.Warnf("index rollback failed from height %d [index_rollback_failed]: %v", ancestorHeight+1, err)
		}
	}

	// Reapply the candidate block by block.
	for i, block := range candidate {
		if err := sm.applyBlockLocked(ctx, block, true); err != nil {
			sm.logger.Errorf("reorg reapplication failed at candidate %d/%d [reorg_abort]: %v", i+1, len(candidate), err)

			// Unwind the candidates applied so far, then restore the
			// original suffix.
			for j := i - 1; j >= 0; j-- {
				sm.rollbackBlockLocked(candidate[j])
			}

			sm.chain.truncateLocked(int(ancestorHeight) + 1)
			sm.restoreLocked(ctx, ancestorHeight, removed, true)
			prometheusBlockchainReorgsFailed.Inc()

			return errors.NewReorgFailedError("candidate block %d failed to apply", block.Header.Height, err)
		}
	}

	// Checkpoints from the new branch only become final now that the whole
	// branch is committed.
	for _, block := range candidate {
		sm.recordCheckpoint(block)
	}

	prometheusBlockchainReorgsExecuted.Inc()

	newTip := sm.chain.tipLocked()
	sm.logger.Infof("reorg complete at fork point %d: %.16s -> %.16s (%d blocks out, %d in) [reorg_executed]",
		ancestorHeight, oldTipHash, newTip.Hash(), len(removed), len(candidate))

	return nil
}

// restoreLocked puts the original suffix back after an aborted reorg.
// truncateDisk is false when the flat files never lost the suffix; the
// restored blocks are then not re-persisted, keeping the files free of
// duplicate lines.
func (sm *ChainState) restoreLocked(ctx context.Context, ancestorHeight uint32, removed []*model.Block, truncateDisk bool) {
	if truncateDisk {
		if err := sm.storage.HandleReorg(ancestorHeight + 1); err != nil {
			sm.logger.Errorf("failed to truncate storage while restoring chain [reorg_restore_failed]: %v", err)
		}
	}

	for _, block := range removed {
		if err := sm.applyBlockLocked(ctx, block, truncateDisk); err != nil {
			sm.logger.Errorf("failed to restore block %d after aborted reorg [reorg_restore_failed]: %v", block.Header.Height, err)
			return
		}
	}
}

// recordCheckpoint records a checkpoint for a committed block. Failure is
// soft and never affects acceptance.
func (sm *ChainState) recordCheckpoint(block *model.Block) {
	if err := sm.checkpoints.MaybeCreateCheckpoint(block.Header.Height, block.Hash()); err != nil {
		sm.logger.Warnf("checkpoint creation failed at height %d [checkpoint_failed]: %v", block.Header.Height, err)
	}
}

// AddOrphanTransaction parks a transaction whose referenced outputs do not
// exist yet. It is retried whenever a new block arrives and evicted after
// the fixed orphan max age.
func (sm *ChainState) AddOrphanTransaction(tx *model.Transaction) {
	sm.orphanTxs.Set(tx.TxID, tx, ttlcache.DefaultTTL)
	prometheusBlockchainOrphanTxPool.Set(float64(sm.orphanTxs.Len()))
}

// ProcessOrphanTransactions re-validates parked transactions and promotes
// the ones that now validate into the mempool. Returns the number promoted.
func (sm *ChainState) ProcessOrphanTransactions() int {
	promoted := 0

	for _, item := range sm.orphanTxs.Items() {
		tx := item.Value()

		if !sm.mempool.Validate(tx) {
			continue
		}

		sm.orphanTxs.Delete(tx.TxID)

		if sm.mempool.Add(tx) {
			promoted++

			sm.logger.Debugf("promoted orphan tx %.16s into mempool [orphan_tx_promoted]", tx.TxID)
		}
	}

	if promoted > 0 {
		prometheusBlockchainOrphansPromoted.Add(float64(promoted))
	}

	prometheusBlockchainOrphanTxPool.Set(float64(sm.orphanTxs.Len()))

	return promoted
}

// PruneExpiredMempool evicts pending transactions older than the configured
// mempool max age. Returns the number pruned.
func (sm *ChainState) PruneExpiredMempool() int {
	maxAge := sm.settings.Mempool.MaxAgeSeconds
	now := float64(time.Now().Unix())
	pruned := 0

	for _, tx := range sm.mempool.Pending() {
		if now-tx.Timestamp > maxAge {
			sm.mempool.Remove(tx.TxID)
			pruned++
		}
	}

	if pruned > 0 {
		sm.mempoolPrunedTotal.Add(uint64(pruned))
		prometheusBlockchainMempoolPruned.Add(float64(pruned))
		sm.logger.Infof("pruned %d expired mempool txs [mempool_pruned]", pruned)
	}

	return pruned
}

// PruneOrphanPool evicts orphaned transactions past the fixed orphan max
// age. Returns the number pruned.
func (sm *ChainState) PruneOrphanPool() int {
	before := sm.orphanTxs.Len()
	sm.orphanTxs.DeleteExpired()
	pruned := before - sm.orphanTxs.Len()

	if pruned > 0 {
		sm.orphanTxPrunedTotal.Add(uint64(pruned))
		sm.logger.Infof("pruned %d expired orphan txs [orphan_pool_pruned]", pruned)
	}

	prometheusBlockchainOrphanTxPool.Set(float64(sm.orphanTxs.Len()))

	return pruned
}

// PrunedTotals returns the cumulative pruned counters.
func (sm *ChainState) PrunedTotals() (mempool, orphans uint64) {
	return sm.mempoolPrunedTotal.Load(), sm.orphanTxPrunedTotal.Load()
}

// GetMempoolOverview returns a read-only snapshot of the mempool, sampling
// at most limit transactions.
func (sm *ChainState) GetMempoolOverview(limit int) MempoolOverview {
	snap := sm.mempool.Snapshot(limit)

	return MempoolOverview{
		Count:       snap.Count,
		SizeBytes:   snap.SizeBytes,
		Sampled:     snap.Sampled,
		OrphanCount: sm.orphanTxs.Len(),
	}
}

func (sm *ChainState) appendSnapshot(block *model.Block) {
	snap := &DiagnosticSnapshot{
		ID:           uuid.NewString(),
		Height:       block.Header.Height,
		BlockHash:    block.Hash(),
		TxCount:      len(block.Transactions),
		UTXOCount:    sm.utxo.UTXOCount(),
		MempoolCount: sm.mempool.Snapshot(0).Count,
		TakenAt:      time.Now(),
	}

	sm.snapMu.Lock()
	defer sm.snapMu.Unlock()

	sm.snapshots = append(sm.snapshots, snap)
	if len(sm.snapshots) > maxDiagnosticSnapshots {
		sm.snapshots = sm.snapshots[len(sm.snapshots)-maxDiagnosticSnapshots:]
	}
}

// Snapshots returns a copy of the diagnostic ring buffer.
func (sm *ChainState) Snapshots() []*DiagnosticSnapshot {
	sm.snapMu.Lock()
	defer sm.snapMu.Unlock()

	out := make([]*DiagnosticSnapshot, len(sm.snapshots))
	copy(out, sm.snapshots)

	return out
}
