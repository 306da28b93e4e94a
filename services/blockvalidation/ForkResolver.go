package blockvalidation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// orphanBlockMaxAge is how long an orphan block may wait for its branch to
// win before eviction.
const orphanBlockMaxAge = time.Hour

type orphanBlock struct {
	block      *model.Block
	branchID   string
	receivedAt time.Time
}

// ForkResolver holds competing blocks whose parent is not the live tip and
// decides when an orphan-connected branch should replace the live chain.
// Multiple competitors may coexist at the same height; an arriving duplicate
// hash is dropped.
//
// The total order between chains is (length, cumulative difficulty, tip
// hash): longer wins, then heavier, then the lexicographically smaller tip
// hash as the final deterministic tie-break.
type ForkResolver struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	validator   *Validator
	state       *blockchain.ChainState
	checkpoints blockchain.CheckpointManager

	mu      sync.Mutex
	orphans map[uint32][]*orphanBlock
}

// NewForkResolver wires the resolver against the live chain state.
func NewForkResolver(logger ulogger.Logger, tSettings *settings.Settings, validator *Validator,
	state *blockchain.ChainState, checkpoints blockchain.CheckpointManager) *ForkResolver {
	initPrometheusMetrics()

	return &ForkResolver{
		logger:      logger,
		settings:    tSettings,
		validator:   validator,
		state:       state,
		checkpoints: checkpoints,
		orphans:     make(map[uint32][]*orphanBlock),
	}
}

// AddOrphanBlock parks a block whose parent is not the live tip. Returns
// false when the same block hash is already held at that height.
func (f *ForkResolver) AddOrphanBlock(block *model.Block) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	height := block.Header.Height
	hash := block.Hash()

	for _, entry := range f.orphans[height] {
		if entry.block.Hash() == hash {
			return false
		}
	}

	f.orphans[height] = append(f.orphans[height], &orphanBlock{
		block:      block,
		branchID:   uuid.NewString(),
		receivedAt: time.Now(),
	})

	prometheusValidationOrphanBlocks.Set(float64(f.orphanCountLocked()))
	f.logger.Infof("parked orphan block %d (%.16s) [orphan_block_added]", height, hash)

	return true
}

// OrphanCount returns the number of parked orphan blocks.
func (f *ForkResolver) OrphanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.orphanCountLocked()
}

func (f *ForkResolver) orphanCountLocked() int {
	n := 0
	for _, entries := range f.orphans {
		n += len(entries)
	}

	return n
}

// HandleFork parks a fork block and immediately evaluates whether any
// orphan-connected branch now beats the live chain. Returns true when a
// reorg was performed.
func (f *ForkResolver) HandleFork(ctx context.Context, forkBlock *model.Block) (bool, error) {
	f.AddOrphanBlock(forkBlock)
	prometheusValidationForksHandled.Inc()

	return f.CheckOrphanChainsForReorg(ctx)
}

// CheckOrphanChainsForReorg sweeps the orphan pool for fully-connected
// branches rooted in the live chain, picks the best one under the chain
// total order, and reorganizes onto it when it beats the live chain. Returns
// false with no mutation otherwise.
func (f *ForkResolver) CheckOrphanChainsForReorg(ctx context.Context) (bool, error) {
	live := f.state.Chain().Blocks()
	if len(live) == 0 {
		return false, nil
	}

	heightByHash := make(map[string]uint32, len(live))
	for _, b := range live {
		heightByHash[b.Hash()] = b.Header.Height
	}

	liveLen := len(live)
	liveDiff := blockchain.CumulativeDifficulty(live)
	liveTip := live[liveLen-1].Hash()

	type candidate struct {
		ancestorHeight uint32
		blocks         []*model.Block
		length         int
		difficulty     uint64
		tipHash        string
	}

	var best *candidate

	f.mu.Lock()

	for _, entries := range f.orphans {
		for _, entry := range entries {
			ancestorHeight, ok := heightByHash[entry.block.Header.PreviousHash]
			if !ok {
				continue
			}

			if entry.block.Header.Height != ancestorHeight+1 {
				continue
			}

			branch := f.extendBranchLocked(entry.block)

			cand := &candidate{
				ancestorHeight: ancestorHeight,
				blocks:         branch,
				length:         int(ancestorHeight) + 1 + len(branch),
				difficulty:     blockchain.CumulativeDifficulty(live[:ancestorHeight+1]) + blockchain.CumulativeDifficulty(branch),
				tipHash:        branch[len(branch)-1].Hash(),
			}

			if best == nil || chainWins(cand.length, cand.difficulty, cand.tipHash, best.length, best.difficulty, best.tipHash) {
				best = cand
			}
		}
	}

	f.mu.Unlock()

	if best == nil {
		return false, nil
	}

	if !chainWins(best.length, best.difficulty, best.tipHash, liveLen, liveDiff, liveTip) {
		return false, nil
	}

	// Checkpoint finality is a hard boundary: length and difficulty never
	// override it.
	if cpHeight, ok := f.checkpoints.LastCheckpointHeight(); ok && best.ancestorHeight < cpHeight {
		f.logger.Warnf("rejecting branch forking at %d below checkpoint %d [fork_checkpoint_rejected]", best.ancestorHeight, cpHeight)
		return false, nil
	}

	prospective := make([]*model.Block, 0, best.length)
	prospective = append(prospective, live[:best.ancestorHeight+1]...)
	prospective = append(prospective, best.blocks...)

	if ok, reason := f.validator.ValidateChain(ctx, prospective, false); !ok {
		f.logger.Warnf("rejecting invalid branch at fork point %d [fork_invalid]: %s", best.ancestorHeight, reason)
		return false, nil
	}

	if err := f.state.ReorgTo(ctx, best.ancestorHeight, best.blocks); err != nil {
		return false, errors.NewProcessingError("reorg onto branch at fork point %d failed", best.ancestorHeight, err)
	}

	f.removeAdopted(best.blocks)
	prometheusValidationReorgsAdopted.Inc()

	f.logger.Infof("adopted branch of %d blocks at fork point %d, new tip %.16s [fork_adopted]",
		len(best.blocks), best.ancestorHeight, best.tipHash)

	return true, nil
}

// extendBranchLocked greedily extends a branch through connected orphans.
// Competing branches never cross because each link requires an exact parent
// hash match.
func (f *ForkResolver) extendBranchLocked(start *model.Block) []*model.Block {
	branch := []*model.Block{start}
	cur := start

	for {
		var next *model.Block

		for _, entry := range f.orphans[cur.Header.Height+1] {
			if entry.block.Header.PreviousHash == cur.Hash() {
				next = entry.block
				break
			}
		}

		if next == nil {
			return branch
		}

		branch = append(branch, next)
		cur = next
	}
}

func (f *ForkResolver) removeAdopted(blocks []*model.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, block := range blocks {
		hash := block.Hash()
		entries := f.orphans[block.Header.Height]

		kept := entries[:0]
		for _, entry := range entries {
			if entry.block.Hash() != hash {
				kept = append(kept, entry)
			}
		}

		if len(kept) == 0 {
			delete(f.orphans, block.Header.Height)
		} else {
			f.orphans[block.Header.Height] = kept
		}
	}

	prometheusValidationOrphanBlocks.Set(float64(f.orphanCountLocked()))
}

// PruneOrphanBlocks evicts orphan blocks past the fixed max age. Returns the
// number pruned.
func (f *ForkResolver) PruneOrphanBlocks() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-orphanBlockMaxAge)
	pruned := 0

	for height, entries := range f.orphans {
		kept := entries[:0]

		for _, entry := range entries {
			if entry.receivedAt.Before(cutoff) {
				pruned++
				continue
			}

			kept = append(kept, entry)
		}

		if len(kept) == 0 {
			delete(f.orphans, height)
		} else {
			f.orphans[height] = kept
		}
	}

	if pruned > 0 {
		f.logger.Infof("pruned %d expired orphan blocks [orphan_blocks_pruned]", pruned)
	}

	prometheusValidationOrphanBlocks.Set(float64(f.orphanCountLocked()))

	return pruned
}

// chainWins reports whether chain a beats chain b under the
// (length, cumulative difficulty, tip hash) total order.
func chainWins(aLen int, aDiff uint64, aTip string, bLen int, bDiff uint64, bTip string) bool {
	if aLen != bLen {
		return aLen > bLen
	}

	if aDiff != bDiff {
		return aDiff > bDiff
	}

	return aTip < bTip
}
