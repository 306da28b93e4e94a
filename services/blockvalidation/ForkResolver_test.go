package blockvalidation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/services/blockvalidation"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/stores/blockfile"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

type forkFixture struct {
	settings *settings.Settings
	sm       *blockchain.ChainState
	resolver *blockvalidation.ForkResolver
}

func newForkFixture(t *testing.T, liveBlocks int, mutate func(*settings.Settings)) *forkFixture {
	t.Helper()

	tSettings := settings.NewTestSettings()
	tSettings.Chain.DifficultyAdjustmentInterval = 1000
	tSettings.Chain.CheckpointInterval = 1000

	if mutate != nil {
		mutate(tSettings)
	}

	logger := ulogger.TestLogger{}

	storage, err := blockfile.New(logger, t.TempDir(), tSettings.BlockIndex.BlocksPerFile)
	require.NoError(t, err)

	utxo := blockchain.NewMemoryUTXO()
	mempool := blockchain.NewMemoryMempool(logger, tSettings, utxo)
	checkpoints := blockchain.NewCheckpoints(logger, tSettings)

	sm := blockchain.NewChainState(logger, tSettings, blockchain.NewChain(),
		utxo, mempool, nil, checkpoints, storage, nil)

	live := model.BuildTestChain(liveBlocks, 1, 50, 600)
	for _, block := range live {
		require.True(t, sm.AddBlockToChain(context.Background(), block))
	}

	require.NoError(t, sm.Run(context.Background()))

	rules := blockchain.NewRules(logger, tSettings, nil, nil)
	validator := blockvalidation.NewValidator(logger, tSettings, rules, nil)
	resolver := blockvalidation.NewForkResolver(logger, tSettings, validator, sm, checkpoints)

	return &forkFixture{settings: tSettings, sm: sm, resolver: resolver}
}

// mineBranch mines length blocks on top of parent, offsetting timestamps so
// competing branches get distinct hashes.
func mineBranch(parent *model.Block, length int, tsOffset float64) []*model.Block {
	branch := make([]*model.Block, 0, length)
	prev := parent

	for i := 0; i < length; i++ {
		ts := parent.Header.Timestamp + tsOffset + float64(i)*600
		height := prev.Header.Height + 1
		block := model.MineTestBlock(prev, 1, ts, []*model.Transaction{model.NewTestCoinbase(height, 50, ts)})
		branch = append(branch, block)
		prev = block
	}

	return branch
}

func TestAddOrphanBlockDeduplicates(t *testing.T) {
	fx := newForkFixture(t, 3, nil)

	branch := mineBranch(fx.sm.Chain().Tip(), 1, 700)

	assert.True(t, fx.resolver.AddOrphanBlock(branch[0]))
	assert.False(t, fx.resolver.AddOrphanBlock(branch[0]))
	assert.Equal(t, 1, fx.resolver.OrphanCount())
}

// Two orphan chains of length 2 and 3 share the live tip as parent; the
// reorg check adopts the longer one.
func TestCheckOrphanChainsAdoptsLongestBranch(t *testing.T) {
	fx := newForkFixture(t, 10, nil)
	tip := fx.sm.Chain().Tip()

	short := mineBranch(tip, 2, 650)
	long := mineBranch(tip, 3, 700)

	for _, block := range append(short, long...) {
		require.True(t, fx.resolver.AddOrphanBlock(block))
	}

	adopted, err := fx.resolver.CheckOrphanChainsForReorg(context.Background())
	require.NoError(t, err)
	assert.True(t, adopted)

	assert.Equal(t, 13, fx.sm.Chain().Length())
	assert.Equal(t, long[2].Hash(), fx.sm.Chain().Tip().Hash())

	// The adopted blocks left the pool; the losing branch remains.
	assert.Equal(t, 2, fx.resolver.OrphanCount())
}

func TestCheckOrphanChainsIgnoresShorterCandidate(t *testing.T) {
	fx := newForkFixture(t, 10, nil)

	// A branch forking below the tip that cannot outgrow the live chain.
	fork := fx.sm.Chain().BlockAtHeight(7)
	branch := mineBranch(fork, 1, 650)

	require.True(t, fx.resolver.AddOrphanBlock(branch[0]))

	tipBefore := fx.sm.Chain().Tip().Hash()

	adopted, err := fx.resolver.CheckOrphanChainsForReorg(context.Background())
	require.NoError(t, err)
	assert.False(t, adopted)

	assert.Equal(t, 10, fx.sm.Chain().Length())
	assert.Equal(t, tipBefore, fx.sm.Chain().Tip().Hash())
}

func TestCheckOrphanChainsRespectsCheckpointFinality(t *testing.T) {
	fx := newForkFixture(t, 10, func(s *settings.Settings) {
		s.Chain.CheckpointInterval = 5
	})

	// A long branch forking below the height-5 checkpoint.
	fork := fx.sm.Chain().BlockAtHeight(4)
	branch := mineBranch(fork, 7, 650)

	for _, block := range branch {
		require.True(t, fx.resolver.AddOrphanBlock(block))
	}

	tipBefore := fx.sm.Chain().Tip().Hash()

	adopted, err := fx.resolver.CheckOrphanChainsForReorg(context.Background())
	require.NoError(t, err)
	assert.False(t, adopted, "candidate crossing the checkpoint must never win")

	assert.Equal(t, 10, fx.sm.Chain().Length())
	assert.Equal(t, tipBefore, fx.sm.Chain().Tip().Hash())
}

func TestHandleForkExtendsTipThroughReorgPath(t *testing.T) {
	fx := newForkFixture(t, 5, nil)

	branch := mineBranch(fx.sm.Chain().Tip(), 1, 650)

	adopted, err := fx.resolver.HandleFork(context.Background(), branch[0])
	require.NoError(t, err)
	assert.True(t, adopted)

	assert.Equal(t, 6, fx.sm.Chain().Length())
	assert.Equal(t, branch[0].Hash(), fx.sm.Chain().Tip().Hash())
}

func TestEqualLengthTieBreaksOnTipHash(t *testing.T) {
	fx := newForkFixture(t, 5, nil)
	tip := fx.sm.Chain().Tip()

	a := mineBranch(tip, 1, 650)
	b := mineBranch(tip, 1, 700)

	require.True(t, fx.resolver.AddOrphanBlock(a[0]))
	require.True(t, fx.resolver.AddOrphanBlock(b[0]))

	adopted, err := fx.resolver.CheckOrphanChainsForReorg(context.Background())
	require.NoError(t, err)
	assert.True(t, adopted)

	want := a[0].Hash()
	if b[0].Hash() < want {
		want = b[0].Hash()
	}

	assert.Equal(t, want, fx.sm.Chain().Tip().Hash())
}

func TestPruneOrphanBlocksKeepsFreshEntries(t *testing.T) {
	fx := newForkFixture(t, 3, nil)

	branch := mineBranch(fx.sm.Chain().Tip(), 2, 99_999)

	// Park without letting the branch win: its blocks skip a height.
	require.True(t, fx.resolver.AddOrphanBlock(branch[1]))

	assert.Equal(t, 0, fx.resolver.PruneOrphanBlocks())
	assert.Equal(t, 1, fx.resolver.OrphanCount())
}
