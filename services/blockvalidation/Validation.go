// Package blockvalidation checks blocks and chains against the consensus
// rules and resolves competing forks. Rule violations are reported as
// (false, reason) and never mutate state; only malformed construction inputs
// surface as errors, and those fail earlier, in the model constructors.
package blockvalidation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// coinbaseEpsilon absorbs float accumulation error in the reward comparison.
const coinbaseEpsilon = 1e-8

// Validator checks individual blocks and whole chains. It holds no mutable
// state, so one instance serves concurrent callers.
type Validator struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	rules       *blockchain.Rules
	sigVerifier blockchain.SignatureVerifier
}

// NewValidator wires the validator. sigVerifier may be nil, in which case
// signed headers are accepted without verification.
func NewValidator(logger ulogger.Logger, tSettings *settings.Settings, rules *blockchain.Rules, sigVerifier blockchain.SignatureVerifier) *Validator {
	initPrometheusMetrics()

	return &Validator{
		logger:      logger,
		settings:    tSettings,
		rules:       rules,
		sigVerifier: sigVerifier,
	}
}

// ValidateChain checks a whole chain from genesis. With fullValidation it
// additionally validates every transaction and coinbase reward, fanning the
// per-block work out across an errgroup.
func (v *Validator) ValidateChain(ctx context.Context, chain []*model.Block, fullValidation bool) (bool, string) {
	start := time.Now()
	defer func() {
		prometheusValidationChainSeconds.Observe(time.Since(start).Seconds())
	}()

	if len(chain) == 0 {
		return true, ""
	}

	if !chain[0].Header.IsGenesis() {
		return false, fmt.Sprintf("block 0 is not a genesis block (index %d, previous_hash %.16s)",
			chain[0].Header.Height, chain[0].Header.PreviousHash)
	}

	for i, block := range chain {
		if i > 0 {
			prev := chain[i-1]

			if block.Header.PreviousHash != prev.Hash() {
				return false, fmt.Sprintf("block %d previous_hash %.16s does not match block %d hash %.16s",
					block.Header.Height, block.Header.PreviousHash, prev.Header.Height, prev.Hash())
			}

			if block.Header.Height != prev.Header.Height+1 {
				return false, fmt.Sprintf("block at position %d has index %d, want %d", i, block.Header.Height, prev.Header.Height+1)
			}
		}

		if !block.Header.MeetsDifficulty() {
			return false, fmt.Sprintf("block %d hash %.16s does not meet difficulty %d",
				block.Header.Height, block.Hash(), block.Header.Difficulty)
		}

		if block.Header.MerkleRoot != block.ComputeMerkleRoot() {
			return false, fmt.Sprintf("block %d merkle root does not match its transactions", block.Header.Height)
		}

		if ok, reason := v.ValidateBlockTimestamp(block, chain[:i]); !ok {
			return false, reason
		}

		if i > 0 {
			if ok, reason := v.ValidateDifficulty(block, chain[i-1], chain[:i]); !ok {
				return false, reason
			}
		}

		if ok, reason := v.BlockWithinSizeLimits(block); !ok {
			return false, reason
		}

		if ok, reason := v.ValidateHeaderVersion(block.Header); !ok {
			return false, reason
		}

		if !v.VerifyBlockSignature(block.Header) {
			return false, fmt.Sprintf("block %d signature does not verify", block.Header.Height)
		}
	}

	if fullValidation {
		if ok, reason := v.validateChainTransactions(ctx, chain); !ok {
			return false, reason
		}
	}

	return true, ""
}

func (v *Validator) validateChainTransactions(ctx context.Context, chain []*model.Block) (bool, string) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)

	reasons := make([]string, len(chain))

	for i, block := range chain {
		i, block := i, block
		g.Go(func() error {
			if ok, reason := v.ValidateCoinbaseReward(block); !ok {
				reasons[i] = reason
				return nil
			}

			for _, tx := range block.Transactions[1:] {
				if ok, reason := v.validateTransaction(tx); !ok {
					reasons[i] = fmt.Sprintf("block %d: %s", block.Header.Height, reason)
					return nil
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	for _, reason := range reasons {
		if reason != "" {
			return false, reason
		}
	}

	return true, ""
}

func (v *Validator) validateTransaction(tx *model.Transaction) (bool, string) {
	if tx.IsCoinbase() {
		return false, fmt.Sprintf("tx %.16s is a coinbase outside position 0", tx.TxID)
	}

	if tx.Amount < 0 {
		return false, fmt.Sprintf("tx %.16s has negative amount %f", tx.TxID, tx.Amount)
	}

	if tx.Fee < 0 {
		return false, fmt.Sprintf("tx %.16s has negative fee %f", tx.TxID, tx.Fee)
	}

	if tx.TxID != tx.ComputeTxID() {
		return false, fmt.Sprintf("tx id %.16s does not match its content", tx.TxID)
	}

	return true, ""
}

// ValidateBlockTimestamp checks the block timestamp against wall clock and
// median-time-past. priorBlocks is the chain prefix strictly before the
// block; genesis has no MTP requirement.
func (v *Validator) ValidateBlockTimestamp(block *model.Block, priorBlocks []*model.Block) (bool, string) {
	now := float64(time.Now().Unix())

	if block.Header.Timestamp > now+v.settings.Chain.MaxFutureBlockTime {
		return false, fmt.Sprintf("block %d timestamp %.0f is more than %.0fs in the future",
			block.Header.Height, block.Header.Timestamp, v.settings.Chain.MaxFutureBlockTime)
	}

	if len(priorBlocks) == 0 {
		return true, ""
	}

	median := medianTimePast(priorBlocks, v.settings.Chain.MedianTimeWindow)

	// Strictly greater: equal to the median is rejected.
	if block.Header.Timestamp <= median {
		return false, fmt.Sprintf("block %d timestamp %.0f is not after median-time-past %.0f",
			block.Header.Height, block.Header.Timestamp, median)
	}

	return true, ""
}

// medianTimePast computes the median timestamp over the last window prior
// blocks. An even count averages the two middle values.
func medianTimePast(priorBlocks []*model.Block, window int) float64 {
	if window < 1 {
		window = 1
	}

	if len(priorBlocks) > window {
		priorBlocks = priorBlocks[len(priorBlocks)-window:]
	}

	times := make([]float64, len(priorBlocks))
	for i, b := range priorBlocks {
		times[i] = b.Header.Timestamp
	}

	sort.Float64s(times)

	mid := len(times) / 2
	if len(times)%2 == 0 {
		return (times[mid-1] + times[mid]) / 2
	}

	return times[mid]
}

// ValidateDifficulty checks the difficulty transition from previous to
// current. At adjustment boundaries the difficulty must equal the recomputed
// retarget exactly; everywhere else it must carry over unchanged. history is
// the canonical prefix strictly before current; when it cannot support the
// recomputation the transition passes as "cannot verify yet".
func (v *Validator) ValidateDifficulty(current, previous *model.Block, history []*model.Block) (bool, string) {
	interval := v.settings.Chain.DifficultyAdjustmentInterval

	if interval == 0 || current.Header.Height%interval != 0 {
		if current.Header.Difficulty != previous.Header.Difficulty {
			return false, fmt.Sprintf("block %d difficulty %d drifted from %d off an adjustment boundary",
				current.Header.Height, current.Header.Difficulty, previous.Header.Difficulty)
		}

		return true, ""
	}

	expected, ok := v.rules.ExpectedDifficultyForBlock(current.Header.Height, history)
	if !ok {
		return true, ""
	}

	if current.Header.Difficulty != expected {
		return false, fmt.Sprintf("block %d difficulty %d does not match retarget %d",
			current.Header.Height, current.Header.Difficulty, expected)
	}

	return true, ""
}

// ValidateCoinbaseReward checks that transaction[0] is the coinbase and its
// amount does not exceed the block reward plus collected fees.
func (v *Validator) ValidateCoinbaseReward(block *model.Block) (bool, string) {
	coinbase := block.Coinbase()
	if coinbase == nil {
		return false, fmt.Sprintf("block %d has no coinbase at position 0", block.Header.Height)
	}

	maxAllowed := v.rules.BlockReward(block.Header.Height) + block.TotalFees()

	if coinbase.Amount > maxAllowed+coinbaseEpsilon {
		return false, fmt.Sprintf("coinbase amount %.8f exceeds maximum allowed %.8f at height %d",
			coinbase.Amount, maxAllowed, block.Header.Height)
	}

	return true, ""
}

// VerifyBlockSignature checks an optional header signature. An absent
// signature or pubkey is valid.
func (v *Validator) VerifyBlockSignature(header *model.BlockHeader) bool {
	if header.Signature == "" || header.MinerPubKey == "" {
		return true
	}

	if v.sigVerifier == nil {
		return true
	}

	return v.sigVerifier.Verify(header.Hash(), header.Signature, header.MinerPubKey)
}

// BlockWithinSizeLimits enforces the byte-size and transaction-count policy
// limits.
func (v *Validator) BlockWithinSizeLimits(block *model.Block) (bool, string) {
	if maxTxs := v.settings.Policy.MaxTransactionsPerBlock; maxTxs > 0 && len(block.Transactions) > maxTxs {
		return false, fmt.Sprintf("block %d has %d transactions, limit is %d", block.Header.Height, len(block.Transactions), maxTxs)
	}

	if maxBytes := v.settings.Policy.MaxBlockSizeBytes; maxBytes > 0 {
		if size := block.EstimatedSize(); size > maxBytes {
			return false, fmt.Sprintf("block %d is %d bytes, limit is %d", block.Header.Height, size, maxBytes)
		}
	}

	return true, ""
}

// ValidateHeaderVersion checks the header version against the allow list. An
// empty allow list accepts any version.
func (v *Validator) ValidateHeaderVersion(header *model.BlockHeader) (bool, string) {
	allowed := v.settings.Policy.AllowedHeaderVersions
	if len(allowed) == 0 {
		return true, ""
	}

	for _, version := range allowed {
		if header.Version == version {
			return true, ""
		}
	}

	return false, fmt.Sprintf("block %d header version %d is not allowed", header.Height, header.Version)
}
