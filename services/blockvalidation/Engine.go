package blockvalidation

import (
	"context"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// Engine is the composition root of the chain-state core: the validator, the
// consensus rules, the state manager and the fork resolver, wired through
// explicit references. The node, miner and P2P layers call it with
// already-materialized blocks; it performs no network I/O.
type Engine struct {
	logger    ulogger.Logger
	validator *Validator
	rules     *blockchain.Rules
	state     *blockchain.ChainState
	resolver  *ForkResolver
}

// NewEngine wires the four components together.
func NewEngine(logger ulogger.Logger, validator *Validator, rules *blockchain.Rules,
	state *blockchain.ChainState, resolver *ForkResolver) *Engine {
	return &Engine{
		logger:    logger,
		validator: validator,
		rules:     rules,
		state:     state,
		resolver:  resolver,
	}
}

// Validator returns the chain validator.
func (e *Engine) Validator() *Validator { return e.validator }

// Rules returns the consensus rules.
func (e *Engine) Rules() *blockchain.Rules { return e.rules }

// State returns the chain state manager.
func (e *Engine) State() *blockchain.ChainState { return e.state }

// ForkResolver returns the fork resolver.
func (e *Engine) ForkResolver() *ForkResolver { return e.resolver }

// HandleIncomingBlock routes a new block: if it extends the live tip it is
// validated and applied; otherwise it is parked as an orphan and the fork
// resolver decides whether an orphan-connected branch now wins. Returns true
// when the live chain changed.
func (e *Engine) HandleIncomingBlock(ctx context.Context, block *model.Block) (bool, error) {
	tip := e.state.Chain().Tip()

	extendsTip := tip == nil && block.Header.IsGenesis()
	if tip != nil {
		extendsTip = block.Header.PreviousHash == tip.Hash() && block.Header.Height == tip.Header.Height+1
	}

	if !extendsTip {
		return e.resolver.HandleFork(ctx, block)
	}

	prospective := append(e.state.Chain().Blocks(), block)

	if ok, reason := e.validator.ValidateChain(ctx, prospective, false); !ok {
		e.logger.Warnf("rejecting block %d (%.16s) [block_rejected]: %s", block.Header.Height, block.Hash(), reason)
		return false, errors.NewBlockInvalidError("block %d failed validation: %s", block.Header.Height, reason)
	}

	if ok, reason := e.validator.ValidateCoinbaseReward(block); !ok {
		e.logger.Warnf("rejecting block %d (%.16s) [block_rejected]: %s", block.Header.Height, block.Hash(), reason)
		return false, errors.NewBlockInvalidError("block %d failed validation: %s", block.Header.Height, reason)
	}

	return e.state.AddBlockToChain(ctx, block), nil
}
