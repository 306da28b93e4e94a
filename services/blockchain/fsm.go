package blockchain

import (
	"context"

	"github.com/looplab/fsm"
)

// Run states of the chain state manager.
const (
	FSMStateStopped  = "STOPPED"
	FSMStateRunning  = "RUNNING"
	FSMStateReorging = "REORGING"
)

// Run-state events.
const (
	FSMEventRun         = "RUN"
	FSMEventStartReorg  = "STARTREORG"
	FSMEventFinishReorg = "FINISHREORG"
	FSMEventStop        = "STOP"
)

// NewFiniteStateMachine creates the run-state machine for the chain state
// manager. Reorgs may only start from RUNNING, which serializes them: a
// second reorg attempt fails its transition and is rejected.
func NewFiniteStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		FSMStateStopped,
		fsm.Events{
			{
				Name: FSMEventRun,
				Src:  []string{FSMStateStopped},
				Dst:  FSMStateRunning,
			},
			{
				Name: FSMEventStartReorg,
				Src:  []string{FSMStateRunning},
				Dst:  FSMStateReorging,
			},
			{
				Name: FSMEventFinishReorg,
				Src:  []string{FSMStateReorging},
				Dst:  FSMStateRunning,
			},
			{
				Name: FSMEventStop,
				Src:  []string{FSMStateRunning, FSMStateReorging},
				Dst:  FSMStateStopped,
			},
		},
		fsm.Callbacks{},
	)
}

// FSMState returns the current run state.
func (sm *ChainState) FSMState() string {
	return sm.fsm.Current()
}

// Run transitions the state manager into the running state.
func (sm *ChainState) Run(ctx context.Context) error {
	return sm.fsm.Event(ctx, FSMEventRun)
}

// Stop halts the state manager.
func (sm *ChainState) Stop(ctx context.Context) error {
	return sm.fsm.Event(ctx, FSMEventStop)
}
