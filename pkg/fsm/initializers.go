package fsm

import (
	"context"
	"log"

	"ledgerbot/pkg/state"

	"github.com/looplab/fsm"
)

type fsmCreatorImpl struct{}

func (fc *fsmCreatorImpl) NewStepFSM(initial state.Step) *fsm.FSM {
	return NewStepFSM(initial.String())
}

func NewFSMCreator() state.StepFSMCreator {
	return &fsmCreatorImpl{}
}

// NewStepFSM allows only one-step-forward moves, plus cancel/abort from any open step
// and submit from the notes step.
func NewStepFSM(initialState string) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_" + StateClosed: enterClosed,
	}

	events := fsm.Events{
		{Name: EventChooseBusinessType, Src: []string{state.StepBusinessType.String()}, Dst: state.StepBranch.String()},
		{Name: EventChooseBranch, Src: []string{state.StepBranch.String()}, Dst: state.StepTransactionType.String()},
		{Name: EventChooseTransactionType, Src: []string{state.StepTransactionType.String()}, Dst: state.StepCategory.String()},
		{Name: EventChooseCategory, Src: []string{state.StepCategory.String()}, Dst: state.StepAmount.String()},
		{Name: EventEnterAmount, Src: []string{state.StepAmount.String()}, Dst: state.StepNotes.String()},
		{Name: EventSubmit, Src: []string{state.StepNotes.String()}, Dst: StateClosed},

		{Name: EventCancel, Src: openStates, Dst: StateClosed},
		{Name: EventAbort, Src: openStates, Dst: StateClosed},
	}

	return fsm.NewFSM(initialState, events, callbacks)
}

func enterClosed(_ context.Context, e *fsm.Event) {
	sender := ""
	if len(e.Args) > 0 {
		sender, _ = e.Args[0].(string)
	}
	log.Printf("[enterClosed] Sender %s left step %s via '%s'", sender, e.Src, e.Event)
}
