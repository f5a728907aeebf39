package fsm

import (
	"context"
	"testing"

	"ledgerbot/pkg/state"
)

func TestStepFSMOnlyMovesForward(t *testing.T) {
	f := NewFSMCreator().NewStepFSM(state.StepBranch)

	if err := f.Event(context.Background(), EventChooseBusinessType, "s"); err == nil {
		t.Fatalf("expected step 1 event to be rejected at step 2")
	}
	if err := f.Event(context.Background(), EventEnterAmount, "s"); err == nil {
		t.Fatalf("expected skip to notes to be rejected")
	}
	if err := f.Event(context.Background(), EventChooseBranch, "s"); err != nil {
		t.Fatalf("expected forward move: %v", err)
	}
	if f.Current() != state.StepTransactionType.String() {
		t.Fatalf("expected transaction_type, got %s", f.Current())
	}
}

func TestStepFSMSubmitOnlyFromNotes(t *testing.T) {
	f := NewStepFSM(state.StepAmount.String())
	if err := f.Event(context.Background(), EventSubmit, "s"); err == nil {
		t.Fatalf("expected submit to be rejected before notes")
	}
	if err := f.Event(context.Background(), EventEnterAmount, "s"); err != nil {
		t.Fatalf("enter amount: %v", err)
	}
	if err := f.Event(context.Background(), EventSubmit, "s"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if f.Current() != StateClosed {
		t.Fatalf("expected closed, got %s", f.Current())
	}
}

func TestStepFSMCancelFromEveryStep(t *testing.T) {
	for _, s := range openStates {
		f := NewStepFSM(s)
		if err := f.Event(context.Background(), EventCancel, "s"); err != nil {
			t.Fatalf("cancel from %s: %v", s, err)
		}
		if err := f.Event(context.Background(), EventCancel, "s"); err == nil {
			t.Fatalf("expected cancel from closed to fail")
		}
	}
}
