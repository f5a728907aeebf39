package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ledgerbot/pkg/ingestion"

	"github.com/looplab/fsm"
)

type stubCreator struct{}

func (stubCreator) NewStepFSM(initial Step) *fsm.FSM {
	return fsm.NewFSM(initial.String(), fsm.Events{
		{Name: "next", Src: []string{StepBusinessType.String()}, Dst: StepBranch.String()},
	}, fsm.Callbacks{})
}

func TestCreateAndGet(t *testing.T) {
	store := NewStore(stubCreator{})

	if _, ok := store.Get("628111"); ok {
		t.Fatalf("expected no session")
	}
	created := store.Create("628111", AwaitingBusinessType{SenderID: "628111"})
	if created.Current.Step() != StepBusinessType || created.Steps.Current() != "business_type" {
		t.Fatalf("unexpected created session %+v", created)
	}

	got, ok := store.Get("628111")
	if !ok || got.SenderID != "628111" || got.Current.Sender() != "628111" {
		t.Fatalf("unexpected session %+v", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
}

func TestUpdateAppliesAndRejects(t *testing.T) {
	store := NewStore(stubCreator{})
	store.Create("a", AwaitingBusinessType{SenderID: "a"})

	found, err := store.Update("a", func(s *Session) error {
		if err := s.Steps.Event(context.Background(), "next"); err != nil {
			return err
		}
		s.Current = AwaitingBranch{SenderID: "a", BusinessType: "LAUNDRY"}
		return nil
	})
	if !found || err != nil {
		t.Fatalf("unexpected update result found=%t err=%v", found, err)
	}
	got, _ := store.Get("a")
	if got.Current.Step() != StepBranch || got.Steps.Current() != "branch" {
		t.Fatalf("expected step branch, got %s / %s", got.Current.Step(), got.Steps.Current())
	}

	boom := errors.New("boom")
	_, err = store.Update("a", func(s *Session) error {
		s.Current = AwaitingAmount{SenderID: "a"}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ = store.Get("a")
	if got.Current.Step() != StepBranch {
		t.Fatalf("failed update must not change the session, got %s", got.Current.Step())
	}

	found, err = store.Update("missing", func(*Session) error { return nil })
	if found || err != nil {
		t.Fatalf("expected missing session to be reported, got found=%t err=%v", found, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewStore(stubCreator{})
	store.Create("a", AwaitingBusinessType{SenderID: "a"})
	store.Delete("a")
	store.Delete("a")
	if _, ok := store.Get("a"); ok {
		t.Fatalf("expected session removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestSendersAreIsolated(t *testing.T) {
	store := NewStore(stubCreator{})
	branches := []ingestion.Branch{{ID: ingestion.NumericID(1), Name: "Antapani", BranchType: "LAUNDRY"}}
	store.Create("a", AwaitingBranch{SenderID: "a", BusinessType: "LAUNDRY", Candidates: branches})

	store.Create("b", AwaitingBusinessType{SenderID: "b"})

	got, _ := store.Get("a")
	branch, ok := got.Current.(AwaitingBranch)
	if !ok || len(branch.Candidates) != 1 || branch.Candidates[0].Name != "Antapani" {
		t.Fatalf("sender a changed by sender b: %+v", got.Current)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore(stubCreator{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sender-%d", i)
			store.Create(id, AwaitingBusinessType{SenderID: id})
			_, _ = store.Get(id)
			if i%2 == 0 {
				store.Delete(id)
			}
		}(i)
	}
	wg.Wait()
	if store.Len() != 25 {
		t.Fatalf("expected 25 sessions, got %d", store.Len())
	}
}

func TestAwaitingNotesPayload(t *testing.T) {
	conv := AwaitingNotes{
		SenderID: "628111",
		Branch:   ingestion.Branch{ID: ingestion.NumericID(1)},
		Type:     "INCOME",
		Category: ingestion.Category{ID: ingestion.NumericID(10)},
		Amount:   50000,
	}
	p := conv.Payload("-")
	if p.PhoneNumber != "628111" || p.BranchID.String() != "1" || p.CategoryID.String() != "10" || p.Amount != 50000 || p.Notes != "-" || p.Type != "INCOME" {
		t.Fatalf("unexpected payload %+v", p)
	}
}
