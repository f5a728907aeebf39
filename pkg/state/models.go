package state

import (
	"time"

	"ledgerbot/pkg/ingestion"

	"github.com/looplab/fsm"
)

// Step is a position in the six-stage conversation.
type Step int

const (
	StepBusinessType Step = iota + 1
	StepBranch
	StepTransactionType
	StepCategory
	StepAmount
	StepNotes
)

func (s Step) String() string {
	switch s {
	case StepBusinessType:
		return "business_type"
	case StepBranch:
		return "branch"
	case StepTransactionType:
		return "transaction_type"
	case StepCategory:
		return "category"
	case StepAmount:
		return "amount"
	case StepNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// Conversation is the closed set of per-step states. Each variant carries exactly the
// data collected before its step plus, for menu steps, the menu the user is answering.
type Conversation interface {
	Step() Step
	Sender() string
	isConversation()
}

type AwaitingBusinessType struct {
	SenderID string
}

type AwaitingBranch struct {
	SenderID     string
	BusinessType string
	Candidates   []ingestion.Branch
}

type AwaitingTransactionType struct {
	SenderID string
	Branch   ingestion.Branch
}

type AwaitingCategory struct {
	SenderID   string
	Branch     ingestion.Branch
	Type       string
	Candidates []ingestion.Category
}

type AwaitingAmount struct {
	SenderID string
	Branch   ingestion.Branch
	Type     string
	Category ingestion.Category
}

type AwaitingNotes struct {
	SenderID string
	Branch   ingestion.Branch
	Type     string
	Category ingestion.Category
	Amount   int64
}

func (AwaitingBusinessType) Step() Step    { return StepBusinessType }
func (AwaitingBranch) Step() Step          { return StepBranch }
func (AwaitingTransactionType) Step() Step { return StepTransactionType }
func (AwaitingCategory) Step() Step        { return StepCategory }
func (AwaitingAmount) Step() Step          { return StepAmount }
func (AwaitingNotes) Step() Step           { return StepNotes }

func (c AwaitingBusinessType) Sender() string    { return c.SenderID }
func (c AwaitingBranch) Sender() string          { return c.SenderID }
func (c AwaitingTransactionType) Sender() string { return c.SenderID }
func (c AwaitingCategory) Sender() string        { return c.SenderID }
func (c AwaitingAmount) Sender() string          { return c.SenderID }
func (c AwaitingNotes) Sender() string           { return c.SenderID }

func (AwaitingBusinessType) isConversation()    {}
func (AwaitingBranch) isConversation()          {}
func (AwaitingTransactionType) isConversation() {}
func (AwaitingCategory) isConversation()        {}
func (AwaitingAmount) isConversation()          {}
func (AwaitingNotes) isConversation()           {}

// Payload flattens a finished conversation with its notes into the submission body.
func (c AwaitingNotes) Payload(notes string) ingestion.Payload {
	return ingestion.Payload{
		PhoneNumber: c.SenderID,
		BranchID:    c.Branch.ID,
		CategoryID:  c.Category.ID,
		Type:        c.Type,
		Amount:      c.Amount,
		Notes:       notes,
	}
}

// Session is one sender's in-progress conversation. Steps mirrors Current.Step() and
// only accepts forward moves.
type Session struct {
	SenderID  string
	Current   Conversation
	Steps     *fsm.FSM
	StartedAt time.Time
	UpdatedAt time.Time
}
