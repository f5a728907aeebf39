package fsm

import (
	"fmt"
	"strings"

	"ledgerbot/pkg/config"
	"ledgerbot/pkg/ingestion"
	"ledgerbot/pkg/masterdata"
	"ledgerbot/pkg/metrics"
	"ledgerbot/pkg/state"
)

// Result is the outcome of feeding one message to a conversation.
//
//   - Next at the same step: the input was rejected, nothing changes.
//   - Next one step later: advance.
//   - Next nil: the conversation ends with Outcome.
//   - Submit set: notes were recorded, the payload must be submitted.
type Result struct {
	Next    state.Conversation
	Reply   string
	Outcome string
	Submit  *ingestion.Payload
}

// Machine holds the fixed menus and texts; Transition itself has no side effects.
type Machine struct {
	cfg *config.BotConfig
}

func NewMachine(cfg *config.BotConfig) *Machine {
	return &Machine{cfg: cfg}
}

// Start returns the first state for senderID and the business type menu.
func (m *Machine) Start(senderID string) (state.Conversation, string) {
	return state.AwaitingBusinessType{SenderID: senderID}, m.businessTypeMenu()
}

func (m *Machine) Transition(conv state.Conversation, text string, snap *masterdata.Snapshot) Result {
	switch c := conv.(type) {
	case state.AwaitingBusinessType:
		return m.chooseBusinessType(c, text, snap)
	case state.AwaitingBranch:
		return m.chooseBranch(c, text)
	case state.AwaitingTransactionType:
		return m.chooseTransactionType(c, text, snap)
	case state.AwaitingCategory:
		return m.chooseCategory(c, text)
	case state.AwaitingAmount:
		return m.enterAmount(c, text)
	case state.AwaitingNotes:
		payload := c.Payload(text)
		return Result{Next: c, Submit: &payload}
	default:
		panic(fmt.Sprintf("fsm: unknown conversation state %T", conv))
	}
}

func (m *Machine) chooseBusinessType(c state.AwaitingBusinessType, text string, snap *masterdata.Snapshot) Result {
	idx, ok := parseChoice(text, len(m.cfg.BusinessTypes))
	if !ok {
		return m.reject(c, m.cfg.Messages.InvalidChoice)
	}
	businessType := m.cfg.BusinessTypes[idx].Value
	branches := snap.BranchesOfType(businessType)
	if len(branches) == 0 {
		return Result{Reply: m.cfg.Messages.NoBranches, Outcome: metrics.OutcomeNoBranches}
	}

	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	return Result{
		Next:  state.AwaitingBranch{SenderID: c.SenderID, BusinessType: businessType, Candidates: branches},
		Reply: m.menu(m.cfg.Messages.BranchMenu, names),
	}
}

func (m *Machine) chooseBranch(c state.AwaitingBranch, text string) Result {
	idx, ok := parseChoice(text, len(c.Candidates))
	if !ok {
		return m.reject(c, m.cfg.Messages.InvalidChoice)
	}
	return Result{
		Next:  state.AwaitingTransactionType{SenderID: c.SenderID, Branch: c.Candidates[idx]},
		Reply: m.menu(m.cfg.Messages.TransactionTypeMenu, labels(m.cfg.TransactionTypes)),
	}
}

func (m *Machine) chooseTransactionType(c state.AwaitingTransactionType, text string, snap *masterdata.Snapshot) Result {
	idx, ok := parseChoice(text, len(m.cfg.TransactionTypes))
	if !ok {
		return m.reject(c, m.cfg.Messages.InvalidChoice)
	}
	txType := m.cfg.TransactionTypes[idx].Value
	categories := snap.CategoriesOfType(txType)
	if len(categories) == 0 {
		return Result{Reply: m.cfg.Messages.NoCategories, Outcome: metrics.OutcomeNoCategories}
	}

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	return Result{
		Next:  state.AwaitingCategory{SenderID: c.SenderID, Branch: c.Branch, Type: txType, Candidates: categories},
		Reply: m.menu(m.cfg.Messages.CategoryMenu, names),
	}
}

func (m *Machine) chooseCategory(c state.AwaitingCategory, text string) Result {
	idx, ok := parseChoice(text, len(c.Candidates))
	if !ok {
		return m.reject(c, m.cfg.Messages.InvalidChoice)
	}
	return Result{
		Next:  state.AwaitingAmount{SenderID: c.SenderID, Branch: c.Branch, Type: c.Type, Category: c.Candidates[idx]},
		Reply: m.cfg.Messages.AskAmount,
	}
}

func (m *Machine) enterAmount(c state.AwaitingAmount, text string) Result {
	amount, ok := parseAmount(text)
	if !ok {
		return m.reject(c, m.cfg.Messages.InvalidAmount)
	}
	return Result{
		Next: state.AwaitingNotes{
			SenderID: c.SenderID,
			Branch:   c.Branch,
			Type:     c.Type,
			Category: c.Category,
			Amount:   amount,
		},
		Reply: m.cfg.Messages.AskNotes,
	}
}

func (m *Machine) reject(c state.Conversation, reply string) Result {
	return Result{Next: c, Reply: reply}
}

func (m *Machine) businessTypeMenu() string {
	return m.menu(m.cfg.Messages.BusinessTypeMenu, labels(m.cfg.BusinessTypes))
}

func (m *Machine) menu(header string, items []string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	if m.cfg.Messages.CancelHint != "" {
		sb.WriteString("\n")
		sb.WriteString(m.cfg.Messages.CancelHint)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func labels(options []config.ChoiceOption) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label
	}
	return out
}
