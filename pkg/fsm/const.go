package fsm

import "ledgerbot/pkg/state"

// StateClosed is where a session's step machine ends, whatever the reason.
const StateClosed = "closed"

const (
	EventChooseBusinessType    = "choose_business_type"
	EventChooseBranch          = "choose_branch"
	EventChooseTransactionType = "choose_transaction_type"
	EventChooseCategory        = "choose_category"
	EventEnterAmount           = "enter_amount"
	EventSubmit                = "submit"
	EventCancel                = "cancel"
	EventAbort                 = "abort"
)

// Message kinds for the handled-messages metric.
const (
	KindRefresh = "refresh"
	KindTrigger = "trigger"
	KindCancel  = "cancel"
	KindStep    = "step"
	KindIgnored = "ignored"
)

var advanceEvents = map[state.Step]string{
	state.StepBusinessType:    EventChooseBusinessType,
	state.StepBranch:          EventChooseBranch,
	state.StepTransactionType: EventChooseTransactionType,
	state.StepCategory:        EventChooseCategory,
	state.StepAmount:          EventEnterAmount,
}

var openStates = []string{
	state.StepBusinessType.String(),
	state.StepBranch.String(),
	state.StepTransactionType.String(),
	state.StepCategory.String(),
	state.StepAmount.String(),
	state.StepNotes.String(),
}
