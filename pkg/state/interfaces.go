package state

import "github.com/looplab/fsm"

// StepFSMCreator builds the step machine attached to every new session.
type StepFSMCreator interface {
	NewStepFSM(initial Step) *fsm.FSM
}
