// Package status tracks the lifecycle phase of a single cluster member while
// a start, stop, restart or delete runs against it.
//
// Each member gets its own Member value, so independent members can move
// through their phases on separate goroutines without sharing state.
package status

import "fmt"

// Phase is the observed step a member has reached within one operation.
type Phase string

const (
	// PhasePending means nothing has been done to the member yet.
	PhasePending Phase = "Pending"
	// PhaseAlreadyInState means the member was already in the target power
	// state and no transition was issued.
	PhaseAlreadyInState Phase = "AlreadyInState"
	// PhaseRequested means a transition was issued and is not awaited.
	PhaseRequested Phase = "Requested"
	// PhasePolling means a stop was issued and convergence is being awaited.
	PhasePolling Phase = "Polling"
	// PhaseStopped means the member was observed powered off.
	PhaseStopped Phase = "Stopped"
	// PhaseEscalating means the graceful stop timed out and the operator is
	// being asked whether to force it.
	PhaseEscalating Phase = "Escalating"
	// PhaseForcedStopped means a forced power-off was issued after a timeout.
	PhaseForcedStopped Phase = "ForcedStopped"
	// PhaseStillRunning means escalation was declined; the member is unconverged.
	PhaseStillRunning Phase = "StillRunning"
	// PhaseCompleted means a one-shot action (clone, command) finished.
	PhaseCompleted Phase = "Completed"
	// PhaseDeleted means the member was removed from the platform.
	PhaseDeleted Phase = "Deleted"
	// PhaseFailed means a platform call failed for this member.
	PhaseFailed Phase = "Failed"
)

// transitions lists, per phase, the phases it may move to.
var transitions = map[Phase][]Phase{
	PhasePending:    {PhaseAlreadyInState, PhaseRequested, PhasePolling, PhaseCompleted, PhaseDeleted},
	PhaseRequested:  {PhasePending},
	PhasePolling:    {PhaseStopped, PhaseEscalating},
	PhaseEscalating: {PhaseForcedStopped, PhaseStillRunning},
	// A restart feeds the outcome of its stop half into the start half.
	PhaseAlreadyInState: {PhasePending},
	PhaseStopped:        {PhasePending},
	PhaseForcedStopped:  {PhasePending},
	PhaseStillRunning:   {PhasePending},
}

// Member is the per-member state machine.
type Member struct {
	ID      string
	Phase   Phase
	Reason  string
	Message string
}

// NewMember returns a member in PhasePending.
func NewMember(id string) *Member {
	return &Member{ID: id, Phase: PhasePending}
}

// Transition moves the member to phase next, recording why.
// It returns an error and leaves the member unchanged if the move is not allowed.
func (m *Member) Transition(next Phase, reason, message string) error {
	if !CanTransition(m.Phase, next) {
		return fmt.Errorf("member %s: cannot transition to %s from phase %s", m.ID, next, m.Phase)
	}
	m.Phase = next
	m.Reason = reason
	m.Message = message
	return nil
}

// Fail moves the member to PhaseFailed. This is allowed from any phase.
func (m *Member) Fail(reason string, err error) {
	m.Phase = PhaseFailed
	m.Reason = reason
	if err != nil {
		m.Message = err.Error()
	}
}

// Reset returns a settled member to PhasePending so a follow-up operation
// (the start half of a restart) can run against it.
func (m *Member) Reset() error {
	return m.Transition(PhasePending, "", "")
}

// CanTransition reports whether from may move to next.
func CanTransition(from, next Phase) bool {
	if next == PhaseFailed {
		return true
	}
	for _, p := range transitions[from] {
		if p == next {
			return true
		}
	}
	return false
}

// IsUnconverged returns true if the member was asked to stop and did not.
func IsUnconverged(phase Phase) bool {
	return phase == PhaseStillRunning
}
