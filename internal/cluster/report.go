package cluster

import (
	"errors"

	"github.com/jbweber/herd/internal/status"
)

// MemberResult is the outcome of one operation on one member.
type MemberResult struct {
	ID      string
	Phase   status.Phase
	Reason  string
	Message string
	// Unconverged is set when a stop (on its own or inside a restart) timed
	// out and the forced power-off was declined.
	Unconverged bool
	Err         error
}

// Failed reports whether a platform or runner call failed for the member.
func (r MemberResult) Failed() bool {
	return r.Err != nil
}

func resultOf(m *status.Member, unconverged bool, err error) MemberResult {
	return MemberResult{
		ID:          m.ID,
		Phase:       m.Phase,
		Reason:      m.Reason,
		Message:     m.Message,
		Unconverged: unconverged || status.IsUnconverged(m.Phase),
		Err:         err,
	}
}

// Report collects the per-member results of a whole-cluster operation, in roster order.
type Report struct {
	Operation string
	Results   []MemberResult
}

// Err joins every member error, or returns nil if no member failed.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the members whose operation failed.
func (r *Report) Failed() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Failed() {
			ids = append(ids, res.ID)
		}
	}
	return ids
}

// Unconverged returns the members left running after a declined escalation.
func (r *Report) Unconverged() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Unconverged {
			ids = append(ids, res.ID)
		}
	}
	return ids
}
