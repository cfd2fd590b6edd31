package cluster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jbweber/herd/internal/confirm"
)

// Escalator handles a graceful stop that timed out.
type Escalator struct {
	issuer    *Issuer
	confirmer confirm.Confirmer
	waited    string
}

// NewEscalator returns an Escalator asking confirmer before forcing.
func NewEscalator(issuer *Issuer, confirmer confirm.Confirmer, waited string) *Escalator {
	return &Escalator{issuer: issuer, confirmer: confirmer, waited: waited}
}

// Escalate asks whether to force id off and, if so, issues exactly one forced
// power-off. It does not wait for the machine to go down afterwards.
// It reports whether the power-off was sent.
func (e *Escalator) Escalate(ctx context.Context, id string) (bool, error) {
	question := fmt.Sprintf("%s did not stop within %s. Force power off?", id, e.waited)
	ok, err := e.confirmer.Confirm(ctx, question)
	if err != nil {
		return false, fmt.Errorf("failed to confirm forced power off of %s: %w", id, err)
	}
	if !ok {
		log.Warn().Str("vm", id).Msg("Forced power off declined, leaving machine running")
		return false, nil
	}

	if err := e.issuer.Force(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
