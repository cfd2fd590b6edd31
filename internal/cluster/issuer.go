package cluster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Issuer sends single lifecycle transitions to the platform.
type Issuer struct {
	platform Platform
	prober   *Prober
}

// NewIssuer returns an Issuer using prober for its state guard.
func NewIssuer(platform Platform, prober *Prober) *Issuer {
	return &Issuer{platform: platform, prober: prober}
}

// Issue sends action for id and reports whether it was sent.
//
// Start actions are skipped when id is already running and stop actions when
// it is already stopped, so re-running a whole-cluster start or stop is safe.
// Delete is always sent. Clone goes through IssueClone.
func (i *Issuer) Issue(ctx context.Context, id string, action Action) (bool, error) {
	logger := log.With().Str("vm", id).Str("action", string(action)).Logger()

	switch {
	case action.IsStart():
		running, err := i.prober.IsRunning(ctx, id)
		if err != nil {
			return false, err
		}
		if running {
			logger.Info().Msg("Already running, nothing to start")
			return false, nil
		}
		logger.Info().Msg("Starting")
		if err := i.platform.Start(ctx, id, startTypes[action]); err != nil {
			return false, externalErr(id, string(action), err)
		}
		return true, nil

	case action.IsStop():
		running, err := i.prober.IsRunning(ctx, id)
		if err != nil {
			return false, err
		}
		if !running {
			logger.Info().Msg("Already stopped, nothing to stop")
			return false, nil
		}
		logger.Info().Msg("Stopping")
		if err := i.platform.ControlPower(ctx, id, powerActions[action]); err != nil {
			return false, externalErr(id, string(action), err)
		}
		return true, nil

	case action == ActionDelete:
		logger.Info().Msg("Deleting")
		if err := i.platform.Delete(ctx, id); err != nil {
			return false, externalErr(id, string(action), err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("%w: action %q cannot be issued for a single machine", ErrUsage, action)
	}
}

// Force powers id off without consulting its state first.
func (i *Issuer) Force(ctx context.Context, id string) error {
	log.Warn().Str("vm", id).Msg("Forcing power off")
	if err := i.platform.ControlPower(ctx, id, powerActions[ActionForcePowerOff]); err != nil {
		return externalErr(id, string(ActionForcePowerOff), err)
	}
	return nil
}

// IssueClone creates name as a clone of src. There is no state guard.
func (i *Issuer) IssueClone(ctx context.Context, src, name string) error {
	log.Info().Str("vm", name).Str("source", src).Msg("Cloning")
	if err := i.platform.Clone(ctx, src, name); err != nil {
		return externalErr(name, string(ActionClone), err)
	}
	return nil
}
