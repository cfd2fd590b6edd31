package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jbweber/herd/internal/confirm"
	"github.com/jbweber/herd/internal/naming"
	"github.com/jbweber/herd/internal/roster"
	"github.com/jbweber/herd/internal/status"
)

// Options configures a Controller.
type Options struct {
	Platform  Platform
	Roster    Roster
	Confirmer confirm.Confirmer

	// Parallelism is how many members are processed at once in whole-cluster
	// operations. Zero or one keeps the sequential default.
	Parallelism int

	// Placeholder is the token replaced by the member name in command
	// templates. Empty means naming.DefaultPlaceholder.
	Placeholder string
}

// Controller composes the Issuer, Poller and Escalator into lifecycle operations.
type Controller struct {
	platform    Platform
	roster      Roster
	confirmer   confirm.Confirmer
	prober      *Prober
	issuer      *Issuer
	poller      *Poller
	escalator   *Escalator
	parallelism int
	placeholder string
}

// NewController wires a Controller from opts.
func NewController(opts Options) (*Controller, error) {
	if opts.Platform == nil {
		return nil, fmt.Errorf("platform is required")
	}
	if opts.Roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if opts.Confirmer == nil {
		return nil, fmt.Errorf("confirmer is required")
	}

	prober := NewProber(opts.Platform)
	issuer := NewIssuer(opts.Platform, prober)
	poller := NewPoller(prober)
	waited := time.Duration(poller.maxAttempts) * poller.interval

	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = naming.DefaultPlaceholder
	}

	return &Controller{
		platform:    opts.Platform,
		roster:      opts.Roster,
		confirmer:   opts.Confirmer,
		prober:      prober,
		issuer:      issuer,
		poller:      poller,
		escalator:   NewEscalator(issuer, opts.Confirmer, waited.String()),
		parallelism: opts.Parallelism,
		placeholder: placeholder,
	}, nil
}

// Start boots id with behavior unless it is already running. It does not
// wait for the guest to finish booting.
func (c *Controller) Start(ctx context.Context, id string, behavior StartBehavior) MemberResult {
	m := status.NewMember(id)
	err := c.start(ctx, m, behavior)
	return resultOf(m, false, err)
}

// Stop stops id with behavior and waits for it to power off, escalating to a
// forced power-off (with confirmation) if it does not stop in time.
func (c *Controller) Stop(ctx context.Context, id string, behavior StopBehavior) MemberResult {
	m := status.NewMember(id)
	err := c.issueStop(ctx, m, behavior)
	if err == nil {
		err = c.awaitStop(ctx, m)
	}
	return resultOf(m, false, err)
}

// Restart stops id gracefully (ACPI) and then starts it headless. The start
// only begins once the stop, including any escalation, is settled.
func (c *Controller) Restart(ctx context.Context, id string) MemberResult {
	m := status.NewMember(id)
	unconverged, err := c.restart(ctx, m)
	return resultOf(m, unconverged, err)
}

// Delete removes id from the platform and then from the roster.
func (c *Controller) Delete(ctx context.Context, id string) MemberResult {
	m := status.NewMember(id)
	err := c.delete(ctx, m)
	if err == nil {
		if rerr := c.roster.Remove(id); rerr != nil && !errors.Is(rerr, roster.ErrNotFound) {
			err = fmt.Errorf("deleted %s but failed to update roster: %w", id, rerr)
			m.Fail("RosterUpdateFailed", err)
		}
	}
	return resultOf(m, false, err)
}

func (c *Controller) start(ctx context.Context, m *status.Member, behavior StartBehavior) error {
	issued, err := c.issuer.Issue(ctx, m.ID, behavior.Action())
	if err != nil {
		m.Fail("StartFailed", err)
		return err
	}
	if !issued {
		return m.Transition(status.PhaseAlreadyInState, "AlreadyRunning", "machine was already running")
	}
	return m.Transition(status.PhaseRequested, "StartRequested", fmt.Sprintf("%s start requested", behavior))
}

// issueStop sends the stop transition. A member it leaves in PhasePolling
// still has to go through awaitStop.
func (c *Controller) issueStop(ctx context.Context, m *status.Member, behavior StopBehavior) error {
	issued, err := c.issuer.Issue(ctx, m.ID, behavior.Action())
	if err != nil {
		m.Fail("StopFailed", err)
		return err
	}
	if !issued {
		return m.Transition(status.PhaseAlreadyInState, "AlreadyStopped", "machine was already stopped")
	}
	// A paused machine still counts as running, so waiting for it to stop
	// would always end in escalation.
	if behavior == StopPause {
		return m.Transition(status.PhaseRequested, "Paused", "pause requested")
	}
	return m.Transition(status.PhasePolling, "StopRequested", fmt.Sprintf("%s requested", behavior))
}

func (c *Controller) awaitStop(ctx context.Context, m *status.Member) error {
	if m.Phase != status.PhasePolling {
		return nil
	}

	result, err := c.poller.AwaitState(ctx, m.ID, Stopped)
	if err != nil {
		m.Fail("Interrupted", err)
		return err
	}
	if result == Converged {
		return m.Transition(status.PhaseStopped, "Stopped", "machine powered off")
	}

	if err := m.Transition(status.PhaseEscalating, "StopTimedOut", "graceful stop timed out"); err != nil {
		return err
	}
	forced, err := c.escalator.Escalate(ctx, m.ID)
	if err != nil {
		m.Fail("ForceFailed", err)
		return err
	}
	if forced {
		return m.Transition(status.PhaseForcedStopped, "ForcedPowerOff", "forced power off issued")
	}
	log.Warn().Str("vm", m.ID).Err(ErrConvergenceTimeout).Msg("Member left running")
	return m.Transition(status.PhaseStillRunning, "Declined", ErrConvergenceTimeout.Error())
}

func (c *Controller) restart(ctx context.Context, m *status.Member) (bool, error) {
	if err := c.issueStop(ctx, m, StopAcpiShutdown); err != nil {
		return false, err
	}
	if err := c.awaitStop(ctx, m); err != nil {
		return false, err
	}

	unconverged := status.IsUnconverged(m.Phase)
	if err := m.Reset(); err != nil {
		return unconverged, err
	}
	return unconverged, c.start(ctx, m, StartHeadless)
}

func (c *Controller) delete(ctx context.Context, m *status.Member) error {
	if _, err := c.issuer.Issue(ctx, m.ID, ActionDelete); err != nil {
		m.Fail("DeleteFailed", err)
		return err
	}
	return m.Transition(status.PhaseDeleted, "Deleted", "machine unregistered and deleted")
}
