package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jbweber/herd/internal/naming"
	"github.com/jbweber/herd/internal/roster"
	"github.com/jbweber/herd/internal/status"
)

// Members returns the roster, failing with ErrEmptyRoster if it is missing or empty.
func (c *Controller) Members() ([]string, error) {
	members, err := c.roster.Load()
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEmptyRoster, err)
		}
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrEmptyRoster
	}
	return members, nil
}

// forEach runs fn for every member and returns the results in member order.
// Members run one at a time unless parallelism is above one. An interrupted
// context stops new members from being started.
func (c *Controller) forEach(ctx context.Context, ids []string, fn func(ctx context.Context, id string) MemberResult) ([]MemberResult, error) {
	results := make([]MemberResult, len(ids))

	if c.parallelism <= 1 {
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			results[i] = fn(ctx, id)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = MemberResult{ID: id, Phase: status.PhaseFailed, Reason: "Interrupted", Err: err}
				return nil
			}
			results[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// StartAll starts every roster member with behavior.
func (c *Controller) StartAll(ctx context.Context, behavior StartBehavior) (*Report, error) {
	members, err := c.Members()
	if err != nil {
		return nil, err
	}

	results, err := c.forEach(ctx, members, func(ctx context.Context, id string) MemberResult {
		return c.Start(ctx, id, behavior)
	})
	return &Report{Operation: "start", Results: results}, err
}

// StopAll issues the stop to every roster member first, then waits for (and
// if needed escalates) each member in turn.
func (c *Controller) StopAll(ctx context.Context, behavior StopBehavior) (*Report, error) {
	members, err := c.Members()
	if err != nil {
		return nil, err
	}

	states := make([]*status.Member, len(members))
	errs := make([]error, len(members))
	for i, id := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		states[i] = status.NewMember(id)
		errs[i] = c.issueStop(ctx, states[i], behavior)
	}

	index := make(map[string]int, len(members))
	for i, id := range members {
		index[id] = i
	}
	results, err := c.forEach(ctx, members, func(ctx context.Context, id string) MemberResult {
		i := index[id]
		m := states[i]
		if errs[i] == nil {
			errs[i] = c.awaitStop(ctx, m)
		}
		return resultOf(m, false, errs[i])
	})
	return &Report{Operation: "stop", Results: results}, err
}

// RestartAll restarts every roster member, one full restart after another.
func (c *Controller) RestartAll(ctx context.Context) (*Report, error) {
	members, err := c.Members()
	if err != nil {
		return nil, err
	}

	results, err := c.forEach(ctx, members, c.Restart)
	return &Report{Operation: "restart", Results: results}, err
}

// DeleteAll asks for confirmation, deletes every roster member and then the
// roster itself. Members whose delete failed stay in the roster.
func (c *Controller) DeleteAll(ctx context.Context) (*Report, error) {
	members, err := c.Members()
	if err != nil {
		return nil, err
	}

	question := fmt.Sprintf("Delete all %d cluster members (%s) and their disks?", len(members), strings.Join(members, ", "))
	ok, err := c.confirmer.Confirm(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm cluster delete: %w", err)
	}
	if !ok {
		return nil, ErrDeclined
	}

	results, runErr := c.forEach(ctx, members, func(ctx context.Context, id string) MemberResult {
		m := status.NewMember(id)
		err := c.delete(ctx, m)
		return resultOf(m, false, err)
	})

	var survivors []string
	for i, id := range members {
		if i >= len(results) || results[i].Phase != status.PhaseDeleted {
			survivors = append(survivors, id)
		}
	}
	report := &Report{Operation: "delete", Results: results}

	if len(survivors) == 0 {
		if err := c.roster.Delete(); err != nil {
			return report, err
		}
		log.Info().Int("members", len(members)).Msg("Cluster deleted")
		return report, runErr
	}
	if err := c.roster.Save(survivors); err != nil {
		return report, err
	}
	log.Warn().Strs("remaining", survivors).Msg("Some members were not deleted and remain in the roster")
	return report, runErr
}

// Clone creates copies clones of src named {prefix}-1 … {prefix}-N and appends
// each one to the roster as soon as it exists. Names already in the roster are
// skipped. Clones run one at a time because each locks the source machine.
func (c *Controller) Clone(ctx context.Context, src, prefix string, copies int) (*Report, error) {
	if copies < 1 {
		return nil, fmt.Errorf("%w: copies must be at least 1, got %d", ErrUsage, copies)
	}
	if err := naming.ValidateIdentifier(src); err != nil {
		return nil, fmt.Errorf("%w: source: %v", ErrUsage, err)
	}
	if err := naming.ValidateIdentifier(prefix); err != nil {
		return nil, fmt.Errorf("%w: prefix: %v", ErrUsage, err)
	}

	existing, err := c.roster.Load()
	if err != nil && !errors.Is(err, roster.ErrNotFound) {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	report := &Report{Operation: "clone"}
	for _, name := range naming.MemberNames(prefix, copies) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		m := status.NewMember(name)
		if known[name] {
			log.Info().Str("vm", name).Msg("Already in roster, not cloning")
			_ = m.Transition(status.PhaseAlreadyInState, "AlreadyMember", "already in roster")
			report.Results = append(report.Results, resultOf(m, false, nil))
			continue
		}

		if err := c.issuer.IssueClone(ctx, src, name); err != nil {
			m.Fail("CloneFailed", err)
			report.Results = append(report.Results, resultOf(m, false, err))
			continue
		}
		if err := c.roster.Append(name); err != nil {
			return report, fmt.Errorf("cloned %s but failed to record it in the roster: %w", name, err)
		}
		known[name] = true
		_ = m.Transition(status.PhaseCompleted, "Cloned", "cloned from "+src)
		report.Results = append(report.Results, resultOf(m, false, nil))
	}
	return report, nil
}

// Sync replaces the roster with the platform's registered machines whose name
// starts with prefix (all machines when prefix is empty) and returns them.
func (c *Controller) Sync(ctx context.Context, prefix string) ([]string, error) {
	all, err := c.platform.ListAll(ctx)
	if err != nil {
		return nil, externalErr("*", "list", err)
	}

	members := make([]string, 0, len(all))
	for _, id := range all {
		if strings.HasPrefix(id, prefix) {
			members = append(members, id)
		}
	}
	if err := c.roster.Save(members); err != nil {
		return nil, err
	}
	log.Info().Int("members", len(members)).Str("prefix", prefix).Msg("Roster synced from platform")
	return members, nil
}

// RunAll expands template for every roster member and hands the result to
// runner. A failing member is recorded and the next one still runs.
func (c *Controller) RunAll(ctx context.Context, template string, runner Runner) (*Report, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: command template is required", ErrUsage)
	}
	members, err := c.Members()
	if err != nil {
		return nil, err
	}

	results, err := c.forEach(ctx, members, func(ctx context.Context, id string) MemberResult {
		m := status.NewMember(id)
		line := naming.Expand(template, c.placeholder, id)
		logger := log.With().Str("vm", id).Str("command", line).Logger()

		if err := runner.Run(ctx, id, line); err != nil {
			logger.Error().Err(err).Msg("Command failed")
			m.Fail("CommandFailed", err)
			return resultOf(m, false, fmt.Errorf("%s: %w", id, err))
		}
		logger.Info().Msg("Command succeeded")
		_ = m.Transition(status.PhaseCompleted, "CommandSucceeded", line)
		return resultOf(m, false, nil)
	})
	return &Report{Operation: "command", Results: results}, err
}

// MemberStatus is a roster member with its live power state.
type MemberStatus struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

// Describe returns every roster member with its current power state, using a
// single running-set query.
func (c *Controller) Describe(ctx context.Context) ([]MemberStatus, error) {
	members, err := c.Members()
	if err != nil {
		return nil, err
	}
	running, err := c.platform.ListRunning(ctx)
	if err != nil {
		return nil, externalErr("*", "list", err)
	}

	on := make(map[string]bool, len(running))
	for _, id := range running {
		on[id] = true
	}
	out := make([]MemberStatus, 0, len(members))
	for _, id := range members {
		state := Stopped
		if on[id] {
			state = Running
		}
		out = append(out, MemberStatus{Name: id, State: state.String()})
	}
	return out, nil
}
