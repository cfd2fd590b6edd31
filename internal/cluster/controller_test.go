package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/herd/internal/status"
)

func TestNewController_RequiresCollaborators(t *testing.T) {
	p := newFakePlatform()
	r := newMemRoster()
	c := newMockConfirmer(true)

	tests := []Options{
		{Roster: r, Confirmer: c},
		{Platform: p, Confirmer: c},
		{Platform: p, Roster: r},
	}
	for i, opts := range tests {
		_, err := NewController(opts)
		assert.Error(t, err, "case %d", i)
	}
}

func TestStart_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform("c-1")
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	first := ctrl.Start(ctx, "c-1", StartHeadless)
	require.NoError(t, first.Err)
	require.Equal(t, status.PhaseRequested, first.Phase)

	second := ctrl.Start(ctx, "c-1", StartGUI)
	require.Equal(t, status.PhaseAlreadyInState, second.Phase)
	require.Equal(t, "AlreadyRunning", second.Reason)

	assert.Equal(t, 1, p.count("start"), "expected exactly 1 start call")
}

func TestStart_Failure(t *testing.T) {
	p := newFakePlatform("c-1")
	p.failures["start c-1"] = errors.New("no such machine")
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Start(context.Background(), "c-1", StartHeadless)
	require.True(t, res.Failed())
	require.Equal(t, status.PhaseFailed, res.Phase)
	var extErr *ExternalCallError
	assert.ErrorAs(t, res.Err, &extErr)
}

func TestStop_AlreadyStopped(t *testing.T) {
	p := newFakePlatform("c-1")
	ctrl, s := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Stop(context.Background(), "c-1", StopAcpiShutdown)

	require.Equal(t, status.PhaseAlreadyInState, res.Phase)
	require.Equal(t, "AlreadyStopped", res.Reason)
	assert.Empty(t, p.transitions())
	assert.Equal(t, 1, p.count("list-running"), "expected only the guard query")
	assert.Empty(t, s.sleeps, "expected no polling")
}

func TestStop_Converges(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	conf := newMockConfirmer(true)
	ctrl, _ := newTestController(t, p, newMemRoster(), conf)

	res := ctrl.Stop(context.Background(), "c-1", StopAcpiShutdown)

	require.NoError(t, res.Err)
	require.Equal(t, status.PhaseStopped, res.Phase)
	assert.Empty(t, conf.questions, "expected no escalation prompt")
}

func TestStop_TimeoutConfirmed(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	p.stuck["c-1"] = true
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Stop(context.Background(), "c-1", StopAcpiShutdown)

	require.Equal(t, status.PhaseForcedStopped, res.Phase)
	assert.Equal(t, []string{"controlvm c-1 acpipowerbutton", "controlvm c-1 poweroff"}, p.transitions())
	// one guard query plus the full poll, nothing after the forced power-off
	assert.Equal(t, 1+DefaultMaxAttempts, p.count("list-running"))
	assert.Equal(t, "controlvm c-1 poweroff", p.calls[len(p.calls)-1], "power-off should be the last call")
}

func TestStop_TimeoutDeclined(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	p.stuck["c-1"] = true
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(false))

	res := ctrl.Stop(context.Background(), "c-1", StopAcpiShutdown)

	require.Equal(t, status.PhaseStillRunning, res.Phase)
	require.True(t, res.Unconverged)
	assert.NoError(t, res.Err, "declined escalation is not an error")
	assert.Zero(t, p.count("controlvm c-1 poweroff"))
}

func TestStop_PauseIsNotPolled(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	conf := newMockConfirmer(true)
	ctrl, s := newTestController(t, p, newMemRoster(), conf)

	res := ctrl.Stop(context.Background(), "c-1", StopPause)

	require.Equal(t, status.PhaseRequested, res.Phase)
	require.Equal(t, "Paused", res.Reason)
	assert.Empty(t, s.sleeps, "pause must not poll")
	assert.Empty(t, conf.questions, "pause must not escalate")
}

func TestStop_SaveStateAndPowerOffConverge(t *testing.T) {
	for _, b := range []StopBehavior{StopSaveState, StopPowerOff} {
		p := newFakePlatform("c-1")
		p.running["c-1"] = true
		ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(false))

		res := ctrl.Stop(context.Background(), "c-1", b)
		assert.Equal(t, status.PhaseStopped, res.Phase, "%s: %+v", b, res)
	}
}

func TestRestart_StopThenStart(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Restart(context.Background(), "c-1")

	require.NoError(t, res.Err)
	require.Equal(t, status.PhaseRequested, res.Phase)
	assert.Equal(t, []string{"controlvm c-1 acpipowerbutton", "start c-1 headless"}, p.transitions())
}

func TestRestart_EscalationCompletesBeforeStart(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	p.stuck["c-1"] = true
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Restart(context.Background(), "c-1")

	want := []string{"controlvm c-1 acpipowerbutton", "controlvm c-1 poweroff", "start c-1 headless"}
	assert.Equal(t, want, p.transitions())
	assert.Equal(t, status.PhaseRequested, res.Phase)
}

func TestRestart_DeclinedLeavesRunning(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	p.stuck["c-1"] = true
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(false))

	res := ctrl.Restart(context.Background(), "c-1")

	assert.True(t, res.Unconverged, "restart should report the unconverged stop")
	assert.Equal(t, status.PhaseAlreadyInState, res.Phase, "start should be skipped")
	assert.Zero(t, p.count("start"))
}

func TestRestart_StopFailureSkipsStart(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	p.failures["controlvm c-1"] = errors.New("busy")
	ctrl, _ := newTestController(t, p, newMemRoster(), newMockConfirmer(true))

	res := ctrl.Restart(context.Background(), "c-1")

	require.True(t, res.Failed())
	assert.Zero(t, p.count("start"))
}

func TestDelete_RemovesFromRoster(t *testing.T) {
	p := newFakePlatform("c-1", "c-2", "c-3")
	r := newMemRoster("c-1", "c-2", "c-3")
	ctrl, _ := newTestController(t, p, r, newMockConfirmer(true))

	res := ctrl.Delete(context.Background(), "c-2")

	require.NoError(t, res.Err)
	require.Equal(t, status.PhaseDeleted, res.Phase)
	assert.Equal(t, []string{"c-1", "c-3"}, r.members)
}

func TestDelete_FailureKeepsRoster(t *testing.T) {
	p := newFakePlatform("c-1")
	p.failures["delete c-1"] = errors.New("machine is running")
	r := newMemRoster("c-1")
	ctrl, _ := newTestController(t, p, r, newMockConfirmer(true))

	res := ctrl.Delete(context.Background(), "c-1")

	require.True(t, res.Failed())
	assert.Equal(t, []string{"c-1"}, r.members, "roster should be unchanged")
}

func TestDelete_NonMemberWithoutRoster(t *testing.T) {
	p := newFakePlatform("scratch")
	r := &memRoster{}
	ctrl, _ := newTestController(t, p, r, newMockConfirmer(true))

	res := ctrl.Delete(context.Background(), "scratch")
	assert.NoError(t, res.Err, "deleting a machine without a roster should succeed")
}

func TestParseBehaviors(t *testing.T) {
	starts := map[string]StartBehavior{"gui": StartGUI, "HEADLESS": StartHeadless, "separate": StartSeparate, "detached": StartSeparate}
	for in, want := range starts {
		got, err := ParseStartBehavior(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	stops := map[string]StopBehavior{"pause": StopPause, "poweroff": StopPowerOff, "savestate": StopSaveState, "acpipowerbutton": StopAcpiShutdown, "acpi": StopAcpiShutdown}
	for in, want := range stops {
		got, err := ParseStopBehavior(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStartBehavior("fast")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = ParseStopBehavior("halt")
	assert.ErrorIs(t, err, ErrUsage)
}
