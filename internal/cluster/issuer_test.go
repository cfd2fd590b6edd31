package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_IsRunning(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform("c-1", "c-2")
	p.running["c-1"] = true
	prober := NewProber(p)

	running, err := prober.IsRunning(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, running)

	state, err := prober.PowerState(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, Stopped, state)

	assert.Equal(t, 2, p.count("list-running"), "expected a fresh query per call")
}

func TestProber_ErrorPropagates(t *testing.T) {
	p := newFakePlatform("c-1")
	p.listRunningErr = errors.New("VBoxSVC unreachable")

	_, err := NewProber(p).IsRunning(context.Background(), "c-1")

	var extErr *ExternalCallError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "c-1", extErr.ID)
	assert.Equal(t, "probe", extErr.Op)
	assert.Equal(t, 1, p.count("list-running"), "prober must not retry")
}

func TestIssuer_StartGuard(t *testing.T) {
	actions := []Action{ActionStartGUI, ActionStartHeadless, ActionStartDetached}

	for _, action := range actions {
		t.Run(string(action), func(t *testing.T) {
			ctx := context.Background()
			p := newFakePlatform("c-1")
			p.running["c-1"] = true
			issuer := NewIssuer(p, NewProber(p))

			for range 2 {
				issued, err := issuer.Issue(ctx, "c-1", action)
				require.NoError(t, err)
				assert.False(t, issued, "start must be skipped for a running machine")
			}
			assert.Zero(t, p.count("start"))
		})
	}
}

func TestIssuer_StartTypes(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionStartGUI, "start c-1 gui"},
		{ActionStartHeadless, "start c-1 headless"},
		{ActionStartDetached, "start c-1 separate"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			p := newFakePlatform("c-1")
			issued, err := NewIssuer(p, NewProber(p)).Issue(context.Background(), "c-1", tt.action)
			require.NoError(t, err)
			require.True(t, issued)
			assert.Equal(t, []string{tt.want}, p.transitions())
		})
	}
}

func TestIssuer_StopGuard(t *testing.T) {
	actions := []Action{ActionACPIShutdown, ActionPause, ActionSaveState, ActionForcePowerOff}

	for _, action := range actions {
		t.Run(string(action), func(t *testing.T) {
			p := newFakePlatform("c-1")
			issued, err := NewIssuer(p, NewProber(p)).Issue(context.Background(), "c-1", action)
			require.NoError(t, err)
			assert.False(t, issued, "stop must be skipped for a stopped machine")
			assert.Zero(t, p.count("controlvm"))
		})
	}
}

func TestIssuer_StopActions(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionACPIShutdown, "controlvm c-1 acpipowerbutton"},
		{ActionPause, "controlvm c-1 pause"},
		{ActionSaveState, "controlvm c-1 savestate"},
		{ActionForcePowerOff, "controlvm c-1 poweroff"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			p := newFakePlatform("c-1")
			p.running["c-1"] = true
			issued, err := NewIssuer(p, NewProber(p)).Issue(context.Background(), "c-1", tt.action)
			require.NoError(t, err)
			require.True(t, issued)
			assert.Equal(t, []string{tt.want}, p.transitions())
		})
	}
}

func TestIssuer_DeleteAndCloneUnguarded(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform("base", "c-1")
	p.running["c-1"] = true
	issuer := NewIssuer(p, NewProber(p))

	issued, err := issuer.Issue(ctx, "c-1", ActionDelete)
	require.NoError(t, err)
	require.True(t, issued)
	require.NoError(t, issuer.IssueClone(ctx, "base", "c-2"))
	assert.Zero(t, p.count("list-running"), "delete and clone must not probe state")
}

func TestIssuer_Force(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true

	require.NoError(t, NewIssuer(p, NewProber(p)).Force(context.Background(), "c-1"))
	assert.Zero(t, p.count("list-running"), "force must not probe state")
	assert.Equal(t, 1, p.count("controlvm c-1 poweroff"))
}

func TestIssuer_Errors(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform("c-1")
	p.failures["start c-1"] = errors.New("locked by another session")
	issuer := NewIssuer(p, NewProber(p))

	_, err := issuer.Issue(ctx, "c-1", ActionStartHeadless)
	var extErr *ExternalCallError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, string(ActionStartHeadless), extErr.Op)

	_, err = issuer.Issue(ctx, "c-1", ActionClone)
	assert.ErrorIs(t, err, ErrUsage)
}
