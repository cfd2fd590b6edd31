package cluster

import (
	"fmt"
	"strings"

	"github.com/jbweber/herd/internal/vbox"
)

// PowerState is the live power state of a machine.
type PowerState int

const (
	Stopped PowerState = iota
	Running
)

func (s PowerState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// StartBehavior selects how a machine is booted.
type StartBehavior string

const (
	StartGUI      StartBehavior = "gui"
	StartSeparate StartBehavior = "separate"
	StartHeadless StartBehavior = "headless"
)

// ParseStartBehavior parses a start keyword. "detached" is accepted for separate.
func ParseStartBehavior(s string) (StartBehavior, error) {
	switch strings.ToLower(s) {
	case "gui":
		return StartGUI, nil
	case "separate", "detached":
		return StartSeparate, nil
	case "headless":
		return StartHeadless, nil
	default:
		return "", fmt.Errorf("%w: unknown start behavior %q (valid: gui, separate, headless)", ErrUsage, s)
	}
}

// Action returns the transition that performs this start.
func (b StartBehavior) Action() Action {
	switch b {
	case StartGUI:
		return ActionStartGUI
	case StartSeparate:
		return ActionStartDetached
	default:
		return ActionStartHeadless
	}
}

// StopBehavior selects how a machine is stopped.
type StopBehavior string

const (
	StopPause        StopBehavior = "pause"
	StopPowerOff     StopBehavior = "poweroff"
	StopSaveState    StopBehavior = "savestate"
	StopAcpiShutdown StopBehavior = "acpipowerbutton"
)

// ParseStopBehavior parses a stop keyword. "acpi" is accepted for acpipowerbutton.
func ParseStopBehavior(s string) (StopBehavior, error) {
	switch strings.ToLower(s) {
	case "pause":
		return StopPause, nil
	case "poweroff":
		return StopPowerOff, nil
	case "savestate":
		return StopSaveState, nil
	case "acpipowerbutton", "acpi":
		return StopAcpiShutdown, nil
	default:
		return "", fmt.Errorf("%w: unknown stop behavior %q (valid: pause, poweroff, savestate, acpipowerbutton)", ErrUsage, s)
	}
}

// Action returns the transition that performs this stop.
func (b StopBehavior) Action() Action {
	switch b {
	case StopPause:
		return ActionPause
	case StopPowerOff:
		return ActionForcePowerOff
	case StopSaveState:
		return ActionSaveState
	default:
		return ActionACPIShutdown
	}
}

// Action is one lifecycle transition understood by the Issuer.
type Action string

const (
	ActionStartGUI      Action = "start-gui"
	ActionStartHeadless Action = "start-headless"
	ActionStartDetached Action = "start-detached"
	ActionACPIShutdown  Action = "acpi-shutdown"
	ActionPause         Action = "pause"
	ActionSaveState     Action = "save-state"
	ActionForcePowerOff Action = "force-poweroff"
	ActionClone         Action = "clone"
	ActionDelete        Action = "delete"
)

// startTypes maps start actions onto VBoxManage start types.
var startTypes = map[Action]string{
	ActionStartGUI:      vbox.StartTypeGUI,
	ActionStartHeadless: vbox.StartTypeHeadless,
	ActionStartDetached: vbox.StartTypeSeparate,
}

// powerActions maps stop actions onto VBoxManage controlvm actions.
var powerActions = map[Action]string{
	ActionACPIShutdown:  vbox.ControlACPIPowerButton,
	ActionPause:         vbox.ControlPause,
	ActionSaveState:     vbox.ControlSaveState,
	ActionForcePowerOff: vbox.ControlPowerOff,
}

// IsStart reports whether a is a start action.
func (a Action) IsStart() bool {
	_, ok := startTypes[a]
	return ok
}

// IsStop reports whether a is a stop action (force-poweroff included).
func (a Action) IsStop() bool {
	_, ok := powerActions[a]
	return ok
}

// ConvergenceResult is the outcome of waiting for a power state.
type ConvergenceResult int

const (
	Converged ConvergenceResult = iota
	TimedOut
)

func (r ConvergenceResult) String() string {
	if r == Converged {
		return "converged"
	}
	return "timed out"
}
