package vbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jbweber/herd/internal/cmdexec"
)

// DefaultBinary is the VBoxManage executable looked up on PATH.
const DefaultBinary = "VBoxManage"

// Start types accepted by `VBoxManage startvm --type`.
const (
	StartTypeGUI      = "gui"
	StartTypeHeadless = "headless"
	StartTypeSeparate = "separate"
)

// Power actions accepted by `VBoxManage controlvm`.
const (
	ControlACPIPowerButton = "acpipowerbutton"
	ControlPause           = "pause"
	ControlSaveState       = "savestate"
	ControlPowerOff        = "poweroff"
)

// Machine is one registered virtual machine.
type Machine struct {
	Name string
	UUID uuid.UUID
}

// runFunc runs a command; it matches cmdexec.Execute without options.
type runFunc func(ctx context.Context, command string, args []string) (*cmdexec.Result, error)

// Client wraps the VBoxManage binary.
type Client struct {
	binary string
	run    runFunc
}

// NewClient returns a Client using binary, or DefaultBinary if empty.
func NewClient(binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{
		binary: binary,
		run: func(ctx context.Context, command string, args []string) (*cmdexec.Result, error) {
			return cmdexec.Execute(ctx, command, args, cmdexec.Options{})
		},
	}
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, error) {
	log.Debug().Str("binary", c.binary).Strs("args", args).Msg("Running VBoxManage")
	res, err := c.run(ctx, c.binary, args)
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

// Version returns the VBoxManage version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.exec(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get VirtualBox version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Machines lists every registered VM.
func (c *Client) Machines(ctx context.Context) ([]Machine, error) {
	out, err := c.exec(ctx, "list", "vms")
	if err != nil {
		return nil, fmt.Errorf("failed to list vms: %w", err)
	}
	return ParseList(out)
}

// RunningMachines lists every VM VirtualBox considers running (paused VMs included).
func (c *Client) RunningMachines(ctx context.Context) ([]Machine, error) {
	out, err := c.exec(ctx, "list", "runningvms")
	if err != nil {
		return nil, fmt.Errorf("failed to list running vms: %w", err)
	}
	return ParseList(out)
}

// ListAll returns the names of every registered VM.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	machines, err := c.Machines(ctx)
	if err != nil {
		return nil, err
	}
	return names(machines), nil
}

// ListRunning returns the names of every running VM.
func (c *Client) ListRunning(ctx context.Context) ([]string, error) {
	machines, err := c.RunningMachines(ctx)
	if err != nil {
		return nil, err
	}
	return names(machines), nil
}

// Start boots a VM with the given start type.
func (c *Client) Start(ctx context.Context, name, startType string) error {
	if _, err := c.exec(ctx, "startvm", name, "--type", startType); err != nil {
		return fmt.Errorf("failed to start %s (%s): %w", name, startType, err)
	}
	return nil
}

// ControlPower sends a power action to a running VM.
func (c *Client) ControlPower(ctx context.Context, name, action string) error {
	if _, err := c.exec(ctx, "controlvm", name, action); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, name, err)
	}
	return nil
}

// Clone creates and registers a full clone of src named name.
func (c *Client) Clone(ctx context.Context, src, name string) error {
	if _, err := c.exec(ctx, "clonevm", src, "--name", name, "--register"); err != nil {
		return fmt.Errorf("failed to clone %s into %s: %w", src, name, err)
	}
	return nil
}

// Delete unregisters a VM and deletes its files.
func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.exec(ctx, "unregistervm", name, "--delete"); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// listLine matches `"name" {uuid}`. Names may contain spaces and quotes.
var listLine = regexp.MustCompile(`^"(.*)" \{([0-9A-Fa-f-]+)\}$`)

// ParseList parses the output of `VBoxManage list vms` or `list runningvms`.
func ParseList(out []byte) ([]Machine, error) {
	machines := []Machine{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := listLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unexpected VBoxManage list line: %q", line)
		}
		id, err := uuid.Parse(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid uuid for %s: %w", m[1], err)
		}
		machines = append(machines, Machine{Name: m[1], UUID: id})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read VBoxManage list output: %w", err)
	}
	return machines, nil
}

func names(machines []Machine) []string {
	out := make([]string, 0, len(machines))
	for _, m := range machines {
		out = append(out, m.Name)
	}
	return out
}
