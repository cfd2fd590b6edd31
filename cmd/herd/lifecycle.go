package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/ui"
)

var startCmd = &cobra.Command{
	Use:   "start <gui|headless|separate> [vm-name]",
	Short: "Start one member or the whole cluster",
	Long: `Start a single machine, or every roster member when no name is given.

Members that are already running are left alone. Start does not wait for
the guest to finish booting.

Behaviors:
  gui       open a VirtualBox window
  headless  no window
  separate  VM process with a detachable frontend ("detached" is accepted as an alias)`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		behavior, err := cluster.ParseStartBehavior(args[0])
		if err != nil {
			return err
		}

		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if len(args) == 2 {
			return printReport(os.Stdout, single("start", s.ctrl.Start(ctx, args[1], behavior)))
		}

		return finish(s.ctrl.StartAll(ctx, behavior))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <pause|poweroff|savestate|acpipowerbutton> [vm-name]",
	Short: "Stop one member or the whole cluster",
	Long: `Stop a single machine, or every roster member when no name is given.

Each member is polled until it powers off. A member still running after the
wait is offered a forced power off, which needs confirmation. For the whole
cluster every stop is sent first and the members are then waited on in order.

Behaviors:
  acpipowerbutton  graceful ACPI shutdown ("acpi" is accepted as an alias)
  savestate        save the machine state to disk
  poweroff         immediate power off
  pause            pause the machine; it is not waited on`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		behavior, err := cluster.ParseStopBehavior(args[0])
		if err != nil {
			return err
		}

		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if len(args) == 2 {
			return printReport(os.Stdout, single("stop", s.ctrl.Stop(ctx, args[1], behavior)))
		}

		return finish(s.ctrl.StopAll(ctx, behavior))
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart [vm-name]",
	Short: "Restart one member or the whole cluster",
	Long: `Restart a single machine, or every roster member in turn when no name is
given. Each restart is a graceful ACPI stop followed by a headless start.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if len(args) == 1 {
			return printReport(os.Stdout, single("restart", s.ctrl.Restart(ctx, args[0])))
		}

		return finish(s.ctrl.RestartAll(ctx))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [vm-name]",
	Short: "Delete one member or the whole cluster",
	Long: `Unregister a machine and delete its files, then drop it from the roster.

Without a name every roster member is deleted after confirmation, and the
roster file is removed once no member is left. Members whose delete failed
stay in the roster.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if len(args) == 1 {
			return printReport(os.Stdout, single("delete", s.ctrl.Delete(ctx, args[0])))
		}

		report, err := s.ctrl.DeleteAll(ctx)
		if errors.Is(err, cluster.ErrDeclined) {
			fmt.Println(ui.WarnMsg("Cluster delete cancelled"))
			return nil
		}
		return finish(report, err)
	},
}
