package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// errMembersFailed is returned after a report has been printed in which at
// least one member's platform or command call failed.
var errMembersFailed = errors.New("one or more members failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode prints err and maps it to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, ui.WarnMsg("Interrupted"))
		return exitInterrupted
	case errors.Is(err, errMembersFailed):
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		return exitFailure
	case errors.Is(err, cluster.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'herd --help' for usage.")
		return exitUsage
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
}

var rootCmd = &cobra.Command{
	Use:   "herd",
	Short: "Herd - VirtualBox cluster lifecycle tool",
	Long: `Herd drives a group of VirtualBox machines as one cluster.

A cluster is the list of machine names in the roster file. Clone a base
machine into a cluster, then start, stop, restart, delete or run commands
on every member with one command. Stops wait for each member to power off
and offer a forced power off for members that do not.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	Args:          usageArgs(cobra.NoArgs),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	registerGlobalFlags(rootCmd)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", cluster.ErrUsage, err)
	})

	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(dumplistCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", cluster.ErrUsage, err)
		}
		return nil
	}
}
