package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/output"
	"github.com/jbweber/herd/internal/ui"
	"github.com/jbweber/herd/internal/vbox"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <source-vm> <prefix> <copies>",
	Short: "Clone a machine into a cluster",
	Long: `Create <copies> full clones of <source-vm> named <prefix>-1 … <prefix>-N.

Each clone is added to the roster as soon as it exists. Names already in the
roster are skipped, so an interrupted clone can be re-run.

Example:
  herd clone ubuntu-base web 3`,
	Args: usageArgs(cobra.ExactArgs(3)),
	RunE: func(cmd *cobra.Command, args []string) error {
		copies, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: copies must be a number, got %q", cluster.ErrUsage, args[2])
		}

		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		return finish(s.ctrl.Clone(cmd.Context(), args[0], args[1], copies))
	},
}

var syncPrefix string

var dumplistCmd = &cobra.Command{
	Use:     "dumplist",
	Aliases: []string{"sync"},
	Short:   "Rebuild the roster from VirtualBox",
	Long: `Replace the roster with the machines registered in VirtualBox.

With --prefix only machines whose name starts with the prefix are kept.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		members, err := s.ctrl.Sync(cmd.Context(), syncPrefix)
		if err != nil {
			return fmt.Errorf("failed to sync roster: %w", err)
		}
		for _, m := range members {
			fmt.Println(m)
		}
		fmt.Fprintln(os.Stderr, ui.SuccessMsg("Wrote %d member(s) to %s", len(members), s.store.Path()))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List roster members and their power state",
	Long: `List every roster member with its current power state.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML sequence
  -o json   JSON array`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		members, err := s.ctrl.Describe(cmd.Context())
		if err != nil {
			return err
		}

		format := outputFormat
		if format == "" {
			format = string(output.FormatTable)
		}
		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(format),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatMembers(members)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show herd and VirtualBox versions",
	Long:  `Show the herd version and check that VBoxManage can be run.`,
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("herd %s (commit: %s)\n", version, commit)

		v, err := vbox.NewClient(cfg.VBoxManage).Version(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(ui.SuccessMsg("VirtualBox %s", v))
		return nil
	},
}

func init() {
	dumplistCmd.Flags().StringVar(&syncPrefix, "prefix", "", "only keep machines whose name starts with this prefix")
}
