package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/cmdexec"
	"github.com/jbweber/herd/internal/remote"
)

var execCmd = &cobra.Command{
	Use:   "exec <command-template>",
	Short: "Run a command on every member over SSH",
	Long: `Run a command on every roster member over SSH.

Every {} in the template is replaced by the member name. Members are reached
at ssh.host_template (default: the member name) as ssh.user, with a PTY.
Host keys are not checked. A failing member does not stop the others.

Example:
  herd exec 'sudo hostnamectl set-hostname {}'`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SSH.User == "" {
			return fmt.Errorf("%w: ssh user is not set (ssh.user or HERD_SSH_USER)", cluster.ErrUsage)
		}

		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		client, err := remote.New(remote.Config{
			User:         cfg.SSH.User,
			KeyFile:      cfg.SSH.KeyFile,
			Port:         cfg.SSH.Port,
			HostTemplate: cfg.SSH.HostTemplate,
			Placeholder:  cfg.Placeholder,
			UseAgent:     cfg.SSH.UseAgent,
			Timeout:      cfg.SSH.Timeout,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		return runTemplate(cmd, s, strings.Join(args, " "), client)
	},
}

var commandCmd = &cobra.Command{
	Use:   "command <command-template>",
	Short: "Run a local command once per member",
	Long: `Run a command on this host once for every roster member.

Every {} in the template is replaced by the member name and the line is run
with /bin/sh. A failing member does not stop the others.

Example:
  herd command 'VBoxManage modifyvm {} --memory 4096'`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		defer s.Close()

		return runTemplate(cmd, s, strings.Join(args, " "), cmdexec.NewShell())
	},
}

func runTemplate(cmd *cobra.Command, s *session, template string, runner cluster.Runner) error {
	return finish(s.ctrl.RunAll(cmd.Context(), template, runner))
}
