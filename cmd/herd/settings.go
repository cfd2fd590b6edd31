package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/config"
	"github.com/jbweber/herd/internal/confirm"
	"github.com/jbweber/herd/internal/lock"
	"github.com/jbweber/herd/internal/logger"
	"github.com/jbweber/herd/internal/output"
	"github.com/jbweber/herd/internal/roster"
	"github.com/jbweber/herd/internal/ui"
	"github.com/jbweber/herd/internal/vbox"
)

// Global flags
var (
	configPath     string
	rosterPath     string
	vboxManagePath string
	assumeYes      bool
	assumeNo       bool
	nonInteractive bool
	verbose        bool
	parallel       int
	logFormat      string
	noColor        bool
	outputFormat   string
	noHeaders      bool
)

// cfg is the resolved configuration, set by loadSettings before any command runs.
var cfg *config.Config

func registerGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "config file (default $HERD_CONFIG or ~/.config/herd/config.yaml)")
	f.StringVar(&rosterPath, "roster", "", "roster file listing the cluster members (default cluster.list)")
	f.StringVar(&vboxManagePath, "vboxmanage", "", "VBoxManage binary")
	f.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")
	f.BoolVar(&assumeNo, "no", false, "answer no to every confirmation")
	f.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; decline unless --yes is given")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	f.IntVar(&parallel, "parallel", 0, "process up to N members at once (default sequential)")
	f.StringVar(&logFormat, "log-format", "", "log format: console or json")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")
	f.StringVarP(&outputFormat, "output", "o", "", "output format: table, yaml, json")
	f.BoolVar(&noHeaders, "no-headers", false, "omit headers in table output")
	cmd.MarkFlagsMutuallyExclusive("yes", "no")
}

// loadSettings resolves configuration from file, environment and flags, then
// configures logging and colors.
func loadSettings() error {
	path := configPath
	required := path != ""
	if path == "" {
		path = config.DefaultPath()
	}

	c, err := config.Load(path, required)
	if err != nil {
		return err
	}

	if rosterPath != "" {
		c.Roster = rosterPath
	}
	if vboxManagePath != "" {
		c.VBoxManage = vboxManagePath
	}
	if assumeYes {
		c.Assume = string(confirm.ModeYes)
	}
	if assumeNo {
		c.Assume = string(confirm.ModeNo)
	}
	if nonInteractive {
		c.NonInteractive = true
	}
	if verbose {
		c.Log.Level = string(logger.LogDebug)
	}
	if parallel != 0 {
		c.Parallelism = parallel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", cluster.ErrUsage, err)
	}
	if outputFormat != "" {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return fmt.Errorf("%w: %v", cluster.ErrUsage, err)
		}
	}

	color := !noColor && os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stdout.Fd())
	ui.ConfigureColor(color)
	logger.Setup(logger.Config{
		Level:   logger.LogLevel(c.Log.Level),
		Format:  c.Log.Format,
		NoColor: !color,
	})

	cfg = c
	return nil
}

// session bundles what a cluster command needs. Close releases the
// execution lock.
type session struct {
	store *roster.Store
	vbox  *vbox.Client
	ctrl  *cluster.Controller
	lock  *lock.Lock
}

// openSession builds the controller for the configured roster. Commands that
// change machines or the roster pass exclusive to hold the execution lock.
func openSession(exclusive bool) (*session, error) {
	s := &session{
		store: roster.NewStore(cfg.Roster),
		vbox:  vbox.NewClient(cfg.VBoxManage),
	}

	if exclusive {
		l, err := lock.Acquire(cfg.Roster)
		if err != nil {
			return nil, err
		}
		s.lock = l
	}

	ctrl, err := cluster.NewController(cluster.Options{
		Platform:    s.vbox,
		Roster:      s.store,
		Confirmer:   confirm.New(cfg.ConfirmMode(), os.Stdin, os.Stderr),
		Parallelism: cfg.Parallelism,
		Placeholder: cfg.Placeholder,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

func (s *session) Close() {
	if err := s.lock.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
