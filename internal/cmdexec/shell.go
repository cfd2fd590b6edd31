package cmdexec

import (
	"context"
	"io"
	"os"
)

// Shell runs command lines locally through /bin/sh, streaming their output.
type Shell struct {
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// NewShell returns a Shell writing to the process stdout and stderr.
func NewShell() *Shell {
	return &Shell{Path: "/bin/sh", Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes line with `sh -c`. The member name is only used for logging
// by callers; the line has already been expanded.
func (s *Shell) Run(ctx context.Context, _ string, line string) error {
	_, err := Execute(ctx, s.Path, []string{"-c", line}, Options{
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	})
	return err
}
