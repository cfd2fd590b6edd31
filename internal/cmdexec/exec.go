// Package cmdexec runs external commands and captures their results.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Options controls how a command is run.
type Options struct {
	// Directory is the working directory for the command.
	Directory string
	// Environment replaces the process environment when non-empty ("KEY=VALUE").
	Environment []string
	// Stdout and Stderr, if set, receive output as it is produced in addition
	// to it being captured in the Result.
	Stdout io.Writer
	Stderr io.Writer
	// Timeout bounds the command (0 means no timeout).
	Timeout time.Duration
}

// Result contains the results of a command execution.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// FormatCommand returns the full command line that was executed.
func (r *Result) FormatCommand() string {
	if len(r.Args) == 0 {
		return r.Command
	}
	return r.Command + " " + strings.Join(r.Args, " ")
}

// ExitError is returned when a command runs but exits non-zero.
type ExitError struct {
	Result *Result
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(string(e.Result.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(e.Result.Stdout))
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Result.FormatCommand(), e.Result.ExitCode, msg)
}

// Execute runs command with args and waits for it to finish.
//
// A non-zero exit returns the Result together with an *ExitError. Failure to
// start the command at all returns a nil Result.
func Execute(ctx context.Context, command string, args []string, opts Options) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result := &Result{Command: command, Args: args}

	cmd := exec.CommandContext(ctx, command, args...)
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = time.Second
	if opts.Directory != "" {
		cmd.Dir = opts.Directory
	}
	if len(opts.Environment) > 0 {
		cmd.Env = opts.Environment
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, opts.Stdout)
	cmd.Stderr = teeTo(&stderr, opts.Stderr)

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	logger := log.With().
		Str("command", command).
		Strs("args", args).
		Dur("duration", result.Duration).
		Logger()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Debug().Int("exitCode", result.ExitCode).Str("stderr", string(result.Stderr)).Msg("Command failed")
			return result, &ExitError{Result: result}
		}
		logger.Debug().Err(err).Msg("Command could not run")
		return nil, fmt.Errorf("failed to run %s: %w", command, err)
	}

	logger.Debug().Msg("Command executed successfully")
	return result, nil
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
