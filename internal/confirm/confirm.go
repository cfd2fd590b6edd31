// Package confirm provides the yes/no confirmation capability used before
// destructive or forceful actions.
//
// A Prompter asks an operator on a terminal; Static answers every question
// the same way and is selected by --yes/--no or when no terminal is attached.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/jbweber/herd/internal/ui"
)

// Confirmer answers yes/no questions.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Mode selects which Confirmer New builds.
type Mode string

const (
	// ModePrompt asks on the terminal; without one every question is declined.
	ModePrompt Mode = "prompt"
	// ModeYes answers yes to everything.
	ModeYes Mode = "yes"
	// ModeNo answers no to everything.
	ModeNo Mode = "no"
)

// ParseMode validates a mode keyword.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePrompt:
		return ModePrompt, nil
	case ModeYes:
		return ModeYes, nil
	case ModeNo:
		return ModeNo, nil
	default:
		return "", fmt.Errorf("invalid confirmation mode: %s (valid modes: prompt, yes, no)", s)
	}
}

// Static answers every question with Answer.
type Static struct {
	Answer bool
}

// Confirm logs the question and returns the fixed answer.
func (s Static) Confirm(_ context.Context, question string) (bool, error) {
	log.Info().Str("question", question).Bool("answer", s.Answer).Msg("Confirmation answered without prompting")
	return s.Answer, nil
}

// Prompter asks questions on Out and reads answers from In.
// Only "y" and "yes" (any case) confirm; anything else, including EOF, declines.
// Concurrent callers are serialised so prompts never interleave.
type Prompter struct {
	mu     sync.Mutex
	out    io.Writer
	reader *bufio.Reader
}

// NewPrompter returns a Prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{out: out, reader: bufio.NewReader(in)}
}

// Confirm prints question and waits for an answer line.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprint(p.out, ui.Question(question)); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// New builds the Confirmer for mode. In ModePrompt, if in is not a terminal
// every question is declined rather than blocking on input that never comes.
func New(mode Mode, in *os.File, out io.Writer) Confirmer {
	switch mode {
	case ModeYes:
		return Static{Answer: true}
	case ModeNo:
		return Static{Answer: false}
	}
	if !IsTerminal(in) {
		log.Debug().Msg("No terminal attached, declining confirmations")
		return Static{Answer: false}
	}
	return NewPrompter(in, out)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
