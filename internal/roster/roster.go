// Package roster persists the ordered list of cluster members.
//
// The roster file holds one identifier per line, in insertion order, with no
// header, blank lines or duplicates. Every write replaces the whole file
// atomically so an interrupted run never leaves a torn roster behind.
package roster

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/rs/zerolog/log"

	"github.com/jbweber/herd/internal/naming"
)

// ErrNotFound is returned by Load when the roster file does not exist.
var ErrNotFound = errors.New("roster not found")

// Store reads and writes a roster file.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the roster file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted members in order.
// A missing file yields ErrNotFound; an empty file yields an empty slice.
// Surrounding whitespace is trimmed from each line, the same rule Save
// enforces on write. Blank lines and repeated identifiers are dropped.
func (s *Store) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read roster %s: %w", s.path, err)
	}

	members := []string{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse roster %s: %w", s.path, err)
	}

	return members, nil
}

// Save replaces the roster with members. Duplicates are dropped, keeping the
// first occurrence, and invalid identifiers are rejected before anything is written.
func (s *Store) Save(members []string) error {
	var buf bytes.Buffer
	for _, id := range dedupe(members) {
		if err := naming.ValidateIdentifier(id); err != nil {
			return fmt.Errorf("refusing to write roster: %w", err)
		}
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	if err := atomicwriter.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write roster %s: %w", s.path, err)
	}
	log.Debug().Str("roster", s.path).Int("members", len(members)).Msg("Roster saved")
	return nil
}

// Append adds ids to the end of the roster, skipping any already present.
// A missing roster is created.
func (s *Store) Append(ids ...string) error {
	members, err := s.Load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.Save(append(members, ids...))
}

// Remove drops id from the roster, preserving the order of the others.
// Removing an identifier that is not a member is a no-op.
func (s *Store) Remove(id string) error {
	members, err := s.Load()
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(members))
	for _, m := range members {
		if m != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(members) {
		return nil
	}
	return s.Save(kept)
}

// Delete removes the roster file. Deleting a missing roster is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete roster %s: %w", s.path, err)
	}
	log.Debug().Str("roster", s.path).Msg("Roster deleted")
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
