package cluster

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jbweber/herd/internal/roster"
)

// fakePlatform is an in-memory VirtualBox. Every call is appended to calls
// as a short string ("start c-1 headless", "controlvm c-1 poweroff", "list-running").
type fakePlatform struct {
	mu sync.Mutex

	all     []string
	running map[string]bool
	// stuck machines ignore acpipowerbutton
	stuck map[string]bool
	// failures maps "op id" (e.g. "start c-2") to the error that call returns
	failures map[string]error
	// listRunningErr, if set, fails every running-set query
	listRunningErr error

	calls []string
}

func newFakePlatform(all ...string) *fakePlatform {
	return &fakePlatform{
		all:      all,
		running:  make(map[string]bool),
		stuck:    make(map[string]bool),
		failures: make(map[string]error),
	}
}

func (f *fakePlatform) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakePlatform) fail(op, id string) error {
	return f.failures[op+" "+id]
}

func (f *fakePlatform) ListAll(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-all")
	return slices.Clone(f.all), nil
}

func (f *fakePlatform) ListRunning(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-running")
	if f.listRunningErr != nil {
		return nil, f.listRunningErr
	}
	var out []string
	for _, id := range f.all {
		if f.running[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakePlatform) Start(_ context.Context, id, startType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start " + id + " " + startType)
	if err := f.fail("start", id); err != nil {
		return err
	}
	f.running[id] = true
	return nil
}

func (f *fakePlatform) ControlPower(_ context.Context, id, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("controlvm " + id + " " + action)
	if err := f.fail("controlvm", id); err != nil {
		return err
	}
	switch action {
	case "acpipowerbutton":
		if !f.stuck[id] {
			f.running[id] = false
		}
	case "pause":
		// paused machines stay in the running set
	default:
		f.running[id] = false
	}
	return nil
}

func (f *fakePlatform) Clone(_ context.Context, src, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clone " + src + " " + name)
	if err := f.fail("clone", name); err != nil {
		return err
	}
	f.all = append(f.all, name)
	return nil
}

func (f *fakePlatform) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete " + id)
	if err := f.fail("delete", id); err != nil {
		return err
	}
	f.all = slices.DeleteFunc(f.all, func(s string) bool { return s == id })
	delete(f.running, id)
	return nil
}

// count returns how many recorded calls start with prefix.
func (f *fakePlatform) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// transitions returns every recorded call except running-set queries.
func (f *fakePlatform) transitions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "list-running" && c != "list-all" {
			out = append(out, c)
		}
	}
	return out
}

// memRoster is an in-memory Roster. A nil members slice means "no roster file".
type memRoster struct {
	mu      sync.Mutex
	members []string
	exists  bool
	saves   int
	deleted bool
}

func newMemRoster(members ...string) *memRoster {
	return &memRoster{members: members, exists: true}
}

func (r *memRoster) Load() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exists {
		return nil, fmt.Errorf("%w: memory", roster.ErrNotFound)
	}
	return slices.Clone(r.members), nil
}

func (r *memRoster) Save(members []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = slices.Clone(members)
	r.exists = true
	r.saves++
	return nil
}

func (r *memRoster) Append(ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if !slices.Contains(r.members, id) {
			r.members = append(r.members, id)
		}
	}
	r.exists = true
	r.saves++
	return nil
}

func (r *memRoster) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exists {
		return fmt.Errorf("%w: memory", roster.ErrNotFound)
	}
	r.members = slices.DeleteFunc(r.members, func(s string) bool { return s == id })
	r.saves++
	return nil
}

func (r *memRoster) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = nil
	r.exists = false
	r.deleted = true
	return nil
}

// mockConfirmer answers with answerFunc and records every question.
type mockConfirmer struct {
	mu         sync.Mutex
	answerFunc func(question string) bool
	questions  []string
}

func newMockConfirmer(answer bool) *mockConfirmer {
	return &mockConfirmer{answerFunc: func(string) bool { return answer }}
}

func (m *mockConfirmer) Confirm(_ context.Context, question string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, question)
	return m.answerFunc(question), nil
}

// mockRunner records command lines and fails for ids in failFor.
type mockRunner struct {
	mu      sync.Mutex
	lines   []string
	failFor map[string]bool
}

func (r *mockRunner) Run(_ context.Context, id, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if r.failFor[id] {
		return fmt.Errorf("exit status 1")
	}
	return nil
}

// sleepRecorder replaces the poller's sleep so tests run instantly.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	// onSleep, if set, runs on each sleep (e.g. to flip machine state)
	onSleep func(n int)
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	n := len(s.sleeps)
	s.mu.Unlock()
	if s.onSleep != nil {
		s.onSleep(n)
	}
	return ctx.Err()
}

func newTestController(t *testing.T, p *fakePlatform, r *memRoster, c *mockConfirmer) (*Controller, *sleepRecorder) {
	t.Helper()
	ctrl, err := NewController(Options{Platform: p, Roster: r, Confirmer: c})
	require.NoError(t, err)
	s := &sleepRecorder{}
	ctrl.poller.sleep = s.sleep
	return ctrl, s
}
