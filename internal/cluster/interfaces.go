package cluster

import "context"

// Platform is the virtualization management interface.
//
// In production this is satisfied by *vbox.Client.
// In tests it is satisfied by mock implementations.
type Platform interface {
	// ListAll returns the names of every registered machine
	ListAll(ctx context.Context) ([]string, error)

	// ListRunning returns the names of every powered-on machine
	ListRunning(ctx context.Context) ([]string, error)

	// Start boots a machine with a platform start type
	Start(ctx context.Context, id, startType string) error

	// ControlPower sends a platform power action to a running machine
	ControlPower(ctx context.Context, id, action string) error

	// Clone creates a registered copy of src named name
	Clone(ctx context.Context, src, name string) error

	// Delete removes a machine and its files
	Delete(ctx context.Context, id string) error
}

// Roster is the persisted member list.
//
// In production this is satisfied by *roster.Store.
type Roster interface {
	Load() ([]string, error)
	Save(members []string) error
	Append(ids ...string) error
	Remove(id string) error
	Delete() error
}

// Runner executes an already-expanded command line for one member.
//
// Satisfied by *cmdexec.Shell (local) and *remote.Client (over SSH).
type Runner interface {
	Run(ctx context.Context, id, line string) error
}
