package cluster

import (
	"context"
	"slices"
)

// Prober answers whether a machine is powered on. Every call is a fresh
// platform query; failures are returned as *ExternalCallError without retry.
type Prober struct {
	platform Platform
}

// NewProber returns a Prober backed by platform.
func NewProber(platform Platform) *Prober {
	return &Prober{platform: platform}
}

// IsRunning reports whether id is in the platform's running set.
func (p *Prober) IsRunning(ctx context.Context, id string) (bool, error) {
	running, err := p.platform.ListRunning(ctx)
	if err != nil {
		return false, externalErr(id, "probe", err)
	}
	return slices.Contains(running, id), nil
}

// PowerState returns the live power state of id.
func (p *Prober) PowerState(ctx context.Context, id string) (PowerState, error) {
	running, err := p.IsRunning(ctx, id)
	if err != nil {
		return Stopped, err
	}
	if running {
		return Running, nil
	}
	return Stopped, nil
}
