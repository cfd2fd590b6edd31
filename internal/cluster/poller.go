package cluster

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxAttempts is how many observations a wait makes before giving up.
	DefaultMaxAttempts = 40

	// DefaultInterval separates consecutive observations.
	DefaultInterval = time.Second
)

// Poller waits for a machine to reach a power state.
type Poller struct {
	prober      *Prober
	maxAttempts int
	interval    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller with the fixed 40 x 1s policy.
func NewPoller(prober *Prober) *Poller {
	return &Poller{
		prober:      prober,
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultInterval,
		sleep:       sleepContext,
	}
}

// AwaitState observes id until it is in target, at most maxAttempts times,
// waiting interval between observations and not after the last one.
//
// A failed observation counts as an unsuccessful attempt. The only error
// returned is the context's, when the wait is interrupted.
func (p *Poller) AwaitState(ctx context.Context, id string, target PowerState) (ConvergenceResult, error) {
	logger := log.With().Str("vm", id).Str("target", target.String()).Logger()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		state, err := p.prober.PowerState(ctx, id)
		switch {
		case err != nil:
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Failed to observe power state")
		case state == target:
			logger.Debug().Int("attempt", attempt).Msg("Converged")
			return Converged, nil
		default:
			logger.Debug().Int("attempt", attempt).Msg("Not yet converged")
		}

		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return TimedOut, err
			}
		}
	}

	logger.Warn().Int("attempts", p.maxAttempts).Msg("Timed out waiting for power state")
	return TimedOut, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
