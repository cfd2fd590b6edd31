// Package cluster drives power-state transitions for the members of a
// VirtualBox cluster and converges them on the requested state.
//
// The pieces, leaves first:
//   - Prober: is a member running right now (always a live query)
//   - Issuer: sends one transition, skipping start/stop if already in the target state
//   - Poller: waits for a member to reach a power state, bounded to 40 one-second attempts
//   - Escalator: after a stop times out, asks to force a power-off
//   - Controller: single-member and whole-roster start, stop, restart, delete,
//     clone, sync and templated commands
//
// Ordering:
//
// Whole-roster operations visit members in roster order, one at a time, unless
// a parallelism above one is configured. Stop is the exception in shape: the
// stop transition is issued to every member first, and only then is each
// member polled (and escalated) in turn.
//
// Errors:
//
// A missing or empty roster fails a whole-roster operation before any platform
// call. Platform failures are recorded against the member concerned and the
// loop carries on with the next one.
package cluster
