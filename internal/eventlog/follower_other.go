//go:build !windows

package eventlog

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"

	"logmonitor/internal/outputlane"
	"logmonitor/internal/xerrors"
)

// Follower is the non-Windows stand-in: the Windows Event Log has no
// cross-platform equivalent, so there is nothing to subscribe to here. It
// exists so this package, and everything that wires it unconditionally
// (internal/config, internal/core), still builds on every GOOS; Start
// always fails.
type Follower struct {
	sourceID string
}

// New accepts the same arguments as the Windows build for call-site
// parity. It never fails here: the eventual mismatch is reported by
// Start, matching how internal/core surfaces a follower's own startup
// error rather than config's.
func New(sourceID string, channels []Channel, multiline, startAtOldest bool, lane *outputlane.Lane, logger *logrus.Logger) *Follower {
	return &Follower{sourceID: sourceID}
}

// Start always fails: no event-log subscription can be issued on this
// platform.
func (f *Follower) Start(ctx context.Context) error {
	return xerrors.NewConfigurationError("eventlog", "event_log sources require GOOS=windows, running on "+runtime.GOOS)
}

// Stop is a no-op since Start never succeeded.
func (f *Follower) Stop() {}
