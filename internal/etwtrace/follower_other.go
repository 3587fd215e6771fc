//go:build !windows

package etwtrace

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"

	"logmonitor/internal/outputlane"
	"logmonitor/internal/xerrors"
)

// Follower is the non-Windows stand-in: ETW is a Windows kernel-tracing
// facility with no cross-platform equivalent, so there is nothing to
// follow here. It exists so this package, and everything that wires it
// unconditionally (internal/config, internal/core), still builds on every
// GOOS; Start always fails.
type Follower struct {
	sourceID string
}

// New accepts the same arguments as the Windows build for call-site
// parity, but never fails here: the eventual mismatch is reported by
// Start, matching how internal/core surfaces a follower's own startup
// error rather than config's.
func New(sourceID string, providers []Provider, multiline bool, lane *outputlane.Lane, logger *logrus.Logger) (*Follower, error) {
	return &Follower{sourceID: sourceID}, nil
}

// Start always fails: no trace session can be opened on this platform.
func (f *Follower) Start(ctx context.Context) error {
	return xerrors.NewConfigurationError("etwtrace", "trace sources require GOOS=windows, running on "+runtime.GOOS)
}

// Stop is a no-op since Start never succeeded.
func (f *Follower) Stop() {}
