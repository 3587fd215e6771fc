// Package core wires a parsed Settings document to concrete followers and
// owns the single stop signal and shutdown fan-in.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"logmonitor/internal/config"
	"logmonitor/internal/eventlog"
	"logmonitor/internal/etwtrace"
	"logmonitor/internal/filetail"
	"logmonitor/internal/metrics"
	"logmonitor/internal/outputlane"
)

// shutdownGrace bounds how long Shutdown waits for followers to observe
// context cancellation and return from Stop before giving up.
const shutdownGrace = 5 * time.Second

// follower is the shape every one of the three concrete followers already
// satisfies; core depends on nothing more than this.
type follower interface {
	Start(ctx context.Context) error
	Stop()
}

// namedFollower pairs a follower with the identifiers its metrics are
// labeled with.
type namedFollower struct {
	follower
	sourceType string
	sourceID   string
}

// Core owns every follower built from Settings.Sources plus the shared
// output lane, and exposes a single Shutdown edge as the core's entire
// process-boundary-signal surface.
type Core struct {
	lane      *outputlane.Lane
	logger    *logrus.Logger
	followers []namedFollower

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds every follower named by settings.Sources without starting
// any of them. lane and logger are shared by every follower.
func New(settings *config.Settings, lane *outputlane.Lane, logger *logrus.Logger) (*Core, error) {
	c := &Core{lane: lane, logger: logger}

	for i, src := range settings.Sources {
		nf, err := buildFollower(i, src, lane, logger)
		if err != nil {
			return nil, err
		}
		c.followers = append(c.followers, nf)
	}

	return c, nil
}

func buildFollower(index int, src config.SourceConfig, lane *outputlane.Lane, logger *logrus.Logger) (namedFollower, error) {
	switch src.Type {
	case config.SourceTypeFile:
		cfg := config.ToFileConfig(*src.File)
		sourceID := fmt.Sprintf("file[%d]:%s", index, cfg.Directory)
		cfg.SourceID = sourceID
		t, err := filetail.New(cfg, lane, logger)
		if err != nil {
			return namedFollower{}, fmt.Errorf("building file source %d: %w", index, err)
		}
		return namedFollower{follower: t, sourceType: "file", sourceID: sourceID}, nil

	case config.SourceTypeEventLog:
		channels, err := config.ToEventLogChannels(src.EventLog.Channels)
		if err != nil {
			return namedFollower{}, fmt.Errorf("building event_log source %d: %w", index, err)
		}
		sourceID := fmt.Sprintf("event_log[%d]", index)
		f := eventlog.New(sourceID, channels, src.EventLog.Multiline, src.EventLog.StartAtOldest, lane, logger)
		return namedFollower{follower: f, sourceType: "event_log", sourceID: sourceID}, nil

	case config.SourceTypeTrace:
		providers, err := config.ToTraceProviders(src.Trace.Providers)
		if err != nil {
			return namedFollower{}, fmt.Errorf("building trace source %d: %w", index, err)
		}
		sourceID := fmt.Sprintf("trace[%d]", index)
		f, err := etwtrace.New(sourceID, providers, src.Trace.Multiline, lane, logger)
		if err != nil {
			return namedFollower{}, fmt.Errorf("building trace source %d: %w", index, err)
		}
		return namedFollower{follower: f, sourceType: "trace", sourceID: sourceID}, nil

	default:
		return namedFollower{}, fmt.Errorf("source %d: unrecognized type %q", index, src.Type)
	}
}

// Run starts every follower and blocks until ctx is cancelled, then drives
// an orderly shutdown. It returns only once every follower's Stop has
// returned; the shutdown grace period bounds Shutdown's wait, not Run's.
func (c *Core) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	var startErrs []error
	for _, nf := range c.followers {
		if err := nf.Start(runCtx); err != nil {
			startErrs = append(startErrs, fmt.Errorf("%s: %w", nf.sourceID, err))
			metrics.SetFollowerUp(nf.sourceType, nf.sourceID, false)
			c.lane.TraceError("core: failed to start %s: %v", nf.sourceID, err)
			continue
		}
		metrics.SetFollowerUp(nf.sourceType, nf.sourceID, true)
	}

	<-runCtx.Done()
	c.stopAll()
	close(c.done)

	if len(startErrs) > 0 {
		return fmt.Errorf("core: %d source(s) failed to start: %v", len(startErrs), startErrs)
	}
	return nil
}

// Shutdown raises the single stop signal and blocks up to shutdownGrace
// for every follower to drain.
func (c *Core) Shutdown(ctx context.Context) {
	if c.cancel == nil {
		return
	}
	c.cancel()

	select {
	case <-c.done:
	case <-time.After(shutdownGrace):
		c.lane.TraceWarning("core: shutdown grace period elapsed with followers still stopping")
	case <-ctx.Done():
	}
}

func (c *Core) stopAll() {
	var wg sync.WaitGroup
	for _, nf := range c.followers {
		nf := nf
		wg.Add(1)
		go func() {
			defer wg.Done()
			nf.Stop()
			metrics.SetFollowerUp(nf.sourceType, nf.sourceID, false)
		}()
	}
	wg.Wait()
}
