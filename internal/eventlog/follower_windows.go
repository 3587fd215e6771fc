//go:build windows

package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"logmonitor/internal/metrics"
	"logmonitor/internal/outputlane"
)

// pollInterval bounds how long a wait for new records blocks before
// re-checking the stop context; Go has no direct equivalent of
// WaitForMultipleObjects across a native HANDLE and a context.Done()
// channel, so Thread E polls the signal handle instead of blocking on it
// indefinitely.
const pollInterval = 1 * time.Second

// eventBatch is how many records EvtNext is asked to return per wake.
const eventBatch = 10

// Follower issues one subscription across every configured channel and
// renders matching records until stopped.
type Follower struct {
	sourceID      string
	channels      []Channel
	multiline     bool
	startAtOldest bool

	lane   *outputlane.Lane
	logger *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Follower and enables every named channel in the OS
// configuration. Enable failures are not fatal: they are logged and the
// channel is still subscribed to, continuing past the error. sourceID
// labels this follower's metrics series.
func New(sourceID string, channels []Channel, multiline, startAtOldest bool, lane *outputlane.Lane, logger *logrus.Logger) *Follower {
	for _, c := range channels {
		if err := enableChannel(c.Name); err != nil {
			lane.TraceWarning("eventlog: failed to enable channel %s: %v", c.Name, err)
		}
	}

	return &Follower{
		sourceID:      sourceID,
		channels:      channels,
		multiline:     multiline,
		startAtOldest: startAtOldest,
		lane:          lane,
		logger:        logger,
	}
}

// Start issues the subscription and launches Thread E.
func (f *Follower) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	signalEvent, err := windows.CreateEvent(nil, 1 /* manual reset */, 0, nil)
	if err != nil {
		return fmt.Errorf("eventlog: failed to create subscription signal: %w", err)
	}

	query := buildQuery(f.channels)
	sub, err := evtSubscribe(signalEvent, "", query, 0, f.startAtOldest)
	if err != nil {
		windows.CloseHandle(signalEvent)
		return fmt.Errorf("eventlog: EvtSubscribe failed: %w", err)
	}

	f.wg.Add(1)
	go f.run(signalEvent, sub)
	return nil
}

// Stop raises the stop signal and waits for Thread E to drain.
func (f *Follower) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
}

func (f *Follower) run(signalEvent windows.Handle, sub evtHandle) {
	defer f.wg.Done()
	defer evtClose(sub)
	defer windows.CloseHandle(signalEvent)

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		r, err := windows.WaitForSingleObject(signalEvent, uint32(pollInterval.Milliseconds()))
		if err != nil {
			f.lane.TraceError("eventlog: wait on subscription failed: %v", err)
			return
		}
		if r != windows.WAIT_OBJECT_0 {
			continue // timed out; loop back and re-check the stop context
		}

		windows.ResetEvent(signalEvent)
		f.drainReady(sub)
	}
}

// drainReady calls EvtNext until it is exhausted for this wake, rendering
// and emitting every event returned.
func (f *Follower) drainReady(sub evtHandle) {
	handles := make([]evtHandle, eventBatch)
	for {
		n, err := evtNext(sub, handles)
		if err != nil {
			if err == windows.ERROR_NO_MORE_ITEMS {
				return
			}
			f.lane.TraceError("eventlog: EvtNext failed: %v", err)
			return
		}
		if n == 0 {
			return
		}

		for i := 0; i < n; i++ {
			f.emit(handles[i])
			evtClose(handles[i])
		}
	}
}

func (f *Follower) emit(event evtHandle) {
	xmlText, err := evtRenderXML(event)
	if err != nil {
		f.lane.TraceError("eventlog: EvtRender failed: %v", err)
		metrics.RecordDropped("event_log", "render_failed")
		return
	}

	rs, err := parseRenderedSystem(xmlText)
	if err != nil {
		f.lane.TraceError("eventlog: failed to parse rendered event: %v", err)
		metrics.RecordDropped("event_log", "parse_failed")
		return
	}

	message := evtFormatPublisherMessage(rs.System.Provider.Name, event)

	record := Record{
		Channel: rs.System.Channel,
		Level:   rs.level(),
		EventID: rs.System.EventID,
		Time:    rs.creationTime(),
		Message: message,
	}
	f.lane.WriteLine(record.Render(f.multiline))
	metrics.RecordProcessed("event_log", f.sourceID)
}
