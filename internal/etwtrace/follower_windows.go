//go:build windows

package etwtrace

import (
	"context"
	"fmt"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"logmonitor/internal/metrics"
	"logmonitor/internal/outputlane"
	"logmonitor/internal/xerrors"
)

// Follower is the real-time ETW trace-session follower.
type Follower struct {
	sourceID  string
	providers []Provider
	multiline bool

	lane   *outputlane.Lane
	logger *logrus.Logger

	handle uintptr
	sess   *session
	wg     sync.WaitGroup
}

// New resolves every configured provider and fails with ConfigurationError
// if none resolve, per Invariant D. sourceID labels this follower's metrics
// series.
func New(sourceID string, providers []Provider, multiline bool, lane *outputlane.Lane, logger *logrus.Logger) (*Follower, error) {
	resolved := resolveProviders(providers, lane.TraceWarning)
	if len(resolved) == 0 {
		return nil, xerrors.NewConfigurationError("etwtrace", "no trace provider resolved to a usable GUID")
	}

	return &Follower{
		sourceID:  sourceID,
		providers: resolved,
		multiline: multiline,
		lane:      lane,
		logger:    logger,
	}, nil
}

// Start creates the real-time session, enables every provider, and
// launches the processing goroutine (Thread T). ctx is accepted for
// lifecycle symmetry with the other followers; the actual stop mechanism
// is Stop()'s CloseTrace call, which is what unblocks ProcessTrace.
func (f *Follower) Start(ctx context.Context) error {
	_ = ctx

	f.handle = registerFollower(f)
	callback := syscall.NewCallback(traceCallbackTrampoline)

	sess, err := openSession(f.providers, callback, f.handle)
	if err != nil {
		unregisterFollower(f.handle)
		return err
	}
	f.sess = sess

	f.wg.Add(1)
	go f.run()
	return nil
}

// Stop closes the trace, which unblocks ProcessTrace in run(), then waits
// for it to return.
func (f *Follower) Stop() {
	if f.sess != nil {
		f.sess.close()
	}
	f.wg.Wait()
	unregisterFollower(f.handle)
}

func (f *Follower) run() {
	defer f.wg.Done()
	if err := f.sess.process(); err != nil {
		f.lane.TraceError("etwtrace: ProcessTrace returned: %v", err)
	}
}

// traceCallbackTrampoline is the single EVENT_RECORD_CALLBACK the OS
// invokes directly (via syscall.NewCallback), on the OS's own trace
// processing thread. It recovers the owning Follower through the Context
// handle and off-loads the actual decode/render work.
func traceCallbackTrampoline(eventRecord uintptr) uintptr {
	header := readEventRecordHeader(eventRecord)
	handle := header.userContext
	f, ok := lookupFollower(handle)
	if !ok {
		return 0
	}
	f.onEventRecord(eventRecord, header)
	return 0
}

func (f *Follower) onEventRecord(eventRecord uintptr, header *eventRecordHeader) {
	if !f.matchesConfiguredProvider(header.providerID) {
		return
	}

	ei, err := getEventInformation(eventRecord)
	if err != nil {
		f.lane.TraceError("etwtrace: TdhGetEventInformation failed: %v", err)
		metrics.RecordDropped("trace", "tdh_failed")
		return
	}

	if ei.header.decodingSource == decodingSourceWPP {
		metrics.RecordDropped("trace", "wpp_unsupported")
		return // WPP-style records carry no TDH-decodable property list; skip.
	}

	pointerSize := header.pointerSize()
	props, err := formatData(eventRecord, header.userData, int(header.userDataLength), ei, pointerSize)
	if err != nil {
		f.lane.TraceError("etwtrace: failed to format event data: %v", err)
	}

	record := Record{
		Time:           fileTimeToTime(header.timeStamp),
		ProviderName:   ei.propertyName(ei.header.providerNameOffset),
		ProviderGUID:   guidString(header.providerID),
		DecodingSource: ei.header.decodingSource,
		ProcessID:      header.processID,
		ThreadID:       header.threadID,
		Level:          header.descriptor.level,
		Keyword:        header.descriptor.keyword,
		IDFields:       idFields(ei.header.decodingSource, ei.header.eventGUID, header),
		Properties:     props,
	}
	f.lane.WriteLine(record.Render(f.multiline))
	metrics.RecordProcessed("trace", f.sourceID)
}

func (f *Follower) matchesConfiguredProvider(guid windows.GUID) bool {
	for _, p := range f.providers {
		if toWindowsGUID(p.GUID) == guid {
			return true
		}
	}
	return false
}

func idFields(decodingSource uint32, eventGUID windows.GUID, header *eventRecordHeader) string {
	switch decodingSource {
	case decodingSourceWBEM:
		return fmt.Sprintf("<EventGuid>%s</EventGuid><Version>%d</Version><Opcode>%d</Opcode>",
			guidString(eventGUID), header.descriptor.version, header.descriptor.opcode)
	default:
		return fmt.Sprintf("<EventId>%d</EventId><Qualifiers>%d</Qualifiers>", header.descriptor.id, header.descriptor.version)
	}
}
