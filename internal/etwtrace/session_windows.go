//go:build windows

package etwtrace

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// sessionName is fixed: every run creates a real-time trace session with
// this name.
const sessionName = "LogMonitorEtwSession"

// eventTraceLogfile mirrors EVENT_TRACE_LOGFILEW. currentEvent and
// logfileHeader are opaque legacy members this follower never reads (it
// operates entirely through the EVENT_RECORD callback, not the classic
// EVENT_TRACE union); they are sized generously rather than byte-exact so
// the OS has room to populate them without corrupting the fields that
// follow.
type eventTraceLogfile struct {
	logFileName         *uint16
	loggerName          *uint16
	currentTime         int64
	buffersRead         uint32
	processTraceMode    uint32
	currentEvent        [96]byte
	logfileHeader       [216]byte
	bufferCallback      uintptr
	bufferSize          uint32
	filled              uint32
	eventsLost          uint32
	eventRecordCallback uintptr
	isKernelTrace       uint32
	context             uintptr
}

// session owns one real-time trace and its processing goroutine handle.
type session struct {
	traceHandle      uint64
	processingHandle uint64
	propsBuf         []byte
}

// openSession starts the named real-time session (stopping and retrying
// once if the name is already in use), enables every resolved provider,
// then opens it for processing.
func openSession(providers []Provider, onEvent uintptr, context uintptr) (*session, error) {
	handle, propsBuf, err := startTrace(sessionName)
	if err != nil {
		if err == windows.ERROR_ALREADY_EXISTS {
			if stopErr := stopTrace(sessionName); stopErr != nil {
				return nil, fmt.Errorf("etwtrace: session %s already exists and could not be stopped: %w", sessionName, stopErr)
			}
			handle, propsBuf, err = startTrace(sessionName)
		}
		if err != nil {
			return nil, fmt.Errorf("etwtrace: StartTrace failed: %w", err)
		}
	}

	for _, p := range providers {
		if err := enableProvider(handle, p); err != nil {
			stopTrace(sessionName)
			return nil, err
		}
	}

	logfile := &eventTraceLogfile{
		processTraceMode:    processTraceModeRealTime | processTraceModeEventRecord,
		eventRecordCallback: onEvent,
		context:             context,
	}
	loggerNamePtr, err := windows.UTF16PtrFromString(sessionName)
	if err != nil {
		stopTrace(sessionName)
		return nil, err
	}
	logfile.loggerName = loggerNamePtr

	r1, _, e1 := procOpenTraceW.Call(uintptr(unsafe.Pointer(logfile)))
	if r1 == invalidProcessTraceHandle {
		stopTrace(sessionName)
		return nil, fmt.Errorf("etwtrace: OpenTrace failed: %w", e1)
	}

	return &session{traceHandle: handle, processingHandle: uint64(r1), propsBuf: propsBuf}, nil
}

const invalidProcessTraceHandle = ^uintptr(0)

// process blocks, invoking the EVENT_RECORD callback for each record, until
// closeTrace is called from another goroutine or the trace naturally ends.
func (s *session) process() error {
	handles := [1]uint64{s.processingHandle}
	r1, _, e1 := procProcessTrace.Call(
		uintptr(unsafe.Pointer(&handles[0])), 1, 0, 0,
	)
	if r1 != 0 {
		return fmt.Errorf("ProcessTrace: %w", e1)
	}
	return nil
}

func (s *session) close() {
	procCloseTrace.Call(uintptr(s.processingHandle))
	stopTrace(sessionName)
}
