//go:build windows

package etwtrace

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// filetimeEpochOffset is the number of 100-ns intervals between the
// Windows FILETIME epoch (1601-01-01) and the Unix epoch.
const filetimeEpochOffset = 116444736000000000

func fileTimeToTime(ft int64) time.Time {
	if ft <= 0 {
		return time.Time{}
	}
	unixNano := (ft - filetimeEpochOffset) * 100
	return time.Unix(0, unixNano).UTC()
}

// eventRecordHeader mirrors the fixed portion of EVENT_RECORD/EVENT_HEADER
// that this follower reads directly off the pointer ProcessTrace hands the
// callback. The variable-length ExtendedData/UserData regions are read via
// the raw pointer fields, not struct-embedded, since their contents are
// opaque blobs rather than fixed C structs.
type eventRecordHeader struct {
	headerSize      uint16
	headerType      uint16
	flags           uint16
	eventProperty   uint16
	threadID        uint32
	processID       uint32
	timeStamp       int64
	providerID      windows.GUID
	descriptor      eventDescriptor
	processorTime   uint64 // union of {KernelTime,UserTime} or ProcessorTime; unused fields
	activityID      windows.GUID
	processorIndex  uint16
	loggerID        uint16
	extendedDataCount uint16
	userDataLength    uint16
	extendedData      uintptr
	userData          uintptr
	userContext       uintptr
}

const (
	eventHeaderFlag32BitHeader = 0x0020
	eventHeaderFlag64BitHeader = 0x0040
)

func readEventRecordHeader(p uintptr) *eventRecordHeader {
	return (*eventRecordHeader)(unsafe.Pointer(p))
}

func (h *eventRecordHeader) pointerSize() uint32 {
	if h.flags&eventHeaderFlag32BitHeader != 0 {
		return 4
	}
	return 8
}

// getEventInformation calls TdhGetEventInformation, growing the buffer once
// on ERROR_INSUFFICIENT_BUFFER, and parses the result.
func getEventInformation(eventRecord uintptr) (*eventInfo, error) {
	var size uint32
	r1, _, e1 := procTdhGetEventInformation.Call(eventRecord, 0, 0, 0, uintptr(unsafe.Pointer(&size)))
	if r1 != errorInsufficientBuffer {
		return nil, fmt.Errorf("TdhGetEventInformation sizing: %w", e1)
	}

	buf := make([]byte, size)
	r1, _, e1 = procTdhGetEventInformation.Call(eventRecord, 0, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 != 0 {
		return nil, fmt.Errorf("TdhGetEventInformation: %w", e1)
	}

	return parseEventInfo(buf), nil
}
