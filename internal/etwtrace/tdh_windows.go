//go:build windows

package etwtrace

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// As with wevtapi_windows.go in the eventlog package, advapi32's trace-control
// surface and tdh.dll's metadata surface have no higher-level Go binding
// anywhere in the retrieval pack, so both are called through lazy system
// DLLs.
var (
	modAdvapi32 = windows.NewLazySystemDLL("advapi32.dll")
	modTdh      = windows.NewLazySystemDLL("tdh.dll")

	procStartTraceW     = modAdvapi32.NewProc("StartTraceW")
	procControlTraceW   = modAdvapi32.NewProc("ControlTraceW")
	procEnableTraceEx2  = modAdvapi32.NewProc("EnableTraceEx2")
	procOpenTraceW      = modAdvapi32.NewProc("OpenTraceW")
	procProcessTrace    = modAdvapi32.NewProc("ProcessTrace")
	procCloseTrace      = modAdvapi32.NewProc("CloseTrace")

	procTdhGetEventInformation  = modTdh.NewProc("TdhGetEventInformation")
	procTdhGetEventMapInformation = modTdh.NewProc("TdhGetEventMapInformation")
	procTdhGetPropertySize      = modTdh.NewProc("TdhGetPropertySize")
	procTdhGetProperty          = modTdh.NewProc("TdhGetProperty")
	procTdhFormatProperty       = modTdh.NewProc("TdhFormatProperty")
	procTdhEnumerateProviders   = modTdh.NewProc("TdhEnumerateProviders")
)

const (
	wnodeFlagTracedGUID = 0x00020000
	eventTraceRealTimeMode = 0x00000100
	processTraceModeRealTime  = 0x00000100
	processTraceModeEventRecord = 0x10000000

	controlTraceStop = 1

	eventControlCodeEnableProvider = 1

	traceLevelVerbose = 5

	errorInsufficientBuffer = 122
	errorNoMoreItems        = 259
	errorWMIInstanceNotFound = 4201
)

// evtTraceProps mirrors EVENT_TRACE_PROPERTIES with the wide session-name
// buffer appended immediately after, the layout StartTraceW requires.
type evtTraceProps struct {
	wnode              wnodeHeader
	bufferSize         uint32
	minimumBuffers     uint32
	maximumBuffers     uint32
	maximumFileSize    uint32
	logFileMode        uint32
	flushTimer         uint32
	enableFlags        uint32
	ageLimit           int32
	numberOfBuffers    uint32
	freeBuffers        uint32
	eventsLost         uint32
	buffersWritten     uint32
	logBuffersLost     uint32
	realTimeBuffersLost uint32
	loggerThreadID     uintptr
	logFileNameOffset  uint32
	loggerNameOffset   uint32
}

type wnodeHeader struct {
	bufferSize     uint32
	providerID     uint32
	historicalInfo [8]byte // union of HistoricalContext/{Version,Linkage}; unused here
	kernelHandle   uintptr // union of KernelHandle/TimeStamp; unused here
	guid           windows.GUID
	clientContext  uint32
	flags          uint32
}

const sessionNameMaxChars = 256

// newTraceProperties builds the EVENT_TRACE_PROPERTIES + trailing name
// buffer StartTraceW/ControlTraceW expect: a single contiguous allocation
// with the logger name stored right after the fixed struct.
func newTraceProperties(sessionName string) ([]byte, *evtTraceProps, error) {
	namePtr, err := windows.UTF16FromString(sessionName)
	if err != nil {
		return nil, nil, err
	}

	headerSize := int(unsafe.Sizeof(evtTraceProps{}))
	total := headerSize + len(namePtr)*2
	buf := make([]byte, total)

	props := (*evtTraceProps)(unsafe.Pointer(&buf[0]))
	props.wnode.bufferSize = uint32(total)
	props.wnode.flags = wnodeFlagTracedGUID
	props.logFileMode = eventTraceRealTimeMode
	props.loggerNameOffset = uint32(headerSize)

	nameBytes := (*[1 << 20]uint16)(unsafe.Pointer(&buf[headerSize]))[: len(namePtr) : len(namePtr)]
	copy(nameBytes, namePtr)

	return buf, props, nil
}

func startTrace(sessionName string) (uint64, []byte, error) {
	buf, props, err := newTraceProperties(sessionName)
	if err != nil {
		return 0, nil, err
	}

	namePtr, err := windows.UTF16PtrFromString(sessionName)
	if err != nil {
		return 0, nil, err
	}

	var handle uint64
	r1, _, e1 := procStartTraceW.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(props)),
	)
	if r1 != 0 {
		return 0, nil, e1
	}
	return handle, buf, nil
}

// stopTrace stops a session by name, used both for explicit shutdown and
// for the "name already in use, stop and retry once" startup path.
func stopTrace(sessionName string) error {
	buf, props, err := newTraceProperties(sessionName)
	if err != nil {
		return err
	}
	namePtr, err := windows.UTF16PtrFromString(sessionName)
	if err != nil {
		return err
	}
	_ = buf

	r1, _, e1 := procControlTraceW.Call(0, uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(props)), controlTraceStop)
	if r1 != 0 {
		return e1
	}
	return nil
}

func enableProvider(sessionHandle uint64, p Provider) error {
	g := toWindowsGUID(p.GUID)
	r1, _, e1 := procEnableTraceEx2.Call(
		uintptr(sessionHandle),
		uintptr(unsafe.Pointer(&g)),
		eventControlCodeEnableProvider,
		uintptr(p.Level),
		uintptr(p.Keyword),
		0, 0, 0,
	)
	if r1 != 0 {
		return fmt.Errorf("EnableTraceEx2(%s): %w", guidString(g), e1)
	}
	return nil
}

// lookupProviderGUID walks TdhEnumerateProviders' PROVIDER_ENUMERATION_INFO
// buffer for a case-insensitive name match.
func lookupProviderGUID(name string) (windows.GUID, error) {
	var size uint32
	r1, _, _ := procTdhEnumerateProviders.Call(0, uintptr(unsafe.Pointer(&size)))
	if r1 != errorInsufficientBuffer {
		return windows.GUID{}, fmt.Errorf("TdhEnumerateProviders: unexpected result sizing buffer")
	}

	buf := make([]byte, size)
	r1, _, e1 := procTdhEnumerateProviders.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 != 0 {
		return windows.GUID{}, e1
	}

	numProviders := *(*uint32)(unsafe.Pointer(&buf[0]))
	type traceProviderInfo struct {
		guid             windows.GUID
		schemaSource     uint32
		providerNameOffset uint32
	}
	entrySize := int(unsafe.Sizeof(traceProviderInfo{}))
	arrayStart := 8 // NumberOfProviders + Reserved, both ULONG

	for i := uint32(0); i < numProviders; i++ {
		offset := arrayStart + int(i)*entrySize
		entry := (*traceProviderInfo)(unsafe.Pointer(&buf[offset]))
		providerName := readWideStringAt(buf, int(entry.providerNameOffset))
		if strings.EqualFold(providerName, name) {
			return entry.guid, nil
		}
	}
	return windows.GUID{}, fmt.Errorf("provider %q not found in the enumerable provider list", name)
}

func readWideStringAt(buf []byte, offset int) string {
	if offset <= 0 || offset >= len(buf) {
		return ""
	}
	u16 := (*[1 << 20]uint16)(unsafe.Pointer(&buf[offset]))
	var n int
	for n = 0; offset+n*2+1 < len(buf) && u16[n] != 0; n++ {
	}
	return windows.UTF16ToString(u16[:n])
}
