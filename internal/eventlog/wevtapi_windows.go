//go:build windows

package eventlog

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// No higher-level Go event-log client appears anywhere in the retrieval
// pack, so wevtapi.dll is called the same way
// internal/outputlane/console_windows.go calls kernel32: a lazy system DLL
// plus typed syscall wrappers, the standard idiom for unexported Win32
// surface.
var modWevtapi = windows.NewLazySystemDLL("wevtapi.dll")

var (
	procEvtSubscribe             = modWevtapi.NewProc("EvtSubscribe")
	procEvtNext                  = modWevtapi.NewProc("EvtNext")
	procEvtClose                 = modWevtapi.NewProc("EvtClose")
	procEvtRender                = modWevtapi.NewProc("EvtRender")
	procEvtOpenPublisherMetadata = modWevtapi.NewProc("EvtOpenPublisherMetadata")
	procEvtFormatMessage         = modWevtapi.NewProc("EvtFormatMessage")
	procEvtOpenChannelConfig     = modWevtapi.NewProc("EvtOpenChannelConfig")
	procEvtSetChannelConfig      = modWevtapi.NewProc("EvtSetChannelConfig")
	procEvtSaveChannelConfig     = modWevtapi.NewProc("EvtSaveChannelConfig")
)

type evtHandle windows.Handle

const (
	evtSubscribeToFutureEvents      = 1
	evtSubscribeStartAtOldestRecord = 2

	evtRenderEventXML = 1

	evtFormatMessageEvent = 1
)

// channelConfigEnabled is the EvtChannelConfigEnabled property id.
const channelConfigEnabled = 0

func evtSubscribe(signalEvent windows.Handle, channelPath, query string, flags uint32, startAtOldest bool) (evtHandle, error) {
	if startAtOldest {
		flags |= evtSubscribeStartAtOldestRecord
	} else {
		flags |= evtSubscribeToFutureEvents
	}

	channelPtr, err := windows.UTF16PtrFromString(channelPath)
	if err != nil {
		return 0, err
	}
	queryPtr, err := windows.UTF16PtrFromString(query)
	if err != nil {
		return 0, err
	}

	r1, _, e1 := procEvtSubscribe.Call(
		0, // local session
		uintptr(signalEvent),
		uintptr(unsafe.Pointer(channelPtr)),
		uintptr(unsafe.Pointer(queryPtr)),
		0, // bookmark
		0, // context
		0, // callback: pull model, not push
		uintptr(flags),
	)
	if r1 == 0 {
		return 0, e1
	}
	return evtHandle(r1), nil
}

// evtNext drains up to len(out) handles from the subscription, returning
// ERROR_NO_MORE_ITEMS (wrapped as windows.ERROR_NO_MORE_ITEMS) once the
// buffer is exhausted for this wake.
func evtNext(sub evtHandle, out []evtHandle) (int, error) {
	var returned uint32
	r1, _, e1 := procEvtNext.Call(
		uintptr(sub),
		uintptr(len(out)),
		uintptr(unsafe.Pointer(&out[0])),
		uintptr(0xFFFFFFFF), // no timeout, already signaled
		0,
		uintptr(unsafe.Pointer(&returned)),
	)
	if r1 == 0 {
		return 0, e1
	}
	return int(returned), nil
}

func evtClose(h evtHandle) {
	if h != 0 {
		procEvtClose.Call(uintptr(h))
	}
}

// evtRenderXML renders an event handle to its full XML representation.
func evtRenderXML(event evtHandle) (string, error) {
	var used, propCount uint32
	r1, _, e1 := procEvtRender.Call(0, uintptr(event), evtRenderEventXML, 0, 0, uintptr(unsafe.Pointer(&used)), uintptr(unsafe.Pointer(&propCount)))
	if r1 == 0 && e1 != windows.ERROR_INSUFFICIENT_BUFFER {
		return "", e1
	}

	buf := make([]uint16, used/2+1)
	r1, _, e1 = procEvtRender.Call(
		0, uintptr(event), evtRenderEventXML,
		uintptr(len(buf)*2), uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&used)), uintptr(unsafe.Pointer(&propCount)),
	)
	if r1 == 0 {
		return "", e1
	}
	return windows.UTF16ToString(buf), nil
}

// evtFormatPublisherMessage opens a provider's message publisher and
// formats event's message text. "message not found" is not an error from
// the caller's perspective: an empty message is emitted instead.
func evtFormatPublisherMessage(provider string, event evtHandle) string {
	providerPtr, err := windows.UTF16PtrFromString(provider)
	if err != nil {
		return ""
	}

	r1, _, _ := procEvtOpenPublisherMetadata.Call(0, uintptr(unsafe.Pointer(providerPtr)), 0, 0, 0)
	if r1 == 0 {
		return ""
	}
	publisher := evtHandle(r1)
	defer evtClose(publisher)

	var used uint32
	r1, _, e1 := procEvtFormatMessage.Call(
		uintptr(publisher), uintptr(event), 0, 0, 0, evtFormatMessageEvent, 0, 0,
		uintptr(unsafe.Pointer(&used)),
	)
	if r1 == 0 && e1 != windows.ERROR_INSUFFICIENT_BUFFER {
		return ""
	}
	if used == 0 {
		return ""
	}

	buf := make([]uint16, used)
	r1, _, _ = procEvtFormatMessage.Call(
		uintptr(publisher), uintptr(event), 0, 0, 0, evtFormatMessageEvent,
		uintptr(len(buf)), uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&used)),
	)
	if r1 == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

// enableChannel is the Go equivalent of EventMonitor::EnableEventLogChannel:
// idempotent; already-enabled and already-direct channels are acceptable.
func enableChannel(name string) error {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}

	r1, _, e1 := procEvtOpenChannelConfig.Call(0, uintptr(unsafe.Pointer(namePtr)), 0)
	if r1 == 0 {
		return e1
	}
	cfg := evtHandle(r1)
	defer evtClose(cfg)

	enabled := int32(1)
	r1, _, e1 = procEvtSetChannelConfig.Call(uintptr(cfg), uintptr(channelConfigEnabled), uintptr(unsafe.Pointer(&enabled)))
	if r1 == 0 {
		// Already enabled or already direct-channel: not fatal per spec.
		if e1 == windows.ERROR_ACCESS_DENIED || e1 == syscall.Errno(0) {
			return nil
		}
	}

	r1, _, e1 = procEvtSaveChannelConfig.Call(uintptr(cfg), 0)
	if r1 == 0 {
		return e1
	}
	return nil
}
