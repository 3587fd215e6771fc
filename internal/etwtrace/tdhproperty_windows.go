//go:build windows

package etwtrace

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// propertyDataDescriptor mirrors PROPERTY_DATA_DESCRIPTOR.
type propertyDataDescriptor struct {
	propertyName uint64 // pointer to a null-terminated wide string, as a uintptr-sized value
	arrayIndex   uint32
	reserved     uint32
}

const arrayIndexNone = 0xFFFFFFFF

// readIndirectUint resolves a length/count given indirectly by another
// property's name, per GetPropertyLength/GetArraySize's PropertyParamLength
// and PropertyParamCount paths.
func readIndirectUint(eventRecord uintptr, propertyName string) (uint32, error) {
	namePtr, err := windows.UTF16PtrFromString(propertyName)
	if err != nil {
		return 0, err
	}
	desc := propertyDataDescriptor{
		propertyName: uint64(uintptr(unsafe.Pointer(namePtr))),
		arrayIndex:   arrayIndexNone,
	}

	var size uint32
	r1, _, _ := procTdhGetPropertySize.Call(eventRecord, 0, 0, 1, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&size)))
	if r1 != 0 {
		return 0, fmt.Errorf("TdhGetPropertySize: errno %d", r1)
	}

	buf := make([]byte, size)
	r1, _, _ = procTdhGetProperty.Call(eventRecord, 0, 0, 1, uintptr(unsafe.Pointer(&desc)), uintptr(size), uintptr(unsafe.Pointer(&buf[0])))
	if r1 != 0 {
		return 0, fmt.Errorf("TdhGetProperty: errno %d", r1)
	}

	switch len(buf) {
	case 2:
		return uint32(buf[0]) | uint32(buf[1])<<8, nil
	case 4:
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
	default:
		return 0, fmt.Errorf("unexpected indirect property size %d", len(buf))
	}
}

// getMapInfo fetches the EVENT_MAP_INFO buffer for a map-typed property.
// The trailing space the OS appends to each XML-manifest map entry is
// trimmed later, from the formatted value, by formatPropertyValue (per
// EtwMonitor::RemoveTrailingSpace).
func getMapInfo(eventRecord uintptr, mapName string, decodingSource uint32) ([]byte, error) {
	namePtr, err := windows.UTF16PtrFromString(mapName)
	if err != nil {
		return nil, err
	}

	var size uint32
	r1, _, e1 := procTdhGetEventMapInformation.Call(eventRecord, uintptr(unsafe.Pointer(namePtr)), 0, uintptr(unsafe.Pointer(&size)))
	if r1 != errorInsufficientBuffer {
		return nil, fmt.Errorf("TdhGetEventMapInformation sizing: %w", e1)
	}

	buf := make([]byte, size)
	r1, _, e1 = procTdhGetEventMapInformation.Call(eventRecord, uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 != 0 {
		return nil, fmt.Errorf("TdhGetEventMapInformation: %w", e1)
	}
	return buf, nil
}

// decodingSourceXMLManifest matches DECODING_SOURCE_XMLFile.
const decodingSourceXMLManifest = 0

func trimMapEntryTrailingSpace(s string, decodingSource uint32) string {
	if decodingSource == decodingSourceXMLManifest {
		return strings.TrimSuffix(s, " ")
	}
	return s
}

// formatPropertyValue calls TdhFormatProperty for one scalar property,
// growing the output buffer once on ERROR_INSUFFICIENT_BUFFER exactly as
// EtwMonitor::_FormatData does.
func formatPropertyValue(ei *eventInfo, mapInfo []byte, pointerSize uint32, inType, outType uint16, propLength uint16, userData, endOfUserData uintptr) (string, uintptr, error) {
	var mapInfoPtr uintptr
	if len(mapInfo) > 0 {
		mapInfoPtr = uintptr(unsafe.Pointer(&mapInfo[0]))
	}

	remaining := uint16(endOfUserData - userData)

	var formattedSize uint32
	var consumed uint16

	r1, _, e1 := procTdhFormatProperty.Call(
		uintptr(unsafe.Pointer(&ei.buf[0])), mapInfoPtr, uintptr(pointerSize),
		uintptr(inType), uintptr(outType), uintptr(propLength),
		uintptr(remaining), userData,
		uintptr(unsafe.Pointer(&formattedSize)), 0,
		uintptr(unsafe.Pointer(&consumed)),
	)
	if r1 != 0 && r1 != errorInsufficientBuffer {
		return "", 0, fmt.Errorf("TdhFormatProperty: %w", e1)
	}
	if formattedSize == 0 {
		return "", uintptr(consumed), nil
	}

	out := make([]uint16, formattedSize/2+1)
	r1, _, e1 = procTdhFormatProperty.Call(
		uintptr(unsafe.Pointer(&ei.buf[0])), mapInfoPtr, uintptr(pointerSize),
		uintptr(inType), uintptr(outType), uintptr(propLength),
		uintptr(remaining), userData,
		uintptr(unsafe.Pointer(&formattedSize)), uintptr(unsafe.Pointer(&out[0])),
		uintptr(unsafe.Pointer(&consumed)),
	)
	if r1 != 0 {
		return "", 0, fmt.Errorf("TdhFormatProperty: %w", e1)
	}

	value := windows.UTF16ToString(out)
	if len(mapInfo) > 0 {
		value = trimMapEntryTrailingSpace(value, ei.header.decodingSource)
	}
	return value, uintptr(consumed), nil
}
