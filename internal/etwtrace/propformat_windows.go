//go:build windows

package etwtrace

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Property flag bits, per the TDH EVENT_PROPERTY_INFO.Flags values this
// follower cares about; see EtwMonitor.cpp's _FormatData/GetPropertyLength.
const (
	propertyStruct      = 0x1
	propertyParamLength = 0x2
	propertyParamCount  = 0x4
)

const tdhInTypeUint32 = 8

// traceEventInfoHeader mirrors TRACE_EVENT_INFO up to (not including) the
// trailing EventPropertyInfoArray.
type traceEventInfoHeader struct {
	providerGUID          windows.GUID
	eventGUID             windows.GUID
	descriptor            eventDescriptor
	decodingSource        uint32
	providerNameOffset    uint32
	levelNameOffset       uint32
	channelNameOffset     uint32
	keywordsNameOffset    uint32
	taskNameOffset        uint32
	opcodeNameOffset      uint32
	eventMessageOffset    uint32
	providerMessageOffset uint32
	binaryXMLOffset       uint32
	binaryXMLSize         uint32
	eventNameOffset       uint32
	eventAttributesOffset uint32
	propertyCount         uint32
	topLevelPropertyCount uint32
	flags                 uint32
}

type eventDescriptor struct {
	id      uint16
	version uint8
	channel uint8
	level   uint8
	opcode  uint8
	task    uint16
	keyword uint64
}

const eventPropertyInfoSize = 24

// eventInfo is the parsed form of a TdhGetEventInformation buffer: the raw
// bytes (property name/offset lookups read directly from it) plus decoded
// header fields.
type eventInfo struct {
	buf    []byte
	header traceEventInfoHeader
}

func (ei *eventInfo) propertyAt(i int) (flags uint32, nameOffset uint32, typeUnion [8]byte, count, length uint16) {
	off := int(unsafe.Sizeof(traceEventInfoHeader{})) + i*eventPropertyInfoSize
	flags = binary.LittleEndian.Uint32(ei.buf[off:])
	nameOffset = binary.LittleEndian.Uint32(ei.buf[off+4:])
	copy(typeUnion[:], ei.buf[off+8:off+16])
	count = binary.LittleEndian.Uint16(ei.buf[off+16:])
	length = binary.LittleEndian.Uint16(ei.buf[off+18:])
	return
}

func (ei *eventInfo) propertyName(nameOffset uint32) string {
	return readWideStringAt(ei.buf, int(nameOffset))
}

func (ei *eventInfo) nonStructTypes(typeUnion [8]byte) (inType, outType uint16, mapNameOffset uint32) {
	inType = binary.LittleEndian.Uint16(typeUnion[0:2])
	outType = binary.LittleEndian.Uint16(typeUnion[2:4])
	mapNameOffset = binary.LittleEndian.Uint32(typeUnion[4:8])
	return
}

func (ei *eventInfo) structTypes(typeUnion [8]byte) (startIndex, numMembers uint16) {
	startIndex = binary.LittleEndian.Uint16(typeUnion[0:2])
	numMembers = binary.LittleEndian.Uint16(typeUnion[2:4])
	return
}

func parseEventInfo(buf []byte) *eventInfo {
	ei := &eventInfo{buf: buf}
	ei.header = *(*traceEventInfoHeader)(unsafe.Pointer(&buf[0]))
	return ei
}

// formatData walks the top-level properties of ei and formats each,
// mirroring EtwMonitor::_FormatData: struct properties recurse into their
// members, array properties repeat the fragment once per element, and
// scalar properties are handed to TdhFormatProperty (with a map lookup
// first for 32-bit integer properties carrying a map name).
//
// eventRecordPtr is the PEVENT_RECORD the TDH property-size/property/map
// calls require; userDataPtr/userDataLen bound the payload blob that the
// property cursor advances through as it consumes each property in turn.
func formatData(eventRecordPtr, userDataPtr uintptr, userDataLen int, ei *eventInfo, pointerSize uint32) ([]formattedProperty, error) {
	cursor := userDataPtr
	endOfUserData := userDataPtr + uintptr(userDataLen)
	var out []formattedProperty

	for i := 0; i < int(ei.header.topLevelPropertyCount); i++ {
		frags, consumed, err := formatProperty(eventRecordPtr, ei, i, cursor, endOfUserData, pointerSize)
		if err != nil {
			return out, err
		}
		out = append(out, frags...)
		cursor += consumed
	}
	return out, nil
}

func formatProperty(eventRecordPtr uintptr, ei *eventInfo, index int, userData, endOfUserData uintptr, pointerSize uint32) ([]formattedProperty, uintptr, error) {
	flags, nameOffset, typeUnion, count, length := ei.propertyAt(index)
	name := ei.propertyName(nameOffset)

	propLength, err := getPropertyLength(eventRecordPtr, ei, index, typeUnion, flags, length)
	if err != nil {
		return nil, 0, err
	}
	arraySize, err := getArraySize(eventRecordPtr, ei, index, flags, count)
	if err != nil {
		return nil, 0, err
	}

	var out []formattedProperty
	cursor := userData

	for k := uint16(0); k < arraySize; k++ {
		if flags&propertyStruct != 0 {
			startIndex, numMembers := ei.structTypes(typeUnion)
			var memberVals []string
			for j := int(startIndex); j < int(startIndex)+int(numMembers); j++ {
				memberFrags, consumed, err := formatProperty(eventRecordPtr, ei, j, cursor, endOfUserData, pointerSize)
				if err != nil {
					return out, 0, err
				}
				cursor += consumed
				for _, mf := range memberFrags {
					memberVals = append(memberVals, fmt.Sprintf("<%s>%s</%s>", mf.Name, mf.Value, mf.Name))
				}
			}
			out = append(out, formattedProperty{Name: name, Value: strings.Join(memberVals, "")})
			continue
		}

		if propLength == 0 && endOfUserData <= cursor {
			continue
		}

		inType, outType, mapNameOffset := ei.nonStructTypes(typeUnion)

		var mapInfo []byte
		if inType == tdhInTypeUint32 && mapNameOffset != 0 {
			mapName := readWideStringAt(ei.buf, int(mapNameOffset))
			mapInfo, _ = getMapInfo(eventRecordPtr, mapName, ei.header.decodingSource)
		}

		value, consumed, err := formatPropertyValue(ei, mapInfo, pointerSize, inType, outType, propLength, cursor, endOfUserData)
		if err != nil {
			return out, 0, err
		}
		out = append(out, formattedProperty{Name: name, Value: value})
		cursor += consumed
	}

	return out, cursor - userData, nil
}

// getPropertyLength mirrors EtwMonitor::GetPropertyLength.
func getPropertyLength(eventRecord uintptr, ei *eventInfo, index int, typeUnion [8]byte, flags uint32, length uint16) (uint16, error) {
	if flags&propertyParamLength != 0 {
		lenIndex := length // lengthPropertyIndex shares the same field
		_, lenNameOffset, _, _, _ := ei.propertyAt(int(lenIndex))
		v, err := readIndirectUint(eventRecord, ei.propertyName(lenNameOffset))
		if err != nil {
			return 0, err
		}
		return uint16(v), nil
	}
	return length, nil
}

// getArraySize mirrors EtwMonitor::GetArraySize.
func getArraySize(eventRecord uintptr, ei *eventInfo, index int, flags uint32, count uint16) (uint16, error) {
	if flags&propertyParamCount != 0 {
		countIndex := count // countPropertyIndex shares the same field
		_, countNameOffset, _, _, _ := ei.propertyAt(int(countIndex))
		v, err := readIndirectUint(eventRecord, ei.propertyName(countNameOffset))
		if err != nil {
			return 0, err
		}
		return uint16(v), nil
	}
	if count == 0 {
		return 1, nil
	}
	return count, nil
}
