package etwtrace

import (
	"fmt"
	"strings"
	"time"
)

const (
	decodingSourceXMLFile       = 0
	decodingSourceWBEM          = 1
	decodingSourceWPP           = 2
	decodingSourceTraceLogging  = 3
)

func decodingSourceTag(ds uint32) string {
	switch ds {
	case decodingSourceXMLFile:
		return "XMLManifest"
	case decodingSourceWBEM:
		return "WBEM"
	case decodingSourceTraceLogging:
		return "TraceLogging"
	default:
		return "Unknown"
	}
}

// levelName is the fixed ETW level table.
func levelName(level uint8) string {
	switch level {
	case 1:
		return "Critical"
	case 2:
		return "Error"
	case 3:
		return "Warning"
	case 4:
		return "Information"
	case 5:
		return "Verbose"
	default:
		return "None"
	}
}

// formattedProperty is one <Name>value</Name> fragment, possibly recursive
// for struct members (flattened into a single Value string here).
type formattedProperty struct {
	Name  string
	Value string
}

// Record is a single rendered trace record.
type Record struct {
	Time           time.Time
	ProviderName   string
	ProviderGUID   string
	DecodingSource uint32
	ProcessID      uint32
	ThreadID       uint32
	Level          uint8
	Keyword        uint64

	// IDFields carries the decoding-source-specific identifying fragment:
	// MOF records append event GUID + version + opcode; manifest records
	// append event-id qualifiers.
	IDFields   string
	Properties []formattedProperty
}

func (r Record) Render(multiline bool) string {
	var props strings.Builder
	for _, p := range r.Properties {
		props.WriteString(fmt.Sprintf("<%s>%s</%s>", p.Name, p.Value, p.Name))
	}

	rendered := fmt.Sprintf(
		"<Source>EtwEvent</Source><Time>%s</Time><Provider Name=\"%s\"/><Provider idGuid=\"%s\"/><DecodingSource>%s</DecodingSource><Execution ProcessID=\"%d\" ThreadID=\"%d\"/><Level>%s</Level><Keyword>0x%x</Keyword>%s<EventData>%s</EventData>",
		r.Time.UTC().Format(time.RFC3339Nano),
		r.ProviderName,
		r.ProviderGUID,
		decodingSourceTag(r.DecodingSource),
		r.ProcessID,
		r.ThreadID,
		levelName(r.Level),
		r.Keyword,
		r.IDFields,
		props.String(),
	)
	if !multiline {
		rendered = collapseNewlines(rendered)
	}
	return rendered
}

func collapseNewlines(s string) string {
	return strings.Map(func(ch rune) rune {
		if ch == '\n' || ch == '\r' {
			return ' '
		}
		return ch
	}, s)
}
