package etwtrace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelName_FixedTable(t *testing.T) {
	assert.Equal(t, "Critical", levelName(1))
	assert.Equal(t, "Error", levelName(2))
	assert.Equal(t, "Warning", levelName(3))
	assert.Equal(t, "Information", levelName(4))
	assert.Equal(t, "Verbose", levelName(5))
	assert.Equal(t, "None", levelName(0))
}

func TestDecodingSourceTag(t *testing.T) {
	assert.Equal(t, "XMLManifest", decodingSourceTag(decodingSourceXMLFile))
	assert.Equal(t, "WBEM", decodingSourceTag(decodingSourceWBEM))
	assert.Equal(t, "TraceLogging", decodingSourceTag(decodingSourceTraceLogging))
	assert.Equal(t, "Unknown", decodingSourceTag(99))
}

func TestRecord_Render_IncludesEnvelopeFields(t *testing.T) {
	r := Record{
		Time:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ProviderName:   "Microsoft-Windows-Kernel-Process",
		ProviderGUID:   "{00000000-0000-0000-0000-000000000000}",
		DecodingSource: decodingSourceXMLFile,
		ProcessID:      1234,
		ThreadID:       5678,
		Level:          2,
		Keyword:        0x8000000000000000,
		Properties:     []formattedProperty{{Name: "ImageName", Value: "svchost.exe"}},
	}

	rendered := r.Render(true)
	assert.Contains(t, rendered, "<Source>EtwEvent</Source>")
	assert.Contains(t, rendered, `Name="Microsoft-Windows-Kernel-Process"`)
	assert.Contains(t, rendered, "<Level>Error</Level>")
	assert.Contains(t, rendered, "0x8000000000000000")
	assert.Contains(t, rendered, "<ImageName>svchost.exe</ImageName>")
}

func TestProvider_HasGUID(t *testing.T) {
	assert.False(t, Provider{}.hasGUID())
	assert.True(t, Provider{GUID: GUID{1}}.hasGUID())
}
