package eventlog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityXPath_AllDisablesFilter(t *testing.T) {
	assert.Equal(t, "*", severityXPath(LevelAll))
}

func TestSeverityXPath_WarningAdmitsCriticalErrorWarning(t *testing.T) {
	got := severityXPath(LevelWarning)
	assert.Contains(t, got, "Level=1")
	assert.Contains(t, got, "Level=2")
	assert.Contains(t, got, "Level=3")
	assert.NotContains(t, got, "Level=4")
}

func TestBuildQuery_OneSelectPerChannel(t *testing.T) {
	q := buildQuery([]Channel{
		{Name: "Application", Threshold: LevelError},
		{Name: "System", Threshold: LevelAll},
	})

	assert.Equal(t, 1, strings.Count(q, "<Query "))
	assert.Contains(t, q, `<Select Path="Application">`)
	assert.Contains(t, q, `<Select Path="System">*</Select>`)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "Critical", LevelCritical.String())
	assert.Equal(t, "Verbose", LevelVerbose.String())
	assert.Equal(t, "All", LevelAll.String())
}

func TestRecord_Render_SingleLineCollapsesNewlines(t *testing.T) {
	r := Record{
		Channel: "Application",
		Level:   LevelError,
		EventID: 1000,
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: "line one\nline two\r\nline three",
	}

	rendered := r.Render(false)
	assert.NotContains(t, rendered, "\n")
	assert.NotContains(t, rendered, "\r")
	assert.Contains(t, rendered, "<EventId>1000</EventId>")
}

func TestRecord_Render_MultilinePreservesNewlines(t *testing.T) {
	r := Record{Message: "line one\nline two"}
	rendered := r.Render(true)
	assert.Contains(t, rendered, "\n")
}

func TestParseRenderedSystem_ExtractsFields(t *testing.T) {
	xmlDoc := `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">
		<System>
			<Provider Name="Microsoft-Windows-Kernel-General"/>
			<EventID>16</EventID>
			<Level>3</Level>
			<Channel>System</Channel>
			<TimeCreated SystemTime="2026-01-02T03:04:05.0000000Z"/>
		</System>
	</Event>`

	rs, err := parseRenderedSystem(xmlDoc)
	assert.NoError(t, err)
	assert.Equal(t, "Microsoft-Windows-Kernel-General", rs.System.Provider.Name)
	assert.Equal(t, uint16(16), rs.System.EventID)
	assert.Equal(t, LevelWarning, rs.level())
	assert.Equal(t, "System", rs.System.Channel)
}
