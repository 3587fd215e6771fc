package eventlog

import (
	"fmt"
	"strings"
	"time"
)

// Record is a single rendered event-log record.
type Record struct {
	Channel string
	Level   Level
	EventID uint16
	Time    time.Time
	Message string
}

// Render assembles the envelope text. When multiline is false every CR and
// LF in the assembled text is collapsed to a single space so the record
// occupies exactly one output line.
func (r Record) Render(multiline bool) string {
	rendered := fmt.Sprintf(
		"<Source>EventLog</Source><Time>%s</Time><LogEntry><Channel>%s</Channel><Level>%s</Level><EventId>%d</EventId><Message>%s</Message></LogEntry>",
		r.Time.UTC().Format(time.RFC3339Nano),
		r.Channel,
		r.Level.String(),
		r.EventID,
		r.Message,
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
