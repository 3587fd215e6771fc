// Package eventlog implements the Windows event-log follower: subscribes
// to a set of channels at a configured severity threshold, renders
// matching records, and emits them onto the shared output lane.
package eventlog

import "fmt"

// Level mirrors the Windows event levels used as channel thresholds and as
// a record's own severity; lower is more severe. All is the "no filtering"
// sentinel and is distinct from the numeric Windows LogAlways level.
type Level int

const (
	LevelAll         Level = 0
	LevelCritical    Level = 1
	LevelError       Level = 2
	LevelWarning     Level = 3
	LevelInformation Level = 4
	LevelVerbose     Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInformation:
		return "Information"
	case LevelVerbose:
		return "Verbose"
	case LevelAll:
		return "All"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Channel names an event channel and the inclusive severity threshold
// admitted from it: a threshold of Warning admits Critical, Error and
// Warning.
type Channel struct {
	Name      string
	Threshold Level
}
