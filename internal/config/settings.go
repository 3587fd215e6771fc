// Package config loads and validates the JSON Settings document that
// describes which sources the core should follow.
//
// The document shape is a small tagged union (Source) distinguished by a
// "type" discriminator field, since encoding/json has no native sum-type
// support.
package config

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"logmonitor/internal/eventlog"
	"logmonitor/internal/etwtrace"
	"logmonitor/internal/filetail"
)

// Settings is the root configuration document.
type Settings struct {
	LogFormat string         `json:"log_format"`
	Sources   []SourceConfig `json:"sources"`
}

// SourceConfig is one tagged-union member of Settings.sources. Exactly one
// of EventLog, File, Trace is populated, selected by Type.
type SourceConfig struct {
	Type string `json:"type"`

	EventLog *EventLogSourceConfig `json:"event_log,omitempty"`
	File     *FileSourceConfig     `json:"file,omitempty"`
	Trace    *TraceSourceConfig    `json:"trace,omitempty"`
}

const (
	SourceTypeEventLog = "event_log"
	SourceTypeFile     = "file"
	SourceTypeTrace    = "trace"
)

// EventLogSourceConfig configures one event-log follower.
type EventLogSourceConfig struct {
	Channels      []ChannelConfig `json:"channels"`
	Multiline     bool            `json:"multiline"`
	StartAtOldest bool            `json:"start_at_oldest"`
}

// ChannelConfig names one event-log channel and its severity threshold;
// Level defaults to "Error".
type ChannelConfig struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// FileSourceConfig configures one file tailer. A negative WaitSeconds
// means "wait forever" for the startup directory wait, without a separate
// boolean flag; zero (also the value when the field is omitted) means the
// directory must already exist.
type FileSourceConfig struct {
	Directory      string  `json:"directory"`
	Filter         string  `json:"filter"`
	IncludeSubdirs bool    `json:"include_subdirs"`
	WaitSeconds    float64 `json:"wait_seconds"`
}

// TraceSourceConfig configures one ETW trace-session follower.
type TraceSourceConfig struct {
	Providers []ProviderConfig `json:"providers"`
	Multiline bool             `json:"multiline"`
}

// ProviderConfig names one trace provider to enable; at least one of Name
// or GUID must be set, Level defaults to 2 and Keywords defaults to 0.
type ProviderConfig struct {
	Name     string  `json:"name,omitempty"`
	GUID     string  `json:"guid,omitempty"`
	Level    *int    `json:"level,omitempty"`
	Keywords *uint64 `json:"keywords,omitempty"`
}

// Parse decodes raw JSON into a Settings document, applying field defaults
// (Channel.Level, Provider.Level/Keywords) before validation.
func Parse(raw []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("config: invalid JSON: %w", err)
	}
	applyDefaults(&s)
	return &s, nil
}

func applyDefaults(s *Settings) {
	if s.LogFormat == "" {
		s.LogFormat = "JSON"
	}
	for i := range s.Sources {
		src := &s.Sources[i]
		if src.EventLog != nil {
			for j := range src.EventLog.Channels {
				if src.EventLog.Channels[j].Level == "" {
					src.EventLog.Channels[j].Level = "Error"
				}
			}
		}
		if src.File != nil && src.File.Filter == "" {
			src.File.Filter = "*"
		}
		if src.Trace != nil {
			for j := range src.Trace.Providers {
				p := &src.Trace.Providers[j]
				if p.Level == nil {
					lvl := 2
					p.Level = &lvl
				}
				if p.Keywords == nil {
					var kw uint64
					p.Keywords = &kw
				}
			}
		}
	}
}

// parseLevel maps the Critical/Error/Warning/Information/Verbose (or All,
// event-log only) strings to eventlog.Level.
func parseLevel(name string) (eventlog.Level, error) {
	switch name {
	case "All":
		return eventlog.LevelAll, nil
	case "Critical":
		return eventlog.LevelCritical, nil
	case "Error":
		return eventlog.LevelError, nil
	case "Warning":
		return eventlog.LevelWarning, nil
	case "Information":
		return eventlog.LevelInformation, nil
	case "Verbose":
		return eventlog.LevelVerbose, nil
	default:
		return 0, fmt.Errorf("unrecognized level %q", name)
	}
}

// ToFileConfig adapts a FileSourceConfig to filetail.Config. A negative or
// +Inf WaitSeconds means "wait forever", matching filetail.Config's own
// "<0 means infinite" contract; zero means don't wait at all.
func ToFileConfig(c FileSourceConfig) filetail.Config {
	wait := waitDuration(c.WaitSeconds)
	return filetail.Config{
		Directory:      c.Directory,
		Filter:         c.Filter,
		IncludeSubdirs: c.IncludeSubdirs,
		StartupWait:    wait,
	}
}

func waitDuration(seconds float64) time.Duration {
	if seconds < 0 || math.IsInf(seconds, 1) {
		return -1
	}
	return time.Duration(seconds * float64(time.Second))
}

// ToEventLogChannels adapts []ChannelConfig to []eventlog.Channel.
func ToEventLogChannels(cs []ChannelConfig) ([]eventlog.Channel, error) {
	out := make([]eventlog.Channel, 0, len(cs))
	for _, c := range cs {
		lvl, err := parseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", c.Name, err)
		}
		out = append(out, eventlog.Channel{Name: c.Name, Threshold: lvl})
	}
	return out, nil
}

// ToTraceProviders adapts []ProviderConfig to []etwtrace.Provider,
// parsing braced or unbraced GUID strings via google/uuid.
func ToTraceProviders(ps []ProviderConfig) ([]etwtrace.Provider, error) {
	out := make([]etwtrace.Provider, 0, len(ps))
	for _, p := range ps {
		var g etwtrace.GUID
		if p.GUID != "" {
			parsed, err := uuid.Parse(p.GUID)
			if err != nil {
				return nil, fmt.Errorf("provider %q: invalid guid %q: %w", p.Name, p.GUID, err)
			}
			g = uuidToGUID(parsed)
		}

		level := 2
		if p.Level != nil {
			level = *p.Level
		}
		var keywords uint64
		if p.Keywords != nil {
			keywords = *p.Keywords
		}

		out = append(out, etwtrace.Provider{
			Name:    p.Name,
			GUID:    g,
			Level:   byte(level),
			Keyword: keywords,
		})
	}
	return out, nil
}

// uuidToGUID converts a parsed UUID's 16 big-endian bytes into the
// little-endian-field GUID layout Windows uses: the string's first three
// hyphen-groups are hex renderings of Data1/Data2/Data3 exactly as printed,
// so the conversion is a byte-order read, not a value transform.
func uuidToGUID(u uuid.UUID) etwtrace.GUID {
	var g etwtrace.GUID
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:16], u[8:16])
	return g
}
