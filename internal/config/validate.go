package config

import (
	"fmt"
	"strings"

	"logmonitor/internal/xerrors"
)

// Validate checks the structural rules a Settings document must satisfy: a
// Provider needs a name or a GUID, a Channel needs a name, a FileSource
// needs a directory. Errors accumulate across every source before
// reporting, rather than failing on the first one.
type Validator struct {
	errs []string
}

func Validate(s *Settings) error {
	v := &Validator{}
	v.validateSources(s.Sources)
	if len(v.errs) == 0 {
		return nil
	}
	return xerrors.NewConfigurationError("config", strings.Join(v.errs, "; "))
}

func (v *Validator) add(format string, args ...interface{}) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *Validator) validateSources(sources []SourceConfig) {
	if len(sources) == 0 {
		v.add("sources: at least one source must be configured")
	}
	for i, src := range sources {
		switch src.Type {
		case SourceTypeEventLog:
			v.validateEventLog(i, src.EventLog)
		case SourceTypeFile:
			v.validateFile(i, src.File)
		case SourceTypeTrace:
			v.validateTrace(i, src.Trace)
		default:
			v.add("sources[%d]: unrecognized type %q", i, src.Type)
		}
	}
}

func (v *Validator) validateEventLog(i int, c *EventLogSourceConfig) {
	if c == nil {
		v.add("sources[%d]: event_log source missing its \"event_log\" body", i)
		return
	}
	if len(c.Channels) == 0 {
		v.add("sources[%d]: event_log source needs at least one channel", i)
	}
	for j, ch := range c.Channels {
		if ch.Name == "" {
			v.add("sources[%d].channels[%d]: name must not be empty", i, j)
		}
		if _, err := parseLevel(ch.Level); err != nil {
			v.add("sources[%d].channels[%d]: %v", i, j, err)
		}
	}
}

func (v *Validator) validateFile(i int, c *FileSourceConfig) {
	if c == nil {
		v.add("sources[%d]: file source missing its \"file\" body", i)
		return
	}
	if c.Directory == "" {
		v.add("sources[%d]: file source needs a directory", i)
	}
}

func (v *Validator) validateTrace(i int, c *TraceSourceConfig) {
	if c == nil {
		v.add("sources[%d]: trace source missing its \"trace\" body", i)
		return
	}
	if len(c.Providers) == 0 {
		v.add("sources[%d]: trace source needs at least one provider", i)
	}
	for j, p := range c.Providers {
		if p.Name == "" && p.GUID == "" {
			v.add("sources[%d].providers[%d]: needs a name or a guid", i, j)
		}
		if p.Level != nil && (*p.Level < 1 || *p.Level > 5) {
			v.add("sources[%d].providers[%d]: level must be 1..5, got %d", i, j, *p.Level)
		}
	}
}
