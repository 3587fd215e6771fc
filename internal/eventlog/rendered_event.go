package eventlog

import (
	"encoding/xml"
	"time"
)

// renderedSystem is the subset of an event's rendered <System> block this
// follower needs: provider name, channel, event id, level and creation
// time. Parsing the full XML rendering (rather than walking EvtRender's
// EvtVariant array by hand) keeps the decode side in ordinary encoding/xml,
// matching how the rest of this codebase prefers a standard-library parser
// over hand-rolled binary walking wherever the OS hands back a text form.
type renderedSystem struct {
	XMLName xml.Name `xml:"Event"`
	System  struct {
		Provider struct {
			Name string `xml:"Name,attr"`
		} `xml:"Provider"`
		EventID uint16 `xml:"EventID"`
		Level   int    `xml:"Level"`
		Channel string `xml:"Channel"`
		TimeCreated struct {
			SystemTime string `xml:"SystemTime,attr"`
		} `xml:"TimeCreated"`
	} `xml:"System"`
}

func parseRenderedSystem(renderedXML string) (renderedSystem, error) {
	var rs renderedSystem
	err := xml.Unmarshal([]byte(renderedXML), &rs)
	return rs, err
}

func (rs renderedSystem) creationTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, rs.System.TimeCreated.SystemTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (rs renderedSystem) level() Level {
	if rs.System.Level == 0 {
		return LevelInformation
	}
	return Level(rs.System.Level)
}
