package eventlog

import (
	"fmt"
	"strings"
)

// buildQuery assembles the XPath-like structured query: one <QueryList>
// containing a single <Query> with one <Select> per channel, each
// enumerating exactly the OS severity numerics the channel's threshold
// admits. The OS does all level filtering; the follower applies none of
// its own.
func buildQuery(channels []Channel) string {
	var selects strings.Builder
	for _, c := range channels {
		selects.WriteString(fmt.Sprintf(`<Select Path="%s">%s</Select>`, escapeAttr(c.Name), severityXPath(c.Threshold)))
	}
	return fmt.Sprintf(`<QueryList><Query Id="0">%s</Query></QueryList>`, selects.String())
}

// severityXPath returns the System/Level predicate admitting every level at
// or more severe than threshold. All disables the predicate entirely.
func severityXPath(threshold Level) string {
	if threshold == LevelAll {
		return "*"
	}

	var terms []string
	for lv := LevelCritical; lv <= threshold; lv++ {
		terms = append(terms, fmt.Sprintf("Level=%d", int(lv)))
	}
	return fmt.Sprintf("*[System[(%s)]]", strings.Join(terms, " or "))
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return s
}
