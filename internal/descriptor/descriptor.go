// Package descriptor parses the tagged project descriptor embedded in a
// Discord channel's human-readable topic.
package descriptor

import (
	"regexp"
	"strings"
)

var (
	wrapperRe   = regexp.MustCompile(`(?is)<remote-vibe>(.*?)</remote-vibe>`)
	directoryRe = regexp.MustCompile(`(?is)<directory>(.*?)</directory>`)
	appRe       = regexp.MustCompile(`(?is)<app>(.*?)</app>`)
)

// Descriptor is the parsed channel binding. Either field may be empty.
type Descriptor struct {
	Directory string
	AppID     string
}

// Parse extracts the descriptor from a channel topic. It tolerates
// surrounding human text and never errors: a topic with no recognizable
// tags yields a zero Descriptor.
func Parse(topic string) Descriptor {
	body := topic
	if m := wrapperRe.FindStringSubmatch(topic); m != nil {
		body = m[1]
	}

	var d Descriptor
	if m := directoryRe.FindStringSubmatch(body); m != nil {
		d.Directory = cleanTagValue(m[1])
	}
	if m := appRe.FindStringSubmatch(body); m != nil {
		d.AppID = cleanTagValue(m[1])
	}
	return d
}

// Render formats a descriptor back into its topic tag form, for writing to
// a newly created channel's topic.
func Render(d Descriptor) string {
	return "<remote-vibe><directory>" + d.Directory + "</directory><app>" + d.AppID + "</app></remote-vibe>"
}

func cleanTagValue(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\t", "")
	return strings.TrimSpace(s)
}
