package tracefmt

import "strings"

// EndSentinel is the line that closes the relevant section. Everything
// after it is passed through verbatim.
const EndSentinel = "\uFFFD"

// DefaultMarker is the zero-width space prefix placed on relevant frames.
const DefaultMarker = PrefixMarker("\u200B")

// Marker recognizes and removes the prefix that flags a relevant frame.
type Marker interface {
	IsPrefix(line string) bool
	Strip(line string) string
}

// PrefixMarker is a Marker whose prefix is the string itself.
type PrefixMarker string

// IsPrefix reports whether line starts with the marker.
func (m PrefixMarker) IsPrefix(line string) bool {
	return m != "" && strings.HasPrefix(line, string(m))
}

// Strip removes every occurrence of the marker from line.
func (m PrefixMarker) Strip(line string) string {
	if m == "" {
		return line
	}
	return strings.ReplaceAll(line, string(m), "")
}
