package tracefmt

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Highlighter decorates a compacted frame line with markup. It must only
// add decorations, never change the text itself.
type Highlighter interface {
	Highlight(line string) string
}

// TokenType is the semantic type of a highlighted span.
type TokenType uint8

const (
	TokenNone TokenType = iota
	TokenKeyword
	TokenTypeName
	TokenMethod
	TokenParameter
	TokenLocation

	tokenTypeCount
)

var tokenTypeNames = [...]string{"none", "keyword", "type", "method", "parameter", "location"}

// String returns the token type name used in settings files.
func (t TokenType) String() string {
	if t < tokenTypeCount {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// ParseTokenType is the inverse of [TokenType.String].
func ParseTokenType(s string) (TokenType, error) {
	for i, name := range tokenTypeNames {
		if name == s && TokenType(i) != TokenNone {
			return TokenType(i), nil
		}
	}
	return TokenNone, fmt.Errorf("%w: unknown token type %q", ErrInvalidSettings, s)
}

// Theme maps token types to "#RRGGBB" colours.
type Theme struct {
	Name   string
	Colors map[TokenType]string
}

// DefaultTheme returns the built-in dark console theme.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "default",
		Colors: map[TokenType]string{
			TokenKeyword:   "#569CD6",
			TokenTypeName:  "#4EC9B0",
			TokenMethod:    "#DCDCAA",
			TokenParameter: "#9CDCFE",
			TokenLocation:  "#808080",
		},
	}
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate reports the first colour that is not of the form #RRGGBB.
func (t *Theme) Validate() error {
	for tt, c := range t.Colors {
		if !hexColor.MatchString(c) {
			return fmt.Errorf("%w: theme %q: colour %q for %s", ErrInvalidSettings, t.Name, c, tt)
		}
	}
	return nil
}

// rule assigns a token type to a submatch of a pattern.
type rule struct {
	pattern   *regexp.Regexp
	tokenType TokenType
	submatch  int
}

// frameRules are tried in order; a span claimed by an earlier rule is never
// re-coloured by a later one.
var frameRules = []rule{
	{regexp.MustCompile(`\(at [^)]*\)`), TokenLocation, 0},
	{regexp.MustCompile(`\b(?:void|bool|byte|sbyte|char|decimal|double|float|int|uint|long|ulong|short|ushort|object|string|dynamic|async|static|ref|out|in|params|new)\b`), TokenKeyword, 0},
	{regexp.MustCompile(`([A-Za-z_][\w+]*)(?:<[^()]*>)?\s?\(`), TokenMethod, 1},
	{regexp.MustCompile(`\s([A-Za-z_]\w*)[,)]`), TokenParameter, 1},
	{regexp.MustCompile(`\b[A-Z]\w*`), TokenTypeName, 0},
}

type token struct {
	tokenType  TokenType
	start, end int
}

// FrameHighlighter is a rule-based highlighter for stack frame lines.
type FrameHighlighter struct {
	render func(TokenType, string) string
}

// NewFrameHighlighter returns a highlighter writing markup of the given
// kind. A nil theme means DefaultTheme.
func NewFrameHighlighter(theme *Theme, markup Markup) *FrameHighlighter {
	if theme == nil {
		theme = DefaultTheme()
	}
	h := &FrameHighlighter{}
	switch markup {
	case MarkupRichText:
		h.render = func(tt TokenType, s string) string {
			c, ok := theme.Colors[tt]
			if !ok {
				return s
			}
			return "<color=" + c + ">" + s + "</color>"
		}
	case MarkupANSI:
		// Colour is written whether or not stdout is a terminal.
		r := lipgloss.NewRenderer(io.Discard)
		r.SetColorProfile(termenv.TrueColor)
		styles := make(map[TokenType]lipgloss.Style, len(theme.Colors))
		for tt, c := range theme.Colors {
			styles[tt] = r.NewStyle().Foreground(lipgloss.Color(c))
		}
		h.render = func(tt TokenType, s string) string {
			st, ok := styles[tt]
			if !ok {
				return s
			}
			return st.Render(s)
		}
	default:
		h.render = func(_ TokenType, s string) string { return s }
	}
	return h
}

// tokens returns the highlighted spans of line ordered by position.
func (h *FrameHighlighter) tokens(line string) []token {
	covered := make([]bool, len(line))
	var out []token
	for _, r := range frameRules {
		for _, m := range r.pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := m[2*r.submatch], m[2*r.submatch+1]
			if start < 0 || start == end || isCovered(covered, start, end) {
				continue
			}
			out = append(out, token{tokenType: r.tokenType, start: start, end: end})
			for i := start; i < end; i++ {
				covered[i] = true
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func isCovered(covered []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if covered[i] {
			return true
		}
	}
	return false
}

// Highlight implements [Highlighter].
func (h *FrameHighlighter) Highlight(line string) string {
	tokens := h.tokens(line)
	if len(tokens) == 0 {
		return line
	}
	var b strings.Builder
	last := 0
	for _, t := range tokens {
		b.WriteString(line[last:t.start])
		b.WriteString(h.render(t.tokenType, line[t.start:t.end]))
		last = t.end
	}
	b.WriteString(line[last:])
	return b.String()
}
