package tracefmt

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	richIndentOpen  = "<indent=0.75em><line-indent=-0.75em>"
	richIndentClose = "</line-indent></indent>"
	hangingIndent   = "  "
)

// richTag matches the rich-text tags this package writes. Generic
// arguments such as <T> are text, not tags.
var richTag = regexp.MustCompile(`</?(?:color|indent|line-indent)(?:=[^<>]*)?>`)

// decorate applies the configured wrap-indentation decoration to a
// trimmed, non-empty output line.
func (f *Formatter) decorate(line string) string {
	switch f.opts.Wrap {
	case WrapRichText:
		return richIndentOpen + line + richIndentClose
	case WrapHanging:
		return wrapHanging(line, f.opts.WrapWidth)
	default:
		return line
	}
}

// wrapHanging breaks line into chunks that fit width columns once the
// continuation indent is added, and indents every chunk after the first.
func wrapHanging(line string, width int) string {
	limit := width - len(hangingIndent)
	if limit <= 0 {
		return line
	}
	var chunks []string
	if ansi.Strip(line) != line {
		if ansi.StringWidth(line) <= width {
			return line
		}
		chunks = strings.Split(ansi.Hardwrap(line, limit, true), "\n")
	} else if richTag.MatchString(line) {
		if runewidth.StringWidth(richTag.ReplaceAllString(line, "")) <= width {
			return line
		}
		chunks = wrapTagged(line, limit)
	} else {
		if runewidth.StringWidth(line) <= width {
			return line
		}
		chunks = wrapCell(line, limit)
	}
	return strings.Join(chunks, "\n"+hangingIndent)
}

// wrapCell splits s into pieces no wider than width display columns.
func wrapCell(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var lines []string
	for len(s) > 0 {
		line := runewidth.Truncate(s, width, "")
		if line == "" {
			// A single rune wider than width: emit it alone.
			r := []rune(s)
			line = string(r[0])
		}
		lines = append(lines, line)
		s = s[len(line):]
	}
	return lines
}

// wrapTagged splits a rich-text line into pieces of at most width visible
// columns. Tags take no room and are never split.
func wrapTagged(line string, width int) []string {
	var (
		chunks []string
		cur    strings.Builder
		used   int
	)
	text := func(s string) {
		for _, r := range s {
			w := runewidth.RuneWidth(r)
			if used > 0 && used+w > width {
				chunks = append(chunks, cur.String())
				cur.Reset()
				used = 0
			}
			cur.WriteRune(r)
			used += w
		}
	}
	last := 0
	for _, m := range richTag.FindAllStringIndex(line, -1) {
		text(line[last:m[0]])
		cur.WriteString(line[m[0]:m[1]])
		last = m[1]
	}
	text(line[last:])
	return append(chunks, cur.String())
}
