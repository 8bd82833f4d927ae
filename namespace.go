package tracefmt

import (
	"regexp"
	"strings"
)

// qualifiedName matches "XX.YY.ZZ" and splits it into "XX.YY" and "ZZ".
// Angle brackets end a segment so generic arguments are never swallowed.
var qualifiedName = regexp.MustCompile(`([^<>.\s(),]+(?:\.[^<>.\s(),]+)*)\.([^<>.\s(),]+)`)

const locationPrefix = " (at "

// namespaceScan is the state of one compaction pass over a single line.
type namespaceScan struct {
	linkStart int    // start of the " (at file:line)" suffix, -1 if absent
	replaced  bool   // at least one name was shortened
	method    bool   // start and namespace belong to a name followed by its argument list
	start     int    // output offset of the recorded shortened name, -1 if none
	namespace string // namespace part of the recorded qualified name
}

// record keeps the first method name, or failing that the first name.
func (s *namespaceScan) record(line string, m []int, offset int) {
	if s.method {
		return
	}
	isMethod := !insideGeneric(line, m[0]) && callFollows(line, m[1])
	if s.start != -1 && !isMethod {
		return
	}
	s.start = offset
	s.namespace = line[m[2]:m[3]]
	s.method = isMethod
}

func insideGeneric(line string, i int) bool {
	return strings.Count(line[:i], "<") > strings.Count(line[:i], ">")
}

// callFollows reports whether line[i:] opens an argument list, possibly
// after generic arguments, further member names and one space.
func callFollows(line string, i int) bool {
	for i < len(line) {
		switch line[i] {
		case '(':
			return true
		case ' ':
			return i+1 < len(line) && line[i+1] == '('
		case '<':
			depth := 0
			for ; i < len(line); i++ {
				if line[i] == '<' {
					depth++
				} else if line[i] == '>' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if i == len(line) {
				return false
			}
			i++
		case '.':
			i++
			for i < len(line) && !strings.ContainsRune("<>.(), \t", rune(line[i])) {
				i++
			}
		default:
			return false
		}
	}
	return false
}

// compactNamespaces replaces every qualified name before the location
// suffix with its last segment, then puts the enclosing class back in
// front of the method when nothing qualifies it any more.
func compactNamespaces(line string, dropReturnType bool) string {
	scan := namespaceScan{linkStart: strings.Index(line, locationPrefix), start: -1}

	var b strings.Builder
	last := 0
	for _, m := range qualifiedName.FindAllStringSubmatchIndex(line, -1) {
		if scan.linkStart != -1 && m[0] >= scan.linkStart {
			break
		}
		b.WriteString(line[last:m[0]])
		scan.record(line, m, b.Len())
		b.WriteString(line[m[4]:m[5]])
		last = m[1]
		scan.replaced = true
	}
	if !scan.replaced {
		return line
	}
	b.WriteString(line[last:])
	out := b.String()

	if open := strings.IndexByte(out[scan.start:], '('); open != -1 && !strings.ContainsAny(out[scan.start:scan.start+open], ".:") {
		class := scan.namespace
		if i := strings.LastIndexByte(class, '.'); i != -1 {
			class = class[i+1:]
		}
		out = out[:scan.start] + class + "." + out[scan.start:]
	}

	if dropReturnType && scan.method {
		out = out[scan.start:]
	}
	return out
}
