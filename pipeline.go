package tracefmt

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Status describes what a formatting call did with its input.
type Status int

const (
	StatusUnchanged Status = iota // output equals input
	StatusFormatted               // input was rewritten
	StatusBypassed                // profiling was active, pipeline skipped
	StatusFailed                  // an internal fault occurred, input returned
)

var statusNames = []string{"unchanged", "formatted", "bypassed", "failed"}

// String returns the status name.
func (s Status) String() string { return modeName(statusNames, int(s)) }

// Result is the outcome of [Formatter.FormatResult]. Text is always safe to
// display: on failure it is the original input.
type Result struct {
	Text   string
	Status Status
	Err    error
}

// Format rewrites text and returns the result. It never fails; on any
// internal fault the input is returned unchanged.
func (f *Formatter) Format(text string) string {
	return f.FormatResult(text).Text
}

// FormatResult is like [Formatter.Format] but reports what happened.
func (f *Formatter) FormatResult(text string) (res Result) {
	if f.opts.Profiling != nil && f.opts.Profiling() {
		return Result{Text: text, Status: StatusBypassed}
	}

	defer func() {
		if r := recover(); r != nil {
			res = f.fail(text, fmt.Errorf("%w: %v", ErrFormatPanic, r))
		}
	}()

	p := &pass{f: f}
	out, err := p.run(text)
	if err != nil {
		return f.fail(text, err)
	}
	if strings.TrimSpace(out) == "" || out == text {
		return Result{Text: text, Status: StatusUnchanged}
	}
	return Result{Text: out, Status: StatusFormatted}
}

func (f *Formatter) fail(text string, err error) Result {
	f.log.Debug("stack trace left unformatted", zap.Error(err))
	return Result{Text: text, Status: StatusFailed, Err: err}
}

// section is the pipeline state for one call.
type section int

const (
	beforeMarker section = iota
	withinMarker
	afterEnd
)

// pass holds everything one formatting call mutates.
type pass struct {
	f     *Formatter
	state section
	out   strings.Builder
}

func (p *pass) run(text string) (string, error) {
	defer p.out.Reset()
	for _, line := range strings.Split(text, "\n") {
		if err := p.line(line); err != nil {
			return "", err
		}
	}
	return p.out.String(), nil
}

func (p *pass) line(line string) error {
	if p.state == afterEnd {
		p.appendLine(line)
		return nil
	}
	if line == EndSentinel {
		p.state = afterEnd
		p.appendLine("")
		return nil
	}

	if p.f.marker.IsPrefix(line) {
		line = p.f.marker.Strip(line)
		if p.f.opts.Separator != "" {
			p.appendLine(p.f.opts.Separator)
		}
		p.state = withinMarker
	}

	if p.state == withinMarker {
		var err error
		if line, err = rewriteLine(line, p.f.opts.Namespace, p.f.opts.Params); err != nil {
			return err
		}
		if p.f.highlighter != nil {
			line = p.f.highlighter.Highlight(line)
		}
	}

	l := strings.TrimSpace(line)
	if l == "" {
		return nil
	}
	p.appendLine(p.f.decorate(l))
	return nil
}

func (p *pass) appendLine(s string) {
	p.out.WriteString(s)
	p.out.WriteByte('\n')
}

// rewriteLine applies namespace compaction and parameter formatting for
// the given pair of modes.
func rewriteLine(line string, ns NamespaceMode, pm ParamsMode) (string, error) {
	switch ns {
	case NamespaceFull:
	case NamespaceCompact:
		line = compactNamespaces(line, false)
	case NamespaceCompactNoReturnType:
		line = compactNamespaces(line, true)
	default:
		return "", fmt.Errorf("%w: namespace mode %s", ErrUnsupportedMode, ns)
	}
	if pm == ParamsFull {
		return line, nil
	}
	return formatParams(line, pm)
}
