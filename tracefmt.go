package tracefmt

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sentinel errors for programmatic error handling.
var (
	ErrUnsupportedMode = errors.New("unsupported mode")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrFormatPanic     = errors.New("formatter panic")
)

// NamespaceMode controls how fully-qualified method names are shortened.
type NamespaceMode int

const (
	NamespaceFull                NamespaceMode = iota // Foo.Bar.Baz.Method
	NamespaceCompact                                  // Baz.Method
	NamespaceCompactNoReturnType                      // Baz.Method, return type dropped
)

// ParamsMode controls how the argument list of a frame is rendered.
type ParamsMode int

const (
	ParamsFull      ParamsMode = iota // (Int32 x, String y)
	ParamsTypesOnly                   // (Int32, String)
	ParamsNamesOnly                   // (x, y)
	ParamsCompact                     // ()
)

// Markup selects how syntax highlighting decorations are written.
type Markup int

const (
	MarkupRichText Markup = iota // <color=#RRGGBB>text</color>
	MarkupANSI                   // terminal escape sequences
	MarkupNone                   // highlighting is a no-op
)

// WrapMode selects the wrap-indentation decoration applied to output lines.
type WrapMode int

const (
	WrapNone     WrapMode = iota
	WrapRichText          // <indent> / <line-indent> tags
	WrapHanging           // hard wrap at WrapWidth with an indented continuation
)

var (
	namespaceModeNames = []string{"full", "compact", "compact-no-return-type"}
	paramsModeNames    = []string{"full", "types-only", "names-only", "compact"}
	markupNames        = []string{"rich-text", "ansi", "none"}
	wrapModeNames      = []string{"none", "rich-text", "hanging"}
)

func modeName(names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("mode(%d)", v)
}

func parseMode[T ~int](kind string, names []string, s string) (T, error) {
	for i, name := range names {
		if name == s {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnsupportedMode, kind, s)
}

func validMode[T ~int](kind string, names []string, v T) error {
	if int(v) < 0 || int(v) >= len(names) {
		return fmt.Errorf("%w: %s %d", ErrUnsupportedMode, kind, int(v))
	}
	return nil
}

// String returns the mode name.
func (m NamespaceMode) String() string { return modeName(namespaceModeNames, int(m)) }

// String returns the mode name.
func (m ParamsMode) String() string { return modeName(paramsModeNames, int(m)) }

// String returns the markup name.
func (m Markup) String() string { return modeName(markupNames, int(m)) }

// String returns the wrap mode name.
func (m WrapMode) String() string { return modeName(wrapModeNames, int(m)) }

// ParseNamespaceMode parses "full", "compact" or "compact-no-return-type".
func ParseNamespaceMode(s string) (NamespaceMode, error) {
	return parseMode[NamespaceMode]("namespace mode", namespaceModeNames, s)
}

// ParseParamsMode parses "full", "types-only", "names-only" or "compact".
func ParseParamsMode(s string) (ParamsMode, error) {
	return parseMode[ParamsMode]("params mode", paramsModeNames, s)
}

// ParseMarkup parses "rich-text", "ansi" or "none".
func ParseMarkup(s string) (Markup, error) {
	return parseMode[Markup]("markup", markupNames, s)
}

// ParseWrapMode parses "none", "rich-text" or "hanging".
func ParseWrapMode(s string) (WrapMode, error) {
	return parseMode[WrapMode]("wrap mode", wrapModeNames, s)
}

// Options configures a [Formatter]. The zero value formats nothing: both
// modes are Full and highlighting is off, so only trimming applies.
type Options struct {
	Namespace NamespaceMode
	Params    ParamsMode

	// Highlight enables syntax highlighting of relevant frames.
	Highlight bool
	Markup    Markup
	// Theme colours highlighted tokens. Nil means DefaultTheme.
	Theme *Theme
	// Highlighter overrides the built-in frame highlighter.
	Highlighter Highlighter

	// Separator is written on its own line before every marked frame.
	Separator string

	Wrap      WrapMode
	WrapWidth int

	// Marker recognizes relevant frames. Nil means DefaultMarker.
	Marker Marker

	// Profiling reports whether a profiler capture is running; while it
	// returns true input is passed through untouched.
	Profiling func() bool

	// Logger receives debug records for swallowed failures. Nil means no
	// logging.
	Logger *zap.Logger
}

// Formatter rewrites stack-trace text. It holds no per-call state and is
// safe for concurrent use.
type Formatter struct {
	opts        Options
	marker      Marker
	highlighter Highlighter
	log         *zap.Logger
}

// New validates opts and returns a Formatter.
func New(opts Options) (*Formatter, error) {
	if err := validMode("namespace mode", namespaceModeNames, opts.Namespace); err != nil {
		return nil, err
	}
	if err := validMode("params mode", paramsModeNames, opts.Params); err != nil {
		return nil, err
	}
	if err := validMode("markup", markupNames, opts.Markup); err != nil {
		return nil, err
	}
	if err := validMode("wrap mode", wrapModeNames, opts.Wrap); err != nil {
		return nil, err
	}
	if opts.Wrap == WrapHanging && opts.WrapWidth <= len(hangingIndent) {
		return nil, fmt.Errorf("%w: wrap width %d too small", ErrUnsupportedMode, opts.WrapWidth)
	}

	f := &Formatter{opts: opts, marker: opts.Marker, log: opts.Logger}
	if f.marker == nil {
		f.marker = DefaultMarker
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if opts.Highlight {
		f.highlighter = opts.Highlighter
		if f.highlighter == nil {
			f.highlighter = NewFrameHighlighter(opts.Theme, opts.Markup)
		}
	}
	return f, nil
}

// MustNew is like [New] but panics on invalid options.
func MustNew(opts Options) *Formatter {
	f, err := New(opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Options returns the options the formatter was built with.
func (f *Formatter) Options() Options { return f.opts }

// TextFormatter is anything that formats one message at a time.
// [*Formatter] implements it.
type TextFormatter interface {
	Format(text string) string
}
