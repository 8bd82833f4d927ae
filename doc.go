// Package tracefmt rewrites managed-runtime stack traces into a more
// readable form before display.
//
// A [Formatter] processes a message line by line. Frames carrying the
// [DefaultMarker] prefix open the relevant section; only lines inside it are
// rewritten. A line equal to [EndSentinel] closes the section: it becomes a
// blank line and everything after it is copied verbatim.
//
//	f, err := tracefmt.New(tracefmt.Options{
//		Namespace: tracefmt.NamespaceCompact,
//		Params:    tracefmt.ParamsTypesOnly,
//	})
//	if err != nil { ... }
//	out := f.Format(trace)
//
// # Namespaces
//
// [NamespaceCompact] drops the namespace from every qualified name before
// the "(at file:line)" location, keeping the class in front of the method:
//
//	void Foo.Bar.Baz.Method(System.Int32 x) → void Baz.Method(Int32 x)
//
// [NamespaceCompactNoReturnType] additionally drops the return type.
// Generic classes keep their arguments (Bar<T>.Method) and nested classes
// joined with "+" are kept whole (Outer+Inner.Method).
//
// # Parameters
//
// Every mode other than [ParamsFull] removes ref qualifiers, then:
//
//   - [ParamsTypesOnly] → (Int32, String)
//   - [ParamsNamesOnly] → (x, y)
//   - [ParamsCompact] → ()
//
// # Highlighting
//
// With Options.Highlight set, relevant frames are passed through a
// [Highlighter]. The built-in [FrameHighlighter] colours keywords, types,
// methods, parameter names and the location using a [Theme], written as
// rich-text colour tags or ANSI escapes depending on [Markup].
//
// # Failure safety
//
// [Formatter.Format] never fails: on any internal fault the input is
// returned untouched. Use [Formatter.FormatResult] to observe the fault.
//
// # Settings
//
// [Settings] is the YAML form of [Options]; see [LoadSettings] and
// [SaveSettings].
package tracefmt
