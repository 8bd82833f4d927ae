// tracefmt: make managed-runtime stack traces readable.
//
// Usage:
//
//	tracefmt [flags] [file...]
//
// Files (or stdin when none are given, or "-") are formatted and written to
// stdout in argument order.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/bjaus/tracefmt"
	"github.com/bjaus/tracefmt/internal/reload"
	"github.com/bjaus/tracefmt/internal/setup"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type cliOptions struct {
	config    string
	namespace string
	params    string
	highlight bool
	markup    string
	separator string
	wrap      string
	wrapWidth int
	jsonl     bool
	field     string
	stream    bool
	watch     bool
	init      bool
	jobs      int
	verbose   bool
}

var logger = zap.NewNop()

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var o cliOptions
	cmd := &cobra.Command{
		Use:   "tracefmt [file...]",
		Short: "Make managed-runtime stack traces readable",
		Long: `tracefmt compacts namespaces, simplifies parameter lists and highlights
the relevant frames of stack traces.

Frames prefixed with the marker (U+200B by default) start the relevant
section. A line holding only U+FFFD ends it; everything after is copied
verbatim.

Settings are read from --config (YAML) and overridden by flags.`,
		Example: `  tracefmt crash.log
  tracefmt --namespace compact-no-return-type --params compact < trace.txt
  tracefmt --jsonl --field stackTrace editor.jsonl
  tracefmt --config settings.yaml --watch --stream < live.log`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if o.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, &o, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.config, "config", "", "YAML settings file")
	f.StringVar(&o.namespace, "namespace", "", "namespace mode: full, compact, compact-no-return-type")
	f.StringVar(&o.params, "params", "", "params mode: full, types-only, names-only, compact")
	f.BoolVar(&o.highlight, "highlight", false, "syntax-highlight relevant frames")
	f.StringVar(&o.markup, "markup", "", "highlight markup: rich-text, ansi, none")
	f.StringVar(&o.separator, "separator", "", "line written before every marked frame")
	f.StringVar(&o.wrap, "wrap", "", "wrap decoration: none, rich-text, hanging")
	f.IntVar(&o.wrapWidth, "wrap-width", 0, "column width for --wrap hanging")
	f.BoolVar(&o.jsonl, "jsonl", false, "input is JSON lines; format one field of each record")
	f.StringVar(&o.field, "field", "stackTrace", "gjson path of the field to format with --jsonl")
	f.BoolVar(&o.stream, "stream", false, "read stdin as a stream of records (blank-line separated, or lines with --jsonl)")
	f.BoolVar(&o.watch, "watch", false, "reload --config on change (implies --stream)")
	f.BoolVar(&o.init, "init", false, "install default settings at --config (or the user config dir) and exit")
	f.IntVar(&o.jobs, "jobs", 4, "files formatted concurrently")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runFormat(cmd *cobra.Command, o *cliOptions, args []string) error {
	ctx := cmd.Context()

	if o.init {
		path, err := settingsPath(o.config)
		if err != nil {
			return err
		}
		in := &setup.Installer{Path: path, Logger: logger}
		if err := in.Start(ctx).Wait(); err != nil {
			return fmt.Errorf("install settings: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	if o.watch {
		if o.config == "" {
			return errors.New("--watch requires --config")
		}
		if len(args) > 0 {
			return errors.New("--watch reads stdin only")
		}
		w, err := reload.New(o.config, logger)
		if err != nil {
			return err
		}
		w.Start(ctx)
		defer w.Close()
		return streamRecords(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), recordFormatter(w, o), o.jsonl)
	}

	formatter, err := buildFormatter(cmd, o)
	if err != nil {
		return err
	}
	tf := recordFormatter(formatter, o)

	if o.stream {
		return streamRecords(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), tf, o.jsonl)
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	return formatFiles(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), tf, o, args)
}

func settingsPath(config string) (string, error) {
	if config != "" {
		return config, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "tracefmt", "settings.yaml"), nil
}

// buildFormatter layers changed flags over the settings file (or defaults).
func buildFormatter(cmd *cobra.Command, o *cliOptions) (*tracefmt.Formatter, error) {
	settings := tracefmt.DefaultSettings()
	if o.config != "" {
		s, err := tracefmt.LoadSettings(o.config)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("settings file not found, using defaults", zap.String("path", o.config))
		case err != nil:
			return nil, err
		default:
			settings = s
		}
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("namespace") {
		if settings.Namespace, err = tracefmt.ParseNamespaceMode(o.namespace); err != nil {
			return nil, err
		}
	}
	if flags.Changed("params") {
		if settings.Params, err = tracefmt.ParseParamsMode(o.params); err != nil {
			return nil, err
		}
	}
	if flags.Changed("markup") {
		if settings.Markup, err = tracefmt.ParseMarkup(o.markup); err != nil {
			return nil, err
		}
	}
	if flags.Changed("wrap") {
		if settings.Wrap, err = tracefmt.ParseWrapMode(o.wrap); err != nil {
			return nil, err
		}
	}
	if flags.Changed("highlight") {
		settings.Highlight = o.highlight
	}
	if flags.Changed("separator") {
		settings.Separator = o.separator
	}
	if flags.Changed("wrap-width") {
		settings.WrapWidth = o.wrapWidth
	}

	opts, err := settings.Options()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	return tracefmt.New(opts)
}

// recordFormatter wraps tf so that it formats one field of a JSON record
// when --jsonl is set.
func recordFormatter(tf tracefmt.TextFormatter, o *cliOptions) tracefmt.TextFormatter {
	if !o.jsonl {
		return tf
	}
	return jsonlFormatter{inner: tf, field: o.field}
}

// jsonlFormatter formats a string field of every JSON record in a
// document, one record per line. Lines that are not JSON, or lack the
// field, pass through unchanged.
type jsonlFormatter struct {
	inner tracefmt.TextFormatter
	field string
}

func (j jsonlFormatter) Format(doc string) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		lines[i] = j.formatRecord(line)
	}
	return strings.Join(lines, "\n")
}

func (j jsonlFormatter) formatRecord(record string) string {
	v := gjson.Get(record, j.field)
	if v.Type != gjson.String {
		return record
	}
	formatted := j.inner.Format(v.String())
	if !strings.HasSuffix(v.String(), "\n") {
		formatted = strings.TrimSuffix(formatted, "\n")
	}
	if formatted == v.String() {
		return record
	}
	out, err := sjson.Set(record, j.field, formatted)
	if err != nil {
		logger.Debug("rewrite record field", zap.String("field", j.field), zap.Error(err))
		return record
	}
	return out
}

func formatFiles(ctx context.Context, stdin io.Reader, stdout io.Writer, tf tracefmt.TextFormatter, o *cliOptions, paths []string) error {
	var stdinData []byte
	if slices.Contains(paths, "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		stdinData = data
	}

	results := make([]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data := stdinData
			if path != "-" {
				var err error
				if data, err = os.ReadFile(path); err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
			}
			results[i] = tf.Format(string(data))
			logger.Debug("formatted", zap.String("path", path), zap.Int("bytes", len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := io.WriteString(stdout, r); err != nil {
			return err
		}
	}
	return nil
}

// streamRecords splits r into records and writes each one formatted as
// soon as it is complete.
func streamRecords(ctx context.Context, r io.Reader, w io.Writer, tf tracefmt.TextFormatter, jsonl bool) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(records)
		scanErr <- scanRecords(ctx, r, jsonl, records)
	}()
	for msg := range tracefmt.FormatChan(ctx, tf, records) {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		if _, err := io.WriteString(w, msg); err != nil {
			return err
		}
	}
	if parent.Err() != nil {
		// Interrupted; the scanner may still be blocked reading.
		return nil
	}
	return <-scanErr
}

func scanRecords(ctx context.Context, r io.Reader, jsonl bool, out chan<- string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var rec strings.Builder
	emit := func(s string) bool {
		select {
		case out <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for sc.Scan() {
		line := sc.Text()
		if jsonl {
			if strings.TrimSpace(line) != "" && !emit(line) {
				return ctx.Err()
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			if rec.Len() > 0 {
				if !emit(rec.String()) {
					return ctx.Err()
				}
				rec.Reset()
			}
			continue
		}
		rec.WriteString(line)
		rec.WriteByte('\n')
	}
	if rec.Len() > 0 && !emit(rec.String()) {
		return ctx.Err()
	}
	return sc.Err()
}
