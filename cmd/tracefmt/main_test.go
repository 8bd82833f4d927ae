package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bjaus/tracefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

const mark = string(tracefmt.DefaultMarker)

// execute runs the root command. Tests here share the package logger and
// must not run in parallel.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var plainFlags = []string{"--namespace", "compact", "--params", "compact", "--highlight=false"}

func TestFormatStdin(t *testing.T) {
	out, err := execute(t, "Header\n"+mark+"Foo.Bar.Run(int x)\n", plainFlags...)
	require.NoError(t, err)
	assert.Equal(t, "Header\nBar.Run()\n", out)
}

func TestFormatFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, content := range []string{mark + "A.B.First(int x)", mark + "A.B.Second(int x)", "third"} {
		p := filepath.Join(dir, string(rune('a'+i))+".log")
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	out, err := execute(t, "", append(append([]string{}, plainFlags...), append([]string{"--jobs", "2"}, paths...)...)...)
	require.NoError(t, err)
	assert.Equal(t, "B.First()\nB.Second()\nthird\n", out)
}

func TestFormatStdinTwice(t *testing.T) {
	out, err := execute(t, mark+"A.B.C(int x)", append(append([]string{}, plainFlags...), "-", "-")...)
	require.NoError(t, err)
	assert.Equal(t, "B.C()\nB.C()\n", out)
}

func TestFormatMissingFile(t *testing.T) {
	_, err := execute(t, "", filepath.Join(t.TempDir(), "nope.log"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: full\nparams: names-only\nhighlight: false\n"), 0o644))

	out, err := execute(t, mark+"Foo.Bar.Run(int x)", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "Foo.Bar.Run(x)\n", out)

	out, err = execute(t, mark+"Foo.Bar.Run(int x)", "--config", path, "--namespace", "compact")
	require.NoError(t, err)
	assert.Equal(t, "Bar.Run(x)\n", out)
}

func TestMissingConfigUsesDefaults(t *testing.T) {
	out, err := execute(t, mark+"Foo.Bar.Run(System.Int32 x)",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--highlight=false")
	require.NoError(t, err)
	assert.Equal(t, "Bar.Run(Int32)\n", out)
}

func TestInvalidFlag(t *testing.T) {
	_, err := execute(t, "", "--params", "everything")
	assert.ErrorIs(t, err, tracefmt.ErrUnsupportedMode)
}

func TestJSONL(t *testing.T) {
	in := `{"level":"error","stackTrace":"\u200bFoo.Bar.Run(int x)"}` + "\n" +
		`{"level":"info","message":"no trace"}` + "\n"
	out, err := execute(t, in, append([]string{"--jsonl"}, plainFlags...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Bar.Run()", gjson.Get(lines[0], "stackTrace").String())
	assert.Equal(t, "error", gjson.Get(lines[0], "level").String())
	assert.Equal(t, `{"level":"info","message":"no trace"}`, lines[1])
}

func TestJSONLCustomField(t *testing.T) {
	in := `{"error":{"trace":"\u200bFoo.Bar.Run(int x)"}}`
	out, err := execute(t, in, append([]string{"--jsonl", "--field", "error.trace"}, plainFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Bar.Run()", gjson.Get(out, "error.trace").String())
}

func TestStream(t *testing.T) {
	in := mark + "A.B.C(int x)\n\n\nplain\nsecond line\n"
	out, err := execute(t, in, append([]string{"--stream"}, plainFlags...)...)
	require.NoError(t, err)
	assert.Equal(t, "B.C()\nplain\nsecond line\n", out)
}

func TestStreamJSONL(t *testing.T) {
	in := `{"stackTrace":"\u200bA.B.C(int x)"}` + "\n\n" + `{"stackTrace":"plain"}` + "\n"
	out, err := execute(t, in, append([]string{"--stream", "--jsonl"}, plainFlags...)...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "B.C()", gjson.Get(lines[0], "stackTrace").String())
	assert.Equal(t, `{"stackTrace":"plain"}`, lines[1])
}

func TestWatchRequiresConfig(t *testing.T) {
	_, err := execute(t, "", "--watch")
	assert.ErrorContains(t, err, "--watch requires --config")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.yaml")
	out, err := execute(t, "", "--init", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	s, err := tracefmt.LoadSettings(path)
	require.NoError(t, err)
	assert.False(t, s.FirstInstall)
}

func TestScanRecords(t *testing.T) {
	records := make(chan string, 8)
	err := scanRecords(context.Background(), strings.NewReader("a\nb\n\n \nc"), false, records)
	require.NoError(t, err)
	close(records)

	var got []string
	for r := range records {
		got = append(got, r)
	}
	assert.Equal(t, []string{"a\nb\n", "c\n"}, got)
}

var errWriteFailed = errors.New("write failed")

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errWriteFailed }

func TestStreamRecordsWriteError(t *testing.T) {
	defer goleak.VerifyNone(t)

	var in strings.Builder
	for range 50 {
		in.WriteString(mark + "A.B.C(int x)\n\n")
	}
	tf := tracefmt.MustNew(tracefmt.Options{Namespace: tracefmt.NamespaceCompact})
	err := streamRecords(context.Background(), strings.NewReader(in.String()), errWriter{}, tf, false)
	assert.ErrorIs(t, err, errWriteFailed)
}
