package tracefmt_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bjaus/tracefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()
	s := tracefmt.DefaultSettings()
	assert.Equal(t, tracefmt.NamespaceCompact, s.Namespace)
	assert.Equal(t, tracefmt.ParamsTypesOnly, s.Params)
	assert.True(t, s.Highlight)
	assert.True(t, s.FirstInstall)
	assert.Equal(t, "#DCDCAA", s.Theme.Colors["method"])
}

func TestParseSettings(t *testing.T) {
	t.Parallel()
	data := []byte(`
namespace: compact-no-return-type
params: names-only
highlight: false
markup: ansi
separator: "---"
wrap: hanging
wrap_width: 80
first_install: false
theme:
  name: custom
  colors:
    method: "#FF0000"
`)
	s, err := tracefmt.ParseSettings(data)
	require.NoError(t, err)
	assert.Equal(t, tracefmt.NamespaceCompactNoReturnType, s.Namespace)
	assert.Equal(t, tracefmt.ParamsNamesOnly, s.Params)
	assert.False(t, s.Highlight)
	assert.Equal(t, tracefmt.MarkupANSI, s.Markup)
	assert.Equal(t, "---", s.Separator)
	assert.Equal(t, tracefmt.WrapHanging, s.Wrap)
	assert.Equal(t, 80, s.WrapWidth)
	assert.False(t, s.FirstInstall)
	assert.Equal(t, "custom", s.Theme.Name)
	assert.Equal(t, "#FF0000", s.Theme.Colors["method"])
}

func TestParseSettingsPartialKeepsDefaults(t *testing.T) {
	t.Parallel()
	s, err := tracefmt.ParseSettings([]byte("params: compact\n"))
	require.NoError(t, err)
	assert.Equal(t, tracefmt.ParamsCompact, s.Params)
	assert.Equal(t, tracefmt.NamespaceCompact, s.Namespace)
	assert.True(t, s.Highlight)
}

func TestParseSettingsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"namespace", "namespace: shortest\n"},
		{"params", "params: everything\n"},
		{"markup", "markup: html\n"},
		{"wrap", "wrap: soft\n"},
		{"syntax", "namespace: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tracefmt.ParseSettings([]byte(tt.data))
			assert.ErrorIs(t, err, tracefmt.ErrInvalidSettings)
		})
	}
}

func TestParseSettingsUnsupportedModeIsWrapped(t *testing.T) {
	t.Parallel()
	_, err := tracefmt.ParseSettings([]byte("params: everything\n"))
	assert.ErrorIs(t, err, tracefmt.ErrUnsupportedMode)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	want := tracefmt.DefaultSettings()
	want.Params = tracefmt.ParamsNamesOnly
	want.Separator = "==="
	want.FirstInstall = false

	require.NoError(t, tracefmt.SaveSettings(path, want))
	got, err := tracefmt.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsWrittenByName(t *testing.T) {
	t.Parallel()
	data, err := yaml.Marshal(tracefmt.DefaultSettings())
	require.NoError(t, err)
	assert.Contains(t, string(data), "namespace: compact\n")
	assert.Contains(t, string(data), "params: types-only\n")
	assert.Contains(t, string(data), "markup: rich-text\n")
}

func TestLoadSettingsMissing(t *testing.T) {
	t.Parallel()
	_, err := tracefmt.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSettingsOptions(t *testing.T) {
	t.Parallel()
	s := tracefmt.DefaultSettings()
	s.Marker = ">>"
	s.Theme.Colors = map[string]string{"keyword": "#112233"}

	opts, err := s.Options()
	require.NoError(t, err)
	assert.Equal(t, tracefmt.PrefixMarker(">>"), opts.Marker)
	require.NotNil(t, opts.Theme)
	assert.Equal(t, map[tracefmt.TokenType]string{tracefmt.TokenKeyword: "#112233"}, opts.Theme.Colors)
}

func TestSettingsOptionsInvalidTheme(t *testing.T) {
	t.Parallel()
	s := tracefmt.DefaultSettings()
	s.Theme.Colors = map[string]string{"method": "red"}
	_, err := s.Options()
	assert.ErrorIs(t, err, tracefmt.ErrInvalidSettings)

	s.Theme.Colors = map[string]string{"comment": "#FFFFFF"}
	_, err = s.Options()
	assert.ErrorIs(t, err, tracefmt.ErrInvalidSettings)
}

func TestSettingsFormatter(t *testing.T) {
	t.Parallel()
	s := tracefmt.DefaultSettings()
	s.Highlight = false
	f, err := s.Formatter()
	require.NoError(t, err)
	assert.Equal(t, "Baz.Method(Int32)\n", f.Format(mark+"Foo.Bar.Baz.Method(System.Int32 x)"))
}

func TestSettingsFormatterInvalidWrap(t *testing.T) {
	t.Parallel()
	s := tracefmt.DefaultSettings()
	s.Wrap = tracefmt.WrapHanging
	_, err := s.Formatter()
	assert.ErrorIs(t, err, tracefmt.ErrInvalidSettings)
	assert.ErrorIs(t, err, tracefmt.ErrUnsupportedMode)
}

func TestParseTokenType(t *testing.T) {
	t.Parallel()
	tt, err := tracefmt.ParseTokenType("parameter")
	require.NoError(t, err)
	assert.Equal(t, tracefmt.TokenParameter, tt)

	_, err = tracefmt.ParseTokenType("none")
	assert.ErrorIs(t, err, tracefmt.ErrInvalidSettings)
}
