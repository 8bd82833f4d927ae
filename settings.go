package tracefmt

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the on-disk form of [Options].
type Settings struct {
	Namespace    NamespaceMode `yaml:"namespace"`
	Params       ParamsMode    `yaml:"params"`
	Highlight    bool          `yaml:"highlight"`
	Markup       Markup        `yaml:"markup"`
	Separator    string        `yaml:"separator,omitempty"`
	Wrap         WrapMode      `yaml:"wrap"`
	WrapWidth    int           `yaml:"wrap_width,omitempty"`
	Marker       string        `yaml:"marker,omitempty"`
	FirstInstall bool          `yaml:"first_install"`
	Theme        ThemeSettings `yaml:"theme,omitempty"`
}

// ThemeSettings names token colours by token type name.
type ThemeSettings struct {
	Name   string            `yaml:"name,omitempty"`
	Colors map[string]string `yaml:"colors,omitempty"`
}

// DefaultSettings returns the settings written on first install.
func DefaultSettings() Settings {
	theme := DefaultTheme()
	colors := make(map[string]string, len(theme.Colors))
	for tt, c := range theme.Colors {
		colors[tt.String()] = c
	}
	return Settings{
		Namespace:    NamespaceCompact,
		Params:       ParamsTypesOnly,
		Highlight:    true,
		Markup:       MarkupRichText,
		FirstInstall: true,
		Theme:        ThemeSettings{Name: theme.Name, Colors: colors},
	}
}

// ParseSettings decodes a YAML settings document. Fields missing from data
// keep their DefaultSettings value.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return s, nil
}

// LoadSettings reads and parses the settings file at path.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

// SaveSettings writes s to path, creating parent directories.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Options converts s into validated formatter options.
func (s Settings) Options() (Options, error) {
	opts := Options{
		Namespace: s.Namespace,
		Params:    s.Params,
		Highlight: s.Highlight,
		Markup:    s.Markup,
		Separator: s.Separator,
		Wrap:      s.Wrap,
		WrapWidth: s.WrapWidth,
	}
	if s.Marker != "" {
		opts.Marker = PrefixMarker(s.Marker)
	}
	if len(s.Theme.Colors) > 0 {
		theme := &Theme{Name: s.Theme.Name, Colors: make(map[TokenType]string, len(s.Theme.Colors))}
		for name, c := range s.Theme.Colors {
			tt, err := ParseTokenType(name)
			if err != nil {
				return Options{}, err
			}
			theme.Colors[tt] = c
		}
		if err := theme.Validate(); err != nil {
			return Options{}, err
		}
		opts.Theme = theme
	}
	return opts, nil
}

// Formatter builds a Formatter from s.
func (s Settings) Formatter() (*Formatter, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	f, err := New(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return f, nil
}

func unmarshalMode[T ~int](value *yaml.Node, parse func(string) (T, error), dst *T) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// MarshalYAML encodes the mode by name.
func (m NamespaceMode) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML decodes a mode name.
func (m *NamespaceMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalMode(value, ParseNamespaceMode, m)
}

// MarshalYAML encodes the mode by name.
func (m ParamsMode) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML decodes a mode name.
func (m *ParamsMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalMode(value, ParseParamsMode, m)
}

// MarshalYAML encodes the markup by name.
func (m Markup) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML decodes a markup name.
func (m *Markup) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalMode(value, ParseMarkup, m)
}

// MarshalYAML encodes the wrap mode by name.
func (m WrapMode) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML decodes a wrap mode name.
func (m *WrapMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalMode(value, ParseWrapMode, m)
}
