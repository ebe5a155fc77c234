// Package config loads pass-tui settings from a TOML file and resolves them
// against flags and the environment variables pass itself understands.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	EnvConfig   = "PASS_TUI_CONFIG"
	EnvStoreDir = "PASSWORD_STORE_DIR"
	EnvClipTime = "PASSWORD_STORE_CLIP_TIME"
)

// Duration is a time.Duration written as a Go duration string ("45s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if n, err := strconv.Atoi(s); err == nil {
		// Bare numbers are seconds, like PASSWORD_STORE_CLIP_TIME.
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	StoreDir string `toml:"store_dir,omitempty"`
	PassBin  string `toml:"pass_bin,omitempty"`
	Editor   string `toml:"editor,omitempty"`

	Clipboard Clipboard `toml:"clipboard"`
	Search    Search    `toml:"search"`
	Session   Session   `toml:"session"`
	Generate  Generate  `toml:"generate"`
	Insert    Insert    `toml:"insert"`
	Scan      Scan      `toml:"scan"`
	UI        UI        `toml:"ui"`
}

type Clipboard struct {
	TTL Duration `toml:"ttl"`
}

type Search struct {
	GapPenalty      int `toml:"gap_penalty"`
	PositionPenalty int `toml:"position_penalty"`
	LengthPenalty   int `toml:"length_penalty"`
	Limit           int `toml:"limit"`
}

type Session struct {
	HistoryLimit  int      `toml:"history_limit"`
	StatusTTL     Duration `toml:"status_ttl"`
	QuitGrace     Duration `toml:"quit_grace"`
	ActionTimeout Duration `toml:"action_timeout"`
	DirsFirst     bool     `toml:"dirs_first"`
}

type Generate struct {
	Length    int  `toml:"length"`
	NoSymbols bool `toml:"no_symbols"`
	Copy      bool `toml:"copy"`
}

type Insert struct {
	Multiline bool `toml:"multiline"`
}

type Scan struct {
	Ignore []string `toml:"ignore"`
}

type UI struct {
	// Background forces the colour scheme: "auto", "dark" or "light".
	Background string `toml:"background"`
}

func Default() Config {
	return Config{
		Clipboard: Clipboard{TTL: Duration{45 * time.Second}},
		Search: Search{
			GapPenalty:      100,
			PositionPenalty: 10,
			LengthPenalty:   1,
		},
		Session: Session{
			HistoryLimit:  100,
			StatusTTL:     Duration{5 * time.Second},
			QuitGrace:     Duration{5 * time.Second},
			ActionTimeout: Duration{2 * time.Minute},
			DirsFirst:     true,
		},
		Generate: Generate{Length: 25, Copy: true},
		UI:       UI{Background: "auto"},
	}
}

// Path is $PASS_TUI_CONFIG, else <user config dir>/pass-tui/config.toml.
func Path(getenv func(string) string) (string, error) {
	if p := strings.TrimSpace(getenv(EnvConfig)); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config dir")
	}
	return filepath.Join(dir, "pass-tui", "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, errors.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	durations := []struct {
		name string
		d    Duration
	}{
		{"clipboard.ttl", c.Clipboard.TTL},
		{"session.status_ttl", c.Session.StatusTTL},
		{"session.quit_grace", c.Session.QuitGrace},
		{"session.action_timeout", c.Session.ActionTimeout},
	}
	for _, d := range durations {
		if d.d.Duration < 0 {
			return errors.Errorf("%s must not be negative", d.name)
		}
	}
	if c.Search.GapPenalty < 0 || c.Search.PositionPenalty < 0 || c.Search.LengthPenalty < 0 {
		return errors.New("search penalties must not be negative")
	}
	if c.Search.Limit < 0 {
		return errors.New("search.limit must not be negative")
	}
	if c.Session.HistoryLimit < 0 {
		return errors.New("session.history_limit must not be negative")
	}
	if c.Generate.Length <= 0 {
		return errors.New("generate.length must be positive")
	}
	switch c.UI.Background {
	case "", "auto", "dark", "light":
	default:
		return errors.Errorf("ui.background must be auto, dark or light (got %q)", c.UI.Background)
	}
	return nil
}

// Overrides are command line values; empty/zero fields are unset.
type Overrides struct {
	StoreDir string
	ClipTime time.Duration
	Editor   string
}

// Resolve applies precedence: flags, then the environment, then the file,
// then built-in defaults.
func (c Config) Resolve(o Overrides, getenv func(string) string) (Config, error) {
	switch {
	case o.StoreDir != "":
		c.StoreDir = o.StoreDir
	case getenv(EnvStoreDir) != "":
		c.StoreDir = getenv(EnvStoreDir)
	case c.StoreDir == "":
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, errors.Wrap(err, "locate home dir")
		}
		c.StoreDir = filepath.Join(home, ".password-store")
	}
	dir, err := expandHome(c.StoreDir)
	if err != nil {
		return Config{}, err
	}
	c.StoreDir = dir

	switch {
	case o.ClipTime > 0:
		c.Clipboard.TTL = Duration{o.ClipTime}
	case getenv(EnvClipTime) != "":
		var d Duration
		if err := d.UnmarshalText([]byte(getenv(EnvClipTime))); err != nil {
			return Config{}, errors.Wrap(err, EnvClipTime)
		}
		c.Clipboard.TTL = d
	}

	if o.Editor != "" {
		c.Editor = o.Editor
	}
	return c, c.Validate()
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locate home dir")
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
