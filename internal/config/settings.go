// Package config manages the desktop settings stored in
// ~/.revden/config.toml. The companion TUI shares the same file, so writes
// preserve sections this module does not own.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DesktopConfig represents the [desktop] section of config.toml.
type DesktopConfig struct {
	Theme    string         `toml:"theme"` // "dark", "light", or "auto"
	Terminal TerminalConfig `toml:"terminal"`
}

// TerminalConfig represents terminal behavior settings.
type TerminalConfig struct {
	// SoftNewline controls how to insert a newline without executing.
	// Options: "shift_enter", "alt_enter", "both" (default), "disabled".
	SoftNewline string `toml:"soft_newline"`
	// FontSize is the terminal font size in pixels. Range 8-32, default 14.
	FontSize int `toml:"font_size"`
	// ScrollSpeed is the scroll speed percentage. Range 50-250, default 100.
	ScrollSpeed int `toml:"scroll_speed"`
}

// Manager reads and writes the desktop section of config.toml.
type Manager struct {
	configPath string
}

// NewManager creates a settings manager using the default config path.
func NewManager() *Manager {
	home, _ := os.UserHomeDir()
	return &Manager{
		configPath: filepath.Join(home, ".revden", "config.toml"),
	}
}

// NewManagerAt creates a settings manager reading an explicit path.
func NewManagerAt(path string) *Manager {
	return &Manager{configPath: path}
}

// Path returns the config file path, for watchers.
func (m *Manager) Path() string {
	return m.configPath
}

type fullConfig struct {
	Desktop DesktopConfig `toml:"desktop"`
	// Other sections are preserved as raw TOML on save.
}

// Load reads the desktop section, applying defaults and clamping invalid
// values. A missing or unparsable file yields the defaults.
func (m *Manager) Load() (*DesktopConfig, error) {
	defaults := &DesktopConfig{
		Theme: "dark",
		Terminal: TerminalConfig{
			SoftNewline: "both",
			FontSize:    14,
			ScrollSpeed: 100,
		},
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return nil, err
	}

	var cfg fullConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return defaults, nil
	}

	switch cfg.Desktop.Theme {
	case "dark", "light", "auto":
	default:
		cfg.Desktop.Theme = "dark"
	}

	switch cfg.Desktop.Terminal.SoftNewline {
	case "shift_enter", "alt_enter", "both", "disabled":
	default:
		cfg.Desktop.Terminal.SoftNewline = "both"
	}

	if cfg.Desktop.Terminal.FontSize == 0 {
		cfg.Desktop.Terminal.FontSize = 14
	} else if cfg.Desktop.Terminal.FontSize < 8 {
		cfg.Desktop.Terminal.FontSize = 8
	} else if cfg.Desktop.Terminal.FontSize > 32 {
		cfg.Desktop.Terminal.FontSize = 32
	}

	if cfg.Desktop.Terminal.ScrollSpeed == 0 {
		cfg.Desktop.Terminal.ScrollSpeed = 100
	} else if cfg.Desktop.Terminal.ScrollSpeed < 50 {
		cfg.Desktop.Terminal.ScrollSpeed = 50
	} else if cfg.Desktop.Terminal.ScrollSpeed > 250 {
		cfg.Desktop.Terminal.ScrollSpeed = 250
	}

	return &cfg.Desktop, nil
}

// Save writes the desktop section, preserving every other section in the
// file.
func (m *Manager) Save(desktop *DesktopConfig) error {
	existingData, _ := os.ReadFile(m.configPath)

	var existing map[string]interface{}
	if len(existingData) > 0 {
		if err := toml.Unmarshal(existingData, &existing); err != nil {
			existing = make(map[string]interface{})
		}
	} else {
		existing = make(map[string]interface{})
	}

	existing["desktop"] = map[string]interface{}{
		"theme": desktop.Theme,
		"terminal": map[string]interface{}{
			"soft_newline": desktop.Terminal.SoftNewline,
			"font_size":    desktop.Terminal.FontSize,
			"scroll_speed": desktop.Terminal.ScrollSpeed,
		},
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if len(existingData) == 0 {
		buf.WriteString("# Revden Configuration\n\n")
	}
	if err := toml.NewEncoder(&buf).Encode(existing); err != nil {
		return err
	}

	return os.WriteFile(m.configPath, buf.Bytes(), 0600)
}

// SetTheme validates and persists the theme preference.
func (m *Manager) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	switch theme {
	case "dark", "light", "auto":
	default:
		theme = "dark"
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &DesktopConfig{}
	}
	cfg.Theme = theme
	return m.Save(cfg)
}

// SetSoftNewline validates and persists the soft newline mode.
func (m *Manager) SetSoftNewline(mode string) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "shift_enter", "alt_enter", "both", "disabled":
	default:
		mode = "both"
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &DesktopConfig{}
	}
	cfg.Terminal.SoftNewline = mode
	return m.Save(cfg)
}

// SetFontSize clamps and persists the terminal font size.
func (m *Manager) SetFontSize(size int) error {
	if size < 8 {
		size = 8
	} else if size > 32 {
		size = 32
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &DesktopConfig{}
	}
	cfg.Terminal.FontSize = size
	return m.Save(cfg)
}

// SetScrollSpeed clamps and persists the scroll speed percentage.
func (m *Manager) SetScrollSpeed(speed int) error {
	if speed < 50 {
		speed = 50
	} else if speed > 250 {
		speed = 250
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &DesktopConfig{}
	}
	cfg.Terminal.ScrollSpeed = speed
	return m.Save(cfg)
}
