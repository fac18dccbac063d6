package runtime

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wippyai/strffi/transcoder"
)

// Config configures a Registry and its logging.
type Config struct {
	Log LogConfig `toml:"log"`
	// StructuredTransport allows structured parameter and result types. It
	// cannot enable what the build disabled.
	StructuredTransport bool `toml:"structured_transport"`
}

// LogConfig selects where and how much to log. A library loaded into a host
// process usually has no stderr worth reading, so File is the common choice.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
	Disabled   bool   `toml:"disabled"`
}

// DefaultConfig follows the build configuration and logs warnings to stderr.
func DefaultConfig() Config {
	return Config{
		StructuredTransport: transcoder.StructuredTransport,
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig reads a strffi.toml file over the defaults. Only the [runtime]
// table is read; other tables belong to the generator.
func LoadConfig(path string) (Config, error) {
	var raw struct {
		Runtime toml.Primitive `toml:"runtime"`
	}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load runtime config: %w", err)
	}
	cfg := DefaultConfig()
	if !meta.IsDefined("runtime") {
		return cfg, nil
	}
	if err := meta.PrimitiveDecode(raw.Runtime, &cfg); err != nil {
		return Config{}, fmt.Errorf("load runtime config: %w", err)
	}
	return cfg.normalize()
}

// ParseConfig decodes TOML text shaped like the [runtime] table.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse runtime config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parse runtime config: unknown key %q", undecoded[0].String())
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	if c.StructuredTransport && !transcoder.StructuredTransport {
		return Config{}, fmt.Errorf("structured_transport: disabled in this build")
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.File = strings.TrimSpace(c.Log.File)
	if _, err := parseLevel(c.Log.Level); err != nil {
		return Config{}, err
	}
	return c, nil
}
