// Package config loads pixtone settings from a TOML file layered over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/soypat/pixtone/internal/logging"
)

type Config struct {
	Log     Log     `toml:"log"`
	Output  Output  `toml:"output"`
	Server  Server  `toml:"server"`
	Preview Preview `toml:"preview"`
	// GPU runs gamma and exposure steps through WebGPU when an adapter is present.
	GPU bool `toml:"gpu"`
}

type Log struct {
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

type Output struct {
	// JPEGQuality in 1..100.
	JPEGQuality int `toml:"jpeg_quality"`
	// PNGCompression is one of default, none, speed or best.
	PNGCompression string `toml:"png_compression"`
}

type Server struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type Preview struct {
	// Width of the terminal preview in character cells.
	Width int `toml:"width"`
}

// PNGCompressions lists the accepted [Output.PNGCompression] values.
var PNGCompressions = []string{"default", "none", "speed", "best"}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log:     Log{Level: "info", Console: true},
		Output:  Output{JPEGQuality: 95, PNGCompression: "default"},
		Server:  Server{Addr: ":8080", MaxUploadMB: 32},
		Preview: Preview{Width: 80},
	}
}

// Load reads the TOML file at path over [Default]. An empty path returns the
// defaults. Unknown keys are rejected so typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text over [Default] and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks every field. Errors name the offending key.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Log.ZerologLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality: %d not in 1..100", c.Output.JPEGQuality))
	}
	if !validPNG(c.Output.PNGCompression) {
		errs = append(errs, fmt.Errorf("output.png_compression: %q not one of %s", c.Output.PNGCompression, strings.Join(PNGCompressions, ", ")))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: empty"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb: %d must be positive", c.Server.MaxUploadMB))
	}
	if c.Preview.Width < 8 {
		errs = append(errs, fmt.Errorf("preview.width: %d below minimum of 8", c.Preview.Width))
	}
	return errors.Join(errs...)
}

func validPNG(s string) bool { return slices.Contains(PNGCompressions, s) }

// ZerologLevel returns the parsed log level.
func (l Log) ZerologLevel() (zerolog.Level, error) {
	return logging.ParseLevel(l.Level)
}
