package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all paths and classifier settings.
type Config struct {
	// Paths
	Input      string `yaml:"input"`
	Output     string `yaml:"output"`
	TextureDir string `yaml:"texture_dir"`
	PreviewDir string `yaml:"preview_dir"`
	ReportPath string `yaml:"report"`

	// Classifier settings
	Mode       string            `yaml:"mode"`
	UVChannel  string            `yaml:"uv_channel"`
	Threshold  *float64          `yaml:"threshold"` // nil until set; 0 is a valid threshold
	AlphaScale float64           `yaml:"alpha_scale"`
	Extensions []string          `yaml:"extensions"`
	Palette    map[string]string `yaml:"palette"`
	PreviewMax int               `yaml:"preview_max"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Load reads a YAML (or JSON) config file.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Input      string
	Output     string
	TextureDir string
	PreviewDir string
	ReportPath string
	Mode       string
	UVChannel  string
	LogFile    string
	Debug      bool
}

// Resolve applies flag overrides, then fills empty fields with defaults.
// Relative paths in a config file are taken relative to baseDir.
func (c *Config) Resolve(flags Flags, baseDir string) {
	// CLI flags override config file
	if flags.Input != "" {
		c.Input = flags.Input
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.PreviewDir != "" {
		c.PreviewDir = flags.PreviewDir
	}
	if flags.ReportPath != "" {
		c.ReportPath = flags.ReportPath
	}
	if flags.Mode != "" {
		c.Mode = flags.Mode
	}
	if flags.UVChannel != "" {
		c.UVChannel = flags.UVChannel
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}
	if flags.Debug {
		c.LogLevel = "debug"
	}

	if baseDir != "" {
		if flags.TextureDir == "" {
			c.TextureDir = relTo(baseDir, c.TextureDir)
		}
		if flags.PreviewDir == "" {
			c.PreviewDir = relTo(baseDir, c.PreviewDir)
		}
	}

	// Output defaults to writing next to the input
	if c.Output == "" && c.Input != "" {
		ext := filepath.Ext(c.Input)
		c.Output = strings.TrimSuffix(c.Input, ext) + "_classified" + ext
	}

	// Defaults for classifier settings
	if c.Mode == "" {
		c.Mode = "color"
	}
	if c.UVChannel == "" {
		c.UVChannel = "UVChannel_2"
	}
	if c.Threshold == nil {
		t := 0.5
		c.Threshold = &t
	}
	if c.AlphaScale <= 0 {
		c.AlphaScale = 256
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".png", ".jpg", ".bmp"}
	}
	for i, e := range c.Extensions {
		if !strings.HasPrefix(e, ".") {
			c.Extensions[i] = "." + e
		}
	}
	if c.PreviewMax <= 0 {
		c.PreviewMax = 1024
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports settings no run can proceed with.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("config: no input model")
	}
	switch c.Mode {
	case "color":
		if c.TextureDir == "" {
			return fmt.Errorf("config: color mode needs a texture directory")
		}
	case "alpha":
	default:
		return fmt.Errorf("config: unknown mode %q (want color or alpha)", c.Mode)
	}
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold >= 1) {
		return fmt.Errorf("config: threshold %v must be in [0, 1)", *c.Threshold)
	}
	return nil
}

func relTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
