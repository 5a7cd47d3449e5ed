package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sigreer/devrm/internal/sysblock"
	"github.com/sigreer/devrm/internal/topology"
)

type Config struct {
	// Local filesystem types whose mounted sources are protected
	FilesystemTypes []string `yaml:"filesystem_types,omitempty"`
	// Extra protection sources besides mounts and LVM: "mdraid", "zfs"
	ExtraSources []string `yaml:"extra_sources,omitempty"`
	// Block device name prefixes accepted as standard disks
	DiskPrefixes []string `yaml:"disk_prefixes,omitempty"`
	// Root of the sysfs tree holding block/<disk>/device control files
	SysfsRoot string `yaml:"sysfs_root,omitempty"`
	// Optional sqlite audit journal of removals
	Journal string `yaml:"journal,omitempty"`
	// Optional Prometheus textfile written after each removal
	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	FilesystemTypes: topology.DefaultFilesystemTypes,
	ExtraSources:    []string{topology.SourceMDRaid, topology.SourceZFS},
	DiskPrefixes:    sysblock.DefaultPrefixes,
	SysfsRoot:       sysblock.DefaultRoot,
}

// Default returns a copy of the built-in configuration
func Default() *Config {
	cfg := defaultConfig
	cfg.FilesystemTypes = append([]string(nil), defaultConfig.FilesystemTypes...)
	cfg.ExtraSources = append([]string(nil), defaultConfig.ExtraSources...)
	cfg.DiskPrefixes = append([]string(nil), defaultConfig.DiskPrefixes...)
	return &cfg
}

// Candidates are the config locations tried when no path is given
func Candidates() []string {
	return []string{
		"/etc/devrm/config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/devrm/config.yaml"),
		"config.yaml",
	}
}

// Load reads the config at path, or the first existing candidate when
// path is empty. No file at all means built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML and fills unset fields with defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if len(c.FilesystemTypes) == 0 {
		c.FilesystemTypes = append([]string(nil), defaultConfig.FilesystemTypes...)
	}
	// An explicit empty list disables the extra sources
	if c.ExtraSources == nil {
		c.ExtraSources = append([]string(nil), defaultConfig.ExtraSources...)
	}
	for _, s := range c.ExtraSources {
		if s != topology.SourceMDRaid && s != topology.SourceZFS {
			return fmt.Errorf("unknown extra source %q (want %s or %s)", s, topology.SourceMDRaid, topology.SourceZFS)
		}
	}
	if len(c.DiskPrefixes) == 0 {
		c.DiskPrefixes = append([]string(nil), defaultConfig.DiskPrefixes...)
	}
	if c.SysfsRoot == "" {
		c.SysfsRoot = defaultConfig.SysfsRoot
	}
	return nil
}
