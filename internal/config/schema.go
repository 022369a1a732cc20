// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tgbridge.
package config

import (
	"slices"

	"github.com/flemzord/tgbridge/internal/tracing"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Tracing configures the optional OTLP trace exporter.
	Tracing tracing.Config `yaml:"tracing"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// ModuleIDs returns the configured module IDs sorted alphabetically. The
// sorted order is the load and start order, which puts "bridge" ahead of
// every "channel.*" module so inboxes are wired before channels start.
func (c *Config) ModuleIDs() []string {
	ids := make([]string, 0, len(c.Modules))
	for id := range c.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
