// Package config loads headerdoc settings from .headerdoc.yaml and the
// environment.
package config

import (
	"fmt"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/headerdoc/internal/lang"
)

// FileName is the configuration file looked up in the scanned root.
const FileName = ".headerdoc.yaml"

// Config is the complete headerdoc configuration.
type Config struct {
	Extensions        []string    `yaml:"extensions" mapstructure:"extensions" validate:"dive,startswith=."`
	Include           []string    `yaml:"include" mapstructure:"include"`
	Exclude           []string    `yaml:"exclude" mapstructure:"exclude"`
	Workers           int         `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	MaxFileSize       int64       `yaml:"max_file_size" mapstructure:"max_file_size" validate:"gte=0"`
	Format            string      `yaml:"format" mapstructure:"format" validate:"oneof=toon json yaml"`
	CrossCheck        bool        `yaml:"crosscheck" mapstructure:"crosscheck"`
	IgnoreDiagnostics []string    `yaml:"ignore_diagnostics" mapstructure:"ignore_diagnostics"`
	AnnotationMacros  []string    `yaml:"annotation_macros" mapstructure:"annotation_macros" validate:"dive,required"`
	CacheSize         int         `yaml:"cache_size" mapstructure:"cache_size" validate:"gte=0"`
	Parse             ParseConfig `yaml:"parse" mapstructure:"parse"`
}

// ParseConfig tunes the per-file parser.
type ParseConfig struct {
	// Recover turns unparseable declarations into warnings instead of
	// failing the file.
	Recover            bool   `yaml:"recover" mapstructure:"recover"`
	DuplicateFunctions string `yaml:"duplicate_functions" mapstructure:"duplicate_functions" validate:"oneof=merge error"`
	// CommentGap is the number of blank lines allowed between a doc comment
	// and the declaration it documents.
	CommentGap int `yaml:"comment_gap" mapstructure:"comment_gap" validate:"gte=0"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Extensions:  slices.Clone(lang.HeaderExtensions),
		Include:     []string{},
		Exclude:     []string{},
		Workers:     0,
		MaxFileSize: 1 << 20,
		Format:      "toon",
		CacheSize:   1024,
		Parse: ParseConfig{
			DuplicateFunctions: "merge",
			CommentGap:         1,
		},
		IgnoreDiagnostics: []string{},
		AnnotationMacros:  []string{},
	}
}

// YAML renders c as a configuration file body.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// IgnorePatterns compiles IgnoreDiagnostics.
func (c *Config) IgnorePatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.IgnoreDiagnostics))
	for _, p := range c.IgnoreDiagnostics {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
