package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the configuration for root. Priority, highest first:
// HEADERDOC_* environment variables, the config file, defaults.
// When file is empty, root/.headerdoc.yaml is used if it exists; an
// explicit file must exist.
func Load(root, file string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(root)
	}

	v.SetEnvPrefix("HEADERDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables bind even
// when the file does not mention them.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("format", d.Format)
	v.SetDefault("crosscheck", d.CrossCheck)
	v.SetDefault("ignore_diagnostics", d.IgnoreDiagnostics)
	v.SetDefault("annotation_macros", d.AnnotationMacros)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("parse.recover", d.Parse.Recover)
	v.SetDefault("parse.duplicate_functions", d.Parse.DuplicateFunctions)
	v.SetDefault("parse.comment_gap", d.Parse.CommentGap)
}
