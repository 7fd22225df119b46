// Package config decodes the optional, lockfile-adjacent sync-options
// file (§6 "Produced surface"): a small YAML document giving default
// values for the flags plan/sync otherwise require on the command line,
// so a project can commit its own pysync defaults alongside its
// pyproject.toml instead of repeating them on every invocation.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options is the decoded form of a sync-options YAML file.
type Options struct {
	IndexURL      string `yaml:"index_url"`
	LinkMode      string `yaml:"link_mode"`
	Concurrency   int    `yaml:"concurrency"`
	RequireHashes bool   `yaml:"require_hashes"`
	Strict        bool   `yaml:"strict"`
}

// Load decodes the sync-options file at path. A missing file is not an
// error; callers treat a nil, nil result as "no overrides configured".
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &o, nil
}
