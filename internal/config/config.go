// Package config owns the sync-rules config file and project discovery.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Jercik/sync-rules-sub001/internal/sync"
	"github.com/Jercik/sync-rules-sub001/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".sync-rules", "config.yaml")
	DefaultLockPath   = filepath.Join(home, ".sync-rules", "sync.lock")

	DefaultRules    = []string{"*.md", ".cursor", ".clinerules"}
	DefaultExcludes = []string{"node_modules", ".git", "dist", "build"}

	ErrTooFewProjects = errors.New("need at least two projects to sync")
)

// ProjectEntry is one item under `projects:`. It accepts either a bare
// path string or an explicit `{name, path}` mapping.
type ProjectEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func (p *ProjectEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Path = value.Value
		return nil
	}
	type raw ProjectEntry
	return value.Decode((*raw)(p))
}

type Config struct {
	Projects []ProjectEntry `yaml:"projects"`
	Rules    []string       `yaml:"rules"`
	Excludes []string       `yaml:"excludes"`
	Path     string         `yaml:"-"`
}

// Load reads and validates a config file, filling defaulted rule and
// exclude patterns.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path

	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules
	}
	if len(cfg.Excludes) == 0 {
		cfg.Excludes = DefaultExcludes
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Projects) < 2 {
		return ErrTooFewProjects
	}
	for i, p := range c.Projects {
		if p.Path == "" {
			return fmt.Errorf("projects[%d]: path is required", i)
		}
	}
	return nil
}

// DiscoverProjects resolves config entries into ProjectInfo values.
// Display names default to the directory basename and must be unique.
// Entries whose directory does not exist are dropped with a warning; a
// run still needs at least two surviving projects.
func (c *Config) DiscoverProjects() ([]sync.ProjectInfo, error) {
	seen := make(map[string]string, len(c.Projects))
	projects := make([]sync.ProjectInfo, 0, len(c.Projects))

	for _, entry := range c.Projects {
		path, err := utils.ResolvePath(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", entry.Path, err)
		}

		name := entry.Name
		if name == "" {
			name = filepath.Base(path)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate project name %q (%s and %s)", name, prev, path)
		}
		seen[name] = path

		if !utils.DirExists(path) {
			slog.Warn("project directory missing, dropped from run", "project", name, "path", path)
			continue
		}

		projects = append(projects, sync.ProjectInfo{Name: name, Path: path})
	}

	if len(projects) < 2 {
		return nil, ErrTooFewProjects
	}
	return projects, nil
}
