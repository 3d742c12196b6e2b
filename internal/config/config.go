// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file read from the site root.
const DefaultFile = "config.yaml"

// EnvPrefix prefixes the environment variables that override directories.
const EnvPrefix = "SKILLET_"

// Site holds the site-wide options from the config file, merged over the
// built-in defaults. Keys that are not recognised land in Extra and are
// handed to templates under `site`.
type Site struct {
	ContentDir      string     `yaml:"content_dir"`
	TemplateDir     string     `yaml:"template_dir"`
	OutputDir       string     `yaml:"output_dir"`
	MediaDir        string     `yaml:"media_dir"`
	Title           string     `yaml:"site_title"`
	URLPattern      string     `yaml:"url_pattern"`
	URLIncludeIndex bool       `yaml:"url_include_index"`
	RelativeURLs    bool       `yaml:"relative_urls"`
	Sanitize        bool       `yaml:"sanitize"`
	Authors         StringList `yaml:"authors"`
	Author          StringList `yaml:"author"`
	Hooks           []string   `yaml:"hooks"`
	StoryFile       string     `yaml:"story_file"`

	Extra map[string]any `yaml:",inline"`
}

// Defaults returns the built-in options.
func Defaults() *Site {
	return &Site{
		ContentDir:      "content",
		TemplateDir:     "templates",
		OutputDir:       "output",
		MediaDir:        "media",
		Title:           "Untitled skillet site",
		URLPattern:      "/{category}/{slug}{page}.{ext}",
		URLIncludeIndex: true,
		RelativeURLs:    false,
		Sanitize:        true,
		StoryFile:       "site.biff",
		Extra:           map[string]any{},
	}
}

// Load reads the YAML config at path and merges it over Defaults. A missing
// file is not an error: the defaults are returned. A .env file next to the
// config is loaded first and SKILLET_* variables override directory keys.
func Load(path string) (*Site, error) {
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}

	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}
	if cfg.Extra == nil {
		cfg.Extra = map[string]any{}
	}

	cfg.applyEnv()
	if len(cfg.Authors) == 0 {
		cfg.Authors = cfg.Author
	}
	return cfg, nil
}

func (s *Site) applyEnv() {
	overrides := map[string]*string{
		"CONTENT_DIR":  &s.ContentDir,
		"TEMPLATE_DIR": &s.TemplateDir,
		"OUTPUT_DIR":   &s.OutputDir,
		"MEDIA_DIR":    &s.MediaDir,
	}
	for key, field := range overrides {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			*field = v
		}
	}
}

// StringList accepts either a YAML sequence of strings or a single
// comma-separated string.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*l = nil
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*l = raw
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}
