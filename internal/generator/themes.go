// Package generator produces draft post content with the Claude API.
package generator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme is one entry of the content theme catalogue.
type Theme struct {
	ID      string `yaml:"id"`
	Theme   string `yaml:"theme"`
	Context string `yaml:"context"`
}

type themesFile struct {
	Themes []Theme `yaml:"themes"`
}

// LoadThemes reads the theme catalogue from a YAML file.
func LoadThemes(path string) ([]Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes file: %w", err)
	}

	var f themesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse themes file: %w", err)
	}
	if len(f.Themes) == 0 {
		return nil, fmt.Errorf("themes file %s contains no themes", path)
	}
	for i, t := range f.Themes {
		if t.ID == "" || t.Theme == "" {
			return nil, fmt.Errorf("theme entry %d is missing id or theme", i)
		}
	}
	return f.Themes, nil
}
