package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

// sourceOverride mirrors domain.Source with optional fields so a file only
// has to mention what it changes.
type sourceOverride struct {
	Name               string   `yaml:"name"`
	Description        *string  `yaml:"description"`
	RequiresCapability *string  `yaml:"requires_capability"`
	Priority           *int     `yaml:"priority"`
	TimeoutSec         *int     `yaml:"timeout_sec"`
	RateLimit          *float64 `yaml:"rate_limit"`
	Enabled            *bool    `yaml:"enabled"`
	UseProxy           *bool    `yaml:"use_proxy"`
}

type overrideFile struct {
	Sources []sourceOverride `yaml:"sources"`
}

// LoadOverrides reads a YAML sources file and applies it on top of base.
// Unknown names are appended as new sources. The second result holds only
// the definitions the file mentions.
func LoadOverrides(path string, base []domain.Source) ([]domain.Source, []domain.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read sources file: %w", err)
	}
	return applyOverrides(data, base)
}

func ApplyOverrides(data []byte, base []domain.Source) ([]domain.Source, error) {
	all, _, err := applyOverrides(data, base)
	return all, err
}

func applyOverrides(data []byte, base []domain.Source) ([]domain.Source, []domain.Source, error) {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse sources file: %w", err)
	}

	out := make([]domain.Source, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Name] = i
	}

	var touchedIdx []int
	seen := make(map[int]bool, len(file.Sources))
	for _, o := range file.Sources {
		if o.Name == "" {
			return nil, nil, fmt.Errorf("parse sources file: entry without name")
		}
		i, ok := index[o.Name]
		if !ok {
			out = append(out, domain.Source{Name: o.Name, Enabled: true, Priority: 100})
			i = len(out) - 1
			index[o.Name] = i
		}
		o.apply(&out[i])
		if !seen[i] {
			seen[i] = true
			touchedIdx = append(touchedIdx, i)
		}
	}

	touched := make([]domain.Source, 0, len(touchedIdx))
	for _, i := range touchedIdx {
		touched = append(touched, out[i])
	}
	return out, touched, nil
}

func (o sourceOverride) apply(s *domain.Source) {
	if o.Description != nil {
		s.Description = *o.Description
	}
	if o.RequiresCapability != nil {
		s.RequiresCapability = *o.RequiresCapability
	}
	if o.Priority != nil {
		s.Priority = *o.Priority
	}
	if o.TimeoutSec != nil {
		s.TimeoutSec = *o.TimeoutSec
	}
	if o.RateLimit != nil {
		s.RateLimit = *o.RateLimit
	}
	if o.Enabled != nil {
		s.Enabled = *o.Enabled
	}
	if o.UseProxy != nil {
		s.UseProxy = *o.UseProxy
	}
}
