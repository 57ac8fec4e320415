package rubric

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

type fileFormat struct {
	DefaultMaxScore float64      `yaml:"default_max_score"`
	Categories      []Definition `yaml:"categories"`
}

// LoadFile reads a YAML rubric file. An empty path yields the built-in registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric file %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML rubric document and validates it.
func Parse(raw []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc fileFormat
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidRubric, "parse rubric file", err)
	}
	if len(doc.Categories) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidRubric, "parse rubric file", fmt.Errorf("no categories defined"))
	}
	return New(doc.Categories, doc.DefaultMaxScore)
}
