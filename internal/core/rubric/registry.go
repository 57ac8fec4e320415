// Package rubric holds the immutable category registry: classification rules and
// weighted scoring rubrics, validated once at startup.
package rubric

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

const (
	DefaultMaxScore = 100.0

	weightTolerance = 1e-6
	maxTolerance    = 0.01
)

type Criterion struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	Max    float64 `yaml:"max" json:"max"`
}

type Definition struct {
	Category   domain.Category `yaml:"category" json:"category"`
	Keywords   []string        `yaml:"keywords" json:"keywords"`
	Extensions []string        `yaml:"extensions" json:"extensions"`
	MaxScore   float64         `yaml:"max_score" json:"max_score"`
	Criteria   []Criterion     `yaml:"criteria" json:"criteria"`
}

// CriterionMax returns the maximum sub-score of the named criterion.
func (d Definition) CriterionMax(name string) (float64, bool) {
	for _, c := range d.Criteria {
		if c.Name == name {
			return c.Max, true
		}
	}
	return 0, false
}

// AcceptsExtension reports whether ext (with leading dot) is in the accepted set.
func (d Definition) AcceptsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	return ext != "" && slices.Contains(d.Extensions, ext)
}

func (d Definition) clone() Definition {
	out := d
	out.Keywords = slices.Clone(d.Keywords)
	out.Extensions = slices.Clone(d.Extensions)
	out.Criteria = slices.Clone(d.Criteria)
	return out
}

// Registry is safe for concurrent use; it is never mutated after New returns.
type Registry struct {
	defs       map[domain.Category]Definition
	defaultMax float64
}

// New validates and normalizes definitions. defaultMax is reported for unscored
// categories; zero selects DefaultMaxScore.
func New(defs []Definition, defaultMax float64) (*Registry, error) {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxScore
	}
	reg := &Registry{
		defs:       make(map[domain.Category]Definition, len(defs)),
		defaultMax: defaultMax,
	}
	for _, def := range defs {
		normalized, err := normalize(def)
		if err != nil {
			return nil, err
		}
		if _, dup := reg.defs[normalized.Category]; dup {
			return nil, domain.WrapError(domain.ErrInvalidRubric, "rubric registry", fmt.Errorf("duplicate category %q", normalized.Category))
		}
		reg.defs[normalized.Category] = normalized
	}
	return reg, nil
}

// Default returns the built-in scholarship rubric.
func Default() *Registry {
	reg, err := New(builtin(), DefaultMaxScore)
	if err != nil {
		panic(fmt.Sprintf("built-in rubric is invalid: %v", err))
	}
	return reg
}

func (r *Registry) Lookup(category domain.Category) (Definition, bool) {
	def, ok := r.defs[category]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

func (r *Registry) DefaultMaxScore() float64 {
	return r.defaultMax
}

// Ordered returns the registered definitions in classification priority order.
func (r *Registry) Ordered() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, category := range domain.ClassificationOrder {
		if def, ok := r.defs[category]; ok {
			out = append(out, def.clone())
		}
	}
	return out
}

func normalize(def Definition) (Definition, error) {
	fail := func(format string, args ...any) (Definition, error) {
		return Definition{}, domain.WrapError(
			domain.ErrInvalidRubric,
			fmt.Sprintf("rubric %q", def.Category),
			fmt.Errorf(format, args...),
		)
	}

	category, ok := domain.ParseCategory(string(def.Category))
	if !ok || category == domain.CategoryOther {
		return fail("category must be one of essay, transcript, letter_of_recommendation")
	}

	out := Definition{Category: category, MaxScore: def.MaxScore}
	for _, kw := range def.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(out.Keywords, kw) {
			out.Keywords = append(out.Keywords, kw)
		}
	}
	if len(out.Keywords) == 0 {
		return fail("at least one keyword is required")
	}
	for _, ext := range def.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(out.Extensions, ext) {
			out.Extensions = append(out.Extensions, ext)
		}
	}

	if out.MaxScore <= 0 {
		return fail("max_score must be positive, got %v", def.MaxScore)
	}
	if len(def.Criteria) == 0 {
		return fail("at least one criterion is required")
	}

	var weights, maxima float64
	seen := make(map[string]struct{}, len(def.Criteria))
	for _, c := range def.Criteria {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			return fail("criterion name is empty")
		}
		if _, dup := seen[name]; dup {
			return fail("duplicate criterion %q", name)
		}
		seen[name] = struct{}{}
		if c.Weight <= 0 || c.Max <= 0 {
			return fail("criterion %q needs positive weight and max", name)
		}
		if math.Abs(c.Weight*out.MaxScore-c.Max) > maxTolerance {
			return fail("criterion %q max %v does not match weight %v of max_score %v", name, c.Max, c.Weight, out.MaxScore)
		}
		weights += c.Weight
		maxima += c.Max
		out.Criteria = append(out.Criteria, Criterion{Name: name, Weight: c.Weight, Max: c.Max})
	}
	if math.Abs(weights-1) > weightTolerance {
		return fail("criterion weights sum to %v, want 1", weights)
	}
	if math.Abs(maxima-out.MaxScore) > maxTolerance*float64(len(out.Criteria)) {
		return fail("criterion maxima sum to %v, want %v", maxima, out.MaxScore)
	}
	return out, nil
}

func builtin() []Definition {
	return []Definition{
		{
			Category:   domain.CategoryEssay,
			Keywords:   []string{"essay", "personal statement"},
			Extensions: []string{".pdf", ".docx", ".txt"},
			MaxScore:   100,
			Criteria: []Criterion{
				{Name: "clarity", Weight: 0.25, Max: 25},
				{Name: "relevance", Weight: 0.25, Max: 25},
				{Name: "depth", Weight: 0.25, Max: 25},
				{Name: "grammar", Weight: 0.25, Max: 25},
			},
		},
		{
			Category:   domain.CategoryTranscript,
			Keywords:   []string{"transcript", "academic record", "gpa"},
			Extensions: []string{".pdf", ".xlsx"},
			MaxScore:   100,
			Criteria: []Criterion{
				{Name: "gpa", Weight: 0.6, Max: 60},
				{Name: "course_rigor", Weight: 0.4, Max: 40},
			},
		},
		{
			Category:   domain.CategoryLetterOfRecommendation,
			Keywords:   []string{"letter", "recommendation", "recommend", "reference"},
			Extensions: []string{".pdf", ".docx"},
			MaxScore:   100,
			Criteria: []Criterion{
				{Name: "strength", Weight: 0.5, Max: 50},
				{Name: "specificity", Weight: 0.5, Max: 50},
			},
		},
	}
}
