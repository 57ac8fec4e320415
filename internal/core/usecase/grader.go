package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

const (
	gradeOracleExcerpt   = 4000
	oracleOperationScore = "score"

	fallbackBaseRatio     = 0.5
	fallbackLengthBonus   = 0.25
	fallbackQualityBonus  = 0.15
	fallbackLengthMinimum = 500

	scoreTolerance = 1e-6
)

var fallbackQualityWords = []string{"quality", "excellent", "professional", "demonstrated"}

// RubricGrader scores documents with an optional oracle and a deterministic fallback.
type RubricGrader struct {
	registry *rubric.Registry
	oracle   ports.ScoringOracle
	observer ports.PipelineObserver
}

// NewRubricGrader builds the grader. oracle and observer may be nil.
func NewRubricGrader(
	registry *rubric.Registry,
	oracle ports.ScoringOracle,
	observer ports.PipelineObserver,
) *RubricGrader {
	return &RubricGrader{
		registry: registry,
		oracle:   oracle,
		observer: observerOrNoop(observer),
	}
}

func (g *RubricGrader) Grade(ctx context.Context, category domain.Category, text, name string) domain.GradeResult {
	def, ok := g.registry.Lookup(category)
	if !ok {
		return domain.GradeResult{
			Category:       category,
			MaxScore:       g.registry.DefaultMaxScore(),
			CriteriaScores: map[string]float64{},
			Feedback:       fmt.Sprintf("Category %q is not scored.", category),
		}
	}

	if g.oracle != nil {
		result, err := g.gradeWithOracle(ctx, def, text)
		if err == nil {
			return result
		}
		g.observer.OracleFallback(oracleOperationScore)
		slog.Warn("scoring_oracle_fallback", "file", name, "category", category, "error", err)
	}
	return FallbackGrade(def, text)
}

func (g *RubricGrader) gradeWithOracle(ctx context.Context, def rubric.Definition, text string) (domain.GradeResult, error) {
	answer, err := g.oracle.ScoreDocument(ctx, def.Category, def, truncateRunes(text, gradeOracleExcerpt))
	if err != nil {
		return domain.GradeResult{}, err
	}

	criteria := make(map[string]float64, len(def.Criteria))
	var total float64
	for _, c := range def.Criteria {
		value, ok := answer.CriteriaScores[c.Name]
		if !ok {
			return domain.GradeResult{}, domain.WrapError(domain.ErrOracleMalformed, "validate oracle score", fmt.Errorf("criterion %q missing", c.Name))
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > c.Max+scoreTolerance {
			return domain.GradeResult{}, domain.WrapError(
				domain.ErrOracleMalformed,
				"validate oracle score",
				fmt.Errorf("criterion %q score %v outside [0, %v]", c.Name, value, c.Max),
			)
		}
		value = domain.Round2(math.Min(value, c.Max))
		criteria[c.Name] = value
		total += value
	}

	feedback := strings.TrimSpace(answer.Feedback)
	if feedback == "" {
		feedback = "No narrative feedback was returned."
	}

	return domain.GradeResult{
		Category:       def.Category,
		TotalScore:     domain.Round2(total),
		MaxScore:       def.MaxScore,
		CriteriaScores: criteria,
		Feedback:       feedback,
		GradedBy:       domain.GradedByOracle,
		Scored:         true,
	}, nil
}

// FallbackGrade is the deterministic, non-AI assessment. Each criterion gets the
// same ratio of its maximum: a base ratio plus bonuses for length and quality words.
func FallbackGrade(def rubric.Definition, text string) domain.GradeResult {
	length := utf8.RuneCountInString(strings.TrimSpace(text))
	lower := strings.ToLower(text)

	ratio := fallbackBaseRatio
	if length > fallbackLengthMinimum {
		ratio += fallbackLengthBonus
	}
	var found []string
	for _, word := range fallbackQualityWords {
		if strings.Contains(lower, word) {
			found = append(found, word)
		}
	}
	if len(found) > 0 {
		ratio += fallbackQualityBonus
	}
	ratio = math.Min(ratio, 1)

	criteria := make(map[string]float64, len(def.Criteria))
	var total float64
	for _, c := range def.Criteria {
		value := domain.Round2(ratio * c.Max)
		criteria[c.Name] = value
		total += value
	}

	indicators := "none"
	if len(found) > 0 {
		indicators = strings.Join(found, ", ")
	}

	return domain.GradeResult{
		Category:       def.Category,
		TotalScore:     domain.Round2(total),
		MaxScore:       def.MaxScore,
		CriteriaScores: criteria,
		Feedback: fmt.Sprintf(
			"Fallback (non-AI) assessment: %d characters of text, quality indicators: %s. Each criterion was estimated at %.0f%% of its maximum.",
			length, indicators, ratio*100,
		),
		GradedBy: domain.GradedByFallback,
		Scored:   true,
	}
}
