package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

const (
	classifyTextWindow      = 4000
	classifyOracleExcerpt   = 1500
	oracleConfidenceFloor   = 0.7
	oracleOperationClassify = "classify"
)

// RuleClassifier matches rubric keywords and extensions, escalating to an
// optional oracle when nothing matches. Unresolved documents become "other".
type RuleClassifier struct {
	registry *rubric.Registry
	ordered  []rubric.Definition
	oracle   ports.ClassificationOracle
	observer ports.PipelineObserver
}

// NewRuleClassifier builds the classifier. oracle and observer may be nil.
func NewRuleClassifier(
	registry *rubric.Registry,
	oracle ports.ClassificationOracle,
	observer ports.PipelineObserver,
) *RuleClassifier {
	return &RuleClassifier{
		registry: registry,
		ordered:  registry.Ordered(),
		oracle:   oracle,
		observer: observerOrNoop(observer),
	}
}

func (c *RuleClassifier) Classify(ctx context.Context, name, mediaType, text string) domain.Category {
	lowerName := strings.ToLower(name)
	window := strings.ToLower(truncateRunes(text, classifyTextWindow))
	ext := domain.FileExtension(name, mediaType)

	best, bestScore := domain.CategoryOther, 0
	for _, def := range c.ordered {
		// strict ">" keeps the earlier category on ties
		if score := matchScore(def, lowerName, window, ext); score > bestScore {
			best, bestScore = def.Category, score
		}
	}
	if bestScore > 0 {
		return best
	}
	return c.escalate(ctx, name, text)
}

// matchScore counts keyword hits in the name and text window. The extension
// only adds to a category that already has a keyword hit, so an accepted
// extension alone never decides the category.
func matchScore(def rubric.Definition, lowerName, lowerText, ext string) int {
	score := 0
	for _, kw := range def.Keywords {
		if strings.Contains(lowerName, kw) {
			score++
		}
		if lowerText != "" && strings.Contains(lowerText, kw) {
			score++
		}
	}
	if score > 0 && def.AcceptsExtension(ext) {
		score++
	}
	return score
}

func (c *RuleClassifier) escalate(ctx context.Context, name, text string) domain.Category {
	if c.oracle == nil {
		return domain.CategoryOther
	}

	answer, err := c.oracle.ClassifyDocument(ctx, name, truncateRunes(text, classifyOracleExcerpt))
	if err != nil {
		c.observer.OracleFallback(oracleOperationClassify)
		slog.Warn("classification_oracle_failed", "file", name, "error", err)
		return domain.CategoryOther
	}

	category, ok := domain.ParseCategory(answer.Category)
	if !ok || category == domain.CategoryOther {
		slog.Info("classification_oracle_unknown_label", "file", name, "label", answer.Category)
		return domain.CategoryOther
	}
	if _, registered := c.registry.Lookup(category); !registered {
		slog.Info("classification_oracle_unregistered_label", "file", name, "label", category)
		return domain.CategoryOther
	}
	if answer.Confidence <= oracleConfidenceFloor {
		slog.Info("classification_oracle_low_confidence", "file", name, "label", category, "confidence", answer.Confidence)
		return domain.CategoryOther
	}
	return category
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
