package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

func buildClassificationPrompt(name, excerpt string) string {
	labels := make([]string, 0, len(domain.ClassificationOrder)+1)
	for _, c := range domain.ClassificationOrder {
		labels = append(labels, string(c))
	}
	labels = append(labels, string(domain.CategoryOther))

	return fmt.Sprintf(`You classify documents submitted with a scholarship application.
Return strict JSON object with keys:
category (one of: %s), confidence (number from 0 to 1).
No markdown, no extra keys.

File name: %s

Document:
%s`, strings.Join(labels, ", "), name, excerpt)
}

func buildScoringPrompt(category domain.Category, def rubric.Definition, excerpt string) string {
	var criteria strings.Builder
	for _, c := range def.Criteria {
		fmt.Fprintf(&criteria, "- %s (weight %g): number from 0 to %g\n", c.Name, c.Weight, c.Max)
	}

	return fmt.Sprintf(`You grade a scholarship %s document against a rubric worth %g points.
Score every criterion below:
%s
Return strict JSON object with keys:
criteria_scores (object mapping each criterion name to its number), feedback (string, two or three sentences).
No markdown, no extra keys.

Document:
%s`, strings.ReplaceAll(string(category), "_", " "), def.MaxScore, criteria.String(), excerpt)
}
