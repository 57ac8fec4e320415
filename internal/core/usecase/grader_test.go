package usecase

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
)

func sumCriteria(scores map[string]float64) float64 {
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum
}

func TestFallbackGradeIsDeterministicAndConsistent(t *testing.T) {
	grader := NewRubricGrader(rubric.Default(), nil, nil)
	texts := []string{
		"",
		"short note",
		strings.Repeat("demonstrated excellent work ", 40),
		strings.Repeat("a", 501),
		"Professional quality",
	}

	for _, def := range rubric.Default().Ordered() {
		for _, text := range texts {
			first := grader.Grade(context.Background(), def.Category, text, "doc.pdf")
			second := grader.Grade(context.Background(), def.Category, text, "doc.pdf")
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("fallback is not deterministic for %s: %+v vs %+v", def.Category, first, second)
			}
			if !first.Scored || first.GradedBy != domain.GradedByFallback {
				t.Fatalf("expected scored fallback result, got %+v", first)
			}
			if math.Abs(first.TotalScore-sumCriteria(first.CriteriaScores)) > 0.01 {
				t.Fatalf("total %v != sum of criteria %v", first.TotalScore, sumCriteria(first.CriteriaScores))
			}
			if first.TotalScore > first.MaxScore*1.01 || first.TotalScore < 0 {
				t.Fatalf("total %v outside [0, %v]", first.TotalScore, first.MaxScore)
			}
			if len(first.CriteriaScores) != len(def.Criteria) {
				t.Fatalf("expected %d criteria, got %v", len(def.Criteria), first.CriteriaScores)
			}
			if !strings.HasPrefix(first.Feedback, "Fallback (non-AI) assessment") {
				t.Fatalf("feedback must state fallback, got %q", first.Feedback)
			}
		}
	}
}

func TestFallbackGradeHeuristics(t *testing.T) {
	def, _ := rubric.Default().Lookup(domain.CategoryEssay)

	tests := []struct {
		name      string
		text      string
		wantTotal float64
		wantEach  float64
	}{
		{name: "base", text: "short", wantTotal: 50, wantEach: 12.5},
		{name: "quality word", text: "excellent", wantTotal: 65, wantEach: 16.25},
		{name: "long", text: strings.Repeat("b", 600), wantTotal: 75, wantEach: 18.75},
		{name: "long with quality", text: strings.Repeat("b", 600) + " quality", wantTotal: 90, wantEach: 22.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FallbackGrade(def, tc.text)
			if got.TotalScore != tc.wantTotal {
				t.Fatalf("TotalScore = %v, want %v", got.TotalScore, tc.wantTotal)
			}
			for name, v := range got.CriteriaScores {
				if v != tc.wantEach {
					t.Fatalf("criterion %s = %v, want %v", name, v, tc.wantEach)
				}
			}
		})
	}
}

func TestFallbackGradeTranscriptWeights(t *testing.T) {
	def, _ := rubric.Default().Lookup(domain.CategoryTranscript)

	got := FallbackGrade(def, "")
	if got.CriteriaScores["gpa"] != 30 || got.CriteriaScores["course_rigor"] != 20 {
		t.Fatalf("unexpected criteria: %v", got.CriteriaScores)
	}
	if got.TotalScore != 50 || got.MaxScore != 100 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestGradeUnscoredCategory(t *testing.T) {
	oracle := &scoringOracleFake{}
	grader := NewRubricGrader(rubric.Default(), oracle, nil)

	got := grader.Grade(context.Background(), domain.CategoryOther, "anything", "misc.txt")
	if got.Scored {
		t.Fatalf("other must not be scored: %+v", got)
	}
	if got.TotalScore != 0 || got.MaxScore != rubric.DefaultMaxScore || len(got.CriteriaScores) != 0 {
		t.Fatalf("unexpected unscored result: %+v", got)
	}
	if !strings.Contains(got.Feedback, "not scored") {
		t.Fatalf("feedback should say not scored, got %q", got.Feedback)
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle must not be called for unscored categories")
	}
}

func TestGradeWithOracle(t *testing.T) {
	oracle := &scoringOracleFake{answer: domain.OracleScore{
		CriteriaScores: map[string]float64{"gpa": 55.556, "course_rigor": 30, "ignored": 10},
		Feedback:       "  Strong record.  ",
	}}
	grader := NewRubricGrader(rubric.Default(), oracle, nil)

	got := grader.Grade(context.Background(), domain.CategoryTranscript, "gpa 3.9", "transcript.pdf")
	if got.GradedBy != domain.GradedByOracle || !got.Scored {
		t.Fatalf("expected oracle result, got %+v", got)
	}
	if got.CriteriaScores["gpa"] != 55.56 || got.CriteriaScores["course_rigor"] != 30 {
		t.Fatalf("unexpected criteria: %v", got.CriteriaScores)
	}
	if _, ok := got.CriteriaScores["ignored"]; ok {
		t.Fatalf("unknown criteria must be dropped: %v", got.CriteriaScores)
	}
	if got.TotalScore != 85.56 {
		t.Fatalf("TotalScore = %v, want 85.56", got.TotalScore)
	}
	if got.Feedback != "Strong record." {
		t.Fatalf("Feedback = %q", got.Feedback)
	}
}

func TestGradeFallsBackOnOracleFailure(t *testing.T) {
	tests := []struct {
		name   string
		answer domain.OracleScore
		err    error
	}{
		{name: "unavailable", err: domain.WrapError(domain.ErrOracleUnavailable, "score", errors.New("connection refused"))},
		{name: "timeout", err: domain.WrapError(domain.ErrOracleTimeout, "score", errors.New("deadline"))},
		{name: "missing criterion", answer: domain.OracleScore{CriteriaScores: map[string]float64{"strength": 40}}},
		{name: "above maximum", answer: domain.OracleScore{CriteriaScores: map[string]float64{"strength": 40, "specificity": 51}}},
		{name: "negative", answer: domain.OracleScore{CriteriaScores: map[string]float64{"strength": -1, "specificity": 20}}},
		{name: "not a number", answer: domain.OracleScore{CriteriaScores: map[string]float64{"strength": math.NaN(), "specificity": 20}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			observer := newObserverFake()
			grader := NewRubricGrader(rubric.Default(), &scoringOracleFake{answer: tc.answer, err: tc.err}, observer)

			got := grader.Grade(context.Background(), domain.CategoryLetterOfRecommendation, "I recommend", "letter.pdf")
			if got.GradedBy != domain.GradedByFallback {
				t.Fatalf("expected fallback, got %+v", got)
			}
			if got.TotalScore != 50 {
				t.Fatalf("TotalScore = %v, want 50", got.TotalScore)
			}
			if observer.fallbacks[oracleOperationScore] != 1 {
				t.Fatalf("expected fallback to be observed, got %v", observer.fallbacks)
			}
		})
	}
}
