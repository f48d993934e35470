package evaluator

import (
	"context"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
)

// ExactMatch compares the top retrieved content against the expected answer
// after answer normalization (lowercase, articles dropped, stemming). No model
// calls are made; the retrieved text itself is the candidate.
type ExactMatch struct{}

// Name implements Evaluator.
func (e *ExactMatch) Name() string { return "exact-match" }

// Evaluate implements Evaluator.
func (e *ExactMatch) Evaluate(_ context.Context, in Input) (Outcome, error) {
	actual := topContent(in)
	expected := strings.Join(relevance.NormalizeAnswer(in.Item.Answer), " ")
	got := strings.Join(relevance.NormalizeAnswer(actual), " ")

	correct := expected != "" && strings.Contains(got, expected)
	score := 0.0
	if correct {
		score = 1.0
	}
	return Outcome{Actual: actual, Score: score, Correct: correct}, nil
}

// TokenF1 scores the top retrieved content with normalized token F1 against
// the expected answer. Correct at F1 >= 0.5.
type TokenF1 struct{}

// Name implements Evaluator.
func (e *TokenF1) Name() string { return "token-f1" }

// Evaluate implements Evaluator.
func (e *TokenF1) Evaluate(_ context.Context, in Input) (Outcome, error) {
	actual := topContent(in)
	f1 := relevance.NormalizedF1(in.Item.Answer, actual)
	return Outcome{
		Actual:  actual,
		Score:   f1,
		Correct: f1 >= 0.5,
		Details: map[string]interface{}{"f1": f1},
	}, nil
}

func topContent(in Input) string {
	if len(in.Retrieved) == 0 {
		return ""
	}
	return in.Retrieved[0].Content
}
