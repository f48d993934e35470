package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashikshafi08/memorybench-sub000/internal/llm"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// DefaultAnswerPrompt is the answering template used when the benchmark
// config does not supply one. Slots: {context}, {question}.
const DefaultAnswerPrompt = `Answer the question using only the provided context.

Context:
{context}

Question: {question}

Answer concisely. If the context does not contain enough information to answer, reply exactly: I don't know.`

// DefaultJudgePrompt is the grading template. Slots: {question}, {expected},
// {actual}.
const DefaultJudgePrompt = `You are grading a candidate answer against a reference answer.

Question: {question}
Reference answer: {expected}
Candidate answer: {actual}

The candidate is correct if it conveys the same fact as the reference, even with different wording. Reply with exactly one word: CORRECT or INCORRECT.`

// LLMJudge generates an answer from the retrieved context with the answering
// model, then grades it with the judge model. Both calls are timed and token
// counts accumulated into the outcome telemetry.
type LLMJudge struct {
	client llm.Client
}

// NewLLMJudge creates the two-stage LLM evaluator.
func NewLLMJudge(client llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

// Name implements Evaluator.
func (e *LLMJudge) Name() string { return "llm-judge" }

// Evaluate implements Evaluator.
func (e *LLMJudge) Evaluate(ctx context.Context, in Input) (Outcome, error) {
	answerModel := in.Eval.AnsweringModel
	if answerModel == "" {
		return Outcome{}, fmt.Errorf("llm-judge: evaluation.answering_model is required")
	}
	judgeModel := in.Eval.JudgeModel
	if judgeModel == "" {
		judgeModel = answerModel
	}

	answerPrompt := in.Eval.AnswerPrompt
	if answerPrompt == "" {
		answerPrompt = DefaultAnswerPrompt
	}
	judgePrompt := in.Eval.JudgePrompt
	if judgePrompt == "" {
		judgePrompt = DefaultJudgePrompt
	}

	var tel types.Telemetry

	prompt := renderSlots(answerPrompt, map[string]string{
		"context":  RenderContext(in.Retrieved),
		"question": in.Item.Question,
	})
	start := time.Now()
	answer, err := e.client.GenerateText(ctx, llm.Request{
		Model:       answerModel,
		Prompt:      prompt,
		Temperature: in.Eval.AnswerTemperature,
	})
	tel.AnswerLatencyMS = float64(time.Since(start).Milliseconds())
	if err != nil {
		return Outcome{}, fmt.Errorf("llm-judge: answering model: %w", err)
	}
	tel.PromptTokens += answer.PromptTokens
	tel.AnswerTokens += answer.CompletionTokens
	actual := strings.TrimSpace(answer.Text)

	grading := renderSlots(judgePrompt, map[string]string{
		"question": in.Item.Question,
		"expected": in.Item.Answer,
		"actual":   actual,
	})
	start = time.Now()
	verdict, err := e.client.GenerateText(ctx, llm.Request{
		Model:       judgeModel,
		Prompt:      grading,
		Temperature: in.Eval.JudgeTemperature,
	})
	tel.JudgeLatencyMS = float64(time.Since(start).Milliseconds())
	if err != nil {
		return Outcome{}, fmt.Errorf("llm-judge: judge model: %w", err)
	}
	tel.PromptTokens += verdict.PromptTokens
	tel.AnswerTokens += verdict.CompletionTokens

	correct := ParseVerdict(verdict.Text)
	score := 0.0
	if correct {
		score = 1.0
	}
	return Outcome{
		Actual:  actual,
		Score:   score,
		Correct: correct,
		Details: map[string]interface{}{
			"judgeVerdict": strings.TrimSpace(verdict.Text),
			"judgeModel":   judgeModel,
		},
		Telemetry: tel,
	}, nil
}

// ParseVerdict interprets a judge reply. INCORRECT is checked before CORRECT
// since the former contains the latter as a substring.
func ParseVerdict(text string) bool {
	v := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(v, "INCORRECT"), strings.HasPrefix(v, "NO"):
		return false
	case strings.HasPrefix(v, "CORRECT"), strings.HasPrefix(v, "YES"):
		return true
	}
	// Free-form replies: look for an unambiguous token.
	if strings.Contains(v, "INCORRECT") {
		return false
	}
	return strings.Contains(v, "CORRECT")
}

func renderSlots(tmpl string, slots map[string]string) string {
	out := tmpl
	for k, v := range slots {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
