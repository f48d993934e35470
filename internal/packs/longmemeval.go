package packs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/llm"
	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// LongMemEvalPack evaluates long-horizon chat-memory QA: an answering model
// responds from retrieved history, then a judge model grades with a
// question-type-specific yes/no rubric.
type LongMemEvalPack struct {
	client      llm.Client
	answerModel string
	judgeModel  string
}

// NewLongMemEvalPack creates the pack with its default models.
func NewLongMemEvalPack(client llm.Client) *LongMemEvalPack {
	return &LongMemEvalPack{
		client:      client,
		answerModel: "openai/gpt-4o-mini",
		judgeModel:  "openai/gpt-4o",
	}
}

// BenchmarkName implements Pack.
func (p *LongMemEvalPack) BenchmarkName() string { return "longmemeval" }

// PackID implements Pack.
func (p *LongMemEvalPack) PackID() string { return "longmemeval@1.0.0" }

// SealedSemantics implements Pack.
func (p *LongMemEvalPack) SealedSemantics() config.SealedFacets {
	return config.SealedFacets{Prompts: true, Scoring: true, Relevance: true}
}

const lmeAnswerTemplate = `You are a helpful assistant with access to the user's past conversations.

Past conversations:
%s

Based only on the conversations above, answer the question.
Question: %s

If the conversations do not contain the information needed, say that you do not have that information. Answer:`

// BuildAnswerPrompt implements Pack.
func (p *LongMemEvalPack) BuildAnswerPrompt(item types.BenchmarkItem, retrieved []types.SearchResult) (Prompt, bool) {
	return NewPrompt(fmt.Sprintf(lmeAnswerTemplate, renderHistory(retrieved), item.Question)), true
}

// BuildJudgePrompt implements Pack. The rubric varies by question type:
// temporal questions tolerate a one-day difference, knowledge-update questions
// require the most recent fact, abstention items grade the refusal itself.
func (p *LongMemEvalPack) BuildJudgePrompt(item types.BenchmarkItem, answer string) (Prompt, bool) {
	var rubric string
	switch {
	case isAbstention(item):
		rubric = `The question is unanswerable from the conversation history. Does the response correctly indicate that the information is not available, rather than fabricating an answer? Answer yes or no.`
	case item.QuestionType == "temporal-reasoning":
		rubric = `Does the response contain the same date or duration as the correct answer? A difference of one day is acceptable (the conversation timestamps are approximate). Answer yes or no.`
	case item.QuestionType == "knowledge-update":
		rubric = `The user updated this fact over time. Does the response reflect the most recent value, matching the correct answer? An answer that only states the outdated value is wrong. Answer yes or no.`
	case item.QuestionType == "single-session-preference":
		rubric = `Does the response respect and reflect the user's stated preference in the correct answer? Answer yes or no.`
	default:
		rubric = `Does the response contain the information in the correct answer? Wording may differ. Answer yes or no.`
	}

	text := fmt.Sprintf(`You are grading a model response against a reference.

Question: %s
Correct answer: %s
Model response: %s

%s`, item.Question, item.Answer, answer, rubric)
	return NewPrompt(text), true
}

// Evaluate implements Pack.
func (p *LongMemEvalPack) Evaluate(ctx context.Context, in Input) (Result, error) {
	var tel types.Telemetry

	answerPrompt, _ := p.BuildAnswerPrompt(in.Item, in.Retrieved)
	start := time.Now()
	resp, err := p.client.GenerateText(ctx, llm.Request{Model: p.answerModel, Prompt: answerPrompt.Text})
	tel.AnswerLatencyMS = float64(time.Since(start).Milliseconds())
	if err != nil {
		return Result{}, fmt.Errorf("longmemeval: answering model: %w", err)
	}
	tel.PromptTokens += resp.PromptTokens
	tel.AnswerTokens += resp.CompletionTokens
	answer := strings.TrimSpace(resp.Text)

	judgePrompt, _ := p.BuildJudgePrompt(in.Item, answer)
	start = time.Now()
	verdict, err := p.client.GenerateText(ctx, llm.Request{Model: p.judgeModel, Prompt: judgePrompt.Text})
	tel.JudgeLatencyMS = float64(time.Since(start).Milliseconds())
	if err != nil {
		return Result{}, fmt.Errorf("longmemeval: judge model: %w", err)
	}
	tel.PromptTokens += verdict.PromptTokens
	tel.AnswerTokens += verdict.CompletionTokens

	correct := parseYesNo(verdict.Text)
	score := 0.0
	if correct {
		score = 1.0
	}
	return Result{
		Answer:        answer,
		Score:         score,
		Correct:       correct,
		JudgeResponse: strings.TrimSpace(verdict.Text),
		Telemetry:     tel,
	}, nil
}

// IsRelevant implements Pack. Evidence ids are matched when the loader
// provided them; otherwise the bounded answer-text fallback applies.
func (p *LongMemEvalPack) IsRelevant(item types.BenchmarkItem, result types.SearchResult) bool {
	evidence := types.MetaStrings(item.Metadata, "evidence")
	return relevance.EvidenceMatch(evidence, item.Answer, result)
}

// isAbstention follows the dataset convention of an "_abs" item-id suffix.
func isAbstention(item types.BenchmarkItem) bool {
	if strings.HasSuffix(item.ID, "_abs") {
		return true
	}
	if v, ok := item.Metadata["isAbstention"].(bool); ok {
		return v
	}
	return false
}

// renderHistory joins retrieved sessions, prefixing each with its date when
// known so temporal questions stay answerable.
func renderHistory(retrieved []types.SearchResult) string {
	if len(retrieved) == 0 {
		return "(no relevant conversations found)"
	}
	var b strings.Builder
	for i, r := range retrieved {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if date := types.MetaString(r.Metadata, "date"); date != "" {
			fmt.Fprintf(&b, "[Conversation from %s]\n", date)
		}
		b.WriteString(r.Content)
	}
	return b.String()
}

// parseYesNo interprets a yes/no judge verdict.
func parseYesNo(text string) bool {
	v := strings.ToLower(strings.TrimSpace(text))
	v = strings.TrimLeft(v, " \t\n.:,")
	return strings.HasPrefix(v, "yes")
}
