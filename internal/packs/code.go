package packs

import (
	"context"
	"fmt"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Code pack scoring modes.
const (
	codeScoreLineRange  = "line-range"
	codeScoreJaccard    = "jaccard-snippet"
	codeScoreCrossFile  = "cross-file"
	codeScoreFileRecall = "file-recall"
)

// codePackSpec is one row of the code-pack factory table.
type codePackSpec struct {
	benchmark string
	version   string
	mode      string
	// iouThreshold, when positive, tightens line-range matching from
	// any-overlap to IoU >= threshold.
	iouThreshold float64
	// jaccardThreshold applies to snippet matching.
	jaccardThreshold float64
}

// codePackSpecs declares the four built-in code-retrieval variants.
var codePackSpecs = []codePackSpec{
	{benchmark: "coderet-line", version: "1.0.0", mode: codeScoreLineRange},
	{benchmark: "coderet-snippet", version: "1.0.0", mode: codeScoreJaccard, jaccardThreshold: 0.7},
	{benchmark: "coderet-crossfile", version: "1.0.0", mode: codeScoreCrossFile},
	{benchmark: "coderet-filerecall", version: "1.0.0", mode: codeScoreFileRecall},
}

// CodePack scores code-retrieval benchmarks deterministically from the
// ground-truth metadata attached by the loader. No model calls are made.
type CodePack struct {
	spec codePackSpec
}

func newCodePack(spec codePackSpec) *CodePack {
	return &CodePack{spec: spec}
}

// BenchmarkName implements Pack.
func (p *CodePack) BenchmarkName() string { return p.spec.benchmark }

// PackID implements Pack.
func (p *CodePack) PackID() string { return p.spec.benchmark + "@" + p.spec.version }

// SealedSemantics implements Pack.
func (p *CodePack) SealedSemantics() config.SealedFacets {
	return config.SealedFacets{Scoring: true, Relevance: true}
}

// BuildAnswerPrompt implements Pack. Deterministic scoring, no prompts.
func (p *CodePack) BuildAnswerPrompt(types.BenchmarkItem, []types.SearchResult) (Prompt, bool) {
	return Prompt{}, false
}

// BuildJudgePrompt implements Pack.
func (p *CodePack) BuildJudgePrompt(types.BenchmarkItem, string) (Prompt, bool) {
	return Prompt{}, false
}

// Evaluate implements Pack.
func (p *CodePack) Evaluate(_ context.Context, in Input) (Result, error) {
	switch p.spec.mode {
	case codeScoreLineRange:
		return p.scoreLineRange(in), nil
	case codeScoreJaccard:
		return p.scoreJaccard(in), nil
	case codeScoreCrossFile:
		return p.scoreFileCoverage(in, "dependencyFiles", "dependency"), nil
	case codeScoreFileRecall:
		return p.scoreFileCoverage(in, "modifiedFiles", "modified"), nil
	}
	return Result{}, fmt.Errorf("code pack %s: unknown scoring mode %q", p.PackID(), p.spec.mode)
}

// scoreLineRange checks whether any retrieved chunk lands in the target file
// with a span overlapping the ground-truth span.
func (p *CodePack) scoreLineRange(in Input) Result {
	file, span, ok := groundTruthTarget(in.Item)
	if !ok {
		return Result{Reasoning: "no ground-truth location on item"}
	}

	hits := 0
	for _, unit := range retrievedUnits(in.Retrieved) {
		if p.lineRangeHit(unit, file, span) {
			hits++
		}
	}
	if hits == 0 {
		return Result{
			Answer:    fmt.Sprintf("Found 0 relevant chunk(s) in top-%d", len(in.Retrieved)),
			Reasoning: fmt.Sprintf("no retrieved chunk overlaps %s:%d-%d", file, span.Start, span.End),
		}
	}
	return Result{
		Answer:    fmt.Sprintf("Found %d relevant chunk(s) in top-%d", hits, len(in.Retrieved)),
		Score:     1.0,
		Correct:   true,
		Reasoning: fmt.Sprintf("%d chunk(s) overlap %s:%d-%d", hits, file, span.Start, span.End),
	}
}

func (p *CodePack) lineRangeHit(unit retrievedUnit, file string, span relevance.LineSpan) bool {
	if !relevance.PathsMatch(unit.path, file) {
		return false
	}
	if !unit.span.Valid() {
		// File match without span information still counts for any-overlap
		// mode, never for a threshold.
		return p.spec.iouThreshold <= 0
	}
	if p.spec.iouThreshold > 0 {
		return relevance.SpanIoU(unit.span, span) >= p.spec.iouThreshold
	}
	return relevance.SpansOverlap(unit.span, span)
}

// scoreJaccard takes the best token-set similarity between any retrieved
// chunk and any gold snippet.
func (p *CodePack) scoreJaccard(in Input) Result {
	snippets := types.MetaStrings(in.Item.Metadata, "goldSnippets")
	if len(snippets) == 0 {
		return Result{Reasoning: "no gold snippets on item"}
	}

	best := 0.0
	for _, unit := range retrievedUnits(in.Retrieved) {
		for _, snippet := range snippets {
			if j := relevance.Jaccard(unit.content, snippet); j > best {
				best = j
			}
		}
	}
	correct := best >= p.spec.jaccardThreshold
	return Result{
		Answer:  fmt.Sprintf("Best snippet similarity %.3f", best),
		Score:   best,
		Correct: correct,
		Reasoning: fmt.Sprintf("best Jaccard similarity %.3f over %d gold snippet(s), threshold %.1f",
			best, len(snippets), p.spec.jaccardThreshold),
	}
}

// scoreFileCoverage computes the fraction of target files represented in the
// retrieved set. Duplicate retrievals of a file count once. Any non-zero
// coverage counts as found.
func (p *CodePack) scoreFileCoverage(in Input, metaKey, label string) Result {
	targets := types.MetaStrings(in.Item.Metadata, metaKey)
	if len(targets) == 0 {
		return Result{Reasoning: fmt.Sprintf("no %s files on item", label)}
	}

	units := retrievedUnits(in.Retrieved)
	covered := 0
	for _, target := range targets {
		for _, unit := range units {
			if relevance.PathsMatch(unit.path, target) {
				covered++
				break
			}
		}
	}
	frac := float64(covered) / float64(len(targets))
	return Result{
		Answer:  fmt.Sprintf("Retrieved %d of %d %s file(s)", covered, len(targets), label),
		Score:   frac,
		Correct: covered > 0,
		Reasoning: fmt.Sprintf("%d of %d %s file(s) covered (%.1f%%)",
			covered, len(targets), label, frac*100),
	}
}

// IsRelevant implements Pack.
func (p *CodePack) IsRelevant(item types.BenchmarkItem, result types.SearchResult) bool {
	units := retrievedUnits([]types.SearchResult{result})
	switch p.spec.mode {
	case codeScoreLineRange:
		file, span, ok := groundTruthTarget(item)
		if !ok {
			return false
		}
		for _, unit := range units {
			if p.lineRangeHit(unit, file, span) {
				return true
			}
		}
	case codeScoreJaccard:
		for _, snippet := range types.MetaStrings(item.Metadata, "goldSnippets") {
			for _, unit := range units {
				if relevance.Jaccard(unit.content, snippet) >= p.spec.jaccardThreshold {
					return true
				}
			}
		}
	case codeScoreCrossFile:
		return anyPathMatch(units, types.MetaStrings(item.Metadata, "dependencyFiles"))
	case codeScoreFileRecall:
		return anyPathMatch(units, types.MetaStrings(item.Metadata, "modifiedFiles"))
	}
	return false
}

func anyPathMatch(units []retrievedUnit, targets []string) bool {
	for _, target := range targets {
		for _, unit := range units {
			if relevance.PathsMatch(unit.path, target) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// RETRIEVED UNITS
// =============================================================================

// retrievedUnit is the scoring granularity: an inner chunk when the provider
// returns chunks, otherwise the whole result.
type retrievedUnit struct {
	path    string
	span    relevance.LineSpan
	content string
}

func retrievedUnits(results []types.SearchResult) []retrievedUnit {
	var units []retrievedUnit
	for _, r := range results {
		if len(r.Chunks) > 0 {
			for _, c := range r.Chunks {
				units = append(units, unitFromMeta(c.Metadata, c.Content))
			}
			continue
		}
		units = append(units, unitFromMeta(r.Metadata, r.Content))
	}
	return units
}

func unitFromMeta(meta map[string]interface{}, content string) retrievedUnit {
	path := types.MetaString(meta, "filepath")
	if path == "" {
		path = types.MetaString(meta, "path")
	}
	if path == "" {
		path = types.MetaString(meta, "file")
	}
	unit := retrievedUnit{path: path, content: content}
	if start, ok := types.MetaInt(meta, "startLine"); ok {
		if end, ok := types.MetaInt(meta, "endLine"); ok {
			unit.span = relevance.LineSpan{Start: start, End: end}
		}
	}
	return unit
}

// groundTruthTarget reads the {file, startLine, endLine} location from item
// metadata.
func groundTruthTarget(item types.BenchmarkItem) (string, relevance.LineSpan, bool) {
	gt := types.MetaMap(item.Metadata, "groundTruth")
	if gt == nil {
		return "", relevance.LineSpan{}, false
	}
	file := types.MetaString(gt, "file")
	if file == "" {
		return "", relevance.LineSpan{}, false
	}
	span := relevance.LineSpan{}
	if start, ok := types.MetaInt(gt, "startLine"); ok {
		if end, ok := types.MetaInt(gt, "endLine"); ok {
			span = relevance.LineSpan{Start: start, End: end}
		}
	}
	return file, span, true
}
