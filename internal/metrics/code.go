package metrics

import (
	"fmt"

	"github.com/ashikshafi08/memorybench-sub000/internal/relevance"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// targetFiles reads the ground-truth file list for code-retrieval rows.
func targetFiles(meta map[string]interface{}) []string {
	if files := types.MetaStrings(meta, "modifiedFiles"); len(files) > 0 {
		return files
	}
	return types.MetaStrings(meta, "groundTruthFiles")
}

// resultPath reads the file path of one retrieved unit.
func resultPath(meta map[string]interface{}) string {
	if p := types.MetaString(meta, "filepath"); p != "" {
		return p
	}
	if p := types.MetaString(meta, "path"); p != "" {
		return p
	}
	return types.MetaString(meta, "file")
}

func fileRecallAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("file_recall_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("file_recall@%d", k)},
		Description: fmt.Sprintf("Mean fraction of ground-truth files covered in the top %d", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				targets := targetFiles(r.Metadata)
				if len(targets) == 0 {
					continue
				}
				covered := 0
				for _, target := range targets {
					for _, sr := range topK(r.Retrieved, k) {
						if relevance.PathsMatch(resultPath(sr.Metadata), target) {
							covered++
							break
						}
					}
				}
				scores = append(scores, float64(covered)/float64(len(targets)))
			}
			return types.MetricResult{
				Name:    name,
				Value:   mean(scores),
				Details: map[string]interface{}{"items": len(scores)},
			}
		},
	}
}

// fileMRRCalc ranks over unique files: duplicate retrievals of one file do
// not push later files down.
func fileMRRCalc() *Calculator {
	return &Calculator{
		Name:        "file_mrr",
		Description: "Mean reciprocal rank of the first ground-truth file, over unique files",
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				targets := targetFiles(r.Metadata)
				if len(targets) == 0 {
					continue
				}

				rr := 0.0
				seen := map[string]struct{}{}
				rank := 0
				for _, sr := range r.Retrieved {
					path := resultPath(sr.Metadata)
					if path == "" {
						continue
					}
					if _, dup := seen[path]; dup {
						continue
					}
					seen[path] = struct{}{}
					rank++
					if matchesAny(path, targets) {
						rr = 1.0 / float64(rank)
						break
					}
				}
				scores = append(scores, rr)
			}
			return types.MetricResult{Name: "file_mrr", Value: mean(scores)}
		},
	}
}

func matchesAny(path string, targets []string) bool {
	for _, target := range targets {
		if relevance.PathsMatch(path, target) {
			return true
		}
	}
	return false
}

// iouAtKCalc measures localization quality: the best span IoU among top-K
// results that landed in the ground-truth file. Details expose the quartiles
// of the per-item distribution.
func iouAtKCalc(k int) *Calculator {
	name := fmt.Sprintf("iou_at_%d", k)
	return &Calculator{
		Name:        name,
		Aliases:     []string{fmt.Sprintf("iou@%d", k)},
		Description: fmt.Sprintf("Mean best line-span IoU in the top %d, within the target file", k),
		Compute: func(in ComputeInput) types.MetricResult {
			var scores []float64
			for _, r := range in.Results {
				gt := types.MetaMap(r.Metadata, "groundTruth")
				file := types.MetaString(gt, "file")
				if file == "" {
					continue
				}
				start, okS := types.MetaInt(gt, "startLine")
				end, okE := types.MetaInt(gt, "endLine")
				if !okS || !okE {
					continue
				}
				target := relevance.LineSpan{Start: start, End: end}

				best := 0.0
				for _, sr := range topK(r.Retrieved, k) {
					if !relevance.PathsMatch(resultPath(sr.Metadata), file) {
						continue
					}
					s, okS := types.MetaInt(sr.Metadata, "startLine")
					e, okE := types.MetaInt(sr.Metadata, "endLine")
					if !okS || !okE {
						continue
					}
					if iou := relevance.SpanIoU(relevance.LineSpan{Start: s, End: e}, target); iou > best {
						best = iou
					}
				}
				scores = append(scores, best)
			}
			return types.MetricResult{
				Name:  name,
				Value: mean(scores),
				Details: map[string]interface{}{
					"p25": percentile(scores, 25),
					"p50": percentile(scores, 50),
					"p75": percentile(scores, 75),
				},
			}
		},
	}
}
