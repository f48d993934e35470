package relevance

import (
	"regexp"
	"strings"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// dialogIDPattern matches dataset-native dialog identifiers like "D12:3".
var dialogIDPattern = regexp.MustCompile(`D\d+:\d+`)

// ctxidPrefix matches the optional "[CTXID:id1,id2]" marker embedded at the
// start of chunk content. Providers that drop context metadata still carry
// identity through this tier-2 channel.
var ctxidPrefix = regexp.MustCompile(`^\s*\[CTXID:([^\]]+)\]`)

// ParseCTXID extracts the ids from a leading [CTXID:...] marker and returns
// them with the remaining content. Returns nil ids when no marker is present.
func ParseCTXID(content string) ([]string, string) {
	m := ctxidPrefix.FindStringSubmatchIndex(content)
	if m == nil {
		return nil, content
	}
	raw := content[m[2]:m[3]]
	rest := strings.TrimLeft(content[m[1]:], " ")
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids, rest
}

// DialogIDs extracts dialog ids from a search result by trying, in order:
// provider metadata (tier 1), a [CTXID:...] content prefix (tier 2), the
// chunk id itself (tier 3), and finally the raw content (tier 4). The first
// tier with any hits wins.
func DialogIDs(result types.SearchResult) []string {
	// Tier 1: provider metadata.
	if ids := dialogIDsFromMeta(result.Metadata); len(ids) > 0 {
		return ids
	}
	// Tier 2: CTXID content prefix.
	if ctxIDs, _ := ParseCTXID(result.Content); len(ctxIDs) > 0 {
		if ids := matchAll(strings.Join(ctxIDs, " ")); len(ids) > 0 {
			return ids
		}
	}
	// Tier 3: chunk id.
	if ids := matchAll(result.ID); len(ids) > 0 {
		return ids
	}
	// Tier 4: raw content.
	return matchAll(result.Content)
}

func dialogIDsFromMeta(meta map[string]interface{}) []string {
	for _, key := range []string{"dialogIds", "dialog_ids"} {
		if vals := types.MetaStrings(meta, key); len(vals) > 0 {
			var ids []string
			for _, v := range vals {
				ids = append(ids, matchAll(v)...)
			}
			if len(ids) > 0 {
				return ids
			}
		}
	}
	return nil
}

func matchAll(s string) []string {
	return dialogIDPattern.FindAllString(s, -1)
}

// EvidenceMatch reports whether the result carries any of the evidence
// dialog ids. Matching is exact set membership over the extracted ids; when
// every tier comes up empty, a bounded answer-text fallback applies.
func EvidenceMatch(evidence []string, answer string, result types.SearchResult) bool {
	ids := DialogIDs(result)
	if len(ids) > 0 {
		want := make(map[string]struct{}, len(evidence))
		for _, e := range evidence {
			want[e] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := want[id]; ok {
				return true
			}
		}
		return false
	}
	return AnswerTextFallback(answer, result.Content)
}

// shortAnswerLimit bounds the substring branch of the fallback: answers up
// to this many characters are checked by direct substring containment.
const shortAnswerLimit = 50

// AnswerTextFallback is the bounded last-resort relevance check used only
// when no dialog ids can be extracted from any tier. Short answers match by
// case-insensitive substring; long answers require at least half of their
// stemmed 3+-character keywords to appear in the content.
func AnswerTextFallback(answer, content string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" || content == "" {
		return false
	}
	if len(answer) <= shortAnswerLimit {
		return strings.Contains(strings.ToLower(content), strings.ToLower(answer))
	}

	keywords := stemmedKeywords(answer)
	if len(keywords) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, tok := range Tokenize(content) {
		if len(tok) >= 3 {
			have[PorterStem(tok)] = struct{}{}
		}
	}
	hits := 0
	for kw := range keywords {
		if _, ok := have[kw]; ok {
			hits++
		}
	}
	return float64(hits) >= 0.5*float64(len(keywords))
}

func stemmedKeywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if len(tok) >= 3 {
			out[PorterStem(tok)] = struct{}{}
		}
	}
	return out
}
