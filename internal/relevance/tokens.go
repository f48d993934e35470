package relevance

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases the text, replaces non-word runes with spaces, and
// splits on whitespace. Word runes are letters, digits, and underscore.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// TokenSet returns the distinct tokens of the text.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard computes token-set similarity |A∩B| / |A∪B|.
// Both sides empty yields 1.0; exactly one side empty yields 0.
func Jaccard(a, b string) float64 {
	sa, sb := TokenSet(a), TokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// TokenF1 computes the token-multiset F1 between a predicted and a reference
// text. Tokens are counted with multiplicity, as in the SQuAD-style QA score.
func TokenF1(predicted, reference string) float64 {
	pred := Tokenize(predicted)
	ref := Tokenize(reference)
	if len(pred) == 0 && len(ref) == 0 {
		return 1.0
	}
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	refCounts := make(map[string]int, len(ref))
	for _, tok := range ref {
		refCounts[tok]++
	}
	common := 0
	for _, tok := range pred {
		if refCounts[tok] > 0 {
			refCounts[tok]--
			common++
		}
	}
	if common == 0 {
		return 0
	}
	precision := float64(common) / float64(len(pred))
	recall := float64(common) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

// ExpectedTokenCoverage returns the fraction of the expected text's distinct
// tokens present in the candidate text. Used by recall-style metrics so that
// a large chunk containing the whole answer is not penalized for its size.
func ExpectedTokenCoverage(expected, candidate string) float64 {
	want := TokenSet(expected)
	if len(want) == 0 {
		return 0
	}
	have := TokenSet(candidate)
	covered := 0
	for tok := range want {
		if _, ok := have[tok]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(want))
}

var articles = map[string]struct{}{"a": {}, "an": {}, "the": {}}

// NormalizeAnswer normalizes a QA answer for token-level comparison:
// lower-case, strip punctuation and commas, drop English articles, and
// Porter-stem each remaining token.
func NormalizeAnswer(text string) []string {
	toks := Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if _, isArticle := articles[tok]; isArticle {
			continue
		}
		out = append(out, PorterStem(tok))
	}
	return out
}

// NormalizedF1 computes token F1 over NormalizeAnswer outputs.
func NormalizedF1(predicted, reference string) float64 {
	pred := NormalizeAnswer(predicted)
	ref := NormalizeAnswer(reference)
	if len(pred) == 0 && len(ref) == 0 {
		return 1.0
	}
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	refCounts := make(map[string]int, len(ref))
	for _, tok := range ref {
		refCounts[tok]++
	}
	common := 0
	for _, tok := range pred {
		if refCounts[tok] > 0 {
			refCounts[tok]--
			common++
		}
	}
	if common == 0 {
		return 0
	}
	precision := float64(common) / float64(len(pred))
	recall := float64(common) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}
