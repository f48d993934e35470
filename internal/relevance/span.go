// Package relevance provides the shared, pack-agnostic relevance primitives
// used by benchmark packs and metrics: line-span math, path matching, token
// similarity, and dialog-id extraction.
package relevance

// LineSpan is a 1-indexed inclusive line range.
type LineSpan struct {
	Start int
	End   int
}

// Valid reports whether the span describes a usable range.
func (s LineSpan) Valid() bool {
	return s.Start > 0 && s.End >= s.Start
}

// Len returns the number of lines covered.
func (s LineSpan) Len() int {
	if !s.Valid() {
		return 0
	}
	return s.End - s.Start + 1
}

// SpansOverlap reports whether two 1-indexed inclusive spans intersect.
func SpansOverlap(a, b LineSpan) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return a.Start <= b.End && b.Start <= a.End
}

// SpanIoU computes intersection-over-union of two line spans.
// Returns 0 on no overlap or invalid spans.
func SpanIoU(a, b LineSpan) float64 {
	if !SpansOverlap(a, b) {
		return 0
	}
	lo := a.Start
	if b.Start > lo {
		lo = b.Start
	}
	hi := a.End
	if b.End < hi {
		hi = b.End
	}
	inter := hi - lo + 1
	union := a.Len() + b.Len() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
