package document

// Span is a half-open byte range [Start, End) into the canonical source
// string. All offsets in the document model are measured against the same
// source, so spans from different nodes are directly comparable.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool { return s.End <= s.Start }

// ContainsOffset reports whether offset falls inside the span.
func (s Span) ContainsOffset(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// ContainsSpan reports whether other lies fully inside s. Every span
// contains itself.
func (s Span) ContainsSpan(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Overlaps reports whether the two spans share at least one byte. It is
// symmetric: a.Overlaps(b) == b.Overlaps(a).
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Slice returns the substring of source covered by the span.
func (s Span) Slice(source string) string {
	return source[s.Start:s.End]
}

// Clamp returns the span restricted to [0, limit], keeping Start <= End.
func (s Span) Clamp(limit int) Span {
	start := s.Start
	if start < 0 {
		start = 0
	}
	if start > limit {
		start = limit
	}
	end := s.End
	if end < start {
		end = start
	}
	if end > limit {
		end = limit
	}
	return Span{Start: start, End: end}
}
