package grammar

import (
	"golang.org/x/exp/slices"
)

// Span marks Length code points starting at Offset.
type Span struct {
	Offset int
	Length int
}

// Run is a maximal piece of text that is either inside an error region or not.
type Run struct {
	Text    string
	IsError bool
}

// BuildRuns splits text into ordered runs. Spans are clamped to the text,
// overlapping or touching spans are merged, and the concatenation of the
// run texts always equals text.
func BuildRuns(text string, spans []Span) []Run {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	merged := mergeSpans(spans, len(runes))
	if len(merged) == 0 {
		return []Run{{Text: text}}
	}

	runs := make([]Run, 0, 2*len(merged)+1)
	cursor := 0
	for _, iv := range merged {
		if iv.start > cursor {
			runs = append(runs, Run{Text: string(runes[cursor:iv.start])})
		}
		runs = append(runs, Run{Text: string(runes[iv.start:iv.end]), IsError: true})
		cursor = iv.end
	}
	if cursor < len(runes) {
		runs = append(runs, Run{Text: string(runes[cursor:])})
	}
	return runs
}

type interval struct {
	start int
	end   int
}

func mergeSpans(spans []Span, textLen int) []interval {
	ivs := make([]interval, 0, len(spans))
	for _, s := range spans {
		if s.Length <= 0 {
			continue
		}
		start := max(s.Offset, 0)
		end := min(s.Offset+s.Length, textLen)
		if start >= end {
			continue
		}
		ivs = append(ivs, interval{start: start, end: end})
	}
	if len(ivs) == 0 {
		return nil
	}

	slices.SortFunc(ivs, func(a, b interval) int {
		return a.start - b.start
	})

	merged := ivs[:1]
	for _, iv := range ivs[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end {
			last.end = max(last.end, iv.end)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Spans converts matches into run builder input.
func Spans(matches []Match) []Span {
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{Offset: m.Offset, Length: m.Length})
	}
	return spans
}
