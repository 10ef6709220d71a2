package classify

import (
	"regexp"
	"strings"
)

// Segment is one unit produced by splitting a cell's text.
type Segment struct {
	Text      string
	IsSubunit bool
}

// Patterns that start a sub-item inside a multi-line cell: "a) ", "a. ",
// "1) ", or a bullet glyph.
var subItemLeadIns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]\)\s+`),
	regexp.MustCompile(`^[a-z]\.\s+`),
	regexp.MustCompile(`^\d+\)\s+`),
	regexp.MustCompile(`^[•\-\*]\s+`),
}

func startsSubItem(line string) bool {
	for _, re := range subItemLeadIns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// SegmentCell splits a raw cell's text into discrete question units when the
// cell encodes a parent statement plus lettered/numbered/bulleted sub-items.
// Non-matching lines append to the currently accumulating unit. If at most
// one unit accumulates the original text is returned whole, so ordinary
// multi-line prose never gets split. Whitespace-only input yields no units.
func SegmentCell(raw string) []Segment {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var units []string
	var current []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if startsSubItem(line) && len(current) > 0 {
			units = append(units, strings.Join(current, " "))
			current = []string{line}
		} else {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		units = append(units, strings.Join(current, " "))
	}

	if len(units) <= 1 {
		return []Segment{{Text: raw}}
	}

	segs := make([]Segment, len(units))
	for i, text := range units {
		segs[i] = Segment{Text: text, IsSubunit: i > 0}
	}
	return segs
}
