package report

import (
	"strings"
)

// Item is one numbered recommendation extracted from a marker segment. Seq is
// the literal numbering token written by the model; it is a label, not an
// index, and may repeat or skip.
type Item struct {
	Seq            string `json:"seq"`
	Recommendation string `json:"recommendation"`
	Reasoning      string `json:"reasoning,omitempty"`
}

// Separator splits a recommendation from its reasoning.
const Separator = '|'

var reasoningLabels = []string{"推理依据：", "推理依据:", "推理：", "推理:", "reasoning:", "reasoning："}

// scanState is the position of the scanner inside a segment. Marker
// seeking happens before, in FindMarkers.
type scanState int

const (
	inSegment scanState = iota
	inItem
)

// Segment is the text owned by one marker occurrence.
type Segment struct {
	Match MarkerMatch
	Items []Item
}

// Document is a model answer split into its prefix, marker segments and
// any trailing section that follows the last recommendation.
type Document struct {
	Prefix   string
	Segments []Segment
	Suffix   string
}

// Parse splits text on the given marker matches (as returned by FindMarkers)
// and extracts the items of every segment.
func Parse(text string, matches []MarkerMatch) Document {
	doc := Document{Prefix: text}
	for i, m := range matches {
		if i == 0 {
			doc.Prefix = text[:m.Start]
		}
		next := len(text)
		if i+1 < len(matches) {
			next = matches[i+1].Start
		}
		if m.End() > next {
			m.Trailing = text[m.Start+len(m.Marker) : next]
		}
		items, rest := extract(text[m.End():next])
		doc.Segments = append(doc.Segments, Segment{Match: m, Items: items})
		if i == len(matches)-1 {
			doc.Suffix = rest
		}
	}
	return doc
}

// Extract returns the numbered items found in one segment, in the order they
// appear.
func Extract(segment string) []Item {
	items, _ := extract(segment)
	return items
}

// extract scans a segment for [token]content items. Content ends at the next
// '[' or at a line starting with '#'. Text from the first heading after the
// last item is returned as rest.
func extract(segment string) ([]Item, string) {
	var (
		items     []Item
		state     = inSegment
		seq       string
		body      strings.Builder
		restStart = -1
	)
	flush := func() {
		rec, reason := splitItem(body.String())
		items = append(items, Item{Seq: seq, Recommendation: rec, Reasoning: reason})
		seq = ""
		body.Reset()
	}

	i := 0
	for i < len(segment) {
		c := segment[i]
		switch state {
		case inSegment:
			if c == '[' {
				if tok, n := readToken(segment[i:]); n > 0 {
					seq = tok
					state = inItem
					restStart = -1
					i += n
					continue
				}
			}
			if c == '#' && restStart < 0 && len(items) > 0 && lineStart(segment, i) {
				restStart = i
			}
			i++
		case inItem:
			if c == '[' || (c == '#' && lineStart(segment, i)) {
				flush()
				state = inSegment
				continue
			}
			body.WriteByte(c)
			i++
		}
	}
	if state == inItem {
		flush()
	}
	if restStart < 0 {
		return items, ""
	}
	return items, segment[restStart:]
}

// readToken reads "[digits]" at the start of s. It returns the digits and the
// number of bytes consumed, or 0 when s does not open a valid token.
func readToken(s string) (string, int) {
	j := 1
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 1 || j >= len(s) || s[j] != ']' {
		return "", 0
	}
	return s[1:j], j + 1
}

func lineStart(s string, i int) bool {
	return i == 0 || s[i-1] == '\n'
}

// splitItem separates recommendation and reasoning and strips the terminator
// and label glyphs.
func splitItem(content string) (string, string) {
	rec, reason, _ := strings.Cut(strings.TrimSpace(content), string(Separator))
	rec = strings.TrimSpace(rec)
	rec = strings.TrimSuffix(rec, ";")
	rec = strings.TrimSuffix(rec, "；")
	rec = strings.TrimSpace(rec)
	reason = stripReasoningLabel(strings.TrimSpace(reason))
	return rec, reason
}

func stripReasoningLabel(s string) string {
	for _, label := range reasoningLabels {
		if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
			return strings.TrimSpace(s[len(label):])
		}
	}
	return s
}
