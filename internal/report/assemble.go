package report

import "strings"

// Field labels of a rendered item. Translation prompts and the PDF layout
// depend on these exact strings.
const (
	CitationLabel  = "文献支持: "
	ReasoningLabel = "推理依据: "
	fieldIndent    = "   "
)

// EnrichedSegment is a marker occurrence with its annotated items.
type EnrichedSegment struct {
	Match MarkerMatch
	Items []EnrichedItem
}

// Assemble rebuilds the report text: the prefix, every segment in the given
// order, then the suffix.
func Assemble(prefix string, segments []EnrichedSegment, suffix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, seg := range segments {
		b.WriteString(seg.Match.Marker)
		b.WriteString(seg.Match.Trailing)
		b.WriteByte('\n')
		for _, it := range seg.Items {
			writeItem(&b, it)
		}
		b.WriteByte('\n')
	}
	b.WriteString(suffix)
	return b.String()
}

func writeItem(b *strings.Builder, it EnrichedItem) {
	b.WriteString("[" + it.Seq + "] " + it.Recommendation + ";\n")
	if it.Citation != "" {
		b.WriteString(fieldIndent + CitationLabel + it.Citation + "\n")
	}
	if it.Reasoning != "" {
		b.WriteString(fieldIndent + ReasoningLabel + it.Reasoning + "\n")
	}
	b.WriteByte('\n')
}
