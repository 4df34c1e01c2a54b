package report

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Marker is one known disease-risk phrase and the literature topic it maps to.
type Marker struct {
	Phrase   string `yaml:"phrase" json:"phrase"`
	TopicKey string `yaml:"topic" json:"topic"`
}

// MarkerMatch identifies one occurrence of a marker phrase inside a text.
// Start is a byte offset. Trailing holds the (up to) two runes following the
// phrase on the same line, which the model uses for the risk-level qualifier
// (较高/中等/较低).
type MarkerMatch struct {
	Marker   string `json:"marker"`
	Start    int    `json:"start"`
	TopicKey string `json:"topic_key"`
	Trailing string `json:"trailing"`
}

// End returns the offset just past the phrase and its trailing glyphs.
func (m MarkerMatch) End() int {
	return m.Start + len(m.Marker) + len(m.Trailing)
}

const trailingGlyphs = 2

// DefaultMarkers is the working-language marker table and the topic keys
// understood by the literature-retrieval engine.
var DefaultMarkers = []Marker{
	{Phrase: "您患甲状腺毒症的风险", TopicKey: "thyrotoxic_7_4_txt_res"},
	{Phrase: "您患胰岛素依赖型糖尿病的风险", TopicKey: "typ1_6_30_txt"},
	{Phrase: "您患非胰岛素依赖型糖尿病的风险", TopicKey: "type2_6_30txt"},
	{Phrase: "您患肥胖症的风险", TopicKey: "obesity_7_1_txt_res"},
	{Phrase: "您患高血压性心脏病的风险", TopicKey: "hpertensi_res"},
	{Phrase: "您患心绞痛的风险", TopicKey: "anginapcet_7_1_txt"},
	{Phrase: "您患急性心肌梗死的风险", TopicKey: "acutemyoca_7_1_txt_res"},
	{Phrase: "您患慢性缺血性心脏病的风险", TopicKey: "chronicisc_res_7_1_txt"},
	{Phrase: "您患其他肺源性心脏病的风险", TopicKey: "pulmonaryh_7_1_txt_res"},
	{Phrase: "您患动脉粥样硬化的风险", TopicKey: "atherosclerosis_7_1_txt_res"},
	{Phrase: "您患系统性红斑狼疮的风险", TopicKey: "systemiclu_7_1_txt_res"},
	{Phrase: "您患结缔组织其他系统性病变的风险", TopicKey: "systemic_involvement_of_connective_tissue_7_1_txt_res"},
	{Phrase: "您患慢性肾功能衰竭的风险", TopicKey: "chronicren_7_1_txt_res"},
	{Phrase: "您患男性生殖器官其他疾病的风险", TopicKey: "disorderso_res"},
}

// FindMarkers returns every occurrence of every marker phrase in text, sorted
// by start offset. When two phrases overlap the earlier one wins, and at the
// same offset the longer phrase wins.
func FindMarkers(text string, markers []Marker) []MarkerMatch {
	var found []MarkerMatch
	for _, mk := range markers {
		if mk.Phrase == "" {
			continue
		}
		from := 0
		for {
			idx := strings.Index(text[from:], mk.Phrase)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(mk.Phrase)
			found = append(found, MarkerMatch{
				Marker:   mk.Phrase,
				Start:    start,
				TopicKey: mk.TopicKey,
				Trailing: leadingRunes(text[end:], trailingGlyphs),
			})
			from = end
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return len(found[i].Marker) > len(found[j].Marker)
	})

	out := found[:0]
	limit := 0
	for _, m := range found {
		if len(out) > 0 && m.Start < limit {
			continue
		}
		out = append(out, m)
		limit = m.Start + len(m.Marker)
	}
	return out
}

// leadingRunes returns the first n runes of s. It stops early at the end of
// s, at a line break or at '[', so a marker written without a qualifier
// keeps its first item.
func leadingRunes(s string, n int) string {
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\n' || r == '\r' || r == '[' {
			break
		}
		i += size
	}
	return s[:i]
}
