package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RiskSummary maps a disease code (as reported by the scoring engine) to a
// score between 0 and 100. A higher score means a lower risk.
type RiskSummary map[string]float64

// Prediction is the output of the disease-risk scoring engine.
type Prediction struct {
	ResultPath string      `json:"resultPath"`
	Summary    RiskSummary `json:"summary"`
}

// Disease names one scored condition in both languages.
type Disease struct {
	Code    string
	Chinese string
	English string
}

// OverallCode is the summary key of the overall health score.
const OverallCode = "changOR"

// TargetThreshold is the score below which a disease must be covered by the
// final report.
const TargetThreshold = 86

// ScoreHeader opens the health-score section in every language.
const ScoreHeader = "### Your health score:"

var diseases = []Disease{
	{"p130700", "甲状腺毒症", "Thyroid toxicosis"},
	{"p130706", "胰岛素依赖型糖尿病", "Insulin-dependent diabetes"},
	{"p130708", "非胰岛素依赖型糖尿病", "Non-insulin-dependent diabetes"},
	{"p130792", "肥胖症", "Obesity"},
	{"p130828", "其他体液、电解质及酸碱平衡紊乱", "Other fluid, electrolyte, and acid-base disorders"},
	{"p131288", "高血压性心脏病", "Hypertensive heart disease"},
	{"p131296", "心绞痛", "Angina pectoris"},
	{"p131298", "急性心肌梗死", "Acute myocardial infarction"},
	{"p131306", "慢性缺血性心脏病", "Chronic ischemic heart disease"},
	{"p131310", "其他肺源性心脏病", "Other pulmonary heart disease"},
	{"p131380", "动脉粥样硬化", "Atherosclerosis"},
	{"p131848", "血清阳性型类风湿性关节炎", "Seropositive rheumatoid arthritis"},
	{"p131894", "系统性红斑狼疮", "Systemic lupus erythematosus"},
	{"p131900", "结缔组织其他系统性病变", "Other systemic connective-tissue disorders"},
	{"p132032", "慢性肾功能衰竭", "Chronic kidney failure"},
	{"p132092", "男性生殖器官其他疾病", "Other male genital organ disorders"},
	{"p132132", "子宫其他非炎症性病变（宫颈除外）", "Other non-inflammatory uterine disorders (excluding cervix)"},
	{OverallCode, "总健康评分", "Overall health score"},
}

var diseaseByCode = func() map[string]Disease {
	m := make(map[string]Disease, len(diseases))
	for _, d := range diseases {
		m[d.Code] = d
	}
	return m
}()

// LookupDisease resolves a summary key. Keys are matched on their last seven
// characters, so "pred_p131894" resolves to p131894. Unknown codes come back
// with the code as both names.
func LookupDisease(key string) Disease {
	code := key
	if len(code) > 7 {
		code = code[len(code)-7:]
	}
	if d, ok := diseaseByCode[code]; ok {
		return d
	}
	return Disease{Code: code, Chinese: code, English: code}
}

// Glossary lists English = Chinese disease name pairs for translation prompts.
func Glossary() []string {
	out := make([]string, 0, len(diseases))
	for _, d := range diseases {
		if d.Code == OverallCode {
			continue
		}
		out = append(out, strings.ToLower(d.English)+" = "+d.Chinese)
	}
	return out
}

// Keys returns the summary keys in a stable order.
func (s RiskSummary) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RiskLevel maps a score to the Chinese risk label used in prompts.
// Scores are inverted: a low score is a high risk.
func RiskLevel(score float64) string {
	switch s := math.Round(score); {
	case s <= 60:
		return "高"
	case s <= 85:
		return "中"
	default:
		return "低"
	}
}

// RiskText renders the summary as "name[score，level]" pairs for the
// interview prompt.
func (s RiskSummary) RiskText() string {
	parts := make([]string, 0, len(s))
	for _, k := range s.Keys() {
		v := s[k]
		parts = append(parts, fmt.Sprintf("%s[%d，%s]", LookupDisease(k).Chinese, int(math.Round(v)), RiskLevel(v)))
	}
	return strings.Join(parts, " ")
}

// TargetDiseases returns the diseases that must be covered because their
// score is below TargetThreshold. The overall score is never a target.
func (s RiskSummary) TargetDiseases() []Disease {
	var out []Disease
	for _, k := range s.Keys() {
		if k == OverallCode || s[k] >= TargetThreshold {
			continue
		}
		out = append(out, LookupDisease(k))
	}
	return out
}

// FormatHealthScores renders the health-score section with English names.
func FormatHealthScores(s RiskSummary) string {
	lines := make([]string, 0, len(s))
	for _, k := range s.Keys() {
		lines = append(lines, LookupDisease(k).English+": "+strconv.FormatFloat(s[k], 'f', -1, 64)+"/100")
	}
	return "\n\n" + ScoreHeader + "\n" + strings.Join(lines, "\n") + "\n"
}

// InsertBefore places section immediately before the first occurrence of
// anchor, or appends it when anchor is absent.
func InsertBefore(text, anchor, section string) string {
	if anchor != "" && strings.Contains(text, anchor) {
		return strings.Replace(text, anchor, section+"\n"+anchor, 1)
	}
	return text + section
}
