package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// LifestyleRisk is one trait reported by the lifestyle-risk engine.
type LifestyleRisk struct {
	Trait      string  `json:"trait"`
	Percentile float64 `json:"percentile"`
	HealthRisk string  `json:"health_risk"`
	FinalScore float64 `json:"final_score"`
}

// LifestyleResult is the engine's full answer.
type LifestyleResult struct {
	Success        bool            `json:"success"`
	LifestyleRisks []LifestyleRisk `json:"lifestyle_risks"`
	Error          string          `json:"error,omitempty"`
}

// LifestyleTopN is the number of traits shown in the report.
const LifestyleTopN = 5

// LifestyleHeader opens the lifestyle section.
const LifestyleHeader = "## Lifestyle Risk Assessment"

// TopLifestyleRisks returns up to n traits with the highest percentile.
func TopLifestyleRisks(risks []LifestyleRisk, n int) []LifestyleRisk {
	sorted := append([]LifestyleRisk(nil), risks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Percentile > sorted[j].Percentile })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FormatLifestyleSection renders the traits with the advice found in
// adviceMap (trait name → sentence), falling back to a generic sentence per
// risk level.
func FormatLifestyleSection(top []LifestyleRisk, adviceMap map[string]string) string {
	var b strings.Builder
	b.WriteString("\n\n" + LifestyleHeader + "\n\n")
	b.WriteString(fmt.Sprintf("Based on your protein expression profile, here are the top %d lifestyle-related health factors that require attention:\n\n", len(top)))
	for _, r := range top {
		fmt.Fprintf(&b, "**%s**\n", r.Trait)
		fmt.Fprintf(&b, "- Risk Score: %.4f\n", r.FinalScore)
		fmt.Fprintf(&b, "- Percentile: %.2f\n", r.Percentile/100)
		fmt.Fprintf(&b, "- %s\n\n", AdviceForTrait(r.Trait, r.HealthRisk, adviceMap))
	}
	return b.String()
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func normalizeTrait(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "_")
}

// AdviceForTrait picks the advice whose key matches trait after
// normalization, in either direction of containment.
func AdviceForTrait(trait, riskLevel string, adviceMap map[string]string) string {
	name := normalizeTrait(trait)
	keys := make([]string, 0, len(adviceMap))
	for k := range adviceMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nk := normalizeTrait(k)
		if nk == "" || name == "" {
			continue
		}
		if strings.Contains(nk, name) || strings.Contains(name, nk) {
			return adviceMap[k]
		}
	}
	switch strings.ToLower(riskLevel) {
	case "high":
		return "This factor shows elevated levels. Consider consulting with a healthcare professional for personalized guidance."
	case "medium":
		return "This factor requires attention. Monitor regularly and consider lifestyle modifications for optimal health."
	default:
		return "This factor shows favorable levels. Continue maintaining your current healthy lifestyle habits."
	}
}

// ParseAdvice extracts the JSON object embedded in a model answer (possibly
// wrapped in a code fence). Non-string values are ignored.
func ParseAdvice(answer string) (map[string]string, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in advice answer")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(answer[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode advice: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}
