package core

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
)

var numberedItem = regexp.MustCompile(`\[\d+\]`)

// scoreHeading is the score header without its Markdown level, which
// translators do not keep reliably.
var scoreHeading = strings.TrimLeft(report.ScoreHeader, "# ")

// Structure is what survived a translation hop.
type Structure struct {
	Banner      bool
	Items       int
	ScoreHeader bool
}

// CheckStructure inspects text for the final-report banner, the numbered
// items and the score header.
func CheckStructure(text string) Structure {
	return Structure{
		Banner:      strings.Contains(text, "最终建议反馈") || strings.Contains(strings.ToLower(text), "final recommendation"),
		Items:       len(numberedItem.FindAllStringIndex(text, -1)),
		ScoreHeader: strings.Contains(text, scoreHeading),
	}
}

// InWorkingLanguage reports whether text is mostly Chinese.
func InWorkingLanguage(text string) bool {
	var han, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	if han == 0 {
		return false
	}
	// one Han character carries roughly a word
	return han*4 >= latin
}

// RoundTrip moves answers between the model's language, the working language
// the pipeline understands and the delivery language shown to the user.
type RoundTrip struct {
	LLM     llm.Client
	Options llm.Options
}

// ToWorking translates an answer into the working language. Answers already
// in it, and answers whose translation fails, are returned unchanged.
func (rt *RoundTrip) ToWorking(ctx context.Context, text string) string {
	if rt == nil || rt.LLM == nil || strings.TrimSpace(text) == "" || InWorkingLanguage(text) {
		return text
	}
	out, err := rt.translate(ctx, ToWorkingPrompt(), text)
	if err != nil {
		slog.Warn("translation to working language failed", "error", err)
		return text
	}
	before, after := CheckStructure(text), CheckStructure(out)
	if before.Banner && !after.Banner {
		slog.Warn("final-report banner lost in translation to working language")
	}
	if after.Items < before.Items {
		slog.Warn("numbered items lost in translation", "before", before.Items, "after", after.Items)
	}
	return out
}

// ToDelivery translates the enriched report into the delivery language and
// restores the score section when the translation dropped it.
func (rt *RoundTrip) ToDelivery(ctx context.Context, text string, summary report.RiskSummary) string {
	out := text
	if rt != nil && rt.LLM != nil {
		translated, err := rt.translate(ctx, ToDeliveryPrompt(), text)
		if err != nil {
			slog.Warn("translation to delivery language failed", "error", err)
		} else {
			out = translated
		}
	}

	before, after := CheckStructure(text), CheckStructure(out)
	if before.Banner && !after.Banner {
		slog.Warn("final-report banner lost in translation")
	}
	if after.Items < before.Items {
		slog.Warn("numbered items lost in translation", "before", before.Items, "after", after.Items)
	}
	if len(summary) > 0 && !after.ScoreHeader {
		slog.Info("score section missing after translation, restoring")
		out = report.InsertBefore(out, DeliverySummaryAnchor, report.FormatHealthScores(summary))
	}
	return out
}

func (rt *RoundTrip) translate(ctx context.Context, system, text string) (string, error) {
	return rt.LLM.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: text},
	}, rt.Options)
}
