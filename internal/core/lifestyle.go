package core

import (
	"context"
	"log/slog"
	"time"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
)

// LifestyleAssessor runs the lifestyle-risk engine on a spreadsheet.
type LifestyleAssessor interface {
	Assess(ctx context.Context, path string) (*report.LifestyleResult, error)
}

// LifestyleWriter builds the lifestyle section of a final report. Advice for
// all traits comes from one model call; missing advice falls back to a
// sentence per risk level.
type LifestyleWriter struct {
	Assessor LifestyleAssessor
	Advisor  llm.Client
	Options  llm.Options
	// AdviceTimeout bounds the advice call.
	AdviceTimeout time.Duration
}

// Section returns the rendered section for the spreadsheet at path, or ""
// when the engine fails or reports nothing.
func (w *LifestyleWriter) Section(ctx context.Context, path string) string {
	if w == nil || w.Assessor == nil || path == "" {
		return ""
	}
	res, err := w.Assessor.Assess(ctx, path)
	if err != nil {
		slog.Warn("lifestyle risk assessment failed", "file", path, "error", err)
		return ""
	}
	if res == nil || len(res.LifestyleRisks) == 0 {
		return ""
	}
	top := report.TopLifestyleRisks(res.LifestyleRisks, report.LifestyleTopN)
	return report.FormatLifestyleSection(top, w.advice(ctx, top))
}

func (w *LifestyleWriter) advice(ctx context.Context, top []report.LifestyleRisk) map[string]string {
	if w.Advisor == nil {
		return nil
	}
	if w.AdviceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.AdviceTimeout)
		defer cancel()
	}
	answer, err := w.Advisor.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: AdviceSystemPrompt},
		{Role: llm.RoleUser, Content: AdvicePrompt(top)},
	}, w.Options)
	if err != nil {
		slog.Warn("lifestyle advice failed, using fallback sentences", "error", err)
		return nil
	}
	m, err := report.ParseAdvice(answer)
	if err != nil {
		slog.Warn("lifestyle advice unreadable, using fallback sentences", "error", err)
		return nil
	}
	return m
}
