package scripts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/semaphore"

	"longevity-advisor/internal/report"
)

// Script names relative to Runner.Dir.
const (
	ScoreScript     = "predict_cli.py"
	LifestyleScript = "calculate_lifestyle_risk.py"
	RetrieveScript  = "ragmodel_select_code.py"
	PDFScript       = "pdfGeneration.py"
)

// Scorer runs the disease-risk scoring engine.
type Scorer struct {
	Runner *Runner
}

// Score scores the spreadsheet at path. The engine rewrites its input.
func (s *Scorer) Score(ctx context.Context, path string) (*report.Prediction, error) {
	var p report.Prediction
	if err := s.Runner.RunJSON(ctx, &p, ScoreScript, path); err != nil {
		return nil, err
	}
	if len(p.Summary) == 0 {
		return nil, fmt.Errorf("%s: empty summary", ScoreScript)
	}
	return &p, nil
}

// Lifestyle runs the lifestyle-risk engine.
type Lifestyle struct {
	Runner *Runner
}

// Assess returns the engine's traits for the spreadsheet at path.
func (l *Lifestyle) Assess(ctx context.Context, path string) (*report.LifestyleResult, error) {
	var res report.LifestyleResult
	if err := l.Runner.RunJSON(ctx, &res, LifestyleScript, path); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unsuccessful"
		}
		return nil, fmt.Errorf("%s: %s", LifestyleScript, res.Error)
	}
	return &res, nil
}

// Literature runs the retrieval engine. A weighted semaphore bounds the
// number of retrieval processes alive across all requests.
type Literature struct {
	Runner *Runner
	sem    *semaphore.Weighted
}

// NewLiterature returns a Literature bounded to limit concurrent processes.
func NewLiterature(r *Runner, limit int64) *Literature {
	if limit <= 0 {
		limit = 1
	}
	return &Literature{Runner: r, sem: semaphore.NewWeighted(limit)}
}

// Retrieve implements report.Retriever.
func (l *Literature) Retrieve(ctx context.Context, topicKey, query string) (string, error) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer l.sem.Release(1)
	}
	out, err := l.Runner.Run(ctx, RetrieveScript, topicKey, query)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PDF runs the PDF renderer.
type PDF struct {
	Runner *Runner
}

// Render converts the text file src into the PDF dst and checks that dst
// exists afterwards.
func (p *PDF) Render(ctx context.Context, src, dst, caption string) error {
	if _, err := p.Runner.Run(ctx, PDFScript, src, dst, caption); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: output %s not created", PDFScript, dst)
		}
		return err
	}
	return nil
}
