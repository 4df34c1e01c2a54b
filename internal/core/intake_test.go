package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"longevity-advisor/internal/report"
	"longevity-advisor/internal/session"
)

func newIntake(t *testing.T, scorer Scorer) *Intake {
	t.Helper()
	return &Intake{
		Scorer:    scorer,
		Sessions:  session.NewMemoryStore(),
		Locks:     session.NewLocks(),
		UploadDir: t.TempDir(),
	}
}

func TestIngestPrimesSession(t *testing.T) {
	ctx := context.Background()
	scorer := &fakeScorer{pred: &report.Prediction{
		ResultPath: "/results/out.csv",
		Summary:    report.RiskSummary{"p131894": 40, "p130792": 90, report.OverallCode: 70},
	}}
	in := newIntake(t, scorer)
	path := in.UploadPath("data.xlsx")
	if !strings.HasSuffix(path, "_data.xlsx") {
		t.Fatalf("upload path = %q", path)
	}
	if err := os.WriteFile(path, []byte("proteins"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := in.Ingest(ctx, "s", "7", path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !resp.Success || resp.ResultPath != "/results/out.csv" || len(resp.Summary) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}

	backup := strings.TrimSuffix(path, ".xlsx") + "_original.xlsx"
	if b, err := os.ReadFile(backup); err != nil || string(b) != "proteins" {
		t.Fatalf("backup missing: %v", err)
	}
	if len(scorer.seen) != 1 || scorer.seen[0] != path {
		t.Fatalf("scorer saw %v", scorer.seen)
	}

	st, _ := in.Sessions.Get(ctx, "s")
	if st.SourceFile != backup || st.UserID != "7" || st.Summary["p131894"] != 40 {
		t.Fatalf("unexpected state %+v", st)
	}
	if !strings.Contains(st.Prompt, "系统性红斑狼疮[40，高]") || !strings.Contains(st.Prompt, "1. 系统性红斑狼疮\n") {
		t.Fatalf("prompt lacks risk text or target list:\n%s", st.Prompt)
	}
	_, targets, _ := strings.Cut(st.Prompt, "必须逐一覆盖的疾病清单")
	if strings.Contains(targets, "肥胖症") || strings.Contains(targets, "总健康评分") {
		t.Fatalf("target list names a disease that is not a target:\n%s", targets)
	}
}

func TestIngestScoringFailure(t *testing.T) {
	in := newIntake(t, &fakeScorer{err: errors.New("model file missing")})
	path := filepath.Join(in.UploadDir, "x.xlsx")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	if _, err := in.Ingest(context.Background(), "s", "", path); err == nil {
		t.Fatal("expected error")
	}
	st, _ := in.Sessions.Get(context.Background(), "s")
	if st.Summary != nil {
		t.Fatal("failed scoring must not touch the session")
	}
}

func TestUseSample(t *testing.T) {
	in := newIntake(t, &fakeScorer{pred: &report.Prediction{Summary: report.RiskSummary{"p130792": 90}}})
	if _, err := in.UseSample(context.Background(), "s", ""); !errors.Is(err, ErrNoSample) {
		t.Fatalf("expected ErrNoSample, got %v", err)
	}
	in.SampleFile = filepath.Join(t.TempDir(), "sample.xlsx")
	if _, err := in.UseSample(context.Background(), "s", ""); !errors.Is(err, ErrNoSample) {
		t.Fatalf("expected ErrNoSample for missing file, got %v", err)
	}
	if err := os.WriteFile(in.SampleFile, []byte("sample"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, err := in.UseSample(context.Background(), "s", "")
	if err != nil || !resp.Success {
		t.Fatalf("UseSample = %+v, %v", resp, err)
	}
	if b, _ := os.ReadFile(in.SampleFile); string(b) != "sample" {
		t.Fatal("sample file must not change")
	}
}
