package scripts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func shRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{Python: "/bin/sh", Dir: t.TempDir(), Timeout: 5 * time.Second}
}

func TestRunJSONUsesLastLine(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, ScoreScript, `echo "loading model"
echo "scoring $1"
echo '{"resultPath":"out.csv","summary":{"p131894":52.5,"changOR":71}}'
`)
	p, err := (&Scorer{Runner: r}).Score(context.Background(), "in.xlsx")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if p.ResultPath != "out.csv" || p.Summary["p131894"] != 52.5 || len(p.Summary) != 2 {
		t.Fatalf("unexpected prediction %+v", p)
	}
}

func TestRunJSONNoOutput(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, ScoreScript, "exit 0\n")
	if _, err := (&Scorer{Runner: r}).Score(context.Background(), "in.xlsx"); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, LifestyleScript, "echo 'missing column' >&2\nexit 3\n")
	_, err := (&Lifestyle{Runner: r}).Assess(context.Background(), "in.xlsx")
	if err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestLifestyleUnsuccessful(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, LifestyleScript, `echo '{"success":false,"error":"no proteins"}'`+"\n")
	if _, err := (&Lifestyle{Runner: r}).Assess(context.Background(), "in.xlsx"); err == nil || !strings.Contains(err.Error(), "no proteins") {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	r := shRunner(t)
	r.Timeout = 50 * time.Millisecond
	writeScript(t, r.Dir, RetrieveScript, "sleep 5\n")
	_, err := NewLiterature(r, 1).Retrieve(context.Background(), "topic", "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRetrievePassesArgumentsVerbatim(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, RetrieveScript, `printf '  %s|%s  \n' "$1" "$2"`+"\n")
	got, err := NewLiterature(r, 2).Retrieve(context.Background(), "obesity_7_1_txt_res", "少吃; rm -rf $HOME")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != "obesity_7_1_txt_res|少吃; rm -rf $HOME" {
		t.Fatalf("Retrieve = %q", got)
	}
}

func TestLiteratureSemaphoreBoundsProcesses(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, RetrieveScript, "sleep 0.2\necho ok\n")
	lit := NewLiterature(r, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var done int32
	go func() {
		_, _ = lit.Retrieve(context.Background(), "t", "first")
		atomic.StoreInt32(&done, 1)
	}()
	time.Sleep(20 * time.Millisecond)
	if _, err := lit.Retrieve(ctx, "t", "second"); err == nil && atomic.LoadInt32(&done) == 0 {
		t.Fatal("second lookup ran while the first held the only slot")
	}
}

func TestPDFRenderChecksOutput(t *testing.T) {
	r := shRunner(t)
	writeScript(t, r.Dir, PDFScript, `cp "$1" "$2"`+"\n")
	src := filepath.Join(r.Dir, "report.txt")
	if err := os.WriteFile(src, []byte("report"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(r.Dir, "report.pdf")
	if err := (&PDF{Runner: r}).Render(context.Background(), src, dst, "caption"); err != nil {
		t.Fatalf("Render: %v", err)
	}

	writeScript(t, r.Dir, PDFScript, "exit 0\n")
	if err := (&PDF{Runner: r}).Render(context.Background(), src, filepath.Join(r.Dir, "none.pdf"), "c"); err == nil {
		t.Fatal("expected error when the renderer produces nothing")
	}
}
