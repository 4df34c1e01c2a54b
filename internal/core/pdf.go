package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"longevity-advisor/pkg"
)

// PDFRenderer converts a text file into a PDF.
type PDFRenderer interface {
	Render(ctx context.Context, src, dst, caption string) error
}

// ReportStore records generated reports.
type ReportStore interface {
	SavePDFReport(ctx context.Context, userID, path string) (int64, error)
}

// Notifier announces stored reports.
type Notifier interface {
	Notify(ctx context.Context, payload string) error
}

// DownloadPrefix is the URL prefix reports are served under.
const DownloadPrefix = "/api/download-pdf/"

// PDFWriter renders final reports into the output directory.
type PDFWriter struct {
	Renderer PDFRenderer
	Dir      string
	Store    ReportStore
	Notifier Notifier

	now func() time.Time
}

// Write renders text and returns the report reference, or nil when
// rendering failed. Recording the report runs in the background.
func (w *PDFWriter) Write(ctx context.Context, userID, text string) *pkg.PDFInfo {
	if w == nil || w.Renderer == nil {
		return nil
	}
	info, err := w.write(ctx, userID, text)
	if err != nil {
		slog.Error("pdf generation failed", "user", userID, "error", err)
		return nil
	}
	if userID != "" && w.Store != nil {
		go w.record(userID, info.PDFPath)
	}
	return info
}

func (w *PDFWriter) write(ctx context.Context, userID, text string) (*pkg.PDFInfo, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	uid := userID
	if uid == "" {
		uid = "anon"
	}
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	id := fmt.Sprintf("%s_%d_%s", uid, now().UnixMilli(), uuid.NewString()[:8])
	txtPath := filepath.Join(w.Dir, "report_"+id+".txt")
	pdfName := "longevity_report_" + id + ".pdf"
	pdfPath := filepath.Join(w.Dir, pdfName)

	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write report text: %w", err)
	}
	defer os.Remove(txtPath)

	caption := "Health Management Report - Generated: " + now().Format("1/2/2006, 3:04:05 PM")
	if err := w.Renderer.Render(ctx, txtPath, pdfPath, caption); err != nil {
		return nil, err
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("pdf not created: %w", err)
	}
	return &pkg.PDFInfo{Success: true, PDFPath: pdfPath, PDFURL: DownloadPrefix + pdfName}, nil
}

// record stores the report row and notifies listeners. Failures are logged.
func (w *PDFWriter) record(userID, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := w.Store.SavePDFReport(ctx, userID, path)
	if err != nil {
		slog.Error("failed to record pdf report", "user", userID, "error", err)
		return
	}
	if w.Notifier != nil {
		if err := w.Notifier.Notify(ctx, fmt.Sprint(id)); err != nil {
			slog.Warn("pdf report notify failed", "report", id, "error", err)
		}
	}
}
