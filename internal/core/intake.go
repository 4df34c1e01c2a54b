package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"longevity-advisor/internal/report"
	"longevity-advisor/internal/session"
	"longevity-advisor/pkg"
)

// ErrNoSample is returned when the sample spreadsheet is not installed.
var ErrNoSample = errors.New("sample file not found")

// Scorer runs the disease-risk scoring engine on a spreadsheet.
type Scorer interface {
	Score(ctx context.Context, path string) (*report.Prediction, error)
}

// FileStore records uploads and their scores.
type FileStore interface {
	CreateUserFile(ctx context.Context, userID, path string) (int64, error)
	SavePrediction(ctx context.Context, userID, srcPath string, p *report.Prediction) error
}

// Intake scores uploaded spreadsheets and primes the conversation with the
// result.
type Intake struct {
	Scorer     Scorer
	Files      FileStore
	Sessions   session.Store
	Locks      *session.Locks
	UploadDir  string
	SampleFile string
}

// UploadPath returns where an upload named name is stored.
func (in *Intake) UploadPath(name string) string {
	return filepath.Join(in.UploadDir, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(name)))
}

// UseSample copies the sample spreadsheet into the upload dir and ingests it.
func (in *Intake) UseSample(ctx context.Context, sessionID, userID string) (*pkg.UploadResponse, error) {
	if in.SampleFile == "" {
		return nil, ErrNoSample
	}
	if _, err := os.Stat(in.SampleFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSample
		}
		return nil, err
	}
	dst := filepath.Join(in.UploadDir, fmt.Sprintf("sample_%d_%s", time.Now().UnixMilli(), filepath.Base(in.SampleFile)))
	if err := copyFile(in.SampleFile, dst); err != nil {
		return nil, fmt.Errorf("copy sample: %w", err)
	}
	return in.Ingest(ctx, sessionID, userID, dst)
}

// Ingest scores the spreadsheet at path and stores the result in the
// session: the risk summary, the backup copy used for lifestyle scoring and
// the rebuilt system prompt.
func (in *Intake) Ingest(ctx context.Context, sessionID, userID, path string) (*pkg.UploadResponse, error) {
	var fileID int64
	if in.Files != nil {
		id, err := in.Files.CreateUserFile(ctx, userID, path)
		if err != nil {
			return nil, fmt.Errorf("record upload: %w", err)
		}
		fileID = id
	}

	// the scorer rewrites its input, the lifestyle engine needs the original
	backup := backupPath(path)
	if err := copyFile(path, backup); err != nil {
		return nil, fmt.Errorf("backup upload: %w", err)
	}

	pred, err := in.Scorer.Score(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("score upload: %w", err)
	}

	unlock := in.Locks.Lock(sessionID)
	defer unlock()
	st, err := in.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		st.UserID = userID
	}
	st.Summary = pred.Summary
	st.ResultPath = pred.ResultPath
	st.SourceFile = backup
	st.Prompt = BuildPrompt(pred.Summary)
	if err := in.Sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	slog.Info("upload scored", "session", sessionID, "diseases", len(pred.Summary), "targets", len(pred.Summary.TargetDiseases()))

	if in.Files != nil {
		if err := in.Files.SavePrediction(ctx, userID, path, pred); err != nil {
			return nil, fmt.Errorf("record prediction: %w", err)
		}
	}
	return &pkg.UploadResponse{
		Success:    true,
		Message:    "file processed",
		SrcFileID:  fileID,
		ResultPath: pred.ResultPath,
		Summary:    pred.Summary,
	}, nil
}

func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_original" + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
