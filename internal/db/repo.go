package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"longevity-advisor/internal/report"
	"longevity-advisor/pkg"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrPhoneTaken is returned when registering an existing phone number.
	ErrPhoneTaken = errors.New("db: phone already registered")
)

const uniqueViolation = "23505"

// Repository wraps database operations for accounts, uploads, predictions
// and generated reports. The caller is responsible for managing the DB
// connection lifecycle.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// CreateUser inserts an account and returns its id.
func (r *Repository) CreateUser(ctx context.Context, phone, passwordHash string, age int, gender string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (phone, password, age, gender)
         VALUES ($1, $2, $3, $4)
         RETURNING id`,
		phone, passwordHash, age, gender,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrPhoneTaken
	}
	return id, err
}

// GetCredentials returns the id and password hash registered for phone.
func (r *Repository) GetCredentials(ctx context.Context, phone string) (int64, string, error) {
	var (
		id   int64
		hash string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, password FROM users WHERE phone = $1`, phone,
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	return id, hash, err
}

// CreateUserFile records an uploaded spreadsheet.
func (r *Repository) CreateUserFile(ctx context.Context, userID, path string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO user_files (user_id, file_path) VALUES ($1, $2) RETURNING id`,
		nullableUserID(userID), path,
	).Scan(&id)
	return id, err
}

// SavePrediction stores a scoring run.
func (r *Repository) SavePrediction(ctx context.Context, userID, srcPath string, p *report.Prediction) error {
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO prediction_results (user_id, src_file_path, result_file_path, summary_json)
         VALUES ($1, $2, $3, $4)`,
		nullableUserID(userID), srcPath, p.ResultPath, string(summary),
	)
	return err
}

// SavePDFReport records a generated PDF.
func (r *Repository) SavePDFReport(ctx context.Context, userID, path string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO pdf_reports (user_id, pdf_path) VALUES ($1, $2) RETURNING id`,
		nullableUserID(userID), path,
	).Scan(&id)
	return id, err
}

// ListPDFReports returns the most recent reports of a user, newest first.
func (r *Repository) ListPDFReports(ctx context.Context, userID string, limit int) ([]pkg.PDFReport, error) {
	uid := nullableUserID(userID)
	if uid == nil {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, pdf_path, created_at
         FROM pdf_reports
         WHERE user_id = $1
         ORDER BY created_at DESC
         LIMIT $2`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.PDFReport
	for rows.Next() {
		var p pkg.PDFReport
		if err := rows.Scan(&p.ID, &p.PDFPath, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// nullableUserID maps a request user id to a BIGINT parameter. Anonymous or
// malformed ids are stored as NULL.
func nullableUserID(userID string) any {
	id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return id
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
