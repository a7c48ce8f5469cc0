package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kouho/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS resumes (
		filename TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source_path TEXT NOT NULL DEFAULT '',
		checksum TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resumes_source_path ON resumes(source_path);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertResume inserts a resume, or replaces text, source path and checksum when the
// filename exists. CreatedAt is kept on replace.
func (s *SQLiteStorage) UpsertResume(ctx context.Context, r *models.Resume) error {
	now := time.Now()
	r.UpdatedAt = now
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resumes (filename, text, source_path, checksum, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
		   text = excluded.text,
		   source_path = excluded.source_path,
		   checksum = excluded.checksum,
		   updated_at = excluded.updated_at`,
		r.Filename, r.Text, r.SourcePath, r.Checksum, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resume %s: %w", r.Filename, err)
	}
	return nil
}

// GetResume returns a resume by filename, or ErrNotFound.
func (s *SQLiteStorage) GetResume(ctx context.Context, filename string) (*models.Resume, error) {
	var r models.Resume
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, text, source_path, checksum, created_at, updated_at
		 FROM resumes WHERE filename = ?`, filename,
	).Scan(&r.Filename, &r.Text, &r.SourcePath, &r.Checksum, &r.CreatedAt, &r.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ResumeExists reports whether filename is stored.
func (s *SQLiteStorage) ResumeExists(ctx context.Context, filename string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM resumes WHERE filename = ?`, filename).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteResume removes a resume by filename and reports whether it existed.
func (s *SQLiteStorage) DeleteResume(ctx context.Context, filename string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resumes WHERE filename = ?`, filename)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListResumes returns all resumes ordered by filename.
func (s *SQLiteStorage) ListResumes(ctx context.Context) ([]*models.Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, text, source_path, checksum, created_at, updated_at
		 FROM resumes ORDER BY filename`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resumes []*models.Resume
	for rows.Next() {
		var r models.Resume
		if err := rows.Scan(&r.Filename, &r.Text, &r.SourcePath, &r.Checksum, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		resumes = append(resumes, &r)
	}
	return resumes, rows.Err()
}

// ListFilenames returns every stored filename in order.
func (s *SQLiteStorage) ListFilenames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM resumes ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountResumes returns the total number of resumes.
func (s *SQLiteStorage) CountResumes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
