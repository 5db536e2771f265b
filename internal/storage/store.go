package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// Statistics summarizes the stored data.
type Statistics struct {
	TotalResults int            `json:"total_results"`
	ByStatus     map[string]int `json:"status_counts"`
	BySource     map[string]int `json:"source_counts"`
	ActiveJobs   int            `json:"active_jobs"`
}

// ResultStore defines the durable sink for scrape results and job
// definitions. Result inserts are append-only; a retried attempt
// writing again is acceptable.
type ResultStore interface {
	// InsertResult appends one result record and returns its row id.
	InsertResult(ctx context.Context, result *model.ScrapeResult) (int64, error)

	// ListResults returns result records, most recent first.
	ListResults(ctx context.Context, limit, offset int) ([]*model.ScrapeResult, error)

	// InsertJob persists a new job definition.
	InsertJob(ctx context.Context, job *model.Job) error

	// UpdateJob writes the job's status and run bookkeeping.
	UpdateJob(ctx context.Context, job *model.Job) error

	// ListActiveJobs returns active jobs, most recently created first.
	ListActiveJobs(ctx context.Context) ([]*model.Job, error)

	// Statistics returns aggregate counts over results and jobs.
	Statistics(ctx context.Context) (*Statistics, error)

	// RecordExport appends an export history entry.
	RecordExport(ctx context.Context, format string, recordCount int, filePath string) error

	// Close releases the underlying database handle.
	Close() error
}

// SQLiteStore implements ResultStore using SQLite
type SQLiteStore struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(logger *zap.Logger, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		logger: logger,
		db:     db,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scraped_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			metadata TEXT,
			source TEXT,
			status TEXT DEFAULT 'success',
			scraped_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scraped_data_url ON scraped_data(url);
		CREATE INDEX IF NOT EXISTS idx_scraped_data_status ON scraped_data(status);
		CREATE INDEX IF NOT EXISTS idx_scraped_data_scraped_at ON scraped_data(scraped_at);

		CREATE TABLE IF NOT EXISTS scraping_jobs (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			schedule TEXT,
			strategy TEXT,
			status TEXT DEFAULT 'active',
			last_run DATETIME,
			next_run DATETIME,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scraping_jobs_status ON scraping_jobs(status);

		CREATE TABLE IF NOT EXISTS export_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			format TEXT NOT NULL,
			record_count INTEGER,
			file_path TEXT,
			exported_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// InsertResult implements ResultStore.InsertResult
func (s *SQLiteStore) InsertResult(ctx context.Context, result *model.ScrapeResult) (int64, error) {
	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if result.ScrapedAt.IsZero() {
		result.ScrapedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scraped_data (url, title, content, metadata, source, status, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.Target,
		result.Title,
		result.Content,
		string(metadata),
		string(result.Source),
		result.Status,
		result.ScrapedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get result id: %w", err)
	}
	result.ID = id
	return id, nil
}

// ListResults implements ResultStore.ListResults
func (s *SQLiteStore) ListResults(ctx context.Context, limit, offset int) ([]*model.ScrapeResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, content, metadata, source, status, scraped_at
		FROM scraped_data
		ORDER BY scraped_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*model.ScrapeResult
	for rows.Next() {
		result := &model.ScrapeResult{}
		var title, content, metadata, source sql.NullString

		err := rows.Scan(
			&result.ID,
			&result.Target,
			&title,
			&content,
			&metadata,
			&source,
			&result.Status,
			&result.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		result.Title = title.String
		result.Content = content.String
		result.Source = model.Strategy(source.String)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &result.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return results, nil
}

// InsertJob implements ResultStore.InsertJob
func (s *SQLiteStore) InsertJob(ctx context.Context, job *model.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scraping_jobs (id, url, schedule, strategy, status, last_run, next_run, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Target,
		job.Schedule,
		string(job.Strategy),
		string(job.Status),
		nullTime(job.LastRun),
		nullTime(job.NextRun),
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// UpdateJob implements ResultStore.UpdateJob
func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.Job) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET
			status = ?,
			last_run = ?,
			next_run = ?
		WHERE id = ?`,
		string(job.Status),
		nullTime(job.LastRun),
		nullTime(job.NextRun),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// ListActiveJobs implements ResultStore.ListActiveJobs
func (s *SQLiteStore) ListActiveJobs(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, schedule, strategy, status, last_run, next_run, created_at
		FROM scraping_jobs
		WHERE status = 'active'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		var schedule, strategy, status sql.NullString
		var lastRun, nextRun sql.NullTime

		err := rows.Scan(
			&job.ID,
			&job.Target,
			&schedule,
			&strategy,
			&status,
			&lastRun,
			&nextRun,
			&job.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		job.Schedule = schedule.String
		job.Strategy = model.Strategy(strategy.String)
		job.Status = model.JobStatus(status.String)
		if lastRun.Valid {
			job.LastRun = &lastRun.Time
		}
		if nextRun.Valid {
			job.NextRun = &nextRun.Time
		}

		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return jobs, nil
}

// Statistics implements ResultStore.Statistics
func (s *SQLiteStore) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByStatus: make(map[string]int),
		BySource: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scraped_data`).Scan(&stats.TotalResults); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	if err := s.countGroups(ctx, `SELECT status, COUNT(*) FROM scraped_data GROUP BY status`, stats.ByStatus); err != nil {
		return nil, err
	}
	if err := s.countGroups(ctx, `SELECT source, COUNT(*) FROM scraped_data GROUP BY source`, stats.BySource); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scraping_jobs WHERE status = 'active'`).Scan(&stats.ActiveJobs); err != nil {
		return nil, fmt.Errorf("failed to count active jobs: %w", err)
	}

	return stats, nil
}

func (s *SQLiteStore) countGroups(ctx context.Context, query string, out map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key sql.NullString
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan statistics: %w", err)
		}
		out[key.String] = count
	}
	return rows.Err()
}

// RecordExport implements ResultStore.RecordExport
func (s *SQLiteStore) RecordExport(ctx context.Context, format string, recordCount int, filePath string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_history (format, record_count, file_path)
		VALUES (?, ?, ?)`,
		format, recordCount, filePath)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
