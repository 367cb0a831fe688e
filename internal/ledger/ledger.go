// Package ledger records upload runs in a local SQLite database. It is
// bookkeeping only: rows are written after the fact for `ytpush history`
// and are never consulted to resume a transfer.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Run states for the uploads.state column.
const (
	stateUploading = "uploading"
	stateCompleted = "completed"
	stateFailed    = "failed"
)

// SQL statements for upload run bookkeeping.
const (
	sqlInsertRun = `INSERT INTO uploads
		(id, path, title, privacy, size, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlCompleteRun = `UPDATE uploads
		SET state = ?, video_id = ?, retry_high_water = ?, finished_at = ?
		WHERE id = ? AND state = ?`

	sqlFailRun = `UPDATE uploads
		SET state = ?, error_msg = ?, retry_high_water = ?, finished_at = ?
		WHERE id = ? AND state = ?`

	sqlRecentRuns = `SELECT id, path, title, privacy, size, state,
		video_id, retry_high_water, error_msg, started_at, finished_at
		FROM uploads ORDER BY started_at DESC, id DESC LIMIT ?`
)

// Run is one row of the uploads table.
type Run struct {
	ID             string
	Path           string
	Title          string
	Privacy        string
	Size           int64
	State          string
	VideoID        string
	RetryHighWater int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time // zero while the run is still uploading
}

// Store is the sole writer to the history database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the history database at dbPath and
// applies pending schema migrations. The database runs in WAL mode with
// a single connection so writes never race.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history database ready", slog.String("db_path", dbPath))

	return &Store{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of an upload run and returns its ID.
func (s *Store) Begin(ctx context.Context, path, title, privacy string, size int64) (string, error) {
	id := uuid.New().String()
	now := s.nowFunc().UnixNano()

	_, err := s.db.ExecContext(ctx, sqlInsertRun,
		id, path, title, privacy, size, stateUploading, now)
	if err != nil {
		return "", fmt.Errorf("ledger: recording upload start: %w", err)
	}

	return id, nil
}

// Complete marks an uploading run as completed with its video ID and
// the largest consecutive-retry streak the transfer hit.
func (s *Store) Complete(ctx context.Context, id, videoID string, retryHighWater int) error {
	now := s.nowFunc().UnixNano()

	result, err := s.db.ExecContext(ctx, sqlCompleteRun,
		stateCompleted, videoID, retryHighWater, now, id, stateUploading)
	if err != nil {
		return fmt.Errorf("ledger: completing run %s: %w", id, err)
	}

	return requireOneRow(result, id, stateUploading)
}

// Fail marks an uploading run as failed, recording why.
func (s *Store) Fail(ctx context.Context, id, reason string, retryHighWater int) error {
	now := s.nowFunc().UnixNano()

	result, err := s.db.ExecContext(ctx, sqlFailRun,
		stateFailed, reason, retryHighWater, now, id, stateUploading)
	if err != nil {
		return fmt.Errorf("ledger: failing run %s: %w", id, err)
	}

	return requireOneRow(result, id, stateUploading)
}

// Recent returns the most recently started runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: loading history: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		r, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		runs = append(runs, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating history rows: %w", err)
	}

	return runs, nil
}

// scanRun scans a single uploads row.
func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		r          Run
		videoID    sql.NullString
		retryHW    sql.NullInt64
		errorMsg   sql.NullString
		startedAt  int64
		finishedAt sql.NullInt64
	)

	err := rows.Scan(
		&r.ID, &r.Path, &r.Title, &r.Privacy, &r.Size, &r.State,
		&videoID, &retryHW, &errorMsg, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: scanning history row: %w", err)
	}

	r.VideoID = videoID.String
	r.Error = errorMsg.String
	r.RetryHighWater = int(retryHW.Int64)
	r.StartedAt = time.Unix(0, startedAt)

	if finishedAt.Valid {
		r.FinishedAt = time.Unix(0, finishedAt.Int64)
	}

	return &r, nil
}

// requireOneRow converts a zero-row update into an error naming the
// state the row was expected to be in.
func requireOneRow(result sql.Result, id, wantState string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: rows affected for run %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("ledger: run %s: not found or not %s", id, wantState)
	}

	return nil
}
