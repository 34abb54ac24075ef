package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Begin inserts a running record for sourcePath.
func (s *Store) Begin(ctx context.Context, runID, sourcePath, fingerprint string) (*Record, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, errors.New("source path is required")
	}
	if strings.TrimSpace(fingerprint) == "" {
		return nil, errors.New("fingerprint is required")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO conversions (run_id, source_path, fingerprint, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID, sourcePath, fingerprint, StatusRunning, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Record{
		ID:          id,
		RunID:       runID,
		SourcePath:  sourcePath,
		Fingerprint: fingerprint,
		Status:      StatusRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update persists changes to an existing record.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(ctx,
		`UPDATE conversions
         SET status = ?, format = ?, repair_offset = ?, repair_rule = ?, output_path = ?,
             error_kind = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		rec.Status,
		nullableString(rec.Format),
		rec.RepairOffset,
		nullableString(rec.RepairRule),
		nullableString(rec.OutputPath),
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		formatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update record %d: not found", rec.ID)
	}
	return nil
}

// GetByID fetches a record by identifier. A missing record returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM conversions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// FindCompletedByFingerprint returns the latest completed conversion of the
// same input bytes, or nil when there is none.
func (s *Store) FindCompletedByFingerprint(ctx context.Context, fingerprint string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM conversions
         WHERE fingerprint = ? AND status = ?
         ORDER BY id DESC LIMIT 1`,
		fingerprint, StatusCompleted,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM conversions`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Stats returns the number of records per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM conversions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// ResetRunning marks records left running by an interrupted batch as failed.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE conversions SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, InterruptedReason, formatTime(time.Now()), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset running records: %w", err)
	}
	return res.RowsAffected()
}

// InterruptedReason is recorded on rows reset by ResetRunning.
const InterruptedReason = "interrupted before completion"

// Clear removes records with the given statuses, or every record when none
// are given.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM conversions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}
