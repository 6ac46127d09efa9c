package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tubesync/internal/catalog"
	"tubesync/internal/config"
)

// Store persists video exclusions locally so a restart can restore them
// before the first queue snapshot arrives.
type Store struct {
	db   *sql.DB
	path string
}

// Exclusion is one persisted exclusion record.
type Exclusion struct {
	VideoID   catalog.VideoID
	Reason    catalog.ExclusionReason
	UpdatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS exclusions (
    video_id   TEXT PRIMARY KEY,
    reason     INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Open initializes or connects to the exclusion database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// UpsertExclusion records or updates an exclusion for a video.
func (s *Store) UpsertExclusion(ctx context.Context, videoID catalog.VideoID, reason catalog.ExclusionReason) error {
	ctx = ensureContext(ctx)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO exclusions (video_id, reason, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(video_id) DO UPDATE SET reason = excluded.reason, updated_at = excluded.updated_at`,
		string(videoID), uint8(reason), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert exclusion %s: %w", videoID, err)
	}
	return nil
}

// DeleteExclusion removes the exclusion record for a video. Deleting a video
// that has no record is not an error.
func (s *Store) DeleteExclusion(ctx context.Context, videoID catalog.VideoID) error {
	ctx = ensureContext(ctx)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exclusions WHERE video_id = ?`, string(videoID)); err != nil {
		return fmt.Errorf("delete exclusion %s: %w", videoID, err)
	}
	return nil
}

// Exclusion returns the record for one video, or nil when none exists.
func (s *Store) Exclusion(ctx context.Context, videoID catalog.VideoID) (*Exclusion, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, reason, updated_at FROM exclusions WHERE video_id = ?`, string(videoID))
	record, err := scanExclusion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load exclusion %s: %w", videoID, err)
	}
	return record, nil
}

// Exclusions returns every persisted exclusion ordered by video id.
func (s *Store) Exclusions(ctx context.Context) ([]Exclusion, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, reason, updated_at FROM exclusions ORDER BY video_id`)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	var records []Exclusion
	for rows.Next() {
		record, scanErr := scanExclusion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan exclusion: %w", scanErr)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return records, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExclusion(row rowScanner) (*Exclusion, error) {
	var (
		videoID   string
		reason    uint8
		updatedAt string
	)
	if err := row.Scan(&videoID, &reason, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return &Exclusion{
		VideoID:   catalog.VideoID(videoID),
		Reason:    catalog.ExclusionReason(reason),
		UpdatedAt: parsed,
	}, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
