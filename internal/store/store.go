// Package store keeps a small SQLite history of update runs and the images
// each run localized.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultName is the database file created in the profile directory.
const DefaultName = ".profilekit.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at    TEXT    NOT NULL,
	source        TEXT    NOT NULL,
	username      TEXT    NOT NULL,
	display_name  TEXT    NOT NULL,
	friends       INTEGER NOT NULL DEFAULT 0,
	albums        INTEGER NOT NULL DEFAULT 0,
	groups_count  INTEGER NOT NULL DEFAULT 0,
	comments      INTEGER NOT NULL DEFAULT 0,
	social_links  INTEGER NOT NULL DEFAULT 0,
	badges        INTEGER NOT NULL DEFAULT 0,
	images        INTEGER NOT NULL DEFAULT 0,
	custom_inlined INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS images (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	url        TEXT    NOT NULL,
	local_path TEXT    NOT NULL,
	status     TEXT    NOT NULL,
	error      TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_images_run ON images(run_id);
CREATE INDEX IF NOT EXISTS idx_images_url ON images(url);
`

// Store wraps the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// a single writer keeps sqlite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Run is one recorded update.
type Run struct {
	ID            int64
	StartedAt     time.Time
	Source        string
	Username      string
	DisplayName   string
	Friends       int
	Albums        int
	Groups        int
	Comments      int
	SocialLinks   int
	Badges        int
	Images        int
	CustomInlined bool
}

// Image is one URL handled during a run.
type Image struct {
	URL       string
	LocalPath string
	Status    string
	Error     string
}

// RecordRun stores run and its images in one transaction and returns the
// new run id.
func (s *Store) RecordRun(ctx context.Context, run Run, imgs []Image) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, source, username, display_name, friends, albums,
			groups_count, comments, social_links, badges, images, custom_inlined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Source, run.Username, run.DisplayName,
		run.Friends, run.Albums, run.Groups, run.Comments, run.SocialLinks, run.Badges,
		run.Images, boolInt(run.CustomInlined))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO images (run_id, url, local_path, status, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare image insert: %w", err)
	}
	defer stmt.Close()
	for _, img := range imgs {
		if _, err := stmt.ExecContext(ctx, id, img.URL, img.LocalPath, img.Status, img.Error); err != nil {
			return 0, fmt.Errorf("insert image %s: %w", img.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, source, username, display_name, friends, albums, groups_count,
		comments, social_links, badges, images, custom_inlined FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var custom int
		if err := rows.Scan(&r.ID, &started, &r.Source, &r.Username, &r.DisplayName, &r.Friends,
			&r.Albums, &r.Groups, &r.Comments, &r.SocialLinks, &r.Badges, &r.Images, &custom); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", started, err)
		}
		r.CustomInlined = custom != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunImages returns the images recorded for a run in insertion order.
func (s *Store) RunImages(ctx context.Context, runID int64) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, local_path, status, error FROM images WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	var out []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.URL, &img.LocalPath, &img.Status, &img.Error); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
