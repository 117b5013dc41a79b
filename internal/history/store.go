// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a log of completed downloads in a SQLite
// database alongside the saved PDFs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soultoolman/sci-dl/internal/download"
)

const (
	dbFile       = "sci-dl.db"
	defaultLimit = 20
)

// Store manages the download-log database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the download log at dir/sci-dl.db, creating
// the schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening download log: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doi TEXT NOT NULL,
		lookup_url TEXT,
		pdf_url TEXT,
		path TEXT,
		bytes INTEGER,
		sha256 TEXT,
		downloaded_at TEXT NOT NULL
	)`)
	return err
}

// Add appends one completed download to the log.
func (s *Store) Add(rec download.Record) error {
	_, err := s.db.Exec(
		`INSERT INTO downloads (doi, lookup_url, pdf_url, path, bytes, sha256, downloaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DOI, rec.LookupURL, rec.PDFURL, rec.Path, rec.Bytes, rec.SHA256,
		rec.DownloadedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording download: %w", err)
	}
	return nil
}

// Recent returns up to limit downloads, newest first. A non-positive
// limit uses the default of 20.
func (s *Store) Recent(limit int) ([]download.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.Query(
		`SELECT doi, lookup_url, pdf_url, path, bytes, sha256, downloaded_at
		 FROM downloads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var recs []download.Record
	for rows.Next() {
		var rec download.Record
		var at string
		if err := rows.Scan(&rec.DOI, &rec.LookupURL, &rec.PDFURL, &rec.Path,
			&rec.Bytes, &rec.SHA256, &at); err != nil {
			return nil, fmt.Errorf("scanning download row: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339, at); parseErr == nil {
			rec.DownloadedAt = t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
