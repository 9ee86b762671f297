// Package storage persists crawled ads to SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"olx-go-crawler/internal/models"
)

// SQLiteSink stores every category table in a single "ads" table, tagged
// with the category name and the id of the run that produced it.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

func NewSQLiteSink(dbPath, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteSink{db: db, runID: runID}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL,
		url TEXT NOT NULL,
		date_public TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ads_run_category ON ads(run_id, category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WriteTable replaces this run's rows for category name with rows.
func (s *SQLiteSink) WriteTable(name string, rows []models.AdRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ads WHERE run_id = ? AND category = ?", s.runID, name); err != nil {
		return fmt.Errorf("clear category %s: %w", name, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ads
		(run_id, category, title, description, price, status, url, date_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err := stmt.Exec(s.runID, name, r.Title, r.Description, r.Price, r.Status, r.URL, r.DatePublic, now); err != nil {
			return fmt.Errorf("insert ad %s: %w", r.URL, err)
		}
	}
	return tx.Commit()
}

// Ads returns the rows stored for category name in this run, in insertion order.
func (s *SQLiteSink) Ads(name string) ([]models.AdRecord, error) {
	rows, err := s.db.Query(`SELECT title, description, price, status, url, date_public
		FROM ads WHERE run_id = ? AND category = ? ORDER BY id`, s.runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	var out []models.AdRecord
	for rows.Next() {
		var r models.AdRecord
		if err := rows.Scan(&r.Title, &r.Description, &r.Price, &r.Status, &r.URL, &r.DatePublic); err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
