package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_pointers (
			respondent_id TEXT NOT NULL,
			pointer_key TEXT NOT NULL,
			url_slug TEXT NOT NULL,
			session_uuid TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (respondent_id, pointer_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_pointers_session ON session_pointers(session_uuid)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetPointer retrieves the session pointer of a respondent for a survey.
func (s *SQLiteStore) GetPointer(ctx context.Context, respondentID, urlSlug string) (*SessionPointer, error) {
	var p SessionPointer
	err := s.db.QueryRowContext(ctx,
		`SELECT respondent_id, url_slug, session_uuid, updated_at FROM session_pointers WHERE respondent_id = ? AND pointer_key = ?`,
		respondentID, Key(urlSlug)).Scan(&p.RespondentID, &p.URLSlug, &p.SessionUUID, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session pointer: %w", err)
	}
	return &p, nil
}

// PutPointer stores a session pointer, replacing any previous one.
func (s *SQLiteStore) PutPointer(ctx context.Context, p *SessionPointer) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_pointers (respondent_id, pointer_key, url_slug, session_uuid, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(respondent_id, pointer_key) DO UPDATE SET
			session_uuid = excluded.session_uuid,
			updated_at = excluded.updated_at`,
		p.RespondentID, Key(p.URLSlug), p.URLSlug, p.SessionUUID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put session pointer: %w", err)
	}
	return nil
}

// DeletePointer removes the session pointer of a respondent for a survey.
func (s *SQLiteStore) DeletePointer(ctx context.Context, respondentID, urlSlug string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_pointers WHERE respondent_id = ? AND pointer_key = ?`,
		respondentID, Key(urlSlug))
	if err != nil {
		return fmt.Errorf("failed to delete session pointer: %w", err)
	}
	return nil
}
