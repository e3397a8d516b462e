package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReadDocument returns the body stored under key, or nil when nothing has
// been written yet.
func (s *Store) ReadDocument(key string) ([]byte, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", key, err)
	}
	return []byte(body), nil
}

// WriteDocument replaces the body stored under key.
func (s *Store) WriteDocument(key string, body []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), now,
	)
	if err != nil {
		return fmt.Errorf("write document %q: %w", key, err)
	}
	return nil
}

// Quarantine keeps a copy of a body that could not be parsed. A body equal
// to the newest one already kept for key is not stored again.
func (s *Store) Quarantine(key string, body []byte, reason string) error {
	var last string
	err := s.db.QueryRow(
		`SELECT body FROM quarantine WHERE key = ? ORDER BY id DESC LIMIT 1`, key,
	).Scan(&last)
	switch {
	case err == nil && last == string(body):
		return nil
	case err != nil && err != sql.ErrNoRows:
		return fmt.Errorf("quarantine %q: %w", key, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO quarantine (key, body, reason, created_at) VALUES (?, ?, ?, ?)`,
		key, string(body), reason, now,
	)
	if err != nil {
		return fmt.Errorf("quarantine %q: %w", key, err)
	}
	return nil
}

// ListQuarantined returns quarantined bodies, newest first. A limit of 0
// returns all of them.
func (s *Store) ListQuarantined(limit int) ([]QuarantinedDocument, error) {
	query := `SELECT id, key, body, reason, created_at FROM quarantine ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list quarantine: %w", err)
	}
	defer rows.Close()

	var docs []QuarantinedDocument
	for rows.Next() {
		var q QuarantinedDocument
		var body, createdAt string
		if err := rows.Scan(&q.ID, &q.Key, &body, &q.Reason, &createdAt); err != nil {
			return nil, err
		}
		q.Body = []byte(body)
		q.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		docs = append(docs, q)
	}
	return docs, rows.Err()
}

// GetQuarantined returns one quarantined body, or nil when id is unknown.
func (s *Store) GetQuarantined(id int64) (*QuarantinedDocument, error) {
	q := &QuarantinedDocument{}
	var body, createdAt string
	err := s.db.QueryRow(
		`SELECT id, key, body, reason, created_at FROM quarantine WHERE id = ?`, id,
	).Scan(&q.ID, &q.Key, &body, &q.Reason, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quarantined %d: %w", id, err)
	}
	q.Body = []byte(body)
	q.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return q, nil
}
