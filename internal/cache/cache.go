// package cache persists resolved track ids in a local sqlite database so
// repeated exports of the same library do not repeat provider searches.
package cache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS track_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	service TEXT NOT NULL,
	track_key TEXT NOT NULL,
	provider_track_id TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(service, track_key)
);`

// Store is a sqlite-backed track id cache, keyed by service name plus the
// normalized track key.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return &Store{db: db}, nil
}

// Get looks up a cached provider track id. A miss returns found=false with a
// nil error.
func (s *Store) Get(service, key string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT provider_track_id FROM track_cache WHERE service = ? AND track_key = ?`,
		service, key,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query track cache: %w", err)
	}
	return id, true, nil
}

// Put stores a resolved track id, replacing any previous entry for the same
// service and key.
func (s *Store) Put(service, key, id string) error {
	_, err := s.db.Exec(
		`INSERT INTO track_cache (service, track_key, provider_track_id) VALUES (?, ?, ?)
		 ON CONFLICT(service, track_key) DO UPDATE SET provider_track_id = excluded.provider_track_id`,
		service, key, id,
	)
	if err != nil {
		return fmt.Errorf("failed to write track cache: %w", err)
	}
	return nil
}

// Purge removes cached entries for one service, or every entry when service
// is empty. It returns the number of rows removed.
func (s *Store) Purge(service string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if service == "" {
		result, err = s.db.Exec(`DELETE FROM track_cache`)
	} else {
		result, err = s.db.Exec(`DELETE FROM track_cache WHERE service = ?`, service)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge track cache: %w", err)
	}
	return result.RowsAffected()
}

// Stats returns the number of cached entries per service.
func (s *Store) Stats() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT service, COUNT(*) FROM track_cache GROUP BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			service string
			count   int
		)
		if err := rows.Scan(&service, &count); err != nil {
			return nil, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		stats[service] = count
	}
	return stats, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
