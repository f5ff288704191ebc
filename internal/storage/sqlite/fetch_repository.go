package sqlite

import (
	"database/sql"
	"time"

	"github.com/mediafetch/mediafetch/internal/storage"
)

// FetchRepository persists fetch history rows in SQLite.
type FetchRepository struct {
	db *sql.DB
}

func NewFetchRepository(dbConn *sql.DB) *FetchRepository {
	return &FetchRepository{db: dbConn}
}

// TrackFetch inserts one completed fetch.
func (r *FetchRepository) TrackFetch(rec storage.FetchRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO fetches (storage_key, url, title, file_path, kind, size_bytes, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.StorageKey, rec.URL, rec.Title, rec.FilePath, rec.Kind, rec.SizeBytes, rec.FetchedAt.Format(time.RFC3339))

	return err
}

// DeleteByPath removes history rows for an artifact that no longer exists.
func (r *FetchRepository) DeleteByPath(filePath string) error {
	_, err := r.db.Exec(`DELETE FROM fetches WHERE file_path = ?`, filePath)

	return err
}

// RecentFetches returns up to limit rows, newest first.
func (r *FetchRepository) RecentFetches(limit int) ([]storage.FetchRecord, error) {
	rows, err := r.db.Query(`
		SELECT storage_key, url, title, file_path, kind, size_bytes, fetched_at
		FROM fetches ORDER BY fetched_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.FetchRecord

	for rows.Next() {
		var rec storage.FetchRecord

		var fetchedAt string

		if err := rows.Scan(&rec.StorageKey, &rec.URL, &rec.Title, &rec.FilePath, &rec.Kind, &rec.SizeBytes, &fetchedAt); err != nil {
			return nil, err
		}

		if ts, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
			rec.FetchedAt = ts
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
