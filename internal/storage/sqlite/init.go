package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database at dbPath and creates the fetches table
// if it doesn't exist.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY,
		storage_key TEXT,
		url TEXT,
		title TEXT,
		file_path TEXT,
		kind TEXT,
		size_bytes INTEGER,
		fetched_at DATETIME
	)`)

	if err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}
