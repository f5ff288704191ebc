// Package storage defines the fetch history model and repository contracts.
package storage

import "time"

// FetchRecord is one completed fetch as tracked in the history store. It is
// internal observability only; the artifact files on disk remain the sole
// authoritative state.
type FetchRecord struct {
	StorageKey string
	URL        string
	Title      string
	FilePath   string
	Kind       string
	SizeBytes  int64
	FetchedAt  time.Time
}

type FetchReadRepository interface {
	RecentFetches(limit int) ([]FetchRecord, error)
}

type FetchWriteRepository interface {
	TrackFetch(rec FetchRecord) error
	DeleteByPath(filePath string) error
}
