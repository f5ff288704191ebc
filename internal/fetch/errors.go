package fetch

import "fmt"

// ArtifactNotFoundError means the engine reported success but no file
// matching the storage key landed in the storage directory. This is an
// internal inconsistency, not a user input error.
type ArtifactNotFoundError struct {
	Key string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact not found after successful fetch (key %s)", e.Key)
}

// ArtifactMissingError means a discovered artifact vanished between the
// directory listing and the existence check, typically because a concurrent
// retention sweep deleted it.
type ArtifactMissingError struct {
	Path string
	Err  error
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("downloaded artifact missing: %s", e.Path)
}

func (e *ArtifactMissingError) Unwrap() error {
	return e.Err
}

// EngineError wraps a failure reported by the external fetch engine:
// network errors, unsupported URLs, extraction failures. Never retried.
type EngineError struct {
	URL string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("fetch engine failed for %s: %v", e.URL, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
