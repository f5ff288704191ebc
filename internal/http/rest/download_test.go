package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediafetch/mediafetch/internal/fetch"
	"github.com/stretchr/testify/require"
)

// mockCoordinator implements the Coordinator interface for handler tests.
type mockCoordinator struct {
	fetchFunc func(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error)
	lastURL   string
	lastKind  fetch.Kind
}

func (m *mockCoordinator) Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error) {
	m.lastURL = url
	m.lastKind = kind

	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, url, kind)
	}

	return nil, errors.New("not configured")
}

func serveDownload(t *testing.T, coordinator Coordinator, target string) *httptest.ResponseRecorder {
	t.Helper()

	h := NewDownloadHandler(coordinator, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)

	return rec
}

func TestDownloadMissingURL(t *testing.T) {
	rec := serveDownload(t, &mockCoordinator{}, "/download")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error": "URL parameter is required"}`, rec.Body.String())
}

func TestDownloadInvalidFormat(t *testing.T) {
	rec := serveDownload(t, &mockCoordinator{}, "/download?url=https%3A%2F%2Fexample.com&format=invalid")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error": "Invalid format type"}`, rec.Body.String())
}

func TestDownloadFormatDefaultsToVideo(t *testing.T) {
	m := &mockCoordinator{}

	serveDownload(t, m, "/download?url=https%3A%2F%2Fexample.com")

	require.Equal(t, "https://example.com", m.lastURL)
	require.Equal(t, fetch.KindVideo, m.lastKind)
}

func TestDownloadSuccessStreamsArtifact(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ab12cd34.mp4")
	require.NoError(t, os.WriteFile(path, []byte("binary media bytes"), 0o644))

	m := &mockCoordinator{
		fetchFunc: func(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error) {
			return &fetch.Artifact{
				Path:  path,
				Title: "My Video!!! Title",
				Ext:   ".mp4",
				Kind:  kind,
				Size:  int64(len("binary media bytes")),
			}, nil
		},
	}

	rec := serveDownload(t, m, "/download?url=https%3A%2F%2Fexample.com&format=video")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "binary media bytes", rec.Body.String())
	require.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename*=UTF-8''My_Video_Title.mp4", rec.Header().Get("Content-Disposition"))
	require.Equal(t, "My_Video_Title.mp4", rec.Header().Get("X-Filename"))
	require.Equal(t, "video", rec.Header().Get("X-File-Type"))
}

func TestDownloadAudioFileType(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ab12cd34.m4a")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	m := &mockCoordinator{
		fetchFunc: func(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error) {
			return &fetch.Artifact{Path: path, Title: "Song", Ext: ".m4a", Kind: kind, Size: 5}, nil
		},
	}

	rec := serveDownload(t, m, "/download?url=https%3A%2F%2Fexample.com&format=audio")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audio", rec.Header().Get("X-File-Type"))
}

func TestDownloadArtifactNotFoundSurfacesMessage(t *testing.T) {
	m := &mockCoordinator{
		fetchFunc: func(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error) {
			return nil, &fetch.ArtifactNotFoundError{Key: "ab12cd34"}
		},
	}

	rec := serveDownload(t, m, "/download?url=https%3A%2F%2Fexample.com")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "artifact not found after successful fetch")
}

func TestDownloadEngineFailureIsGeneric(t *testing.T) {
	m := &mockCoordinator{
		fetchFunc: func(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error) {
			return nil, &fetch.EngineError{URL: url, Err: errors.New("secret internal detail")}
		},
	}

	rec := serveDownload(t, m, "/download?url=https%3A%2F%2Fexample.com")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error": "internal server error"}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "secret internal detail")
}

func TestHealthEndpoint(t *testing.T) {
	rec := serveDownload(t, &mockCoordinator{}, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestHistoryDisabled(t *testing.T) {
	rec := serveDownload(t, &mockCoordinator{}, "/downloads")

	require.Equal(t, http.StatusNotFound, rec.Code)
}
