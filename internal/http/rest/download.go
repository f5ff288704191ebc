// Package rest exposes the media retrieval endpoint and the service's
// operational endpoints.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/mediafetch/mediafetch/internal/fetch"
	"github.com/mediafetch/mediafetch/internal/fetch/progress"
	"github.com/mediafetch/mediafetch/internal/logctx"
	"github.com/mediafetch/mediafetch/internal/naming"
	"github.com/mediafetch/mediafetch/internal/notifier"
	"github.com/mediafetch/mediafetch/internal/storage"
	"github.com/mediafetch/mediafetch/internal/telemetry"
)

const defaultHistoryLimit = 50

// streamProgressInterval is how many bytes go out between progress logs.
const streamProgressInterval = int64(100 * 1024 * 1024) // 100MB

// Coordinator is the download orchestration capability the handler depends
// on; swappable for tests.
type Coordinator interface {
	Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Artifact, error)
}

// DownloadHandler translates the HTTP contract into coordinator calls and
// shapes coordinator outcomes back into transport responses.
type DownloadHandler struct {
	coordinator Coordinator
	history     storage.FetchReadRepository
	notif       notifier.Notifier
	telemetry   *telemetry.Telemetry
}

// NewDownloadHandler creates the handler. history, notif and t may be nil.
func NewDownloadHandler(coordinator Coordinator, history storage.FetchReadRepository, notif notifier.Notifier, t *telemetry.Telemetry) *DownloadHandler {
	return &DownloadHandler{
		coordinator: coordinator,
		history:     history,
		notif:       notif,
		telemetry:   t,
	}
}

// Routes mounts the service endpoints.
func (h *DownloadHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/download", h.HandleDownload)
	r.Get("/downloads", h.HandleHistory)
	r.Get("/health", h.HandleHealth)
	r.Mount("/metrics", h.telemetry.Handler())

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleDownload serves GET /download?url=...&format=video|audio. The
// response is the artifact itself, streamed as an attachment.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logctx.LoggerFromContext(ctx)

	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSONError(w, http.StatusBadRequest, "URL parameter is required")

		return
	}

	kind, err := fetch.ParseKind(r.URL.Query().Get("format"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid format type")

		return
	}

	artifact, err := h.coordinator.Fetch(ctx, url, kind)
	if err != nil {
		h.handleFetchError(w, r, url, err)

		return
	}

	name := naming.Sanitize(artifact.Title, naming.DefaultMaxFilenameLength) + artifact.Ext
	encoded := naming.EncodeRFC5987(name)

	f, err := os.Open(artifact.Path)
	if err != nil {
		logger.Error("artifact vanished before streaming", "path", artifact.Path, "err", err)
		writeJSONError(w, http.StatusInternalServerError, (&fetch.ArtifactMissingError{Path: artifact.Path, Err: err}).Error())

		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+encoded)
	w.Header().Set("X-Filename", encoded)
	w.Header().Set("X-File-Type", string(artifact.Kind))

	pr := progress.NewReader(f, artifact.Size, streamProgressInterval, func(sent, total int64) {
		logger.Debug("streaming artifact",
			"path", artifact.Path,
			"sent", humanize.Bytes(uint64(sent)),
			"total", humanize.Bytes(uint64(total)),
		)
	})

	// Headers are committed once streaming starts; copy failures past this
	// point can only be logged.
	if _, err := io.Copy(w, pr); err != nil {
		logger.Error("failed to stream artifact", "path", artifact.Path, "err", err)
	}
}

// HandleHistory serves GET /downloads with the most recent fetch records.
func (h *DownloadHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, http.StatusNotFound, "fetch history is not enabled")

		return
	}

	records, err := h.history.RecentFetches(defaultHistoryLimit)
	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to read fetch history", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")

		return
	}

	type historyEntry struct {
		StorageKey string `json:"storage_key"`
		URL        string `json:"url"`
		Title      string `json:"title"`
		Kind       string `json:"kind"`
		SizeBytes  int64  `json:"size_bytes"`
		FetchedAt  string `json:"fetched_at"`
	}

	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{
			StorageKey: rec.StorageKey,
			URL:        rec.URL,
			Title:      rec.Title,
			Kind:       rec.Kind,
			SizeBytes:  rec.SizeBytes,
			FetchedAt:  rec.FetchedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]any{"downloads": entries}); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to encode history response", "err", err)
	}
}

// HandleHealth serves GET /health.
func (h *DownloadHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleFetchError maps coordinator failures to wire responses. Artifact
// consistency failures carry their own message across the trust boundary;
// everything else is reported generically so internal detail never leaks.
func (h *DownloadHandler) handleFetchError(w http.ResponseWriter, r *http.Request, url string, err error) {
	logger := logctx.LoggerFromContext(r.Context())

	var notFoundErr *fetch.ArtifactNotFoundError

	var missingErr *fetch.ArtifactMissingError

	switch {
	case errors.As(err, &notFoundErr), errors.As(err, &missingErr):
		logger.Error("fetch failed", "url", url, "err", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("unexpected fetch error", "url", url, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}

	h.notifyFailure(r.Context(), url, err)
}

// notifyFailure pushes a webhook notification about a failed fetch, if a
// notifier is configured.
func (h *DownloadHandler) notifyFailure(ctx context.Context, url string, err error) {
	if h.notif == nil {
		return
	}

	if notifyErr := h.notif.Notify("❌ Fetch failed for " + url + ": " + err.Error()); notifyErr != nil {
		logctx.LoggerFromContext(ctx).Error("failed to send notification", "err", notifyErr)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
