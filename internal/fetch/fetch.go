// Package fetch orchestrates a single media download: it maps the request
// URL to a storage key, derives the engine options, runs the blocking fetch
// and locates the resulting artifact on disk.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mediafetch/mediafetch/internal/engine"
	"github.com/mediafetch/mediafetch/internal/logctx"
	"github.com/mediafetch/mediafetch/internal/naming"
	"github.com/mediafetch/mediafetch/internal/storage"
	"github.com/mediafetch/mediafetch/internal/telemetry"
)

// Kind selects the requested output format.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// audioContainer is the fixed container audio downloads are transcoded into.
const audioContainer = "m4a"

// fallbackTitle is used when the engine reports no title.
const fallbackTitle = "video"

// ParseKind validates a format parameter. The empty string defaults to
// video; anything other than the two recognized kinds is rejected before
// any I/O happens.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindVideo, nil
	case KindVideo, KindAudio:
		return Kind(s), nil
	}

	return "", fmt.Errorf("invalid format kind: %q", s)
}

// Artifact describes the downloaded file handed back to the transport layer.
type Artifact struct {
	Path  string
	Title string
	Ext   string
	Kind  Kind
	Size  int64
}

// Coordinator runs downloads against a single shared storage directory.
// It is safe for concurrent use; each Fetch call blocks its own goroutine
// for the full download duration and holds no locks while doing so.
type Coordinator struct {
	storageDir string
	caCertPath string
	engine     engine.Fetcher
	history    storage.FetchWriteRepository
	telemetry  *telemetry.Telemetry
}

// NewCoordinator wires a coordinator. history and t may be nil.
func NewCoordinator(
	storageDir string,
	caCertPath string,
	eng engine.Fetcher,
	history storage.FetchWriteRepository,
	t *telemetry.Telemetry,
) *Coordinator {
	return &Coordinator{
		storageDir: storageDir,
		caCertPath: caCertPath,
		engine:     eng,
		history:    history,
		telemetry:  t,
	}
}

// Fetch downloads the media at url in the requested kind and returns the
// artifact descriptor. Any failure at any step is terminal for the request;
// there is no retry logic anywhere in this path.
func (c *Coordinator) Fetch(ctx context.Context, url string, kind Kind) (*Artifact, error) {
	logger := logctx.LoggerFromContext(ctx)

	key := naming.Fingerprint(url)
	opts := c.buildEngineOptions(ctx, kind, key)

	logger.Info("starting fetch", "storage_key", key, "kind", string(kind))

	start := time.Now()

	c.telemetry.IncrementActiveFetches()
	defer c.telemetry.DecrementActiveFetches()

	meta, err := c.engine.Fetch(ctx, url, opts)
	if err != nil {
		c.telemetry.RecordFetch("error", time.Since(start))
		c.telemetry.RecordEngineError()

		return nil, &EngineError{URL: url, Err: err}
	}

	artifact, err := c.locateArtifact(ctx, key)
	if err != nil {
		c.telemetry.RecordFetch("error", time.Since(start))

		return nil, err
	}

	artifact.Kind = kind
	artifact.Title = meta.Title

	if artifact.Title == "" {
		artifact.Title = fallbackTitle
	}

	c.telemetry.RecordFetch("success", time.Since(start))

	logger.Info("fetch completed",
		"storage_key", key,
		"title", artifact.Title,
		"size", humanize.Bytes(uint64(artifact.Size)),
		"duration", time.Since(start).String(),
	)

	c.trackFetch(ctx, url, key, artifact)

	return artifact, nil
}

// buildEngineOptions derives the per-request options bundle. The trust
// policy is fail-open: a missing or unset CA certificate path disables TLS
// verification instead of rejecting the request, so the warning below is
// the only signal operators get.
func (c *Coordinator) buildEngineOptions(ctx context.Context, kind Kind, key string) engine.Options {
	logger := logctx.LoggerFromContext(ctx)

	opts := engine.Options{
		OutputTemplate: filepath.Join(c.storageDir, key+".%(ext)s"),
		Format:         "best",
	}

	if kind == KindAudio {
		opts.Format = "bestaudio"
		opts.ExtractAudio = true
		opts.AudioFormat = audioContainer
	}

	if c.caCertPath != "" {
		if _, err := os.Stat(c.caCertPath); err == nil {
			opts.CACertFile = c.caCertPath
			logger.Info("using custom CA certificate", "ca_cert_path", c.caCertPath)

			return opts
		}
	}

	logger.Warn("no usable CA certificate configured, skipping TLS certificate verification")

	return opts
}

// locateArtifact finds the file the engine produced for key. The final
// extension is chosen by the engine, so discovery goes through a glob on
// the key prefix.
func (c *Coordinator) locateArtifact(ctx context.Context, key string) (*Artifact, error) {
	logger := logctx.LoggerFromContext(ctx)

	matches, err := filepath.Glob(filepath.Join(c.storageDir, key+".*"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan storage directory: %w", err)
	}

	if len(matches) == 0 {
		return nil, &ArtifactNotFoundError{Key: key}
	}

	// Directory listing order is not guaranteed; sort for a stable
	// first-match tie-break.
	sort.Strings(matches)

	if len(matches) > 1 {
		logger.Warn("multiple artifacts match storage key, using first", "storage_key", key, "matches", len(matches))
	}

	path := matches[0]

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ArtifactMissingError{Path: path, Err: err}
	}

	return &Artifact{
		Path: path,
		Ext:  filepath.Ext(path),
		Size: info.Size(),
	}, nil
}

// trackFetch records the completed fetch in the history store. History is
// observability only, so failures are logged and swallowed.
func (c *Coordinator) trackFetch(ctx context.Context, url, key string, artifact *Artifact) {
	if c.history == nil {
		return
	}

	rec := storage.FetchRecord{
		StorageKey: key,
		URL:        url,
		Title:      artifact.Title,
		FilePath:   artifact.Path,
		Kind:       string(artifact.Kind),
		SizeBytes:  artifact.Size,
		FetchedAt:  time.Now(),
	}

	if err := c.history.TrackFetch(rec); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to track fetch in history", "storage_key", key, "err", err)
	}
}
