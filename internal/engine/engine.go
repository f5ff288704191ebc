// Package engine defines the external media extraction capability. The
// engine is an opaque collaborator: given a URL and an options bundle it
// fetches (and optionally transcodes) the media, writes output files under
// the requested template, and reports descriptive metadata back.
package engine

import "context"

// Options is the per-fetch configuration bundle handed to the engine. It is
// built fresh for every attempt and never mutated after construction.
type Options struct {
	// OutputTemplate is the target path pattern; the engine substitutes the
	// extension it picked for the container, e.g. "/data/ab12cd34.%(ext)s".
	OutputTemplate string

	// Format is the engine-native selector, "best" or "bestaudio".
	Format string

	// ExtractAudio asks the engine to transcode the download into an
	// audio-only container named by AudioFormat.
	ExtractAudio bool
	AudioFormat  string

	// CACertFile is the trust anchor for TLS verification. When empty,
	// certificate verification is skipped entirely (fail-open).
	CACertFile string
}

// SkipCertVerification reports whether the fetch runs without TLS
// certificate validation.
func (o Options) SkipCertVerification() bool {
	return o.CACertFile == ""
}

// Metadata is what the engine reports about a completed fetch.
type Metadata struct {
	Title string
	Ext   string
}

// Fetcher performs the actual network retrieval. Fetch blocks the calling
// goroutine for the full download duration; implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (*Metadata, error)
}
