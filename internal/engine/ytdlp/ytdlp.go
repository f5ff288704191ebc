// Package ytdlp runs the yt-dlp binary as the media extraction engine.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mediafetch/mediafetch/internal/engine"
	"github.com/mediafetch/mediafetch/internal/logctx"
)

const defaultBinary = "yt-dlp"

// Engine shells out to yt-dlp for every fetch. The binary path is resolved
// once at construction time.
type Engine struct {
	binPath string
}

// New resolves the yt-dlp binary and returns an Engine. An empty binPath
// falls back to a $PATH lookup.
func New(binPath string) (*Engine, error) {
	if binPath == "" {
		resolved, err := exec.LookPath(defaultBinary)
		if err != nil {
			return nil, fmt.Errorf("yt-dlp not found in PATH: %w", err)
		}

		binPath = resolved
	}

	if _, err := os.Stat(binPath); err != nil {
		return nil, fmt.Errorf("yt-dlp binary not usable at %s: %w", binPath, err)
	}

	return &Engine{binPath: binPath}, nil
}

// metadataPayload is the subset of the yt-dlp info JSON we care about.
type metadataPayload struct {
	Title string `json:"title"`
	Ext   string `json:"ext"`
}

// Fetch invokes yt-dlp synchronously and blocks until the download finishes.
// --dump-single-json together with --no-simulate makes the binary download
// the media and still emit the info JSON on stdout.
func (e *Engine) Fetch(ctx context.Context, url string, opts engine.Options) (*engine.Metadata, error) {
	cmd := exec.CommandContext(ctx, e.binPath, buildArgs(url, opts)...)

	// yt-dlp picks up the trust anchor through the standard OpenSSL
	// environment variable rather than a CLI flag.
	if !opts.SkipCertVerification() {
		cmd.Env = append(os.Environ(), "SSL_CERT_FILE="+opts.CACertFile)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logctx.LoggerFromContext(ctx).Debug("invoking yt-dlp", "format", opts.Format, "extract_audio", opts.ExtractAudio)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("yt-dlp exited with code %d: %s", exitErr.ExitCode(), firstLine(stderr.String()))
		}

		return nil, fmt.Errorf("failed to run yt-dlp: %w", err)
	}

	var payload metadataPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp metadata: %w", err)
	}

	return &engine.Metadata{Title: payload.Title, Ext: payload.Ext}, nil
}

// buildArgs assembles the yt-dlp command line for one fetch.
func buildArgs(url string, opts engine.Options) []string {
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--no-simulate",
		"--dump-single-json",
		"-f", opts.Format,
		"-o", opts.OutputTemplate,
	}

	if opts.ExtractAudio {
		args = append(args, "-x", "--audio-format", opts.AudioFormat)
	}

	if opts.SkipCertVerification() {
		args = append(args, "--no-check-certificates")
	}

	return append(args, url)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
