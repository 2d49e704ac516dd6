// Package fetch streams artifacts to disk with a shared concurrency cap,
// bounded retries, and optional checksum verification. Payloads are never
// buffered in memory — installers can be larger than RAM on the small
// machines this runs on.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/exileshud/exiles-installer/internal/resolver"
)

const maxAttempts = 3 // initial try plus two retries

// Kind classifies a fetch failure.
type Kind string

const (
	NetworkFailure   Kind = "network_failure"
	ChecksumMismatch Kind = "checksum_mismatch"
	Timeout          Kind = "timeout"
	// LocalIO is a failure on this machine (disk, permissions), not on
	// the network. Retrying the download will not fix it.
	LocalIO Kind = "local_io"
)

// Error is a fetch failure with its kind preserved.
type Error struct {
	Kind    Kind
	EntryID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.EntryID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher downloads artifacts into per-entry subdirectories of the
// download directory. The concurrency cap is shared across the batch —
// release hosts rate-limit aggressive clients, and saturating the uplink
// starves everything else on the machine.
type Fetcher struct {
	client *http.Client
	dir    string
	sem    chan struct{}
	active atomic.Int32
}

// New creates a Fetcher. maxConcurrent bounds simultaneous downloads;
// timeout bounds each individual request.
func New(dir string, maxConcurrent int, timeout time.Duration) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		dir:    dir,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Active reports the number of downloads currently in flight.
func (f *Fetcher) Active() int {
	return int(f.active.Load())
}

// EntryDir returns the temp directory used for an entry's artifact.
// Per-entry subpaths keep concurrent fetches from ever colliding.
func (f *Fetcher) EntryDir(entryID string) string {
	return filepath.Join(f.dir, entryID)
}

// Cleanup removes an entry's temp directory.
func (f *Fetcher) Cleanup(entryID string) error {
	return os.RemoveAll(f.EntryDir(entryID))
}

// Fetch downloads the artifact and returns the local file path. On a
// checksum mismatch the file is deleted and never returned. Network
// failures are retried with short backoff before giving up.
func (f *Fetcher) Fetch(ctx context.Context, entryID string, art *resolver.Artifact) (string, error) {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-f.sem }()

	f.active.Add(1)
	defer f.active.Add(-1)

	// The filename comes from remote-updatable data (catalog field or
	// GitHub asset name); strip any path components so it cannot write
	// outside the per-entry directory.
	name := filepath.Base(filepath.FromSlash(art.Filename))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", &Error{Kind: LocalIO, EntryID: entryID, Err: fmt.Errorf("unusable artifact filename %q", art.Filename)}
	}

	dir := f.EntryDir(entryID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{Kind: LocalIO, EntryID: entryID, Err: err}
	}
	dest := filepath.Join(dir, name)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}
		err := f.download(ctx, dest, art, entryID)
		if err == nil {
			return dest, nil
		}
		var fe *Error
		if errors.As(err, &fe) && (fe.Kind == ChecksumMismatch || fe.Kind == LocalIO) {
			// Corrupt payloads and local disk problems don't get better
			// with another request.
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", lastErr
}

func (f *Fetcher) download(ctx context.Context, dest string, art *resolver.Artifact, entryID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, art.URL, nil)
	if err != nil {
		return &Error{Kind: NetworkFailure, EntryID: entryID, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &Error{Kind: classify(err), EntryID: entryID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: NetworkFailure, EntryID: entryID, Err: fmt.Errorf("status %d for %s", resp.StatusCode, art.URL)}
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &Error{Kind: LocalIO, EntryID: entryID, Err: err}
	}

	var body io.Reader = resp.Body
	hasher := sha256.New()
	if art.Checksum != "" {
		body = io.TeeReader(resp.Body, hasher)
	}

	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(dest)
		return &Error{Kind: classify(err), EntryID: entryID, Err: err}
	}
	if closeErr != nil {
		os.Remove(dest)
		return &Error{Kind: LocalIO, EntryID: entryID, Err: closeErr}
	}
	if art.Size > 0 && written != art.Size {
		os.Remove(dest)
		return &Error{Kind: NetworkFailure, EntryID: entryID, Err: fmt.Errorf("short download: got %d of %d bytes", written, art.Size)}
	}

	if art.Checksum != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(got, art.Checksum) {
			os.Remove(dest)
			return &Error{
				Kind:    ChecksumMismatch,
				EntryID: entryID,
				Err:     fmt.Errorf("expected %s, got %s", art.Checksum, got),
			}
		}
	}
	return nil
}

func classify(err error) Kind {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return NetworkFailure
}
