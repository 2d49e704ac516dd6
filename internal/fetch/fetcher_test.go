package fetch_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exileshud/exiles-installer/internal/fetch"
	"github.com/exileshud/exiles-installer/internal/resolver"
)

func sha256hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestFetch_verifiesChecksum(t *testing.T) {
	payload := []byte("installer payload bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), 2, 10*time.Second)
	path, err := f.Fetch(context.Background(), "edmc", &resolver.Artifact{
		URL:      srv.URL,
		Filename: "edmc.msi",
		Size:     int64(len(payload)),
		Checksum: sha256hex(payload),
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetch_checksumMismatchDeletesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered payload"))
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), 2, 10*time.Second)
	_, err := f.Fetch(context.Background(), "edmc", &resolver.Artifact{
		URL:      srv.URL,
		Filename: "edmc.msi",
		Checksum: sha256hex([]byte("the expected payload")),
	})

	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.ChecksumMismatch, ferr.Kind)
	assert.Equal(t, "edmc", ferr.EntryID)

	// The corrupt file must not be left on disk.
	entries, readErr := os.ReadDir(f.EntryDir("edmc"))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestFetch_retriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("eventually fine"))
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), 1, 10*time.Second)
	path, err := f.Fetch(context.Background(), "tool", &resolver.Artifact{URL: srv.URL, Filename: "tool.exe"})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_givesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), 1, 10*time.Second)
	_, err := f.Fetch(context.Background(), "tool", &resolver.Artifact{URL: srv.URL, Filename: "tool.exe"})

	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.NetworkFailure, ferr.Kind)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_respectsConcurrencyCap(t *testing.T) {
	const limit = 2

	var mu sync.Mutex
	inFlight, peak := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("data"))

		mu.Lock()
		inFlight--
		mu.Unlock()
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), limit, 10*time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("entry-%d", i)
			_, err := f.Fetch(context.Background(), id, &resolver.Artifact{URL: srv.URL, Filename: "f.bin"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, limit, "in-flight downloads exceeded the cap")
}

func TestFetch_canceledWhileQueued(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("data"))
	}))
	defer srv.Close()
	defer close(release)

	f := fetch.New(t.TempDir(), 1, 10*time.Second)

	started := make(chan struct{})
	go func() {
		close(started)
		f.Fetch(context.Background(), "hog", &resolver.Artifact{URL: srv.URL, Filename: "hog.bin"})
	}()
	<-started
	time.Sleep(20 * time.Millisecond) // let the first fetch take the slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "queued", &resolver.Artifact{URL: srv.URL, Filename: "q.bin"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_stripsPathFromFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	root := t.TempDir()
	f := fetch.New(root, 1, 10*time.Second)
	path, err := f.Fetch(context.Background(), "evil", &resolver.Artifact{
		URL:      srv.URL,
		Filename: "../../escaped.bin",
	})
	require.NoError(t, err)

	// The file lands inside the per-entry directory, whatever the
	// catalog claims its name is.
	assert.Equal(t, filepath.Join(f.EntryDir("evil"), "escaped.bin"), path)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "escaped.bin"))

	// Cleanup still reaches it.
	require.NoError(t, f.Cleanup("evil"))
	assert.NoFileExists(t, path)
}

func TestFetch_rejectsUnusableFilename(t *testing.T) {
	f := fetch.New(t.TempDir(), 1, 10*time.Second)
	for _, name := range []string{"", ".", "..", "/"} {
		_, err := f.Fetch(context.Background(), "bad", &resolver.Artifact{URL: "http://unused", Filename: name})
		var ferr *fetch.Error
		require.ErrorAs(t, err, &ferr, "filename %q", name)
		assert.Equal(t, fetch.LocalIO, ferr.Kind)
	}
}

func TestFetch_localWriteFailureIsNotNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	// Make the entry dir path unusable by putting a file where the
	// directory should go.
	root := t.TempDir()
	f := fetch.New(root, 1, 10*time.Second)
	require.NoError(t, os.WriteFile(f.EntryDir("tool"), []byte("in the way"), 0644))

	_, err := f.Fetch(context.Background(), "tool", &resolver.Artifact{URL: srv.URL, Filename: "tool.exe"})
	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.LocalIO, ferr.Kind)
}

func TestFetch_shortDownloadFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	f := fetch.New(t.TempDir(), 1, 10*time.Second)
	_, err := f.Fetch(context.Background(), "tool", &resolver.Artifact{URL: srv.URL, Filename: "tool.exe", Size: 9999})

	var ferr *fetch.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fetch.NetworkFailure, ferr.Kind)
}
