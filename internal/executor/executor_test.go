package executor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

func TestWingetAlreadyInstalled(t *testing.T) {
	tests := []struct {
		output string
		want   bool
	}{
		{"Found an existing package already installed.", true},
		{"ALREADY INSTALLED", true},
		{"error 0x8A15002B: package present", true},
		{"0x8a15002b", true},
		{"Successfully installed", false},
		{"error 0x80070005: access denied", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wingetAlreadyInstalled(tt.output), "output %q", tt.output)
	}
}

func TestWinget_managerUnavailable(t *testing.T) {
	w := &wingetExecutor{bin: "definitely-not-a-real-binary-3f9a"}
	_, err := w.Run(context.Background(), catalog.Entry{ID: "edmc", WingetID: "EDCD.EDMarketConnector"}, "")

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, ManagerUnavailable, xerr.Kind)
	assert.Equal(t, "edmc", xerr.EntryID)
	assert.Contains(t, xerr.Err.Error(), "App Installer")
}

func TestWinget_isExclusive(t *testing.T) {
	assert.True(t, (&wingetExecutor{}).Exclusive())
	assert.False(t, (&processExecutor{}).Exclusive())
	assert.False(t, (&zipExecutor{}).Exclusive())
	assert.False(t, (&webExecutor{}).Exclusive())
}

func TestWeb_requiresBookmark(t *testing.T) {
	var opened string
	w := &webExecutor{open: func(_ context.Context, url string) error {
		opened = url
		return nil
	}}

	res, err := w.Run(context.Background(), catalog.Entry{ID: "inara", URL: "https://inara.cz"}, "")
	require.NoError(t, err)
	assert.True(t, res.RequiresBookmark)
	assert.Equal(t, "https://inara.cz", opened)
}

func TestWeb_openFailure(t *testing.T) {
	w := &webExecutor{open: func(context.Context, string) error {
		return errors.New("no browser")
	}}

	_, err := w.Run(context.Background(), catalog.Entry{ID: "inara", URL: "https://inara.cz"}, "")
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, NonZeroExit, xerr.Kind)
}

func writeZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for fname, body := range files {
		f, err := zw.Create(fname)
		require.NoError(t, err)
		f.Write([]byte(body))
	}
	require.NoError(t, zw.Close())
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestZip_extractsIntoInstallRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "tools")
	artifact := writeZip(t, dir, "overlay-2.1.zip", map[string]string{"overlay.exe": "MZ"})

	z := &zipExecutor{installRoot: root}
	res, err := z.Run(context.Background(), catalog.Entry{ID: "overlay", InstallType: catalog.TypeZip}, artifact)
	require.NoError(t, err)

	// No extract_to configured: the archive name minus extension is used.
	assert.FileExists(t, filepath.Join(root, "overlay-2.1", "overlay.exe"))
	assert.Contains(t, res.Detail, "overlay-2.1")
}

func TestZip_honorsExtractTo(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "tools")
	artifact := writeZip(t, dir, "bundle.zip", map[string]string{"a.txt": "a"})

	z := &zipExecutor{installRoot: root}
	_, err := z.Run(context.Background(), catalog.Entry{ID: "bundle", ExtractTo: "hud/bundle"}, artifact)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "hud", "bundle", "a.txt"))
}

func TestZip_missingArtifact(t *testing.T) {
	z := &zipExecutor{installRoot: t.TempDir()}
	_, err := z.Run(context.Background(), catalog.Entry{ID: "bundle"}, "")

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, ExtractionFailure, xerr.Kind)
}

func TestProcess_archiveUnpacksBesideArtifact(t *testing.T) {
	dir := t.TempDir()
	artifact := writeZip(t, dir, "tool.zip", map[string]string{"tool.exe": "MZ"})

	p := &processExecutor{strategy: catalog.TypeGitHub}
	res, err := p.Run(context.Background(), catalog.Entry{ID: "tool"}, artifact)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "unpacked", "tool.exe"))
	assert.Contains(t, res.Detail, "unpacked")
}

func TestProcess_plainPayload(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(artifact, []byte("{}"), 0644))

	p := &processExecutor{strategy: catalog.TypeDirect}
	res, err := p.Run(context.Background(), catalog.Entry{ID: "profile"}, artifact)
	require.NoError(t, err)
	assert.Equal(t, "downloaded profile.json", res.Detail)
}

func TestProcess_installerExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script standing in for an installer")
	}
	dir := t.TempDir()
	artifact := filepath.Join(dir, "setup.exe")
	require.NoError(t, os.WriteFile(artifact, []byte("#!/bin/sh\necho install failed\nexit 7\n"), 0755))

	p := &processExecutor{strategy: catalog.TypeDirect}
	_, err := p.Run(context.Background(), catalog.Entry{ID: "setup"}, artifact)

	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, NonZeroExit, xerr.Kind)
	assert.Contains(t, xerr.Err.Error(), "code 7")
	assert.Contains(t, xerr.Err.Error(), "install failed")
}

func TestSet_coversEveryStrategy(t *testing.T) {
	s := NewSet(t.TempDir())
	for _, typ := range []catalog.InstallType{
		catalog.TypeGitHub, catalog.TypeDirect, catalog.TypeZip, catalog.TypeWinget, catalog.TypeWeb,
	} {
		e, ok := s.For(typ)
		require.True(t, ok, "no executor for %s", typ)
		assert.Equal(t, typ, e.Strategy())
	}
}

type fakeExecutor struct {
	strategy catalog.InstallType
}

func (f *fakeExecutor) Strategy() catalog.InstallType { return f.strategy }
func (f *fakeExecutor) Exclusive() bool               { return false }
func (f *fakeExecutor) Run(context.Context, catalog.Entry, string) (Result, error) {
	return Result{Detail: "fake"}, nil
}

func TestSet_replace(t *testing.T) {
	s := NewSet(t.TempDir())
	s.Replace(&fakeExecutor{strategy: catalog.TypeWinget})

	e, ok := s.For(catalog.TypeWinget)
	require.True(t, ok)
	res, err := e.Run(context.Background(), catalog.Entry{}, "")
	require.NoError(t, err)
	assert.Equal(t, "fake", res.Detail)
}
