package extractor_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/exileshud/exiles-installer/internal/extractor"
)

func TestExtract_tarGz(t *testing.T) {
	// Build a .tar.gz with a single file "tool.exe"
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("MZ fake installer")
	tw.WriteHeader(&tar.Header{Name: "tool.exe", Mode: 0755, Size: int64(len(content))})
	tw.Write(content)
	tw.Close()
	gz.Close()

	src, _ := os.CreateTemp("", "test-*.tar.gz")
	src.Write(buf.Bytes())
	src.Close()
	defer os.Remove(src.Name())

	dst, _ := os.MkdirTemp("", "extract-dst-*")
	defer os.RemoveAll(dst)

	if err := extractor.Extract(src.Name(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "tool.exe")); err != nil {
		t.Errorf("tool.exe not found in dst: %v", err)
	}
}

func TestExtract_zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("overlay/tool.exe")
	f.Write([]byte("binary"))
	zw.Close()

	src, _ := os.CreateTemp("", "test-*.zip")
	src.Write(buf.Bytes())
	src.Close()
	defer os.Remove(src.Name())

	dst, _ := os.MkdirTemp("", "extract-dst-*")
	defer os.RemoveAll(dst)

	if err := extractor.Extract(src.Name(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "overlay", "tool.exe")); err != nil {
		t.Errorf("overlay/tool.exe not found in dst: %v", err)
	}
}

func TestExtract_txz(t *testing.T) {
	// Build a .txz (xz-compressed tar) with a single file "tool"
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("create xz writer: %v", err)
	}
	tw := tar.NewWriter(xw)
	content := []byte("#!/bin/sh\necho hello")
	tw.WriteHeader(&tar.Header{Name: "tool", Mode: 0755, Size: int64(len(content))})
	tw.Write(content)
	tw.Close()
	xw.Close()

	src, _ := os.CreateTemp("", "test-*.txz")
	src.Write(buf.Bytes())
	src.Close()
	defer os.Remove(src.Name())

	dst, _ := os.MkdirTemp("", "extract-dst-*")
	defer os.RemoveAll(dst)

	if err := extractor.Extract(src.Name(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "tool")); err != nil {
		t.Errorf("tool not found in dst: %v", err)
	}
}

func TestExtract_rawBinary(t *testing.T) {
	src, _ := os.CreateTemp("", "mytool-1.2.3-windows-amd64")
	src.Write([]byte("MZ binary content"))
	src.Close()
	defer os.Remove(src.Name())

	dst, _ := os.MkdirTemp("", "extract-dst-*")
	defer os.RemoveAll(dst)

	if err := extractor.Extract(src.Name(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, _ := os.ReadDir(dst)
	if len(entries) != 1 {
		t.Fatalf("expected 1 file in dst, got %d", len(entries))
	}
	info, _ := entries[0].Info()
	if info.Mode()&0111 == 0 {
		t.Error("raw binary should be executable")
	}
}

func TestExtract_sanitizesTraversal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("../evil.exe")
	f.Write([]byte("nope"))
	zw.Close()

	src, _ := os.CreateTemp("", "test-*.zip")
	src.Write(buf.Bytes())
	src.Close()
	defer os.Remove(src.Name())

	dst, _ := os.MkdirTemp("", "extract-dst-*")
	defer os.RemoveAll(dst)

	if err := extractor.Extract(src.Name(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The traversal component must be stripped, keeping the file inside dst.
	if _, err := os.Stat(filepath.Join(dst, "evil.exe")); err != nil {
		t.Errorf("sanitized entry not found in dst: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "evil.exe")); err == nil {
		t.Error("entry escaped the target dir")
	}
}
