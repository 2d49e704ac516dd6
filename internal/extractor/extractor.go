// Package extractor unpacks downloaded archives into a target directory.
package extractor

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Extract dispatches on the archive's file extension. Unknown extensions
// are treated as a raw binary and copied into dstDir unchanged.
func Extract(srcPath, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	name := filepath.Base(srcPath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(srcPath, dstDir)
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return extractTar(srcPath, dstDir, "gz")
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return extractTar(srcPath, dstDir, "xz")
	case strings.HasSuffix(name, ".tar.bz2"):
		return extractTar(srcPath, dstDir, "bz2")
	default:
		return copyBinary(srcPath, dstDir)
	}
}

// safeTarget joins name under dstDir, rejecting entries that would
// escape it (zip-slip).
func safeTarget(dstDir, name string) (string, error) {
	target := filepath.Join(dstDir, filepath.Clean("/"+name)[1:])
	if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dstDir)) {
		return "", fmt.Errorf("archive entry %q escapes target dir", name)
	}
	return target, nil
}

func extractTar(srcPath, dstDir, compression string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch compression {
	case "gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gr.Close()
		r = gr
	case "bz2":
		r = bzip2.NewReader(f)
	case "xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("open xz: %w", err)
		}
		r = xr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		target, err := safeTarget(dstDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractZip(srcPath, dstDir string) error {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeTarget(dstDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyBinary(srcPath, dstDir string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(filepath.Join(dstDir, filepath.Base(srcPath)), in, 0755)
}
