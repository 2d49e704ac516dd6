package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/extractor"
)

// processExecutor installs github and direct entries by running the
// fetched artifact as a native installer.
type processExecutor struct {
	strategy catalog.InstallType
}

func (p *processExecutor) Strategy() catalog.InstallType { return p.strategy }
func (p *processExecutor) Exclusive() bool               { return false }

func (p *processExecutor) Run(ctx context.Context, entry catalog.Entry, artifactPath string) (Result, error) {
	if artifactPath == "" {
		return Result{}, &Error{Kind: NonZeroExit, EntryID: entry.ID, Err: fmt.Errorf("no artifact to install")}
	}
	name := strings.ToLower(filepath.Base(artifactPath))
	switch {
	case strings.HasSuffix(name, ".exe") || strings.HasSuffix(name, ".msi"):
		return runInstaller(ctx, entry.ID, artifactPath)
	case isArchive(name):
		dest := filepath.Join(filepath.Dir(artifactPath), "unpacked")
		if err := extractor.Extract(artifactPath, dest); err != nil {
			return Result{}, &Error{Kind: ExtractionFailure, EntryID: entry.ID, Err: err}
		}
		return Result{Detail: "extracted to " + dest}, nil
	default:
		// Plain payload, nothing to execute. The post steps decide
		// where it ends up.
		return Result{Detail: "downloaded " + filepath.Base(artifactPath)}, nil
	}
}

// zipExecutor installs archive entries by extracting them into the
// install root.
type zipExecutor struct {
	installRoot string
}

func (z *zipExecutor) Strategy() catalog.InstallType { return catalog.TypeZip }
func (z *zipExecutor) Exclusive() bool               { return false }

func (z *zipExecutor) Run(ctx context.Context, entry catalog.Entry, artifactPath string) (Result, error) {
	if artifactPath == "" {
		return Result{}, &Error{Kind: ExtractionFailure, EntryID: entry.ID, Err: fmt.Errorf("no artifact to extract")}
	}
	target := entry.ExtractTo
	if target == "" {
		base := filepath.Base(artifactPath)
		target = strings.TrimSuffix(base, filepath.Ext(base))
	}
	dest := filepath.Join(z.installRoot, target)
	if err := extractor.Extract(artifactPath, dest); err != nil {
		return Result{}, &Error{Kind: ExtractionFailure, EntryID: entry.ID, Err: err}
	}
	slog.Debug("archive extracted", "entry", entry.ID, "dest", dest)
	return Result{Detail: "extracted to " + dest}, nil
}

// runInstaller launches a downloaded installer and waits for it.
// MSI packages go through msiexec; executables get the common silent flag.
func runInstaller(ctx context.Context, entryID, path string) (Result, error) {
	var cmd *exec.Cmd
	if strings.HasSuffix(strings.ToLower(path), ".msi") {
		cmd = exec.CommandContext(ctx, "msiexec", "/i", path, "/quiet", "/norestart")
	} else {
		cmd = exec.CommandContext(ctx, path, "/S")
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return Result{}, &Error{
				Kind:    NonZeroExit,
				EntryID: entryID,
				Err:     fmt.Errorf("installer exited with code %d: %s", ee.ExitCode(), firstLine(out)),
			}
		}
		return Result{}, &Error{Kind: NonZeroExit, EntryID: entryID, Err: err}
	}
	return Result{Detail: "installer completed"}, nil
}

func isArchive(name string) bool {
	for _, ext := range []string{".zip", ".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.bz2"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
