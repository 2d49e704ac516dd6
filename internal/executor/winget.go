package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

// wingetAlreadyInstalled is the success-detection contract for winget:
// a non-zero exit still counts as success when the output carries one of
// these markers. 0x8A15002B is APPINSTALLER_CLI_ERROR_PACKAGE_ALREADY_INSTALLED.
func wingetAlreadyInstalled(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "already installed") || strings.Contains(lower, "0x8a15002b")
}

// wingetExecutor installs package-manager entries. It is exclusive: the
// package database cannot take concurrent writers.
type wingetExecutor struct {
	bin string
}

func (w *wingetExecutor) Strategy() catalog.InstallType { return catalog.TypeWinget }
func (w *wingetExecutor) Exclusive() bool               { return true }

func (w *wingetExecutor) Run(ctx context.Context, entry catalog.Entry, _ string) (Result, error) {
	if _, err := exec.LookPath(w.bin); err != nil {
		return Result{}, &Error{
			Kind:    ManagerUnavailable,
			EntryID: entry.ID,
			Err:     fmt.Errorf("%s not found on PATH — install App Installer from the Microsoft Store", w.bin),
		}
	}

	cmd := exec.CommandContext(ctx, w.bin, "install", "--id", entry.WingetID,
		"--silent", "--accept-package-agreements", "--accept-source-agreements")
	out, err := cmd.CombinedOutput()
	if err == nil {
		return Result{Detail: "installed via winget"}, nil
	}
	if wingetAlreadyInstalled(string(out)) {
		return Result{Detail: "already installed"}, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return Result{}, &Error{
			Kind:    NonZeroExit,
			EntryID: entry.ID,
			Err:     fmt.Errorf("winget exited with code %d: %s", ee.ExitCode(), firstLine(out)),
		}
	}
	return Result{}, &Error{Kind: NonZeroExit, EntryID: entry.ID, Err: err}
}
