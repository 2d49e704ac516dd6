package system

import (
	"os"
	"os/exec"
)

// EnsureDownloadDir creates the download directory if it doesn't exist.
func EnsureDownloadDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// HasCommand reports whether a command is available on PATH. Used to
// warn about a missing package manager before a batch starts instead of
// failing halfway through it.
func HasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
