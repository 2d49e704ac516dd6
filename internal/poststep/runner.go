package poststep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const stepTimeout = 120 * time.Second

// Step is one declared post-install step, as it appears in the catalog.
type Step struct {
	Name   string
	Script string
}

// Runner executes post-install steps under the allow-list registry.
type Runner struct {
	registry    *Registry
	shortcutDir string
}

// NewRunner creates a Runner. Shortcuts are created under shortcutDir.
func NewRunner(registry *Registry, shortcutDir string) *Runner {
	if registry == nil {
		registry = EmptyRegistry()
	}
	return &Runner{registry: registry, shortcutDir: shortcutDir}
}

// Run executes the steps strictly in declared order and returns one
// warning per failed step. A failed step never stops later steps — the
// primary install already succeeded, these are best-effort extras.
func (r *Runner) Run(ctx context.Context, steps []Step) []string {
	var warnings []string
	for _, s := range steps {
		if err := r.runStep(ctx, s); err != nil {
			warnings = append(warnings, fmt.Sprintf("post-step %q: %v", s.Name, err))
		}
	}
	return warnings
}

func (r *Runner) runStep(ctx context.Context, s Step) error {
	action, err := Parse(s.Name, s.Script)
	if err != nil {
		return err
	}

	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	switch a := action.(type) {
	case Run:
		path, ok := r.registry.Lookup(a.Script)
		if !ok {
			return fmt.Errorf("script %q is not allow-listed", a.Script)
		}
		cmd := exec.CommandContext(stepCtx, path, a.Args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%w: %s", err, firstLine(out))
		}
		return nil
	case Copy:
		return copyFile(a.Src, a.Dst)
	case Shortcut:
		return r.link(a.Target, a.Name)
	default:
		return fmt.Errorf("unhandled action %T", action)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// link creates a symlink at shortcutDir/name pointing to target.
// An existing symlink is replaced; a regular file in the way is an error.
func (r *Runner) link(target, name string) error {
	if err := os.MkdirAll(r.shortcutDir, 0755); err != nil {
		return err
	}
	dst := filepath.Join(r.shortcutDir, name)

	info, err := os.Lstat(dst)
	if err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%s already exists as a regular file", dst)
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("remove existing shortcut %s: %w", dst, err)
		}
	}

	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("create shortcut %s -> %s: %w", dst, target, err)
	}
	return nil
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
