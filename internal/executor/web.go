package executor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

// webExecutor handles entries that are web tools rather than downloads:
// it dispatches the URL to the user's default browser and reports success
// immediately. Nothing is fetched or verified for this strategy.
type webExecutor struct {
	// open overrides the platform open command in tests.
	open func(ctx context.Context, url string) error
}

func (w *webExecutor) Strategy() catalog.InstallType { return catalog.TypeWeb }
func (w *webExecutor) Exclusive() bool               { return false }

func (w *webExecutor) Run(ctx context.Context, entry catalog.Entry, _ string) (Result, error) {
	open := w.open
	if open == nil {
		open = openBrowser
	}
	if err := open(ctx, entry.URL); err != nil {
		return Result{}, &Error{Kind: NonZeroExit, EntryID: entry.ID, Err: fmt.Errorf("open browser: %w", err)}
	}
	return Result{
		Detail:           "opened in browser — bookmark it to keep it handy",
		RequiresBookmark: true,
	}, nil
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", url)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	return cmd.Start()
}
