// Package update checks the squad server for newer installer builds and
// catalog revisions.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

// Info is the result of an update check.
type Info struct {
	CurrentVersion    string
	LatestVersion     string
	InstallerOutdated bool
	CatalogUpdated    string
	CatalogOutdated   bool
}

// Checker queries the update endpoints.
type Checker struct {
	checkURL   string
	catalogURL string
	version    string
	httpClient *http.Client
}

// NewChecker creates a Checker for the given endpoints. version is the
// running installer's own version string.
func NewChecker(checkURL, catalogURL, version string) *Checker {
	return &Checker{
		checkURL:   checkURL,
		catalogURL: catalogURL,
		version:    version,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Check fetches the version document and compares it against the running
// installer and the local catalog's updated stamp.
func (c *Checker) Check(ctx context.Context, catalogUpdated string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.checkURL, nil)
	if err != nil {
		return Info{}, err
	}
	req.Header.Set("User-Agent", "ExilesInstaller/"+c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("update check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("update check: status %d", resp.StatusCode)
	}

	var doc struct {
		Version     string `json:"version"`
		AppsUpdated string `json:"apps_updated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Info{}, fmt.Errorf("update check: decode: %w", err)
	}

	info := Info{
		CurrentVersion: c.version,
		LatestVersion:  doc.Version,
		CatalogUpdated: doc.AppsUpdated,
	}
	current, err := goversion.NewVersion(c.version)
	if err != nil {
		return info, fmt.Errorf("parse current version %q: %w", c.version, err)
	}
	latest, err := goversion.NewVersion(doc.Version)
	if err != nil {
		return info, fmt.Errorf("parse latest version %q: %w", doc.Version, err)
	}
	info.InstallerOutdated = current.LessThan(latest)
	info.CatalogOutdated = doc.AppsUpdated != "" && doc.AppsUpdated != catalogUpdated
	return info, nil
}

// RefreshCatalog downloads the latest apps.json to path. The previous
// file is kept as path+".backup" and restored if the download fails or
// the downloaded document does not validate.
func (c *Checker) RefreshCatalog(ctx context.Context, path string) error {
	backup := path + ".backup"
	hadOld := false
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("back up catalog: %w", err)
		}
		hadOld = true
	}

	restore := func() {
		if hadOld {
			os.Rename(backup, path)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catalogURL, nil)
	if err != nil {
		restore()
		return err
	}
	req.Header.Set("User-Agent", "ExilesInstaller/"+c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		restore()
		return fmt.Errorf("download catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		restore()
		return fmt.Errorf("download catalog: status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		restore()
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		restore()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		restore()
		return err
	}

	// Only commit a document that actually parses as a catalog; a server
	// serving garbage must not brick the next run.
	if _, err := catalog.Load(path); err != nil {
		os.Remove(path)
		restore()
		return fmt.Errorf("downloaded catalog is invalid: %w", err)
	}

	if hadOld {
		os.Remove(backup)
	}
	return nil
}
