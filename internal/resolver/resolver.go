// Package resolver turns a catalog entry into the concrete artifact to
// fetch. Only github entries need the network here; everything else is
// either configured directly or has no artifact at all.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/exileshud/exiles-installer/internal/catalog"
	"github.com/exileshud/exiles-installer/internal/github"
)

// Kind classifies a resolution failure.
type Kind string

const (
	NoMatchingRelease Kind = "no_matching_release"
	NoMatchingAsset   Kind = "no_matching_asset"
	ReleaseLookup     Kind = "release_lookup"
)

// Error is a resolution failure with its kind preserved.
type Error struct {
	Kind    Kind
	EntryID string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s: %s: %v", e.EntryID, e.Msg, e.Err)
	}
	return fmt.Sprintf("resolve %s: %s", e.EntryID, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Artifact is the concrete download target resolved for an entry.
// Entries with no artifact (winget, web) resolve to nil.
type Artifact struct {
	URL      string
	Filename string
	Size     int64
	Checksum string // normalized lowercase sha256 hex, "" if none
}

// Resolver resolves catalog entries to artifacts.
type Resolver struct {
	gh *github.Client
}

// New creates a Resolver using the given GitHub client.
func New(gh *github.Client) *Resolver {
	return &Resolver{gh: gh}
}

// Resolve returns the artifact for an entry, or nil for strategies that
// fetch nothing.
func (r *Resolver) Resolve(ctx context.Context, e catalog.Entry) (*Artifact, error) {
	switch e.InstallType {
	case catalog.TypeGitHub:
		return r.resolveGitHub(ctx, e)
	case catalog.TypeDirect, catalog.TypeZip:
		return configured(e)
	case catalog.TypeWinget, catalog.TypeWeb:
		return nil, nil
	default:
		return nil, &Error{Kind: ReleaseLookup, EntryID: e.ID, Msg: fmt.Sprintf("unresolvable install_type %q", e.InstallType)}
	}
}

func (r *Resolver) resolveGitHub(ctx context.Context, e catalog.Entry) (*Artifact, error) {
	release, ok, err := r.gh.LatestRelease(ctx, e.GitHubRepo, e.AllowPrerelease)
	if err != nil {
		return nil, &Error{Kind: ReleaseLookup, EntryID: e.ID, Msg: "list releases", Err: err}
	}
	if !ok {
		return nil, &Error{Kind: NoMatchingRelease, EntryID: e.ID, Msg: fmt.Sprintf("no published release in %s", e.GitHubRepo)}
	}

	asset, ok := matchAsset(release.Assets, e.GitHubAsset)
	if !ok {
		return nil, &Error{
			Kind:    NoMatchingAsset,
			EntryID: e.ID,
			Msg:     fmt.Sprintf("no asset matching %q in release %s of %s", e.GitHubAsset, release.TagName, e.GitHubRepo),
		}
	}

	checksum := ""
	if e.Checksum != "" {
		checksum, _ = catalog.ParseChecksum(e.Checksum)
	}
	return &Artifact{
		URL:      asset.BrowserDownloadURL,
		Filename: asset.Name,
		Size:     asset.Size,
		Checksum: checksum,
	}, nil
}

// matchAsset picks the first asset whose name equals the pattern, or
// failing that, the first glob match.
func matchAsset(assets []github.Asset, pattern string) (github.Asset, bool) {
	for _, a := range assets {
		if a.Name == pattern {
			return a, true
		}
	}
	for _, a := range assets {
		if ok, err := path.Match(pattern, a.Name); err == nil && ok {
			return a, true
		}
	}
	return github.Asset{}, false
}

func configured(e catalog.Entry) (*Artifact, error) {
	filename := e.Filename
	if filename == "" {
		if u, err := url.Parse(e.URL); err == nil {
			filename = path.Base(u.Path)
		}
	}
	checksum := ""
	if e.Checksum != "" {
		checksum, _ = catalog.ParseChecksum(e.Checksum)
	}
	return &Artifact{URL: e.URL, Filename: filename, Checksum: checksum}, nil
}
