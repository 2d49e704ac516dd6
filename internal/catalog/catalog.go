package catalog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/exileshud/exiles-installer/internal/poststep"
)

// ValidationError reports every invalid entry in a catalog document at
// once, rather than failing on the first problem.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed:\n%s", strings.Join(e.Problems, "\n"))
}

// Load reads and validates the apps.json document at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates an apps.json document.
func Parse(r io.Reader) (*Catalog, error) {
	var raw struct {
		Metadata Metadata        `json:"metadata"`
		Games    map[string]Game `json:"games"`
		Apps     []Entry         `json:"apps"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var problems []string
	byID := make(map[string]int, len(raw.Apps))
	seen := make(map[string]bool, len(raw.Apps))
	entries := make([]Entry, 0, len(raw.Apps))

	for i, e := range raw.Apps {
		label := e.ID
		if label == "" {
			label = fmt.Sprintf("apps[%d]", i)
		}
		errs := e.validate()
		if e.ID != "" && seen[e.ID] {
			errs = append(errs, "duplicate id")
		}
		seen[e.ID] = true
		if len(errs) > 0 {
			problems = append(problems, fmt.Sprintf("[%s]: %s", label, strings.Join(errs, ", ")))
			continue
		}
		byID[e.ID] = len(entries)
		entries = append(entries, e)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	games := make([]Game, 0, len(raw.Games))
	for id, g := range raw.Games {
		g.ID = id
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })

	return &Catalog{
		Metadata: raw.Metadata,
		entries:  entries,
		byID:     byID,
		games:    games,
	}, nil
}

// validate returns every schema problem with the entry.
func (e *Entry) validate() []string {
	var errs []string
	if e.ID == "" {
		errs = append(errs, "id is required")
	}
	if e.Name == "" {
		errs = append(errs, "name is required")
	}

	switch e.InstallType {
	case TypeGitHub:
		if e.GitHubRepo == "" {
			errs = append(errs, "github_repo is required")
		}
		if e.GitHubAsset == "" {
			errs = append(errs, "github_asset is required")
		}
	case TypeDirect, TypeZip:
		if e.URL == "" {
			errs = append(errs, "url is required")
		}
	case TypeWeb:
		if e.URL == "" {
			errs = append(errs, "url is required")
		}
	case TypeWinget:
		if e.WingetID == "" {
			errs = append(errs, "winget_id is required")
		}
	case "exe", "msi":
		// Legacy spellings from older catalogs — same contract as direct.
		e.InstallType = TypeDirect
		if e.URL == "" {
			errs = append(errs, "url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown install_type %q", e.InstallType))
	}

	if e.Checksum != "" {
		if _, err := ParseChecksum(e.Checksum); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, s := range e.PostSteps {
		if _, err := poststep.Parse(s.Name, s.Script); err != nil {
			errs = append(errs, fmt.Sprintf("post-step %q: %v", s.Name, err))
		}
	}
	return errs
}

// ParseChecksum normalizes a checksum field to a lowercase sha256 hex
// digest. A "sha256:" prefix is optional; any other algorithm prefix is
// rejected.
func ParseChecksum(s string) (string, error) {
	digest := strings.TrimSpace(s)
	if i := strings.IndexByte(digest, ':'); i >= 0 {
		algo := strings.ToLower(digest[:i])
		if algo != "sha256" {
			return "", fmt.Errorf("unsupported checksum algorithm %q", algo)
		}
		digest = digest[i+1:]
	}
	digest = strings.ToLower(digest)
	if len(digest) != 64 {
		return "", fmt.Errorf("checksum must be 64 hex digits, got %d", len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("checksum is not valid hex")
	}
	return digest, nil
}
