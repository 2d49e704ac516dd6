package catalog

// InstallType is the acquisition strategy for an entry.
type InstallType string

const (
	TypeGitHub InstallType = "github"
	TypeDirect InstallType = "direct"
	TypeWeb    InstallType = "web"
	TypeWinget InstallType = "winget"
	TypeZip    InstallType = "zip"
)

// PostStep is one allow-listed action run after a successful install.
type PostStep struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}

// Entry is a single installable tool from apps.json.
type Entry struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	InstallType InstallType `json:"install_type"`
	Description string      `json:"description"`
	Optional    bool        `json:"optional"`
	Category    string      `json:"category"`
	Games       []string    `json:"games"`

	// Strategy-specific parameters. Which ones are required depends on
	// InstallType — see validate.
	GitHubRepo      string `json:"github_repo"`
	GitHubAsset     string `json:"github_asset"`
	AllowPrerelease bool   `json:"allow_prerelease"`
	URL             string `json:"url"`
	Filename        string `json:"filename"`
	ExtractTo       string `json:"extract_to"`
	WingetID        string `json:"winget_id"`

	// Checksum is an optional sha256 hex digest, with or without a
	// leading "sha256:" prefix. Compared case-insensitively after fetch.
	Checksum string `json:"checksum"`

	PostSteps []PostStep `json:"post_steps"`
}

// Game is one title the catalog groups tools under.
type Game struct {
	ID   string
	Name string `json:"name"`
}

// Metadata describes the catalog document itself.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Updated string `json:"updated"`
}

// Catalog is a validated, immutable apps.json document.
type Catalog struct {
	Metadata Metadata
	entries  []Entry
	byID     map[string]int
	games    []Game
}

// Entries returns all entries in document order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks up an entry by id.
func (c *Catalog) Entry(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Games returns the declared games in document order.
func (c *Catalog) Games() []Game {
	out := make([]Game, len(c.games))
	copy(out, c.games)
	return out
}

// EntriesFor returns the entries that list the given game, in document
// order. Entries with no game list belong to every game.
func (c *Catalog) EntriesFor(gameID string) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if len(e.Games) == 0 {
			out = append(out, e)
			continue
		}
		for _, g := range e.Games {
			if g == gameID {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }
