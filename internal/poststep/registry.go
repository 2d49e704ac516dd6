package poststep

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Registry is the allow-list of scripts a catalog may reference with the
// run action. It ships with the installer (scripts.toml), never with the
// catalog.
type Registry struct {
	scripts map[string]string
}

// LoadRegistry parses scripts.toml at path:
//
//	[scripts]
//	configure-edmc = "scripts/configure-edmc.ps1"
func LoadRegistry(path string) (*Registry, error) {
	var raw struct {
		Scripts map[string]string `toml:"scripts"`
	}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parse script registry: %w", err)
	}
	return &Registry{scripts: raw.Scripts}, nil
}

// EmptyRegistry returns a registry that allows nothing. Used when no
// scripts.toml is present: every run action then fails closed.
func EmptyRegistry() *Registry {
	return &Registry{scripts: map[string]string{}}
}

// Lookup resolves an allow-listed script name to its local path.
func (r *Registry) Lookup(name string) (string, bool) {
	p, ok := r.scripts[name]
	return p, ok
}
