// Package poststep runs the allow-listed actions declared after an
// entry's primary install. The action grammar is closed on purpose: a
// catalog is remote-updatable data, so it never gets an interpreter.
package poststep

import (
	"fmt"
	"strings"
)

// Action is one parsed post-step action.
type Action interface {
	verb() string
}

// Run executes a script from the allow-list registry.
type Run struct {
	Script string
	Args   []string
}

// Copy copies a file to a destination path.
type Copy struct {
	Src string
	Dst string
}

// Shortcut links a target into the shortcut directory under the given name.
type Shortcut struct {
	Target string
	Name   string
}

func (Run) verb() string      { return "run" }
func (Copy) verb() string     { return "copy" }
func (Shortcut) verb() string { return "shortcut" }

// Parse checks a post-step script against the action grammar:
//
//	run <script-name> [args...]
//	copy <src> <dst>
//	shortcut <target> <name>
//
// Whether a run script is actually allow-listed is a registry question
// answered at execution time; Parse only enforces the grammar.
func Parse(name, script string) (Action, error) {
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	switch fields[0] {
	case "run":
		if len(fields) < 2 {
			return nil, fmt.Errorf("run requires a script name")
		}
		return Run{Script: fields[1], Args: fields[2:]}, nil
	case "copy":
		if len(fields) != 3 {
			return nil, fmt.Errorf("copy requires exactly a source and a destination")
		}
		return Copy{Src: fields[1], Dst: fields[2]}, nil
	case "shortcut":
		if len(fields) != 3 {
			return nil, fmt.Errorf("shortcut requires exactly a target and a name")
		}
		return Shortcut{Target: fields[1], Name: fields[2]}, nil
	default:
		return nil, fmt.Errorf("unknown action %q (allowed: run, copy, shortcut)", fields[0])
	}
}
