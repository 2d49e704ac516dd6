package tui

import "github.com/charmbracelet/huh"

var huhTheme = huh.ThemeCatppuccin()
