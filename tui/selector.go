package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/exileshud/exiles-installer/internal/catalog"
)

type selectorModel struct {
	form    *huh.Form
	entries []catalog.Entry
	result  *[]*catalog.Entry // heap-allocated so the form's captured pointer stays valid
	done    bool
	quit    bool
}

func newSelectorModel(entries []catalog.Entry) selectorModel {
	result := make([]*catalog.Entry, 0)

	opts := make([]huh.Option[*catalog.Entry], len(entries))
	for i := range entries {
		e := &entries[i]
		label := e.Name
		if e.Category != "" {
			label += "  [" + e.Category + "]"
		}
		if !e.Optional {
			label += "  (required)"
		}
		// Required tools start selected; everything else is opt-in.
		opts[i] = huh.NewOption(label, e).Selected(!e.Optional)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[*catalog.Entry]().
				Title("Select tools to install").
				Description("space: toggle  •  enter: confirm  •  /: filter  •  q: quit").
				Options(opts...).
				Filterable(true).
				Value(&result),
		),
	).WithTheme(huhTheme).WithHeight(20)

	return selectorModel{
		form:    form,
		entries: entries,
		result:  &result,
	}
}

func (m selectorModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.done = true
	case huh.StateAborted:
		m.quit = true
		return m, tea.Quit
	}

	return m, cmd
}

func (m selectorModel) View() string {
	return m.form.View()
}

// selectedIDs returns the ids the user left checked.
func (m selectorModel) selectedIDs() map[string]bool {
	ids := make(map[string]bool)
	if m.result == nil {
		return ids
	}
	for _, e := range *m.result {
		if e != nil {
			ids[e.ID] = true
		}
	}
	return ids
}
