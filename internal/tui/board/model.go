// Package board renders the signal board in the terminal. It is a read-mostly
// view over the cache; the only write path is the refresh keybinding, which
// goes through the engine like every other caller.
package board

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/registry"
	"github.com/alexisbeaulieu97/signalboard/internal/view"
)

// Model is the board's bubbletea model.
type Model struct {
	engine   *engine.Engine
	registry *registry.Registry
	cache    *cache.Store

	views  []view.Signal
	cursor int

	spinner    spinner.Model
	refreshing bool
	errMsg     string

	width  int
	height int

	now func() time.Time
}

// NewModel creates the board model with the current cache contents.
func NewModel(eng *engine.Engine, reg *registry.Registry, store *cache.Store) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		engine:   eng,
		registry: reg,
		cache:    store,
		spinner:  s,
		width:    80,
		height:   24,
		now:      func() time.Time { return time.Now().UTC() },
	}
	m.reloadViews()
	return m
}

// Init starts the spinner and the age ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) reloadViews() {
	m.views = view.Build(m.registry.List(), m.cache.GetAll(), m.now())
	if m.cursor >= len(m.views) && len(m.views) > 0 {
		m.cursor = len(m.views) - 1
	}
}
