package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/cache"
	"github.com/five82/quire/internal/library"
)

type pane int

const (
	paneLibrary pane = iota
	paneEntries
)

type tickMsg time.Time

type themeSavedMsg struct{ err error }

// Model is the bubbletea model behind quire's browser.
type Model struct {
	ctx      context.Context
	client   *api.Client
	tree     *library.Tree
	store    *cache.Store
	prefs    ThemeSaver
	log      logr.Logger
	interval time.Duration
	minItems int

	keys keyMap
	help help.Model

	theme    Theme
	width    int
	height   int
	focus    pane
	showHelp bool

	snapshot cache.Snapshot
	children *cache.Cache[[]library.Node]
	expanded *library.Expansion
	loading  map[string]bool
	rows     []library.Node
	cursor   int

	open        *library.Node
	trav        *api.Traversal[entry]
	items       []entry
	read        map[string]bool
	entryCursor int
	fetching    bool

	status string
	err    error
}

// NewModel builds the model. Options are validated by Run.
func NewModel(ctx context.Context, opts Options) Model {
	interval := opts.RefreshEvery
	if interval <= 0 {
		interval = defaultUIInterval
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	m := Model{
		ctx:      ctx,
		client:   opts.Client,
		tree:     opts.Tree,
		store:    opts.Store,
		prefs:    opts.Session,
		log:      log,
		interval: interval,
		minItems: opts.MinEntries,
		keys:     defaultKeyMap(),
		help:     help.New(),
		theme:    GetTheme(opts.ThemeName),
		children: cache.New(childrenTTL, cloneNodes),
		expanded: &library.Expansion{},
		loading:  make(map[string]bool),
		trav:     &api.Traversal[entry]{},
		read:     make(map[string]bool),
	}
	m.snapshot = m.store.Snapshot()
	m.rows, _ = flatten(m.snapshot.Roots, m.expanded, m.children)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snapshot = m.store.Snapshot()
		return m, tea.Batch(m.relayout(), m.tick())

	case childrenMsg:
		delete(m.loading, msg.folderID)
		if msg.err != nil {
			m.expanded.Collapse(msg.folderID)
			m.setError(msg.err)
		} else {
			m.children.Set(childrenKey(msg.folderID), msg.nodes)
		}
		return m, m.relayout()

	case entriesMsg:
		if msg.gen != m.trav.Generation() {
			return m, nil
		}
		m.fetching = false
		if errors.Is(msg.err, api.ErrDone) {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.items = m.trav.Items()
		if len(m.items) < m.minItems && !m.trav.Done() {
			m.fetching = true
			return m, loadMoreCmd(m.ctx, m.trav)
		}
		return m, nil

	case markedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.read[msg.key] = true
		m.status = "Marked as read"
		return m, nil

	case themeSavedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("save theme: %w", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.trav.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.status = "Theme: " + m.theme.Name
		return m, saveThemeCmd(m.prefs, m.theme.Name)
	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneLibrary {
			m.focus = paneEntries
		} else {
			m.focus = paneLibrary
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.focus = paneLibrary
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.children.InvalidateFamily(childrenFamily)
		m.status = "Reloading folders"
		return m, m.relayout()
	case key.Matches(msg, m.keys.More):
		return m.loadMore()
	case key.Matches(msg, m.keys.MarkRead):
		return m.markRead()
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.focus == paneEntries {
			if e, ok := m.currentEntry(); ok && e.Link != "" {
				m.status = e.Link
			}
			return m, nil
		}
		return m.activate()
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if m.focus == paneEntries {
		m.entryCursor = clamp(m.entryCursor+delta, len(m.items))
		return
	}
	m.cursor = clamp(m.cursor+delta, len(m.rows))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// activate toggles the folder under the cursor or opens the entry list of
// a feed or collection.
func (m Model) activate() (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	node := m.rows[m.cursor]
	if node.IsFolder() {
		m.expanded.Toggle(node.ID())
		return m, m.relayout()
	}

	pager := entryPager(m.client, node)
	if pager == nil {
		return m, nil
	}
	m.trav.Restart(pager)
	m.open = &node
	m.items = nil
	m.entryCursor = 0
	m.focus = paneEntries
	m.fetching = true
	m.err = nil
	m.status = ""
	return m, loadMoreCmd(m.ctx, m.trav)
}

func (m Model) loadMore() (tea.Model, tea.Cmd) {
	if m.open == nil || m.fetching {
		return m, nil
	}
	if m.trav.Done() {
		m.status = "No more entries"
		return m, nil
	}
	m.fetching = true
	m.status = ""
	return m, loadMoreCmd(m.ctx, m.trav)
}

func (m Model) markRead() (tea.Model, tea.Cmd) {
	e, ok := m.currentEntry()
	if !ok || m.focus != paneEntries {
		return m, nil
	}
	if !e.markable() {
		m.status = "Feed entries are read-only; open a collection to mark entries"
		return m, nil
	}
	if e.HasRead || m.read[e.key()] {
		m.status = "Already read"
		return m, nil
	}
	return m, markReadCmd(m.ctx, m.client, e)
}

func (m Model) currentEntry() (entry, bool) {
	if m.entryCursor < 0 || m.entryCursor >= len(m.items) {
		return entry{}, false
	}
	return m.items[m.entryCursor], true
}

// relayout rebuilds the sidebar rows and asks for the children of expanded
// folders that are not cached yet.
func (m *Model) relayout() tea.Cmd {
	var selected string
	if m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].ID()
	}
	rows, missing := flatten(m.snapshot.Roots, m.expanded, m.children)
	m.rows = rows
	m.cursor = clamp(m.cursor, len(rows))
	for i, n := range rows {
		if n.ID() == selected {
			m.cursor = i
			break
		}
	}

	var cmds []tea.Cmd
	for _, folder := range missing {
		if m.loading[folder.ID()] {
			continue
		}
		m.loading[folder.ID()] = true
		cmds = append(cmds, loadChildrenCmd(m.ctx, m.tree, folder))
	}
	return tea.Batch(cmds...)
}

// setError records err for display. Cancellation is never shown.
func (m *Model) setError(err error) {
	if api.IsCancelled(err) {
		return
	}
	m.log.V(1).Info("ui action failed", "error", err.Error())
	m.err = err
	m.status = ""
}

func saveThemeCmd(prefs ThemeSaver, name string) tea.Cmd {
	if prefs == nil {
		return nil
	}
	return func() tea.Msg {
		return themeSavedMsg{err: prefs.SetTheme(name)}
	}
}
