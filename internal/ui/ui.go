package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/cache"
	"github.com/five82/quire/internal/library"
)

const (
	// defaultUIInterval is how often the model re-reads the poller snapshot.
	defaultUIInterval = time.Second

	// childrenTTL bounds how long an expanded folder shows stale children.
	childrenTTL = 5 * time.Minute
)

// ThemeSaver persists the chosen theme. session.Store implements it.
type ThemeSaver interface {
	SetTheme(name string) error
}

// Options configure the UI runtime.
type Options struct {
	Client  *api.Client
	Tree    *library.Tree
	Store   *cache.Store
	Session ThemeSaver // nil keeps theme changes in memory

	ThemeName    string
	MinEntries   int           // entries to load before waiting for m
	RefreshEvery time.Duration // zero uses one second
	Logger       logr.Logger
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Client == nil || opts.Tree == nil {
		return fmt.Errorf("ui requires an api client and library tree")
	}
	if opts.Store == nil {
		return fmt.Errorf("ui requires a snapshot store")
	}

	model := NewModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
