package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/cache"
	"github.com/five82/quire/internal/config"
	"github.com/five82/quire/internal/library"
	"github.com/five82/quire/internal/session"
	"github.com/five82/quire/internal/ui"
)

// Options configure the quire application.
type Options struct {
	ConfigPath string        // empty uses ~/.config/quire/config.toml
	PollEvery  time.Duration // zero uses the default
	Logger     logr.Logger
}

// Env is what every command needs: the resolved config, the session file
// and a client that reads its token from that file.
type Env struct {
	Config  config.Config
	Session *session.Store
	Client  *api.Client
	Log     logr.Logger
}

// Setup loads config and builds the session store and API client.
func Setup(opts Options) (*Env, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store := session.NewStore(cfg.SessionPath, cfg.Token)
	client, err := NewClient(cfg, store, log)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	return &Env{Config: cfg, Session: store, Client: client, Log: log}, nil
}

// NewClient builds an API client from cfg.
func NewClient(cfg config.Config, creds api.Credentials, log logr.Logger) (*api.Client, error) {
	return api.NewClient(cfg.APIURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithCredentials(creds),
		api.WithLogger(log.WithName("api")),
	)
}

// Run boots the quire TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}

	sess, err := env.Session.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(time.Now()) && env.Config.Token == "" {
		env.Log.Info("session token has expired, run quire login", "path", env.Session.Path())
	}

	tree := library.New(env.Client.Library, env.Log.WithName("library"))
	store := &cache.Store{}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}

	// Populate the store before the UI starts so the first frame has data.
	_ = refresh(ctx, store, tree, env.Log)
	StartPoller(ctx, store, tree, interval, env.Log)

	return ui.Run(ctx, ui.Options{
		Client:     env.Client,
		Tree:       tree,
		Store:      store,
		Session:    env.Session,
		ThemeName:  sess.ThemeOrDefault(),
		MinEntries: env.Config.PageSize,
		Logger:     env.Log.WithName("ui"),
	})
}
