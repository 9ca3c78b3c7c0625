package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/five82/storeview/internal/catalog"
	"github.com/five82/storeview/internal/condastore"
	"github.com/five82/storeview/internal/config"
	"github.com/five82/storeview/internal/logging"
	"github.com/five82/storeview/internal/prefs"
	"github.com/five82/storeview/internal/state"
	"github.com/five82/storeview/internal/ui"
)

// Options configure the storeview application.
type Options struct {
	Config config.Config
	// Logger may be nil, in which case nothing is logged.
	Logger *logging.Logger
	// Viper, when set, is watched for config file changes. Only poll_interval
	// is applied without a restart.
	Viper *viper.Viper
}

// Run boots the storeview TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.Component("app")

	userPrefs, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.PrefsPath).Msg("using default preferences")
	}

	client, err := condastore.NewClient(cfg.ServerURL, cfg.APIPrefix, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init conda-store client: %w", err)
	}

	filter, err := catalog.ParseFilter(userPrefs.LastFilter)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring saved filter")
	}

	store := &state.Store{}
	poller := NewPoller(client, store, cfg.PollInterval, logger.Component("poller"))
	sel := initialSelection(cfg, userPrefs)

	if opts.Viper != nil {
		if err := config.Watch(opts.Viper, reloadConfig(poller, log)); err != nil {
			log.Debug().Err(err).Msg("config file not watched")
		}
	}

	log.Info().
		Str("server", client.BaseURL()).
		Str("selection", sel.Label()).
		Int("page_size", cfg.PageSize).
		Msg("starting storeview")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller.Run(gctx)
		return nil
	})
	g.Go(func() error {
		// Leaving the UI stops the poller.
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Store:     store,
			Engines:   NewEngineFactory(client, cfg, logger.Logger),
			Selection: sel,
			Filter:    filter,
			ThemeName: userPrefs.Theme,
			PrefsPath: cfg.PrefsPath,
			LogPath:   logger.Path(),
			ServerURL: client.BaseURL(),
			PollTick:  time.Second,
			Logger:    logger.Component("ui"),
		})
	})
	return g.Wait()
}

// reloadConfig applies a changed config file to the running poller.
func reloadConfig(poller *Poller, log zerolog.Logger) func(config.Config, error) {
	return func(cfg config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		if cfg.PollInterval != poller.Interval() {
			poller.SetInterval(cfg.PollInterval)
			log.Info().Dur("poll_interval", cfg.PollInterval).Msg("poll interval changed")
		}
	}
}

// initialSelection prefers the configured environment over the one
// remembered in prefs.
func initialSelection(cfg config.Config, p prefs.Prefs) ui.Selection {
	switch {
	case cfg.HasSelection():
		return ui.Selection{Namespace: cfg.Namespace, Environment: cfg.Environment}
	case p.HasSelection():
		return ui.Selection{Namespace: p.LastNamespace, Environment: p.LastEnvironment}
	default:
		return ui.Selection{}
	}
}

// NewEngineFactory returns a ui.EngineFactory building engines against api.
func NewEngineFactory(api condastore.API, cfg config.Config, log zerolog.Logger) ui.EngineFactory {
	return func(sel ui.Selection) *catalog.Engine {
		return NewEngine(api, cfg, sel, log)
	}
}

// NewEngine builds a reconciliation engine for sel. Without an environment
// the engine lists the catalog only.
func NewEngine(api condastore.API, cfg config.Config, sel ui.Selection, log zerolog.Logger) *catalog.Engine {
	engineLog := log.With().
		Str("component", "catalog").
		Str("selection", sel.Label()).
		Str("search", sel.Search).
		Logger()

	opts := catalog.Options{
		Catalog:  catalog.CatalogSource(api, sel.Search),
		PageSize: cfg.PageSize,
		Timeout:  cfg.LoadTimeout,
		Logger:   engineLog,
	}
	if sel.HasEnvironment() {
		opts.Installed = catalog.InstalledSource(api, sel.Namespace, sel.Environment, sel.Search)
	}

	engine := catalog.New(opts)
	engine.Subscribe(logEvents(engineLog))
	return engine
}

// logEvents returns an engine subscriber that records every state change.
func logEvents(log zerolog.Logger) func(catalog.Event) {
	return func(ev catalog.Event) {
		evt := log.Debug()
		if ev.Kind == catalog.EventFailed {
			evt = log.Warn().Err(ev.Err)
		}
		evt.Str("event", ev.Kind.String()).
			Int("catalog_pages", ev.Stats.Catalog.Fetched()).
			Int("installed_pages", ev.Stats.Installed.Fetched()).
			Int("groups", ev.Stats.Groups).
			Int("annotated", ev.Stats.Annotated).
			Int("pending", ev.Stats.Pending).
			Msg("engine event")
	}
}
