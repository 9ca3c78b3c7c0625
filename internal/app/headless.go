package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/five82/storeview/internal/catalog"
	"github.com/five82/storeview/internal/condastore"
	"github.com/five82/storeview/internal/config"
	"github.com/five82/storeview/internal/ui"
)

// ErrNoEnvironment is returned when an installed listing is requested without
// a namespace and environment.
var ErrNoEnvironment = errors.New("no environment selected; set --namespace and --environment")

// PackagesOptions configures a headless package listing.
type PackagesOptions struct {
	Selection ui.Selection
	// Pages is the number of LoadMore calls. Zero loads until the catalog is
	// exhausted.
	Pages  int
	Filter catalog.Filter
	// Installed lists the environment's installed packages directly instead
	// of reconciling them against the catalog.
	Installed bool
}

// PrintStatus queries the server once and writes its status.
func PrintStatus(ctx context.Context, api ServerAPI, baseURL string, out io.Writer) error {
	status, err := api.FetchStatus(ctx)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SERVER\t%s\n", baseURL)
	fmt.Fprintf(w, "STATUS\t%s\n", status.Status)
	if status.Message != "" {
		fmt.Fprintf(w, "MESSAGE\t%s\n", status.Message)
	}
	return w.Flush()
}

// PrintEnvironments writes every environment on the server, sorted by
// namespace and name.
func PrintEnvironments(ctx context.Context, api EnvironmentLister, out io.Writer) error {
	envs, err := FetchAllEnvironments(ctx, api, envPageSize)
	if err != nil {
		return fmt.Errorf("list environments: %w", err)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Key() < envs[j].Key() })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tENVIRONMENT\tBUILD")
	for _, env := range envs {
		fmt.Fprintf(w, "%s\t%s\t%d\n", env.Namespace.Name, env.Name, env.BuildID)
	}
	return w.Flush()
}

// ListPackages runs the reconciliation engine without the TUI and writes one
// row per package group.
func ListPackages(ctx context.Context, api condastore.API, cfg config.Config, opts PackagesOptions, out io.Writer, log zerolog.Logger) error {
	if opts.Installed {
		return listInstalled(ctx, api, cfg, opts, out)
	}

	engine := NewEngine(api, cfg, opts.Selection, log)
	for calls := 0; engine.HasMore() && (opts.Pages <= 0 || calls < opts.Pages); calls++ {
		res, err := engine.LoadMore(ctx)
		if fe, ok := catalog.AsFetchError(err); ok && fe.Partial() {
			// Catalog pages already loaded are still printed.
			log.Warn().Err(err).
				Str("source", string(fe.Source)).
				Int("page", fe.Page).
				Msg("installed packages unavailable")
			break
		}
		if err != nil {
			return fmt.Errorf("load packages: %w", err)
		}
		if notice := res.Notice(); notice != nil {
			log.Info().Err(notice).Msg("installed listing ended early")
		}
	}

	channels := map[int64]string{}
	if list, err := api.FetchChannels(ctx); err != nil {
		log.Warn().Err(err).Str("source", "channels").Msg("channel names unavailable")
	} else {
		for _, ch := range list {
			channels[ch.ID] = ch.Name
		}
	}

	rows := catalog.BuildView(engine.Index(), catalog.ViewOptions{
		Filter:   opts.Filter,
		Channels: channels,
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLATEST\tINSTALLED\tCHANNEL")
	for _, r := range rows {
		installed := r.InstalledVersion
		if installed == "" {
			installed = "-"
		} else if r.Updatable {
			installed += " (update)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Latest.Version, installed, r.Channel)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := engine.Stats()
	if stats.Catalog.HasMore {
		fmt.Fprintf(out, "\n%d of %d catalog records loaded; raise --pages for more\n",
			min(stats.Catalog.Fetched()*stats.Catalog.Size, stats.Catalog.Total), stats.Catalog.Total)
	}
	return nil
}

func listInstalled(ctx context.Context, api condastore.API, cfg config.Config, opts PackagesOptions, out io.Writer) error {
	sel := opts.Selection
	if !sel.HasEnvironment() {
		return ErrNoEnvironment
	}
	src := catalog.InstalledSource(api, sel.Namespace, sel.Environment, sel.Search)
	records, _, err := catalog.Drain(ctx, src, cfg.PageSize, opts.Pages)
	if err != nil {
		return fmt.Errorf("list installed packages: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tBUILD")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Version, r.Build)
	}
	return w.Flush()
}
