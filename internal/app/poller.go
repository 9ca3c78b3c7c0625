package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/five82/storeview/internal/condastore"
	"github.com/five82/storeview/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second

	envPageSize   = 100
	envFetchLimit = 4
)

// ServerAPI is the subset of condastore.API the poller needs.
type ServerAPI interface {
	FetchStatus(ctx context.Context) (*condastore.ServerStatus, error)
	FetchEnvironments(ctx context.Context, query condastore.PageQuery) (condastore.Page[condastore.Environment], error)
	FetchChannels(ctx context.Context) ([]condastore.Channel, error)
}

// Poller keeps a state.Store current with the server status, environment list
// and channel list.
type Poller struct {
	api      ServerAPI
	store    *state.Store
	interval atomic.Int64
	log      zerolog.Logger
}

// NewPoller returns a Poller refreshing store every interval.
func NewPoller(api ServerAPI, store *state.Store, interval time.Duration, log zerolog.Logger) *Poller {
	p := &Poller{api: api, store: store, log: log}
	p.SetInterval(interval)
	return p
}

// SetInterval changes the base poll interval from the next wait on.
func (p *Poller) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p.interval.Store(int64(interval))
}

// Interval returns the base poll interval.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// Run refreshes the store until ctx is cancelled. Consecutive failures stretch
// the wait between polls up to maxBackoff.
func (p *Poller) Run(ctx context.Context) {
	failures := 0
	for {
		if err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
		} else {
			failures = 0
		}

		timer := time.NewTimer(calculateBackoff(failures, p.Interval()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Refresh performs one poll and records the outcome in the store. On failure
// the previous data stays in place.
func (p *Poller) Refresh(ctx context.Context) error {
	status, err := p.api.FetchStatus(ctx)
	if err != nil {
		return p.fail("status", err)
	}
	envs, err := FetchAllEnvironments(ctx, p.api, envPageSize)
	if err != nil {
		return p.fail("environments", err)
	}
	channels, err := p.api.FetchChannels(ctx)
	if err != nil {
		return p.fail("channels", err)
	}

	p.store.Update(state.Refresh{Status: status, Environments: envs, Channels: channels}, nil)
	p.log.Debug().
		Str("status", status.Status).
		Int("environments", len(envs)).
		Int("channels", len(channels)).
		Msg("poll complete")
	return nil
}

func (p *Poller) fail(source string, err error) error {
	err = fmt.Errorf("%s poll: %w", source, err)
	p.store.Update(state.Refresh{}, err)
	p.log.Warn().Err(err).Str("source", source).Msg("poll failed")
	return err
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// EnvironmentLister lists environments one page at a time.
type EnvironmentLister interface {
	FetchEnvironments(ctx context.Context, query condastore.PageQuery) (condastore.Page[condastore.Environment], error)
}

// FetchAllEnvironments returns every environment on the server. The first
// page reports the total; the remaining pages are fetched concurrently and
// concatenated in page order.
func FetchAllEnvironments(ctx context.Context, api EnvironmentLister, size int) ([]condastore.Environment, error) {
	if size <= 0 {
		size = envPageSize
	}
	first, err := api.FetchEnvironments(ctx, condastore.PageQuery{Page: 1, Size: size})
	if err != nil {
		return nil, fmt.Errorf("environments page 1: %w", err)
	}
	total := int(first.Count)
	pages := (total + size - 1) / size
	if pages <= 1 || len(first.Data) == 0 {
		return first.Data, nil
	}

	results := make([][]condastore.Environment, pages)
	results[0] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(envFetchLimit)
	for page := 2; page <= pages; page++ {
		g.Go(func() error {
			resp, err := api.FetchEnvironments(gctx, condastore.PageQuery{Page: page, Size: size})
			if err != nil {
				return fmt.Errorf("environments page %d: %w", page, err)
			}
			results[page-1] = resp.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	envs := make([]condastore.Environment, 0, total)
	for _, data := range results {
		envs = append(envs, data...)
	}
	return envs, nil
}
