package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/storeview/internal/condastore"
)

// CatalogAPI is the subset of condastore.API that lists the global catalog.
type CatalogAPI interface {
	FetchPackages(ctx context.Context, query condastore.PageQuery) (condastore.Page[condastore.Package], error)
}

// InstalledAPI is the subset of condastore.API that lists one environment's
// installed packages.
type InstalledAPI interface {
	FetchCurrentBuild(ctx context.Context, namespace, environment string) (int64, error)
	FetchBuildPackages(ctx context.Context, buildID int64, query condastore.PageQuery) (condastore.Page[condastore.Package], error)
}

// RecordFromPackage converts an API package into a Record.
func RecordFromPackage(p condastore.Package) Record {
	return Record{
		Name:      p.Name,
		Version:   p.Version,
		Build:     p.Build,
		ChannelID: p.ChannelID,
		License:   p.License,
		Checksum:  p.SHA256,
		Home:      p.Home,
		Summary:   p.Summary,
	}
}

func recordsFromPage(page condastore.Page[condastore.Package]) ([]Record, int) {
	out := make([]Record, 0, len(page.Data))
	for _, p := range page.Data {
		out = append(out, RecordFromPackage(p))
	}
	return out, int(page.Count)
}

// CatalogSource returns a Fetcher over the global catalog, optionally
// narrowed by a server-side search term.
func CatalogSource(api CatalogAPI, search string) Fetcher {
	return NewFetcher(SourceCatalog, func(ctx context.Context, page, size int) ([]Record, int, error) {
		resp, err := api.FetchPackages(ctx, condastore.PageQuery{Page: page, Size: size, Search: search})
		if err != nil {
			return nil, 0, err
		}
		records, total := recordsFromPage(resp)
		return records, total, nil
	})
}

// InstalledSource returns a Fetcher over the packages of the current build of
// namespace/environment. The build id is resolved on the first page request
// and reused until the Fetcher is discarded.
func InstalledSource(api InstalledAPI, namespace, environment, search string) Fetcher {
	b := &buildResolver{api: api, namespace: namespace, environment: environment}
	return NewFetcher(SourceInstalled, func(ctx context.Context, page, size int) ([]Record, int, error) {
		buildID, err := b.resolve(ctx)
		if err != nil {
			return nil, 0, err
		}
		resp, err := api.FetchBuildPackages(ctx, buildID, condastore.PageQuery{Page: page, Size: size, Search: search})
		if err != nil {
			return nil, 0, err
		}
		records, total := recordsFromPage(resp)
		return records, total, nil
	})
}

type buildResolver struct {
	api         InstalledAPI
	namespace   string
	environment string

	mu      sync.Mutex
	buildID int64
	ok      bool
}

func (b *buildResolver) resolve(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ok {
		return b.buildID, nil
	}
	id, err := b.api.FetchCurrentBuild(ctx, b.namespace, b.environment)
	if err != nil {
		return 0, fmt.Errorf("resolve build for %s/%s: %w", b.namespace, b.environment, err)
	}
	b.buildID, b.ok = id, true
	return id, nil
}
