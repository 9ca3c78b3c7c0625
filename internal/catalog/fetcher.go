package catalog

import (
	"context"
	"fmt"
)

// Source names one of the two paginated collections the engine reconciles.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceInstalled Source = "installed"
)

// Record is one concrete name+version pairing. Records are immutable once
// fetched.
type Record struct {
	Name      string
	Version   string
	Build     string
	ChannelID int64
	License   string
	Checksum  string
	Home      string
	Summary   string
}

// key identifies a record within its name group.
func (r Record) key() string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%s", r.Version, r.Build, r.ChannelID, r.Checksum)
}

// Fetcher wraps one remote paginated endpoint. FetchPage requests cur.Page and
// returns the records in server order together with the advanced cursor. On
// failure it returns a *FetchError and cur unchanged. Fetchers hold no
// cursor state; the caller owns it.
type Fetcher interface {
	Source() Source
	FetchPage(ctx context.Context, cur PageCursor) ([]Record, PageCursor, error)
}

// PageFunc fetches one page and reports the total count of the collection.
type PageFunc func(ctx context.Context, page, size int) ([]Record, int, error)

type pagedFetcher struct {
	source Source
	fetch  PageFunc
}

// NewFetcher adapts fn into a Fetcher that validates name ordering and
// advances the cursor.
func NewFetcher(source Source, fn PageFunc) Fetcher {
	return &pagedFetcher{source: source, fetch: fn}
}

func (f *pagedFetcher) Source() Source { return f.source }

func (f *pagedFetcher) FetchPage(ctx context.Context, cur PageCursor) ([]Record, PageCursor, error) {
	if !cur.HasMore {
		return nil, cur, nil
	}
	if cur.Size <= 0 {
		cur.Size = DefaultPageSize
	}
	if err := ctx.Err(); err != nil {
		return nil, cur, &FetchError{Source: f.source, Page: cur.Page, Err: err}
	}
	records, total, err := f.fetch(ctx, cur.Page, cur.Size)
	if err != nil {
		return nil, cur, &FetchError{Source: f.source, Page: cur.Page, Err: err}
	}
	if err := checkOrder(cur.Last, records); err != nil {
		return nil, cur, &FetchError{Source: f.source, Page: cur.Page, Err: err}
	}
	last := ""
	if len(records) > 0 {
		last = records[len(records)-1].Name
	}
	return records, cur.Advance(total, last), nil
}

// checkOrder enforces the server-side sort precondition: names never decrease
// within a page, nor from the previous page's last name.
func checkOrder(prev string, records []Record) error {
	for i, r := range records {
		if prev != "" && compareNames(r.Name, prev) < 0 {
			return &OrderError{Previous: prev, Next: r.Name, Position: i}
		}
		prev = r.Name
	}
	return nil
}

// Drain fetches pages from f until the source is exhausted or maxPages pages
// have been read (maxPages <= 0 means no limit). The records fetched before a
// failure are returned together with the error.
func Drain(ctx context.Context, f Fetcher, size, maxPages int) ([]Record, PageCursor, error) {
	cur := NewCursor(size)
	var out []Record
	for cur.HasMore && (maxPages <= 0 || cur.Fetched() < maxPages) {
		records, next, err := f.FetchPage(ctx, cur)
		if err != nil {
			return out, cur, err
		}
		out = append(out, records...)
		cur = next
	}
	return out, cur, nil
}
