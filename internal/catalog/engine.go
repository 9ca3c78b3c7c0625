package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures an Engine.
type Options struct {
	// Catalog is required.
	Catalog Fetcher
	// Installed may be nil, in which case no group is ever annotated.
	Installed Fetcher
	PageSize  int
	// Timeout bounds a single LoadMore call. Zero means no limit beyond ctx.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// SkipReason explains why LoadMore returned without fetching.
type SkipReason int

const (
	NotSkipped SkipReason = iota
	SkipBusy
	SkipExhausted
)

func (s SkipReason) String() string {
	switch s {
	case SkipBusy:
		return "busy"
	case SkipExhausted:
		return "exhausted"
	default:
		return "none"
	}
}

// LoadResult summarises one LoadMore call.
type LoadResult struct {
	Skipped SkipReason
	// Discarded is set when Reset ran while the call was in flight. Nothing
	// fetched by the call was applied.
	Discarded          bool
	CatalogRecords     int
	InstalledPages     int
	AlignmentExhausted bool
}

// Notice returns ErrAlignmentExhausted when the installed source ended before
// reaching the catalog position.
func (r LoadResult) Notice() error {
	if r.AlignmentExhausted {
		return ErrAlignmentExhausted
	}
	return nil
}

// Stats is a point-in-time view of the engine's pagination state.
type Stats struct {
	Catalog   PageCursor
	Installed PageCursor
	// Backlog counts installed records fetched so far; Pending those not yet
	// applied because the catalog has not reached them.
	Backlog   int
	Pending   int
	Groups    int
	Annotated int
	Busy      bool
	// Frontier is the greatest catalog name fetched so far.
	Frontier string
}

// EventKind identifies an engine notification.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventFailed
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventFailed:
		return "failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind  EventKind
	Stats Stats
	Err   error
}

// Engine reconciles the global catalog with one environment's installed
// packages, one catalog page per LoadMore call. At most one LoadMore runs at
// a time; overlapping calls return immediately with SkipBusy.
type Engine struct {
	catalog   Fetcher
	installed Fetcher
	pageSize  int
	timeout   time.Duration
	log       zerolog.Logger

	mu         sync.Mutex
	generation uint64
	busy       bool
	index      Index
	catCur     PageCursor
	instCur    PageCursor
	backlog    []Record
	applied    int
	frontier   string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New returns an Engine with an empty index.
func New(opts Options) *Engine {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	e := &Engine{
		catalog:   opts.Catalog,
		installed: opts.Installed,
		pageSize:  size,
		timeout:   opts.Timeout,
		log:       opts.Logger,
		subs:      make(map[int]func(Event)),
	}
	e.clearLocked()
	return e
}

func (e *Engine) clearLocked() {
	e.busy = false
	e.index = make(Index)
	e.catCur = NewCursor(e.pageSize)
	e.instCur = NewCursor(e.pageSize)
	if e.installed == nil {
		e.instCur.HasMore = false
	}
	e.backlog = nil
	e.applied = 0
	e.frontier = ""
}

// needsCatchUp reports whether an installed backlog of backlogLen records
// ending at instCur.Last is still behind frontier with more pages to fetch.
func (e *Engine) needsCatchUp(instCur PageCursor, backlogLen int, frontier string) bool {
	if e.installed == nil || !instCur.HasMore {
		return false
	}
	return backlogLen == 0 || compareNames(instCur.Last, frontier) < 0
}

// LoadMore fetches the next catalog page, then as many installed pages as
// needed to annotate every catalog name seen so far. A catalog failure leaves
// the engine unchanged and returns a *FetchError. An installed failure keeps
// the catalog page and returns a *FetchError whose Partial reports true; the
// next call resumes the installed catch-up.
func (e *Engine) LoadMore(ctx context.Context) (LoadResult, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return LoadResult{Skipped: SkipBusy}, nil
	}
	catchUpOnly := !e.catCur.HasMore
	if catchUpOnly && !e.needsCatchUp(e.instCur, len(e.backlog), e.frontier) {
		e.mu.Unlock()
		return LoadResult{Skipped: SkipExhausted}, nil
	}
	e.busy = true
	gen := e.generation
	catCur := e.catCur
	instCur := e.instCur
	backlogLen := len(e.backlog)
	frontier := e.frontier
	e.mu.Unlock()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var result LoadResult
	var catRecords []Record
	if !catchUpOnly {
		records, next, err := e.catalog.FetchPage(ctx, catCur)
		if err != nil {
			e.fail(gen, err)
			return result, err
		}
		e.log.Debug().
			Str("source", string(SourceCatalog)).
			Int("page", catCur.Page).
			Int("records", len(records)).
			Int("total", next.Total).
			Msg("catalog page loaded")
		catRecords = records
		catCur = next
		if compareNames(catCur.Last, frontier) > 0 {
			frontier = catCur.Last
		}
		result.CatalogRecords = len(records)
	}

	var instRecords []Record
	var instErr error
	for e.needsCatchUp(instCur, backlogLen+len(instRecords), frontier) {
		records, next, err := e.installed.FetchPage(ctx, instCur)
		if err != nil {
			instErr = err
			break
		}
		e.log.Debug().
			Str("source", string(SourceInstalled)).
			Int("page", instCur.Page).
			Int("records", len(records)).
			Str("frontier", frontier).
			Msg("installed page loaded")
		instRecords = append(instRecords, records...)
		instCur = next
		result.InstalledPages++
	}

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		e.log.Debug().Msg("load discarded after reset")
		return LoadResult{Discarded: true}, nil
	}
	if len(catRecords) > 0 {
		e.index = Merge(e.index, Group(catRecords))
	}
	e.catCur = catCur
	e.instCur = instCur
	e.frontier = frontier
	e.backlog = append(e.backlog, instRecords...)
	e.applyBacklogLocked()
	if result.InstalledPages > 0 && instErr == nil && !instCur.HasMore &&
		compareNames(instCur.Last, frontier) < 0 {
		result.AlignmentExhausted = true
	}
	e.busy = false
	stats := e.statsLocked()
	e.mu.Unlock()

	if instErr != nil {
		e.log.Warn().Err(instErr).Str("source", string(SourceInstalled)).Msg("installed catch-up interrupted")
		e.notify(Event{Kind: EventFailed, Stats: stats, Err: instErr})
		return result, instErr
	}
	if result.AlignmentExhausted {
		e.log.Debug().Str("frontier", frontier).Msg(ErrAlignmentExhausted.Error())
	}
	e.notify(Event{Kind: EventLoaded, Stats: stats})
	return result, nil
}

func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	stale := e.generation != gen
	if !stale {
		e.busy = false
	}
	stats := e.statsLocked()
	e.mu.Unlock()
	if stale {
		return
	}
	e.log.Warn().Err(err).Str("source", string(SourceCatalog)).Msg("catalog page failed")
	e.notify(Event{Kind: EventFailed, Stats: stats, Err: err})
}

// applyBacklogLocked annotates every backlog record the catalog has reached.
// Once the catalog is exhausted, records past its last name are dropped: the
// catalog listing does not contain them and nothing fetched later could.
func (e *Engine) applyBacklogLocked() {
	limit := e.applied
	for limit < len(e.backlog) && compareNames(e.backlog[limit].Name, e.frontier) <= 0 {
		limit++
	}
	if limit > e.applied {
		incoming := make(Index)
		for _, r := range e.backlog[e.applied:limit] {
			g := incoming[r.Name]
			g.InstalledVersion = maxVersion(g.InstalledVersion, r.Version)
			if !containsRecord(g.Versions, r) {
				g.Versions = append(g.Versions, r)
			}
			incoming[r.Name] = g
		}
		e.index = Merge(e.index, incoming)
		e.applied = limit
	}
	if !e.catCur.HasMore && e.applied < len(e.backlog) {
		e.log.Debug().
			Int("dropped", len(e.backlog)-e.applied).
			Str("frontier", e.frontier).
			Msg("installed records past the catalog end ignored")
		e.applied = len(e.backlog)
	}
}

// Reset discards the index, both cursors and the backlog. A LoadMore in
// flight completes without applying its results.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.generation++
	e.clearLocked()
	stats := e.statsLocked()
	e.mu.Unlock()
	e.log.Debug().Msg("engine reset")
	e.notify(Event{Kind: EventReset, Stats: stats})
}

// Index returns a copy of the current index.
func (e *Engine) Index() Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Clone()
}

// Busy reports whether a LoadMore is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// HasMore reports whether another LoadMore would fetch anything.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catCur.HasMore || e.needsCatchUp(e.instCur, len(e.backlog), e.frontier)
}

// Stats returns the current pagination state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	return Stats{
		Catalog:   e.catCur,
		Installed: e.instCur,
		Backlog:   len(e.backlog),
		Pending:   len(e.backlog) - e.applied,
		Groups:    len(e.index),
		Annotated: e.index.InstalledCount(),
		Busy:      e.busy,
		Frontier:  e.frontier,
	}
}

// Subscribe registers fn for every subsequent Event and returns a function
// that removes it. fn runs on the goroutine that changed the state and must
// not call back into LoadMore synchronously.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) notify(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
