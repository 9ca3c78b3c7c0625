package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/five82/storeview/internal/catalog"
	"github.com/five82/storeview/internal/condastore"
	"github.com/five82/storeview/internal/config"
	"github.com/five82/storeview/internal/prefs"
	"github.com/five82/storeview/internal/state"
	"github.com/five82/storeview/internal/ui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAPI serves in-memory listings in pages.
type fakeAPI struct {
	mu        sync.Mutex
	status    *condastore.ServerStatus
	statusErr error
	envs      []condastore.Environment
	envFail   map[int]error
	envPages  []int
	packages  []condastore.Package
	installed []condastore.Package
	builds    map[string]int64
	channels  []condastore.Channel
}

var _ condastore.API = (*fakeAPI)(nil)

func paginate[T any](items []T, q condastore.PageQuery) condastore.Page[T] {
	size := q.Size
	if size <= 0 {
		size = 100
	}
	start := min((q.Page-1)*size, len(items))
	end := min(start+size, len(items))
	return condastore.Page[T]{
		Count: condastore.FlexInt(len(items)),
		Data:  items[start:end],
		Page:  condastore.FlexInt(q.Page),
		Size:  condastore.FlexInt(size),
	}
}

func (f *fakeAPI) FetchStatus(context.Context) (*condastore.ServerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeAPI) FetchEnvironments(_ context.Context, q condastore.PageQuery) (condastore.Page[condastore.Environment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envPages = append(f.envPages, q.Page)
	if err := f.envFail[q.Page]; err != nil {
		return condastore.Page[condastore.Environment]{}, err
	}
	return paginate(f.envs, q), nil
}

func (f *fakeAPI) FetchPackages(_ context.Context, q condastore.PageQuery) (condastore.Page[condastore.Package], error) {
	return paginate(search(f.packages, q.Search), q), nil
}

func (f *fakeAPI) FetchCurrentBuild(_ context.Context, namespace, environment string) (int64, error) {
	id, ok := f.builds[namespace+"/"+environment]
	if !ok {
		return 0, &condastore.StatusError{Path: "/environment/" + namespace + "/" + environment + "/", Code: 404}
	}
	return id, nil
}

func (f *fakeAPI) FetchBuildPackages(_ context.Context, _ int64, q condastore.PageQuery) (condastore.Page[condastore.Package], error) {
	return paginate(search(f.installed, q.Search), q), nil
}

func (f *fakeAPI) FetchChannels(context.Context) ([]condastore.Channel, error) {
	return f.channels, nil
}

func search(pkgs []condastore.Package, term string) []condastore.Package {
	if term == "" {
		return pkgs
	}
	var out []condastore.Package
	for _, p := range pkgs {
		if strings.Contains(p.Name, term) {
			out = append(out, p)
		}
	}
	return out
}

func pkgs(specs ...string) []condastore.Package {
	out := make([]condastore.Package, 0, len(specs))
	for i, spec := range specs {
		name, version, _ := strings.Cut(spec, "=")
		out = append(out, condastore.Package{ID: int64(i + 1), Name: name, Version: version, ChannelID: 1, Build: "py_0"})
	}
	return out
}

func envList(keys ...string) []condastore.Environment {
	out := make([]condastore.Environment, 0, len(keys))
	for i, key := range keys {
		ns, name, _ := strings.Cut(key, "/")
		out = append(out, condastore.Environment{
			ID:        int64(i + 1),
			Name:      name,
			BuildID:   int64(100 + i),
			Namespace: condastore.Namespace{Name: ns},
		})
	}
	return out
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		status:    &condastore.ServerStatus{Status: "ok"},
		envs:      envList("default/science", "team/web"),
		packages:  pkgs("attrs=23.1", "numpy=1.25", "numpy=1.26", "pandas=2.1", "python=3.12"),
		installed: pkgs("numpy=1.25", "python=3.12"),
		builds:    map[string]int64{"default/science": 7},
		channels:  []condastore.Channel{{ID: 1, Name: "conda-forge"}},
	}
}

func TestPollerRefreshUpdatesStore(t *testing.T) {
	api := newFakeAPI()
	store := &state.Store{}
	p := NewPoller(api, store, time.Second, zerolog.Nop())

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	snap := store.Snapshot()
	if !snap.HasStatus || !snap.Status.OK() {
		t.Fatalf("status = %+v, want ok", snap.Status)
	}
	if len(snap.Environments) != 2 {
		t.Fatalf("environments = %d, want 2", len(snap.Environments))
	}
	if got := snap.ChannelNames()[1]; got != "conda-forge" {
		t.Fatalf("channel 1 = %q, want conda-forge", got)
	}
}

func TestPollerRefreshFailureKeepsData(t *testing.T) {
	api := newFakeAPI()
	store := &state.Store{}
	var logs bytes.Buffer
	p := NewPoller(api, store, time.Second, zerolog.New(&logs))

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}

	api.mu.Lock()
	api.statusErr = errors.New("connection refused")
	api.mu.Unlock()

	for i := 0; i < 2; i++ {
		if err := p.Refresh(context.Background()); err == nil {
			t.Fatalf("Refresh %d returned nil error", i)
		}
	}
	snap := store.Snapshot()
	if !snap.IsOffline() {
		t.Fatalf("ConsecutiveFailures = %d, want offline", snap.ConsecutiveFailures)
	}
	if len(snap.Environments) != 2 {
		t.Fatalf("environments = %d, want previous data kept", len(snap.Environments))
	}
	if !strings.Contains(logs.String(), `"source":"status"`) {
		t.Fatalf("log missing source field: %s", logs.String())
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	store := &state.Store{}
	p := NewPoller(api, store, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !store.Snapshot().HasStatus {
		select {
		case <-deadline:
			t.Fatal("poller never refreshed the store")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFetchAllEnvironmentsKeepsPageOrder(t *testing.T) {
	keys := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		keys = append(keys, "ns/env"+string(rune('a'+i)))
	}
	api := &fakeAPI{envs: envList(keys...)}

	envs, err := FetchAllEnvironments(context.Background(), api, 10)
	if err != nil {
		t.Fatalf("FetchAllEnvironments returned error: %v", err)
	}
	got := make([]string, 0, len(envs))
	for _, env := range envs {
		got = append(got, env.Key())
	}
	if diff := cmp.Diff(keys, got); diff != "" {
		t.Fatalf("environments mismatch (-want +got):\n%s", diff)
	}
	if len(api.envPages) != 3 {
		t.Fatalf("requested pages %v, want 3 requests", api.envPages)
	}
}

func TestFetchAllEnvironmentsPageError(t *testing.T) {
	boom := errors.New("bad gateway")
	api := &fakeAPI{
		envs:    envList("a/1", "a/2", "a/3"),
		envFail: map[int]error{2: boom},
	}
	_, err := FetchAllEnvironments(context.Background(), api, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "environments page 2") {
		t.Fatalf("err = %q, want page context", err.Error())
	}
}

func TestInitialSelectionPrecedence(t *testing.T) {
	p := prefs.Prefs{LastNamespace: "team", LastEnvironment: "web"}

	tests := []struct {
		name string
		cfg  config.Config
		p    prefs.Prefs
		want ui.Selection
	}{
		{"config wins", config.Config{Namespace: "default", Environment: "science"}, p, ui.Selection{Namespace: "default", Environment: "science"}},
		{"prefs fallback", config.Config{}, p, ui.Selection{Namespace: "team", Environment: "web"}},
		{"catalog only", config.Config{}, prefs.Prefs{}, ui.Selection{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := initialSelection(tt.cfg, tt.p); got != tt.want {
				t.Fatalf("initialSelection = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewEngineAnnotatesInstalled(t *testing.T) {
	api := newFakeAPI()
	cfg := config.Config{PageSize: 2}
	engine := NewEngine(api, cfg, ui.Selection{Namespace: "default", Environment: "science"}, zerolog.Nop())

	for engine.HasMore() {
		if _, err := engine.LoadMore(context.Background()); err != nil {
			t.Fatalf("LoadMore returned error: %v", err)
		}
	}
	ix := engine.Index()
	if got := ix["numpy"].InstalledVersion; got != "1.25" {
		t.Fatalf("numpy installed = %q, want 1.25", got)
	}
	if ix["pandas"].Installed() {
		t.Fatal("pandas should not be installed")
	}
}

func TestNewEngineLogsEvents(t *testing.T) {
	api := newFakeAPI()
	var logs bytes.Buffer
	log := zerolog.New(&logs).Level(zerolog.DebugLevel)
	engine := NewEngine(api, config.Config{PageSize: 10}, ui.Selection{}, log)

	if _, err := engine.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore returned error: %v", err)
	}
	out := logs.String()
	for _, want := range []string{`"event":"loaded"`, `"component":"catalog"`, `"groups":4`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}
}

func TestListPackagesReconciled(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer
	opts := PackagesOptions{Selection: ui.Selection{Namespace: "default", Environment: "science"}}

	if err := ListPackages(context.Background(), api, config.Config{PageSize: 2}, opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("ListPackages returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 4 rows:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "numpy") || !strings.Contains(lines[2], "1.25 (update)") || !strings.Contains(lines[2], "conda-forge") {
		t.Fatalf("numpy row = %q", lines[2])
	}
}

func TestListPackagesInstalledFailureKeepsCatalog(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer
	opts := PackagesOptions{Selection: ui.Selection{Namespace: "default", Environment: "missing"}}

	if err := ListPackages(context.Background(), api, config.Config{PageSize: 10}, opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("ListPackages returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 4 rows:\n%s", len(lines), out.String())
	}
	for _, line := range lines[1:] {
		if fields := strings.Fields(line); len(fields) < 3 || fields[2] != "-" {
			t.Fatalf("row %q marked installed without an installed listing", line)
		}
	}
}

func TestListPackagesCatalogFailure(t *testing.T) {
	api := newFakeAPI()
	api.packages = pkgs("pandas=2.1", "numpy=1.26")
	var out bytes.Buffer

	err := ListPackages(context.Background(), api, config.Config{PageSize: 10}, PackagesOptions{}, &out, zerolog.Nop())
	var orderErr *catalog.OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("err = %v, want OrderError", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output after catalog failure:\n%s", out.String())
	}
}

func TestListPackagesStopsAfterPages(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer
	opts := PackagesOptions{Pages: 1}

	if err := ListPackages(context.Background(), api, config.Config{PageSize: 2}, opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("ListPackages returned error: %v", err)
	}
	if !strings.Contains(out.String(), "2 of 5 catalog records loaded") {
		t.Fatalf("missing progress footer:\n%s", out.String())
	}
	if strings.Contains(out.String(), "pandas") {
		t.Fatalf("pandas listed after one page:\n%s", out.String())
	}
}

func TestListPackagesFilter(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer
	opts := PackagesOptions{
		Selection: ui.Selection{Namespace: "default", Environment: "science"},
		Filter:    catalog.FilterUpdatable,
	}
	if err := ListPackages(context.Background(), api, config.Config{PageSize: 10}, opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("ListPackages returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "numpy") {
		t.Fatalf("updatable listing = %q", lines)
	}
}

func TestListPackagesInstalled(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer

	err := ListPackages(context.Background(), api, config.Config{PageSize: 1}, PackagesOptions{Installed: true}, &out, zerolog.Nop())
	if !errors.Is(err, ErrNoEnvironment) {
		t.Fatalf("err = %v, want ErrNoEnvironment", err)
	}

	opts := PackagesOptions{Installed: true, Selection: ui.Selection{Namespace: "default", Environment: "science"}}
	if err := ListPackages(context.Background(), api, config.Config{PageSize: 1}, opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("ListPackages returned error: %v", err)
	}
	if !strings.Contains(out.String(), "python") || strings.Contains(out.String(), "pandas") {
		t.Fatalf("installed listing = %q", out.String())
	}

	opts.Selection.Environment = "missing"
	err = ListPackages(context.Background(), api, config.Config{PageSize: 1}, opts, &out, zerolog.Nop())
	var statusErr *condastore.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 404 {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
}

func TestPrintEnvironmentsSorted(t *testing.T) {
	api := &fakeAPI{envs: envList("team/web", "default/science")}
	var out bytes.Buffer
	if err := PrintEnvironments(context.Background(), api, &out); err != nil {
		t.Fatalf("PrintEnvironments returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "default") || !strings.HasPrefix(lines[2], "team") {
		t.Fatalf("environments not sorted:\n%s", out.String())
	}
}

func TestPrintStatus(t *testing.T) {
	api := newFakeAPI()
	var out bytes.Buffer
	if err := PrintStatus(context.Background(), api, "http://store:5000/api/v1", &out); err != nil {
		t.Fatalf("PrintStatus returned error: %v", err)
	}
	if !strings.Contains(out.String(), "ok") || !strings.Contains(out.String(), "http://store:5000/api/v1") {
		t.Fatalf("status output = %q", out.String())
	}

	api.statusErr = errors.New("connection refused")
	if err := PrintStatus(context.Background(), api, "", &out); err == nil {
		t.Fatal("PrintStatus returned nil error for failed status request")
	}
}

func TestReloadConfigUpdatesPollInterval(t *testing.T) {
	p := NewPoller(newFakeAPI(), &state.Store{}, 5*time.Second, zerolog.Nop())
	apply := reloadConfig(p, zerolog.Nop())

	apply(config.Config{PollInterval: 12 * time.Second}, nil)
	if got := p.Interval(); got != 12*time.Second {
		t.Fatalf("Interval = %v, want 12s", got)
	}

	apply(config.Config{}, errors.New("parse config: bad toml"))
	if got := p.Interval(); got != 12*time.Second {
		t.Fatalf("Interval = %v after failed reload, want 12s", got)
	}

	p.SetInterval(0)
	if got := p.Interval(); got != defaultPollInterval {
		t.Fatalf("Interval = %v, want default", got)
	}
}
