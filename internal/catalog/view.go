package catalog

import (
	"fmt"
	"strings"
)

// Filter selects which groups a view shows.
type Filter int

const (
	FilterAll Filter = iota
	FilterInstalled
	FilterAvailable
	FilterUpdatable
)

var filterNames = [...]string{"all", "installed", "available", "updatable"}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return "unknown"
	}
	return filterNames[f]
}

// Next cycles to the following filter.
func (f Filter) Next() Filter {
	return (f + 1) % Filter(len(filterNames))
}

// ParseFilter converts a name back to a Filter. Empty selects FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for i, name := range filterNames {
		if name == s {
			return Filter(i), nil
		}
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}

// Row is one display line derived from a PackageGroup.
type Row struct {
	Name             string
	Latest           Record
	InstalledVersion string
	// Versions lists the distinct version strings, ascending.
	Versions  []string
	Updatable bool
	Channel   string
}

// ViewOptions narrows a view without touching the engine's index.
type ViewOptions struct {
	Filter Filter
	// Query matches name or summary, case-insensitively.
	Query    string
	Channels map[int64]string
}

// Updatable reports whether a newer version than the installed one is known.
func Updatable(g PackageGroup) bool {
	latest, ok := g.Latest()
	if !ok || !g.Installed() {
		return false
	}
	return CompareVersions(latest.Version, g.InstalledVersion) > 0
}

// BuildView derives the sorted rows of ix that pass opts.
func BuildView(ix Index, opts ViewOptions) []Row {
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	rows := make([]Row, 0, len(ix))
	for _, name := range ix.Names() {
		g := ix[name]
		latest, ok := g.Latest()
		if !ok {
			continue
		}
		updatable := Updatable(g)
		switch opts.Filter {
		case FilterInstalled:
			if !g.Installed() {
				continue
			}
		case FilterAvailable:
			if g.Installed() {
				continue
			}
		case FilterUpdatable:
			if !updatable {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(name), query) &&
			!strings.Contains(strings.ToLower(latest.Summary), query) {
			continue
		}
		rows = append(rows, Row{
			Name:             name,
			Latest:           latest,
			InstalledVersion: g.InstalledVersion,
			Versions:         distinctVersions(g.Versions),
			Updatable:        updatable,
			Channel:          channelName(opts.Channels, latest.ChannelID),
		})
	}
	return rows
}

func distinctVersions(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if n := len(out); n > 0 && out[n-1] == r.Version {
			continue
		}
		out = append(out, r.Version)
	}
	return out
}

func channelName(channels map[int64]string, id int64) string {
	if name, ok := channels[id]; ok {
		return name
	}
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("#%d", id)
}
