package catalog

import (
	"slices"
	"sort"
)

// PackageGroup collects every known version of one package name.
type PackageGroup struct {
	// InstalledVersion is empty while the name is not known to be installed.
	InstalledVersion string
	// Versions is sorted ascending by CompareVersions after Group and Merge.
	Versions []Record
}

// Latest returns the highest version record.
func (g PackageGroup) Latest() (Record, bool) {
	if len(g.Versions) == 0 {
		return Record{}, false
	}
	return g.Versions[len(g.Versions)-1], true
}

// Installed reports whether the group carries an installed annotation.
func (g PackageGroup) Installed() bool { return g.InstalledVersion != "" }

// Index maps package name to its group. Values are treated as immutable:
// Merge returns a new Index and never writes through a base slice.
type Index map[string]PackageGroup

// Group builds an Index from records. InstalledVersion is left empty.
func Group(records []Record) Index {
	ix := make(Index)
	for _, r := range records {
		g := ix[r.Name]
		if !containsRecord(g.Versions, r) {
			g.Versions = append(g.Versions, r)
		}
		ix[r.Name] = g
	}
	for name, g := range ix {
		sortVersions(g.Versions)
		ix[name] = g
	}
	return ix
}

// Merge combines incoming into base and returns the result. Versions are the
// union of both groups with base records first; the result is re-sorted. The
// installed annotation keeps the higher of the two versions and never falls
// back to empty.
func Merge(base, incoming Index) Index {
	out := make(Index, len(base)+len(incoming))
	for name, g := range base {
		out[name] = g
	}
	for name, in := range incoming {
		cur, ok := out[name]
		if !ok {
			out[name] = PackageGroup{
				InstalledVersion: in.InstalledVersion,
				Versions:         sortedCopy(in.Versions),
			}
			continue
		}
		versions := slices.Clone(cur.Versions)
		for _, r := range in.Versions {
			if !containsRecord(versions, r) {
				versions = append(versions, r)
			}
		}
		sortVersions(versions)
		out[name] = PackageGroup{
			InstalledVersion: maxVersion(cur.InstalledVersion, in.InstalledVersion),
			Versions:         versions,
		}
	}
	return out
}

// Clone returns a deep copy of ix.
func (ix Index) Clone() Index {
	out := make(Index, len(ix))
	for name, g := range ix {
		g.Versions = slices.Clone(g.Versions)
		out[name] = g
	}
	return out
}

// Names returns the package names in display order.
func (ix Index) Names() []string {
	names := make([]string, 0, len(ix))
	for name := range ix {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return compareNames(names[i], names[j]) < 0 })
	return names
}

// InstalledCount returns the number of annotated groups.
func (ix Index) InstalledCount() int {
	n := 0
	for _, g := range ix {
		if g.Installed() {
			n++
		}
	}
	return n
}

func sortedCopy(records []Record) []Record {
	out := slices.Clone(records)
	sortVersions(out)
	return out
}

func sortVersions(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return CompareVersions(records[i].Version, records[j].Version) < 0
	})
}

func containsRecord(records []Record, r Record) bool {
	k := r.key()
	for _, existing := range records {
		if existing.key() == k {
			return true
		}
	}
	return false
}

func maxVersion(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case CompareVersions(b, a) > 0:
		return b
	default:
		return a
	}
}
