package catalog

import "strings"

// CompareVersions orders version strings the way the catalog does: each
// dot-separated component is split into digit and non-digit runs, digit runs
// compare as integers and the rest compare case-insensitively. A version that
// runs out of components first sorts lower ("1.0" < "1.0.1"). Versions that
// compare equal fall back to a byte comparison so the order is total.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	n := min(len(ap), len(bp))
	for i := 0; i < n; i++ {
		if c := compareComponent(ap[i], bp[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ap) < len(bp):
		return -1
	case len(ap) > len(bp):
		return 1
	}
	return strings.Compare(a, b)
}

func compareComponent(a, b string) int {
	for a != "" && b != "" {
		ar, arest, adigit := nextRun(a)
		br, brest, bdigit := nextRun(b)
		var c int
		switch {
		case adigit && bdigit:
			c = compareDigits(ar, br)
		case adigit:
			c = -1
		case bdigit:
			c = 1
		default:
			c = strings.Compare(strings.ToLower(ar), strings.ToLower(br))
		}
		if c != 0 {
			return c
		}
		a, b = arest, brest
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextRun splits off the leading run of digits or non-digits.
func nextRun(s string) (run, rest string, digits bool) {
	digits = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:], digits
}

// compareDigits compares two digit strings numerically without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// compareNames orders package names as the server's sort_by=name does for
// conda names: case-insensitive first, bytes as the tie breaker. A server
// whose collation disagrees fails every load with an *OrderError.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
