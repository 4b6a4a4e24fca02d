package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ocrforge/pdfsandwich/internal/pdferr"
)

// ParsePages parses a 1-based range expression like "1-3,5,7-9" into a
// sorted set of 0-based page indices. An empty expression selects every
// page (the caller distinguishes "no Pages set" from the returned nil map
// by checking expr == "" before calling).
func ParsePages(expr string) (map[int]bool, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	result := make(map[int]bool)
	lastSeen := -1
	monotonic := true

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, err := parsePagePart(part)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, pdferr.BadArgs("invalid page range %q: start exceeds end", part)
		}

		for p := lo; p <= hi; p++ {
			if p <= lastSeen {
				monotonic = false
			}
			lastSeen = p
			result[p-1] = true // convert to 0-based
		}
	}

	if !monotonic {
		// Spec: "parse(\"1,1,2\") warns non-monotonic" - a soft warning,
		// not a hard failure; callers log this through their own logger.
		return result, errNonMonotonic
	}
	return result, nil
}

// errNonMonotonic is a sentinel the caller can detect with errors.Is to
// downgrade to a warning instead of aborting the run.
var errNonMonotonic = fmt.Errorf("page selection is not monotonically increasing")

// IsNonMonotonicWarning reports whether err is the soft non-monotonic
// warning returned alongside a still-usable page set.
func IsNonMonotonicWarning(err error) bool { return err == errNonMonotonic }

func parsePagePart(part string) (lo, hi int, err error) {
	if i := strings.IndexByte(part, '-'); i >= 0 {
		loStr, hiStr := part[:i], part[i+1:]
		lo, err = parsePageNumber(loStr)
		if err != nil {
			return 0, 0, err
		}
		hi, err = parsePageNumber(hiStr)
		if err != nil {
			return 0, 0, err
		}
		return lo, hi, nil
	}
	n, err := parsePageNumber(part)
	if err != nil {
		return 0, 0, err
	}
	return n, n, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, pdferr.BadArgs("invalid page number %q", s)
	}
	if n <= 0 {
		return 0, pdferr.BadArgs("page numbers are 1-based and must be positive, got %d", n)
	}
	return n, nil
}

// SortedPages returns the 0-based indices in a page set in ascending order.
func SortedPages(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
