package location

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// numericPrefix matches what a browser's parseFloat accepts at the start of a string.
var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// Sort orders records by id. Two ids that both parse as numbers compare
// numerically; any other pair compares as collated strings. The comparison is
// consistent per pair but not transitive when numeric and non-numeric ids are
// mixed, so such sets have no single guaranteed order. Equal ids keep their
// input order.
func Sort(set Set) {
	c := collate.New(language.Und)
	sort.SliceStable(set, func(i, j int) bool {
		return compareIDs(c, set[i].ID, set[j].ID) < 0
	})
}

// IsSorted reports whether set is already in the order Sort produces.
func IsSorted(set Set) bool {
	c := collate.New(language.Und)
	for i := 1; i < len(set); i++ {
		if compareIDs(c, set[i].ID, set[i-1].ID) < 0 {
			return false
		}
	}
	return true
}

func compareIDs(c *collate.Collator, a, b ID) int {
	na, okA := parseNumeric(a)
	nb, okB := parseNumeric(b)
	if okA && okB {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return c.CompareString(a.String(), b.String())
}

func parseNumeric(id ID) (float64, bool) {
	if !id.present {
		return 0, false
	}
	if id.number {
		f, err := strconv.ParseFloat(id.text, 64)
		return f, err == nil
	}

	s := strings.TrimLeft(id.text, " \t\n\r\v\f")
	m := numericPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// Out of range prefixes still parse to ±Inf in a browser.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}
