package reconstruction

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Ordering decides acquisition order for a set of slice paths. The
// assembler places the i-th path of the result at z = i % Z, t = i / Z, so
// the ordering must make z vary fastest.
type Ordering interface {
	Order(paths []string) ([]string, error)
}

// LexicalOrder sorts paths by ascending byte-wise string comparison. It
// relies on file names encoding acquisition order, e.g. zero-padded
// sequence numbers.
type LexicalOrder struct{}

// Order implements Ordering
func (LexicalOrder) Order(paths []string) ([]string, error) {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out, nil
}

// NumericOrder sorts by the digits embedded in each file's base name, so
// that IM_2 precedes IM_10 without zero padding. Ties fall back to the
// lexical order of the full path.
type NumericOrder struct{}

// Order implements Ordering
func (NumericOrder) Order(paths []string) ([]string, error) {
	out := append([]string(nil), paths...)
	sort.SliceStable(out, func(i, j int) bool {
		numI := extractNumber(out[i])
		numJ := extractNumber(out[j])
		if numI != numJ {
			return numI < numJ
		}
		return out[i] < out[j]
	})
	return out, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)

	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		num, err := strconv.Atoi(digits.String())
		if err == nil {
			return num
		}
	}
	return 0
}

// InstanceOrder sorts by the InstanceNumber header of each file. Files
// whose header is unreadable or carries no usable instance number sort
// after all numbered files, in lexical order.
type InstanceOrder struct {
	Headers HeaderReader
}

// Order implements Ordering
func (o InstanceOrder) Order(paths []string) ([]string, error) {
	if o.Headers == nil {
		return nil, fmt.Errorf("instance ordering needs a header reader")
	}

	type keyed struct {
		path     string
		instance int
		ok       bool
	}

	items := make([]keyed, len(paths))
	for i, path := range paths {
		items[i].path = path

		h, err := o.Headers.ReadHeader(path)
		if err != nil || h == nil {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(h.InstanceNumber))
		if err != nil {
			continue
		}
		items[i].instance = n
		items[i].ok = true
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if a.ok && a.instance != b.instance {
			return a.instance < b.instance
		}
		return a.path < b.path
	})

	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.path
	}
	return out, nil
}

// ParseOrdering returns the Ordering registered under name: "lexical" (or
// empty), "numeric" or "instance".
func ParseOrdering(name string, headers HeaderReader) (Ordering, error) {
	switch normalizeOrdering(name) {
	case "", "lexical":
		return LexicalOrder{}, nil
	case "numeric":
		return NumericOrder{}, nil
	case "instance":
		if headers == nil {
			return nil, fmt.Errorf("instance ordering needs a header reader")
		}
		return InstanceOrder{Headers: headers}, nil
	default:
		return nil, fmt.Errorf("unknown slice ordering %q (must be lexical, numeric or instance)", name)
	}
}

func normalizeOrdering(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsOrdering reports whether name selects a known ordering
func IsOrdering(name string) bool {
	switch normalizeOrdering(name) {
	case "", "lexical", "numeric", "instance":
		return true
	}
	return false
}
