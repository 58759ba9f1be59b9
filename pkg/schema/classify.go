package schema

import (
	"sort"
	"strconv"
	"strings"
)

// ClassifyHistogram returns the header columns named "<prefix>_<label>", ordered
// by the upper bound embedded in the label. Labels without a parseable bound
// are kept as open-ended buckets and sorted last, so the tail mass of the
// distribution is never dropped. Ties keep header order.
func ClassifyHistogram(header []string, prefix string) []BucketColumn {
	if prefix == "" {
		return nil
	}
	marker := prefix + "_"

	var buckets []BucketColumn
	for _, name := range header {
		if !strings.HasPrefix(name, marker) {
			continue
		}
		label := strings.TrimPrefix(name, marker)
		if label == "" {
			continue
		}

		upper, ok := upperBound(label)
		buckets = append(buckets, BucketColumn{
			Column:       name,
			Label:        label,
			UpperBoundMs: upper,
			Open:         !ok,
		})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].SortKey() < buckets[j].SortKey()
	})

	return buckets
}

// upperBound extracts N from labels such as "<N", "<=N", "lo-N" or "N".
func upperBound(label string) (int64, bool) {
	s := strings.TrimSpace(label)
	if strings.HasPrefix(s, ">") {
		return 0, false
	}

	if i := strings.LastIndex(s, "<"); i >= 0 {
		s = s[i+1:]
	} else if i := strings.LastIndex(s, "-"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimSuffix(s, "ms")

	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
