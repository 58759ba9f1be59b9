package parser

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands report paths and glob patterns into a sorted, deduplicated
// list. A pattern that matches nothing is kept as a literal path so the caller
// reports the missing file by name.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			matches = []string{pattern}
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	sort.Strings(result)

	return result, nil
}
