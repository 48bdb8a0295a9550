// Copyright (c) 2015, Arbo von Monkiewitsch All rights reserved.
// Use of this source code is governed by a BSD-style
// license.

// Package suggest proposes the closest known name for a misspelled one.
package suggest

import "slices"

// Distance returns the Levenshtein edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	src := []rune(a)
	dst := []rune(b)

	if len(dst) == 0 {
		return len(src)
	}

	// One column of the edit matrix is enough.
	column := make([]int, len(src)+1)
	for row := range column {
		column[row] = row
	}

	for col, target := range dst {
		diag := column[0]
		column[0] = col + 1

		for row, source := range src {
			above := column[row+1]

			cost := 1
			if source == target {
				cost = 0
			}

			column[row+1] = min(above+1, column[row]+1, diag+cost)
			diag = above
		}
	}

	return column[len(src)]
}

// Closest returns the candidate nearest to name, if it is within a third of
// the length of name (at least two edits). Ties go to the candidate that sorts first.
func Closest(name string, candidates []string) (string, bool) {
	limit := max(2, len([]rune(name))/3)

	best := ""
	bestDist := limit + 1

	for _, candidate := range slices.Sorted(slices.Values(candidates)) {
		if candidate == name {
			continue
		}

		if dist := Distance(name, candidate); dist < bestDist {
			best, bestDist = candidate, dist
		}
	}

	return best, best != ""
}

// Hint formats a "did you mean" suffix for an error message, or returns the
// empty string when nothing is close enough.
func Hint(name string, candidates []string) string {
	if match, ok := Closest(name, candidates); ok {
		return " (did you mean \"" + match + "\"?)"
	}

	return ""
}
