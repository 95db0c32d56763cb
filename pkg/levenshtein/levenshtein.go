// Package levenshtein finds near-miss identifiers by edit distance.
package levenshtein

// Distance returns the number of single-rune insertions, deletions and
// substitutions that turn a into b. It keeps one row of the edit matrix.
func Distance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}

	if len(s2) == 0 {
		return len(s1)
	}

	row := make([]int, len(s2)+1)
	for i := range row {
		row[i] = i
	}

	for i, r1 := range s1 {
		diag := row[0]
		row[0] = i + 1

		for j, r2 := range s2 {
			cost := 1
			if r1 == r2 {
				cost = 0
			}

			next := min(row[j+1]+1, row[j]+1, diag+cost)
			diag = row[j+1]
			row[j+1] = next
		}
	}

	return row[len(s2)]
}

// Closest returns the candidate nearest to word within maxDist edits.
// Exact matches do not count; ties keep the earlier candidate.
func Closest(word string, candidates []string, maxDist int) (string, bool) {
	best, bestDist := "", maxDist+1

	for _, c := range candidates {
		if c == word {
			continue
		}

		if d := Distance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, best != ""
}
