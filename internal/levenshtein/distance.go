// Package levenshtein computes edit distances for domain typo detection.
package levenshtein

// Distance computes the Levenshtein edit distance between two strings,
// comparing runes rather than bytes.
func Distance(s, t string) int {
	d, _ := Within(s, t, -1)
	return d
}

// Within computes the distance between s and t, giving up as soon as every
// cell of a row exceeds limit. The bool is false when the distance is
// known to exceed limit. A negative limit disables the cutoff.
func Within(s, t string, limit int) (int, bool) {
	a, b := []rune(s), []rune(t)
	if len(a) > len(b) {
		a, b = b, a
	}
	if limit >= 0 && len(b)-len(a) > limit {
		return len(b) - len(a), false
	}

	row := make([]int, len(a)+1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(b); j++ {
		diag := row[0]
		row[0] = j
		best := row[0]
		for i := 1; i <= len(a); i++ {
			above := row[i]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[i] = min(row[i-1]+1, above+1, diag+cost)
			diag = above
			if row[i] < best {
				best = row[i]
			}
		}
		if limit >= 0 && best > limit {
			return best, false
		}
	}

	d := row[len(a)]
	return d, limit < 0 || d <= limit
}
