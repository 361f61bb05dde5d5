package match

import "strings"

// Score rates how well query matches candidate, 0.0 to 1.0.
//
// Several strategies are tried and the best score wins:
//   - exact match after cleaning: 1.0
//   - full substring: scaled by coverage of the candidate
//   - per-word containment for multi-word queries
//   - best single-word edit similarity for one-word queries
//   - initials ("js" against "John Smith")
//   - word-start alignment ("jo sm" against "John Smith")
//   - whole-string edit similarity as the floor
//
// Both inputs are cleaned and case folded before comparison, so
// decorated chat names ("🔥 D1 Haters 🔥") match their plain forms.
func Score(query, candidate string) float64 {
	q := Fold(CleanName(query))
	c := Fold(CleanName(candidate))
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}

	best := 0.0
	if strings.Contains(c, q) {
		best = maxf(best, 0.95*float64(len(q))/float64(len(c)))
	}

	qWords := strings.Fields(q)
	cWords := strings.Fields(c)

	if len(qWords) > 1 {
		matched := 0
		for _, w := range qWords {
			if len(w) > 2 && strings.Contains(c, w) {
				matched++
			}
		}
		if matched > 0 {
			best = maxf(best, 0.85*float64(matched)/float64(len(qWords)))
		}

		startMatches := 0
		for i, w := range qWords {
			if i < len(cWords) && strings.HasPrefix(cWords[i], w) {
				startMatches++
			}
		}
		if startMatches > 0 {
			best = maxf(best, 0.75*float64(startMatches)/float64(len(qWords)))
		}
	}

	if len(qWords) == 1 {
		for _, w := range cWords {
			best = maxf(best, 0.9*similarity(q, w))
		}
	}

	if len(q) <= 4 && isAlpha(q) {
		var initials strings.Builder
		for _, w := range cWords {
			initials.WriteByte(w[0])
		}
		switch {
		case q == initials.String():
			best = maxf(best, 0.8)
		case strings.Contains(initials.String(), q):
			best = maxf(best, 0.7)
		}
	}

	best = maxf(best, 0.8*similarity(q, c))
	return best
}

// similarity is 1 - normalized Levenshtein distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein(a, b)
	max := la
	if lb > max {
		max = lb
	}
	return 1.0 - float64(d)/float64(max)
}

// levenshtein computes edit distance over bytes with a two-row table.
// Inputs are already folded, so byte comparison is adequate for the
// names and message bodies this package scores.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func maxf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return s != ""
}
