package compare

import "github.com/antzucaro/matchr"

// matrixLimit is the largest rune matrix handed to matchr, which allocates the full
// table. Longer pairs use the two-row Distance.
const matrixLimit = 1 << 22

// Distance returns the minimum number of insertions, deletions, or substitutions of
// single elements needed to turn a into b. It keeps two rows of the table, so memory
// is linear in len(b).
func Distance[T comparable](a, b []T) int {
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
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// charDistance is the Levenshtein distance between a and b counted in runes.
func charDistance(a, b []rune) int {
	if (len(a)+1)*(len(b)+1) <= matrixLimit {
		return matchr.Levenshtein(string(a), string(b))
	}
	return Distance(a, b)
}
