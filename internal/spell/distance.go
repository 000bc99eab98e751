package spell

// Bigrams returns the distinct two-rune substrings of term in order of
// first appearance. A one-rune term is its own bigram.
func Bigrams(term string) []string {
	r := []rune(term)
	if len(r) < 2 {
		if len(r) == 0 {
			return nil
		}
		return []string{term}
	}
	seen := make(map[string]bool, len(r)-1)
	out := make([]string, 0, len(r)-1)
	for i := 0; i+1 < len(r); i++ {
		bg := string(r[i : i+2])
		if !seen[bg] {
			seen[bg] = true
			out = append(out, bg)
		}
	}
	return out
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			if ra[i-1] == rb[j-1] {
				curr[i] = prev[i-1]
				continue
			}
			curr[i] = 1 + min(prev[i-1], prev[i], curr[i-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
