package strings

// tokenMatchRatio is the per-token edit ratio above which two words count as
// the same word with OCR noise ("GONZALES" vs "GONZALEZ").
const tokenMatchRatio = 0.8

// Similarity scores two person or company names in [0, 1].
//
// Both names are folded (accents and every non-alphanumeric removed), then
// tokenized. Each token of the shorter name is paired with at most one token
// of the longer name, either equal or within tokenMatchRatio by edit
// distance. The score is matched tokens over the larger token count, so
// word order does not matter but missing surnames do.
func Similarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}

	used := make([]bool, len(tb))
	matched := 0
	for _, x := range ta {
		best, bestIdx := 0.0, -1
		for j, y := range tb {
			if used[j] {
				continue
			}
			r := editRatio(x, y)
			if r > best {
				best, bestIdx = r, j
			}
		}
		if bestIdx >= 0 && best >= tokenMatchRatio {
			used[bestIdx] = true
			matched++
		}
	}
	return float64(matched) / float64(len(tb))
}

// editRatio is 1 - levenshtein(a, b)/max(len(a), len(b)).
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
