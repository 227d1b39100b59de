package similarity

// gramSize is the character n-gram length used for lexical overlap.
const gramSize = 3

// Lexical returns the Dice coefficient of the character trigram multisets
// of a and b, in [0, 1]. Inputs are compared as given; callers normalise
// case and punctuation first. Either side empty yields 0.
func Lexical(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ga := grams(a)
	gb := grams(b)
	total := 0
	for _, c := range ga {
		total += c
	}
	for _, c := range gb {
		total += c
	}
	if total == 0 {
		return 0
	}

	shared := 0
	for g, ca := range ga {
		if cb, ok := gb[g]; ok {
			shared += min(ca, cb)
		}
	}
	return 2 * float64(shared) / float64(total)
}

// BestLexical returns the highest Lexical score of query against any of
// the given texts. Empty texts are skipped.
func BestLexical(query string, texts ...string) float64 {
	best := 0.0
	for _, t := range texts {
		if s := Lexical(query, t); s > best {
			best = s
		}
	}
	return best
}

// grams counts the padded character trigrams of s. Padding with a space on
// both sides gives single-character strings one gram.
func grams(s string) map[string]int {
	runes := make([]rune, 0, len(s)+2)
	runes = append(runes, ' ')
	runes = append(runes, []rune(s)...)
	runes = append(runes, ' ')

	out := make(map[string]int, len(runes))
	for i := 0; i+gramSize <= len(runes); i++ {
		out[string(runes[i:i+gramSize])]++
	}
	return out
}
