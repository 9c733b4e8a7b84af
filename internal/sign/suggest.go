package sign

import "github.com/antzucaro/matchr"

// SuggestThreshold is the minimum Jaro-Winkler similarity for Suggest.
const SuggestThreshold = 0.85

// Suggest returns the candidate whose normalized form is closest to name,
// if it scores at least SuggestThreshold.
func Suggest(name string, candidates []string) (string, bool) {
	key := Normalize(name)
	if key == "" {
		return "", false
	}

	best, bestScore := "", 0.0
	for _, c := range candidates {
		ck := Normalize(c)
		if ck == "" {
			continue
		}
		if s := matchr.JaroWinkler(key, ck, false); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < SuggestThreshold {
		return "", false
	}
	return best, true
}
