// Package similarity provides the string-similarity primitives used by
// pairwise scoring: Jaro-Winkler, Levenshtein, character-trigram Jaccard,
// and TF-IDF cosine. All functions are pure, symmetric in their two string
// arguments, and return values in [0, 1] (Levenshtein returns a distance;
// LevenshteinSimilarity normalizes it).
package similarity

import "strings"

// Jaro-Winkler constants matching the classic definition: prefix scaling
// factor and the maximum common-prefix length it rewards.
const (
	winklerPrefixScale = 0.1
	winklerMaxPrefix   = 4
)

// JaroWinkler returns the Jaro-Winkler similarity of two strings,
// case-insensitive, in [0, 1].
func JaroWinkler(s1, s2 string) float64 {
	s1 = strings.ToUpper(s1)
	s2 = strings.ToUpper(s2)
	if s1 == s2 {
		return 1.0
	}

	len1, len2 := len(s1), len(s2)
	if len1 == 0 || len2 == 0 {
		return 0.0
	}

	matchDistance := max(len1, len2)/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	matches1 := make([]bool, len1)
	matches2 := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, len2)
		for j := start; j < end; j++ {
			if matches2[j] || s1[i] != s2[j] {
				continue
			}
			matches1[i] = true
			matches2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Count transpositions between the matched characters.
	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matches1[i] {
			continue
		}
		for !matches2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2)/m) / 3.0

	// Winkler prefix boost.
	prefix := 0
	for i := 0; i < min(winklerMaxPrefix, min(len1, len2)); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*winklerPrefixScale*(1.0-jaro)
}

// Levenshtein returns the edit distance between two strings using the
// two-row dynamic programming formulation.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
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

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1
		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}
			curr[j+1] = min(curr[j]+1, min(prev[j+1]+1, prev[j]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// LevenshteinSimilarity normalizes the edit distance to [0, 1]:
// 1 - distance/maxLen. Two empty strings are identical (1.0).
func LevenshteinSimilarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// TrigramSet returns the set of character trigrams of the string after
// lowercasing and squashing non-alphanumerics to single spaces. Strings
// shorter than three characters yield the whole cleaned string as the only
// element, so very short fields still compare meaningfully.
func TrigramSet(s string) map[string]struct{} {
	cleaned := cleanForTrigrams(s)
	set := make(map[string]struct{})
	if cleaned == "" {
		return set
	}
	if len(cleaned) < 3 {
		set[cleaned] = struct{}{}
		return set
	}
	for i := 0; i+3 <= len(cleaned); i++ {
		set[cleaned[i:i+3]] = struct{}{}
	}
	return set
}

// Jaccard returns the Jaccard index of two sets. Two empty sets are
// identical (1.0); one empty set against a non-empty one is 0.0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// TrigramJaccard is the Jaccard index over the character trigrams of two
// strings.
func TrigramJaccard(a, b string) float64 {
	return Jaccard(TrigramSet(a), TrigramSet(b))
}

func cleanForTrigrams(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
