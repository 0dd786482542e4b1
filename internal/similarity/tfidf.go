package similarity

import (
	"math"
	"strings"
)

// TFIDFCosine returns the cosine similarity of two texts under a TF-IDF
// weighting computed over the two-document corpus formed by the pair
// itself. Terms are word unigrams and bigrams after lowercasing and
// squashing non-alphanumerics; IDF is smoothed as ln((1+n)/(1+df)) + 1 so
// terms appearing in both documents still carry weight. Because the corpus
// is exactly the pair, the result depends on nothing outside the two
// inputs and is symmetric.
func TFIDFCosine(a, b string) float64 {
	ta := termFrequencies(a)
	tb := termFrequencies(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	const n = 2.0
	idf := func(term string) float64 {
		df := 0.0
		if _, ok := ta[term]; ok {
			df++
		}
		if _, ok := tb[term]; ok {
			df++
		}
		return math.Log((1+n)/(1+df)) + 1
	}

	var dot, normA, normB float64
	for term, fa := range ta {
		w := idf(term)
		va := fa * w
		normA += va * va
		if fb, ok := tb[term]; ok {
			dot += va * fb * w
		}
	}
	for term, fb := range tb {
		w := idf(term)
		vb := fb * w
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	// Floating-point rounding can nudge the ratio a hair past 1.
	return math.Min(1.0, dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

// termFrequencies tokenizes the text into word unigrams and adjacent-word
// bigrams and returns raw term counts.
func termFrequencies(s string) map[string]float64 {
	words := tokenizeWords(s)
	freqs := make(map[string]float64, len(words)*2)
	for _, w := range words {
		freqs[w]++
	}
	for i := 0; i+1 < len(words); i++ {
		freqs[words[i]+" "+words[i+1]]++
	}
	return freqs
}

func tokenizeWords(s string) []string {
	cleaned := cleanForTrigrams(s)
	if cleaned == "" {
		return nil
	}
	return strings.Fields(cleaned)
}
