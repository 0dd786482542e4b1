package similarity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinkler_Identical(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("14NV412341", "14NV412341"))
	assert.Equal(t, 1.0, JaroWinkler("", ""))
}

func TestJaroWinkler_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("abc123", "ABC123"))
}

func TestJaroWinkler_Empty(t *testing.T) {
	assert.Equal(t, 0.0, JaroWinkler("", "ABC"))
	assert.Equal(t, 0.0, JaroWinkler("ABC", ""))
}

func TestJaroWinkler_KnownValues(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"MARTHA", "MARHTA", 0.9611},
		{"DIXON", "DICKSONX", 0.8133},
		{"DWAYNE", "DUANE", 0.8400},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaroWinkler(tt.s1, tt.s2), 0.0001)
		})
	}
}

func TestJaroWinkler_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"14NV412341", "14NV412341 4111"},
		{"ACME WIDGET", "ACME GADGET"},
		{"X", "XYZZY"},
	}

	for _, p := range pairs {
		assert.Equal(t, JaroWinkler(p[0], p[1]), JaroWinkler(p[1], p[0]))
	}
}

func TestJaroWinkler_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"A", "B"},
		{"ABCDEF", "FEDCBA"},
		{"PN-1000", "PN-1001"},
		{"completely", "different"},
	}

	for _, p := range pairs {
		got := JaroWinkler(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestJaroWinkler_PrefixBoost(t *testing.T) {
	// Shared prefixes score higher than the same edits elsewhere.
	withPrefix := JaroWinkler("ABCD1234", "ABCD1243")
	withoutPrefix := JaroWinkler("1234ABCD", "1243ABCD")
	assert.Greater(t, withPrefix, withoutPrefix)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"PN-100", "PN-109", 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("", ""))
	assert.Equal(t, 1.0, LevenshteinSimilarity("abc", "abc"))
	assert.Equal(t, 0.0, LevenshteinSimilarity("abc", "xyz"))
	assert.InDelta(t, 0.5714, LevenshteinSimilarity("kitten", "sitting"), 0.0001)
}

func TestTrigramSet(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		set := TrigramSet("abcd")
		assert.Len(t, set, 2)
		assert.Contains(t, set, "abc")
		assert.Contains(t, set, "bcd")
	})

	t.Run("short string kept whole", func(t *testing.T) {
		set := TrigramSet("ab")
		assert.Len(t, set, 1)
		assert.Contains(t, set, "ab")
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, TrigramSet(""))
		assert.Empty(t, TrigramSet("  --  "))
	})

	t.Run("punctuation squashed to spaces", func(t *testing.T) {
		assert.Equal(t, TrigramSet("anchor bolt"), TrigramSet("anchor-bolt"))
	})

	t.Run("lowercased", func(t *testing.T) {
		assert.Equal(t, TrigramSet("BOLT"), TrigramSet("bolt"))
	})
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"abc": {}, "bcd": {}}
	b := map[string]struct{}{"bcd": {}, "cde": {}}
	empty := map[string]struct{}{}

	assert.InDelta(t, 1.0/3.0, Jaccard(a, b), 0.0001)
	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 1.0, Jaccard(empty, empty))
	assert.Equal(t, 0.0, Jaccard(a, empty))
	assert.Equal(t, 0.0, Jaccard(empty, b))
}

func TestTrigramJaccard_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"hex head anchor bolt", "anchor bolt, hex head"},
		{"stainless steel", "carbon steel"},
	}

	for _, p := range pairs {
		assert.Equal(t, TrigramJaccard(p[0], p[1]), TrigramJaccard(p[1], p[0]))
	}
}

func TestTFIDFCosine(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.InDelta(t, 1.0, TFIDFCosine("hex anchor bolt", "hex anchor bolt"), 0.0001)
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.Equal(t, 0.0, TFIDFCosine("alpha beta", "gamma delta"))
	})

	t.Run("both empty", func(t *testing.T) {
		assert.Equal(t, 1.0, TFIDFCosine("", ""))
	})

	t.Run("one empty", func(t *testing.T) {
		assert.Equal(t, 0.0, TFIDFCosine("anchor bolt", ""))
	})

	t.Run("partial overlap scores between extremes", func(t *testing.T) {
		got := TFIDFCosine(
			"wedge anchor bolt zinc plated",
			"wedge anchor bolt stainless",
		)
		assert.Greater(t, got, 0.0)
		assert.Less(t, got, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := "heavy duty wedge anchor"
		b := "wedge anchor for concrete"
		assert.InDelta(t, TFIDFCosine(a, b), TFIDFCosine(b, a), 1e-12)
	})

	t.Run("bounded", func(t *testing.T) {
		pairs := [][2]string{
			{"a b c", "a b c d e"},
			{"one two two three", "two three four"},
			{"x", "x y"},
		}
		for _, p := range pairs {
			got := TFIDFCosine(p[0], p[1])
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	})
}

func BenchmarkJaroWinkler(b *testing.B) {
	for i := 0; i < b.N; i++ {
		JaroWinkler("14NV412341 4111", "14NV4123414111")
	}
}

func BenchmarkTFIDFCosine(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TFIDFCosine(
			"heavy duty wedge anchor bolt for concrete zinc plated",
			"wedge anchor bolt stainless steel concrete fastener",
		)
	}
}
