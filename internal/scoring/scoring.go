// Package scoring computes pairwise similarity between product records
// across five independent components (part number, manufacturer, text,
// UNSPSC, GTIN) and combines them into one overall score. Components whose
// underlying field is missing on either side are flagged not-applicable and
// contribute nothing; they are never treated as a mismatch.
package scoring

import (
	"sort"
	"strings"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/normalize"
	"github.com/productgraph/resolver/internal/similarity"
)

// Combination constants. JaroFactor and LevFactor discount fuzzy part-number
// similarity relative to an exact variant hit; the text sub-weights blend the
// three text metrics.
const (
	JaroFactor = 0.90
	LevFactor  = 0.85

	TitleWeight = 0.30
	DescWeight  = 0.30
	TFIDFWeight = 0.40
)

// Weights configures component weighting and the synergy rule. The five
// component weights must each lie in [0,1] and sum to at most 1.
type Weights struct {
	PartNumber   float64 `json:"part_number"`
	Manufacturer float64 `json:"manufacturer"`
	Text         float64 `json:"text"`
	UNSPSC       float64 `json:"unspsc"`
	GTIN         float64 `json:"gtin"`

	// StrongSignal is the component score at or above which a component
	// counts as a corroborating signal.
	StrongSignal float64 `json:"strong_signal"`
	// SynergyMinSignals is how many simultaneous strong signals the bonus
	// requires.
	SynergyMinSignals int `json:"synergy_min_signals"`
	// SynergyBonus is added once when the signal count is reached.
	SynergyBonus float64 `json:"synergy_bonus"`
}

// DefaultWeights returns the standard scoring configuration.
func DefaultWeights() Weights {
	return Weights{
		PartNumber:        0.35,
		Manufacturer:      0.25,
		Text:              0.20,
		UNSPSC:            0.10,
		GTIN:              0.10,
		StrongSignal:      0.80,
		SynergyMinSignals: 3,
		SynergyBonus:      0.10,
	}
}

// Validate checks the weight ranges and the sum bound.
func (w Weights) Validate() error {
	components := []struct {
		name  string
		value float64
	}{
		{domain.ComponentPartNumber, w.PartNumber},
		{domain.ComponentManufacturer, w.Manufacturer},
		{domain.ComponentText, w.Text},
		{domain.ComponentUNSPSC, w.UNSPSC},
		{domain.ComponentGTIN, w.GTIN},
	}
	for _, c := range components {
		if c.value < 0 || c.value > 1 {
			return domainerrors.InvalidArgumentf("weight %s must be in [0,1], got %v", c.name, c.value)
		}
	}
	if sum := w.PartNumber + w.Manufacturer + w.Text + w.UNSPSC + w.GTIN; sum > 1+1e-9 {
		return domainerrors.InvalidArgumentf("component weights sum to %.3f, must not exceed 1", sum)
	}
	if w.StrongSignal < 0 || w.StrongSignal > 1 {
		return domainerrors.InvalidArgumentf("strong signal threshold must be in [0,1], got %v", w.StrongSignal)
	}
	if w.SynergyMinSignals < 1 {
		return domainerrors.InvalidArgumentf("synergy minimum signals must be at least 1, got %d", w.SynergyMinSignals)
	}
	if w.SynergyBonus < 0 || w.SynergyBonus > 1 {
		return domainerrors.InvalidArgumentf("synergy bonus must be in [0,1], got %v", w.SynergyBonus)
	}
	return nil
}

// Scorer scores record pairs. Safe for concurrent use: it holds no mutable
// state of its own, and the alias resolver it shares is concurrency-safe.
type Scorer struct {
	weights     Weights
	resolver    *alias.Resolver
	maxVariants int
}

// New builds a scorer. A nil resolver gets a self-identity resolver; a
// non-positive maxVariants falls back to the normalize default.
func New(weights Weights, resolver *alias.Resolver, maxVariants int) *Scorer {
	if resolver == nil {
		resolver = alias.NewResolver(nil, 0)
	}
	if maxVariants <= 0 {
		maxVariants = normalize.DefaultMaxVariants
	}
	return &Scorer{weights: weights, resolver: resolver, maxVariants: maxVariants}
}

// Score computes the full breakdown for a pair of records. The result is
// symmetric: argument order never changes any score, and the sides are
// normalized so IDA < IDB.
func (s *Scorer) Score(a, b *domain.Record) *domain.PairScore {
	if a.ID > b.ID {
		a, b = b, a
	}

	ps := &domain.PairScore{
		IDA:          a.ID,
		IDB:          b.ID,
		PartNumber:   s.scorePartNumber(a, b),
		Manufacturer: s.scoreManufacturer(a, b),
		Text:         scoreText(a, b),
		UNSPSC:       scoreUNSPSC(a, b),
		GTIN:         scoreGTIN(a, b),
	}

	w := s.weights
	total := 0.0
	strong := 0
	apply := func(score, weight float64) float64 {
		contribution := weight * score
		total += contribution
		if score >= w.StrongSignal {
			strong++
		}
		return contribution
	}

	if ps.PartNumber.Applicable {
		ps.PartNumber.Contribution = apply(ps.PartNumber.Score, w.PartNumber)
	}
	if ps.Manufacturer.Applicable {
		ps.Manufacturer.Contribution = apply(ps.Manufacturer.Score, w.Manufacturer)
	}
	if ps.Text.Applicable {
		ps.Text.Contribution = apply(ps.Text.Score, w.Text)
	}
	if ps.UNSPSC != nil {
		ps.UNSPSC.Contribution = apply(ps.UNSPSC.Score, w.UNSPSC)
	}
	if ps.GTIN != nil {
		ps.GTIN.Contribution = apply(ps.GTIN.Score, w.GTIN)
	}

	if strong >= w.SynergyMinSignals {
		total += w.SynergyBonus
		ps.Synergy = &domain.SynergyBreakdown{StrongSignals: strong, Bonus: w.SynergyBonus}
	}

	ps.OverallScore = clamp01(total)
	return ps
}

func (s *Scorer) scorePartNumber(a, b *domain.Record) domain.PartNumberScore {
	ps := domain.PartNumberScore{
		VariantsA: normalize.VariantsLimit(a.PartNumberRaw, s.maxVariants),
		VariantsB: normalize.VariantsLimit(b.PartNumberRaw, s.maxVariants),
	}
	if len(ps.VariantsA) == 0 || len(ps.VariantsB) == 0 {
		return ps
	}
	ps.Applicable = true

	seen := make(map[string]struct{}, len(ps.VariantsA))
	for _, v := range ps.VariantsA {
		seen[v] = struct{}{}
	}
	for _, v := range ps.VariantsB {
		if _, ok := seen[v]; ok {
			ps.MatchingVariants = append(ps.MatchingVariants, v)
		}
	}
	sort.Strings(ps.MatchingVariants)

	if len(ps.MatchingVariants) > 0 {
		// A shared variant means the cross product contains an identical
		// pair, so both fuzzy maxima are exactly 1.
		ps.ExactMatch = true
		ps.BestJaroWinkler = 1.0
		ps.BestLevenshtein = 1.0
		ps.Score = 1.0
		return ps
	}

	for _, x := range ps.VariantsA {
		for _, y := range ps.VariantsB {
			if jw := similarity.JaroWinkler(x, y); jw > ps.BestJaroWinkler {
				ps.BestJaroWinkler = jw
			}
			if lev := similarity.LevenshteinSimilarity(x, y); lev > ps.BestLevenshtein {
				ps.BestLevenshtein = lev
			}
		}
	}
	ps.Score = max(JaroFactor*ps.BestJaroWinkler, LevFactor*ps.BestLevenshtein)
	return ps
}

func (s *Scorer) scoreManufacturer(a, b *domain.Record) domain.ManufacturerScore {
	ms := domain.ManufacturerScore{
		RawA:       a.ManufacturerRaw,
		RawB:       b.ManufacturerRaw,
		CanonicalA: s.resolver.Resolve(a.ManufacturerRaw),
		CanonicalB: s.resolver.Resolve(b.ManufacturerRaw),
	}
	if ms.CanonicalA == "" || ms.CanonicalB == "" {
		return ms
	}
	ms.Applicable = true

	if ms.CanonicalA == ms.CanonicalB {
		ms.ExactMatch = true
		ms.JaroWinkler = 1.0
		ms.Score = 1.0
		return ms
	}
	ms.JaroWinkler = similarity.JaroWinkler(ms.CanonicalA, ms.CanonicalB)
	ms.Score = ms.JaroWinkler
	return ms
}

func scoreText(a, b *domain.Record) domain.TextScore {
	var ts domain.TextScore
	if !hasText(a) || !hasText(b) {
		return ts
	}
	ts.Applicable = true

	ts.TitleJaccard = similarity.TrigramJaccard(a.Title, b.Title)
	ts.DescriptionJaccard = similarity.TrigramJaccard(a.Description, b.Description)
	ts.TFIDFCosine = similarity.TFIDFCosine(combinedText(a), combinedText(b))
	ts.Score = TitleWeight*ts.TitleJaccard + DescWeight*ts.DescriptionJaccard + TFIDFWeight*ts.TFIDFCosine
	return ts
}

func scoreUNSPSC(a, b *domain.Record) *domain.UNSPSCScore {
	codeA, okA := normalize.CleanUNSPSC(a.UNSPSC)
	codeB, okB := normalize.CleanUNSPSC(b.UNSPSC)
	if !okA || !okB {
		return nil
	}

	us := &domain.UNSPSCScore{CodeA: codeA, CodeB: codeB}
	switch {
	case codeA == codeB:
		us.MatchTier, us.Score = domain.UNSPSCMatchExact, 1.0
	case codeA[:6] == codeB[:6]:
		us.MatchTier, us.Score = domain.UNSPSCMatchClass, 0.8
	case codeA[:4] == codeB[:4]:
		us.MatchTier, us.Score = domain.UNSPSCMatchFamily, 0.6
	case codeA[:2] == codeB[:2]:
		us.MatchTier, us.Score = domain.UNSPSCMatchSegment, 0.3
	default:
		us.MatchTier = domain.UNSPSCMatchNone
	}
	return us
}

func scoreGTIN(a, b *domain.Record) *domain.GTINScore {
	ga, okA := normalize.CleanGTIN(a.GTIN)
	gb, okB := normalize.CleanGTIN(b.GTIN)
	if !okA || !okB {
		return nil
	}

	gs := &domain.GTINScore{GTINA: ga, GTINB: gb}
	if ga == gb {
		gs.Equal = true
		gs.Score = 1.0
	}
	return gs
}

func hasText(r *domain.Record) bool {
	return strings.TrimSpace(r.Title) != "" || strings.TrimSpace(r.Description) != ""
}

func combinedText(r *domain.Record) string {
	return strings.TrimSpace(r.Title + " " + r.Description)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
