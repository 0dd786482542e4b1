package domain

// Component names used in score breakdowns and logs.
const (
	ComponentPartNumber   = "part_number"
	ComponentManufacturer = "manufacturer"
	ComponentText         = "text"
	ComponentUNSPSC       = "unspsc"
	ComponentGTIN         = "gtin"
)

// UNSPSC match tiers, deepest shared prefix first.
const (
	UNSPSCMatchExact   = "exact"
	UNSPSCMatchClass   = "class"
	UNSPSCMatchFamily  = "family"
	UNSPSCMatchSegment = "segment"
	UNSPSCMatchNone    = "none"
)

// PairScore is the scored result for one candidate pair. It retains the full
// per-component breakdown, not just the combined value: the comparison
// interface returns it verbatim. Symmetric by construction; immutable once
// computed.
type PairScore struct {
	IDA          string             `json:"id_a"`
	IDB          string             `json:"id_b"`
	PartNumber   PartNumberScore    `json:"part_number"`
	Manufacturer ManufacturerScore  `json:"manufacturer"`
	Text         TextScore          `json:"text"`
	UNSPSC       *UNSPSCScore       `json:"unspsc,omitempty"`
	GTIN         *GTINScore         `json:"gtin,omitempty"`
	Synergy      *SynergyBreakdown  `json:"synergy,omitempty"`
	OverallScore float64            `json:"overall_score"`
}

// Pair returns the candidate pair this score belongs to.
func (s *PairScore) Pair() CandidatePair {
	return CandidatePair{IDA: s.IDA, IDB: s.IDB}
}

// PartNumberScore is the part-number component: the best match found across
// the two variant sets.
type PartNumberScore struct {
	VariantsA        []string `json:"variants_a"`
	VariantsB        []string `json:"variants_b"`
	MatchingVariants []string `json:"matching_variants,omitempty"`
	ExactMatch       bool     `json:"exact_match"`
	BestJaroWinkler  float64  `json:"best_jaro_winkler"`
	BestLevenshtein  float64  `json:"best_levenshtein"`
	Applicable       bool     `json:"applicable"`
	Score            float64  `json:"score"`
	Contribution     float64  `json:"score_contribution"`
}

// ManufacturerScore is the manufacturer component, computed over canonical
// identities from the alias resolver.
type ManufacturerScore struct {
	RawA         string  `json:"raw_a"`
	RawB         string  `json:"raw_b"`
	CanonicalA   string  `json:"canonical_a"`
	CanonicalB   string  `json:"canonical_b"`
	ExactMatch   bool    `json:"exact_match"`
	JaroWinkler  float64 `json:"jaro_winkler"`
	Applicable   bool    `json:"applicable"`
	Score        float64 `json:"score"`
	Contribution float64 `json:"score_contribution"`
}

// TextScore is the text component over titles and descriptions.
type TextScore struct {
	TitleJaccard       float64 `json:"title_jaccard"`
	DescriptionJaccard float64 `json:"description_jaccard"`
	TFIDFCosine        float64 `json:"tfidf_cosine"`
	Applicable         bool    `json:"applicable"`
	Score              float64 `json:"score"`
	Contribution       float64 `json:"score_contribution"`
}

// UNSPSCScore is the classification component, scored by shared-prefix depth.
// Nil on the PairScore when either side lacks a valid code.
type UNSPSCScore struct {
	CodeA        string  `json:"code_a"`
	CodeB        string  `json:"code_b"`
	MatchTier    string  `json:"match_tier"`
	Score        float64 `json:"score"`
	Contribution float64 `json:"score_contribution"`
}

// GTINScore is the trade-identifier component. Nil on the PairScore when
// either side lacks a valid GTIN; present with Equal=false when both sides
// carry different codes.
type GTINScore struct {
	GTINA        string  `json:"gtin_a"`
	GTINB        string  `json:"gtin_b"`
	Equal        bool    `json:"equal"`
	Score        float64 `json:"score"`
	Contribution float64 `json:"score_contribution"`
}

// SynergyBreakdown records the corroboration bonus decision. Nil when the
// bonus did not apply.
type SynergyBreakdown struct {
	StrongSignals int     `json:"strong_signals"`
	Bonus         float64 `json:"bonus"`
}

// Comparison is the full compare(a, b) result: both record summaries plus the
// score breakdown.
type Comparison struct {
	ProductA     Summary    `json:"product_a"`
	ProductB     Summary    `json:"product_b"`
	Score        *PairScore `json:"comparison"`
	OverallScore float64    `json:"overall_score"`
	Cached       bool       `json:"cached"`
}
