// Package normalize provides canonical forms for the fields that drive
// matching: part numbers, manufacturer names, UNSPSC codes, and GTINs.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// corpSuffixes are trailing corporate-form tokens stripped from manufacturer
// names, so "Acme Corp" and "Acme Inc" share a canonical identity.
//
//nolint:gochecknoglobals // Static lookup table for manufacturer canonicalization
var corpSuffixes = map[string]struct{}{
	"INC": {}, "LLC": {}, "LTD": {}, "LIMITED": {}, "CO": {}, "CORP": {},
	"CORPORATION": {}, "GMBH": {}, "AG": {}, "BV": {}, "SA": {}, "SAS": {},
	"PLC": {}, "PTE": {}, "PTY": {}, "AB": {}, "OY": {}, "KK": {}, "SRL": {},
	"TECHNOLOGIES": {}, "SYSTEMS": {}, "SOLUTIONS": {}, "SERVICES": {},
	"ENTERPRISES": {}, "INDUSTRIES": {}, "INTERNATIONAL": {}, "WORLDWIDE": {},
	"GLOBAL": {}, "GROUP": {}, "COMPANY": {}, "COMPANIES": {},
}

// gtinPlaceholders are catalog values that mean "no GTIN".
//
//nolint:gochecknoglobals // Static lookup table for GTIN cleaning
var gtinPlaceholders = map[string]struct{}{
	"": {}, "0": {}, "NAN": {}, "NONE": {}, "NULL": {}, "N/A": {},
}

// diacriticStripper decomposes to NFD, drops combining marks, and recomposes,
// folding "Häfele" to "Hafele".
//
//nolint:gochecknoglobals // Reusable transformer chain
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the canonical form of a part number: uppercased, with
// separator and punctuation characters removed and runs of whitespace
// collapsed to single spaces. Token boundaries survive:
// "AGM14NV-412341 4111 ea" -> "AGM14NV412341 4111 EA".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToUpper(s) {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// Separators and punctuation drop out without introducing a boundary.
	}
	return strings.TrimSpace(b.String())
}

// Manufacturer canonicalizes a manufacturer name for identity comparison:
// diacritics folded, uppercased, "&" expanded to "AND", punctuation squashed
// to spaces, and trailing corporate-form tokens stripped until none remain.
// "Acme Corp." -> "ACME", "Société Générale" -> "SOCIETE GENERALE".
func Manufacturer(s string) string {
	if s == "" {
		return ""
	}

	x := strings.ToUpper(stripDiacritics(s))
	x = strings.ReplaceAll(x, "&", " AND ")
	x = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, x)

	tokens := strings.Fields(x)
	for len(tokens) > 0 {
		if _, ok := corpSuffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// CleanUNSPSC trims a UNSPSC commodity code and reports whether it is valid.
// Valid codes are exactly eight ASCII digits; anything else is treated as
// missing.
func CleanUNSPSC(s string) (string, bool) {
	code := strings.TrimSpace(s)
	if len(code) != 8 {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}
	return code, true
}

// UNSPSCPrefix returns the first n digits of a code, or "" when the code is
// shorter than n. Prefix depths follow the UNSPSC hierarchy: 2 = segment,
// 4 = family, 6 = class, 8 = commodity.
func UNSPSCPrefix(code string, n int) string {
	if n <= 0 || len(code) < n {
		return ""
	}
	return code[:n]
}

// CleanGTIN trims and uppercases a GTIN and reports whether it is usable for
// matching. Placeholder values and strings containing non-digits are treated
// as missing.
func CleanGTIN(s string) (string, bool) {
	g := strings.ToUpper(strings.TrimSpace(s))
	if _, placeholder := gtinPlaceholders[g]; placeholder {
		return "", false
	}
	for i := 0; i < len(g); i++ {
		if g[i] < '0' || g[i] > '9' {
			return "", false
		}
	}
	return g, true
}

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}
