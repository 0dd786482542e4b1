package normalize

import (
	"regexp"
	"slices"
	"strings"
)

// DefaultMaxVariants bounds the variant set generated for one part number.
const DefaultMaxVariants = 24

// Structural patterns over normalized part numbers. A leading run of two to
// six letters is treated as a detachable series or manufacturer prefix when
// a space or a digit follows it.
//
//nolint:gochecknoglobals // Compiled once
var (
	prefixSpaced = regexp.MustCompile(`^([A-Z]{2,6}) (.+)$`)
	prefixGlued  = regexp.MustCompile(`^([A-Z]{2,6})([0-9].+)$`)

	// Trailing unit, packaging, revision, and condition markers, stripped
	// iteratively from the end. The core left behind must stay substantial.
	suffixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.*?)\s*(EA|EACH|PCS|PIECES?|PK|PACK|UNIT|UNITS?|CT|COUNT|QTY|QUANTITY)$`),
		regexp.MustCompile(`^(.*?)\s*(BULK|RETAIL|CONSUMER|COMMERCIAL|STD|STANDARD)$`),
		regexp.MustCompile(`^(.*?)\s*(REV[0-9]{1,3}|VERSION[0-9]{1,3}|V[0-9]{1,3}|R[0-9]{1,3})$`),
		regexp.MustCompile(`^(.*?)\s*(NEW|OLD|ORIGINAL|REPLACEMENT|REFURB)$`),
	}

	// Fallback strip patterns for part numbers the structural split leaves
	// alone. Unit words require a leading space here, so short cores like
	// "AB EA" still shed their marker.
	fallbackPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s+(EA|EACH|PCS|PIECES?|PK|PACK|UNIT|UNITS?|CT|COUNT|QTY|QUANTITY)$`),
		regexp.MustCompile(`\s+(BULK|RETAIL|CONSUMER|COMMERCIAL|STD|STANDARD)$`),
		regexp.MustCompile(`\s*(REV[0-9]{1,3}|VERSION[0-9]{1,3}|V[0-9]{1,3}|R[0-9]{1,3})$`),
		regexp.MustCompile(`\s*(NEW|OLD|ORIGINAL|REPLACEMENT|REFURB)$`),
	}
)

// Variants generates the exact-match variant set of a part number with the
// default cap. See VariantsLimit.
func Variants(pn string) []string {
	return VariantsLimit(pn, DefaultMaxVariants)
}

// VariantsLimit generates the variant set of a part number: the normalized
// original plus forms with prefixes detached or reattached, trailing markers
// stripped, and OCR confusion folds (O to 0, I and L to 1) applied. The
// normalized original is always the first element; the rest are ordered
// longest first, then lexicographically, and truncated to the limit. The
// same input always yields the same slice.
func VariantsLimit(pn string, limit int) []string {
	original := Normalize(pn)
	if original == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultMaxVariants
	}

	seeds := map[string]struct{}{original: {}}

	prefix, afterPrefix := splitPrefix(original)
	core, suffixes := splitSuffixes(afterPrefix)

	switch {
	case prefix != "" && core != "" && len(suffixes) > 0:
		seeds[core] = struct{}{}
		seeds[prefix+core] = struct{}{}
		for _, s := range suffixes {
			seeds[core+s] = struct{}{}
		}
		if len(suffixes) > 1 {
			seeds[core+strings.Join(suffixes, "")] = struct{}{}
		}
	case prefix != "" && core != "":
		seeds[core] = struct{}{}
		seeds[prefix+core] = struct{}{}
	case core != "" && len(suffixes) > 0:
		seeds[core] = struct{}{}
		for _, s := range suffixes {
			seeds[core+s] = struct{}{}
		}
		if len(suffixes) > 1 {
			seeds[core+strings.Join(suffixes, "")] = struct{}{}
		}
	case core != "":
		seeds[core] = struct{}{}
	}

	if prefix == "" && len(suffixes) == 0 {
		current := original
		for changed := true; changed; {
			changed = false
			for _, re := range fallbackPatterns {
				cleaned := re.ReplaceAllString(current, "")
				if cleaned != current && strings.TrimSpace(cleaned) != "" {
					seeds[strings.TrimSpace(cleaned)] = struct{}{}
					current = cleaned
					changed = true
					break
				}
			}
		}
	}

	out := make(map[string]struct{}, len(seeds)*3)
	for seed := range seeds {
		v := Normalize(seed)
		if v == "" {
			continue
		}
		zero := strings.ReplaceAll(v, "O", "0")
		one := strings.ReplaceAll(strings.ReplaceAll(zero, "I", "1"), "L", "1")
		out[v] = struct{}{}
		out[zero] = struct{}{}
		out[one] = struct{}{}
	}

	variants := make([]string, 0, len(out))
	for v := range out {
		if v == original || shortVariant(original, v) {
			continue
		}
		variants = append(variants, v)
	}
	slices.SortFunc(variants, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	variants = append([]string{original}, variants...)
	if len(variants) > limit {
		variants = variants[:limit]
	}
	return variants
}

// splitPrefix detaches a leading letter prefix when one is present and the
// remainder stays substantial.
func splitPrefix(pn string) (prefix, rest string) {
	for _, re := range []*regexp.Regexp{prefixSpaced, prefixGlued} {
		if m := re.FindStringSubmatch(pn); m != nil && len(m[2]) >= 2 {
			return m[1], m[2]
		}
	}
	return "", pn
}

// splitSuffix strips one trailing marker. The core must keep at least three
// characters, otherwise the marker is assumed to be part of the number.
func splitSuffix(pn string) (rest, suffix string) {
	for _, re := range suffixPatterns {
		m := re.FindStringSubmatch(pn)
		if m == nil {
			continue
		}
		if core := strings.TrimSpace(m[1]); len(core) >= 3 {
			return m[1], m[2]
		}
	}
	return pn, ""
}

// splitSuffixes strips trailing markers iteratively, returning the core and
// the markers in the order they appeared.
func splitSuffixes(pn string) (string, []string) {
	core := strings.TrimSpace(pn)
	var suffixes []string
	for {
		rest, suffix := splitSuffix(core)
		if suffix == "" {
			break
		}
		suffixes = append(suffixes, suffix)
		core = strings.TrimSpace(rest)
	}
	slices.Reverse(suffixes)
	return core, suffixes
}

// shortVariant reports whether a variant is too short relative to the
// original to identify anything. Thresholds adapt to the original's length:
// very short part numbers keep every variant, long ones shed fragments under
// 40% of their length.
func shortVariant(original, variant string) bool {
	origLen, varLen := len(original), len(variant)
	switch {
	case origLen <= 5:
		return false
	case origLen <= 8:
		return varLen <= 3
	case origLen <= 12:
		return varLen <= 4
	default:
		return varLen*5 < origLen*2
	}
}
