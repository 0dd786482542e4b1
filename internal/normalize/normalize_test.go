package normalize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Separators removed without introducing boundaries
		{"AGM14NV-412341 4111 ea", "AGM14NV412341 4111 EA"},
		{"pn_100/200.a", "PN100200A"},
		{"14NV4123414111", "14NV4123414111"},
		// Whitespace collapsed
		{"  AB   12  ", "AB 12"},
		{"a\tb", "A B"},
		// Case folded
		{"abc-123", "ABC123"},
		// Edge cases
		{"", ""},
		{"   ", ""},
		{"---", ""},
		{"#(!)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"AGM14NV-412341 4111 ea", "widget 100 pk", "  x/y-z  "}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestManufacturer(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Corporate suffixes stripped
		{"3M Company", "3M"},
		{"Acme Corp.", "ACME"},
		{"Acme Corporation", "ACME"},
		{"Siemens AG", "SIEMENS"},
		{"Bosch GmbH", "BOSCH"},
		// Iterative stripping removes stacked suffixes
		{"Acme Technologies Inc", "ACME"},
		{"Initech Industries International LLC", "INITECH"},
		// Ampersand expansion
		{"Johnson & Johnson Inc", "JOHNSON AND JOHNSON"},
		{"Black&Decker", "BLACK AND DECKER"},
		// Diacritics folded
		{"Häfele", "HAFELE"},
		{"Société Générale", "SOCIETE GENERALE"},
		// Punctuation squashed
		{"  smith,  jones ", "SMITH JONES"},
		// Edge cases
		{"", ""},
		{"Inc", ""},
		{"eaton", "EATON"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Manufacturer(tt.input)
			if result != tt.expected {
				t.Errorf("Manufacturer(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanUNSPSC(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"43211503", "43211503", true},
		{"  43211503  ", "43211503", true},
		{"4321150", "", false},
		{"432115031", "", false},
		{"4321150a", "", false},
		{"43-21-15", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, ok := CleanUNSPSC(tt.input)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("CleanUNSPSC(%q) = (%q, %v), want (%q, %v)", tt.input, result, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestUNSPSCPrefix(t *testing.T) {
	if got := UNSPSCPrefix("43211503", 4); got != "4321" {
		t.Errorf("UNSPSCPrefix = %q, want %q", got, "4321")
	}
	if got := UNSPSCPrefix("43211503", 8); got != "43211503" {
		t.Errorf("UNSPSCPrefix = %q, want %q", got, "43211503")
	}
	if got := UNSPSCPrefix("43", 4); got != "" {
		t.Errorf("UNSPSCPrefix on short code = %q, want empty", got)
	}
	if got := UNSPSCPrefix("43211503", 0); got != "" {
		t.Errorf("UNSPSCPrefix with n=0 = %q, want empty", got)
	}
}

func TestCleanGTIN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"0012345678905", "0012345678905", true},
		{"  4006381333931  ", "4006381333931", true},
		// Placeholders
		{"", "", false},
		{"0", "", false},
		{"NaN", "", false},
		{"none", "", false},
		{"NULL", "", false},
		{"n/a", "", false},
		// Non-digits
		{"ABC123", "", false},
		{"12-34", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, ok := CleanGTIN(tt.input)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("CleanGTIN(%q) = (%q, %v), want (%q, %v)", tt.input, result, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestVariants_OriginalAlwaysFirst(t *testing.T) {
	inputs := []string{
		"AGM14NV-412341 4111 ea",
		"14NV4123414111",
		"WIDGET-100 PK",
		"BOLT-10",
		"AB 12",
		"X1REV2",
	}

	for _, in := range inputs {
		vs := Variants(in)
		if len(vs) == 0 {
			t.Fatalf("Variants(%q) is empty", in)
		}
		if vs[0] != Normalize(in) {
			t.Errorf("Variants(%q)[0] = %q, want %q", in, vs[0], Normalize(in))
		}
	}
}

func TestVariants_PrefixDetached(t *testing.T) {
	vs := Variants("AGM14NV-412341 4111 ea")

	want := []string{
		"AGM14NV412341 4111 EA", // normalized original
		"14NV412341 4111",       // core without prefix and unit marker
		"AGM14NV412341 4111",    // prefix reattached to core
		"14NV412341 4111EA",     // core with unit marker reattached
	}
	for _, w := range want {
		if !contains(vs, w) {
			t.Errorf("Variants missing %q, got %v", w, vs)
		}
	}
}

func TestVariants_TokenBoundariesSurvive(t *testing.T) {
	// A spaced part number and its fully fused counterpart must not share an
	// exact variant; they only meet through edit-distance similarity.
	spaced := Variants("AGM14NV-412341 4111 ea")
	fused := Variants("14NV4123414111")

	set := make(map[string]struct{}, len(spaced))
	for _, v := range spaced {
		set[v] = struct{}{}
	}
	for _, v := range fused {
		if _, ok := set[v]; ok {
			t.Errorf("variant %q shared between spaced and fused forms", v)
		}
	}
}

func TestVariants_OCRFolds(t *testing.T) {
	vs := Variants("BOLT-10")

	want := []string{"BOLT10", "B0LT10", "B01T10"}
	for _, w := range want {
		if !contains(vs, w) {
			t.Errorf("Variants missing %q, got %v", w, vs)
		}
	}
}

func TestVariants_SuffixStripped(t *testing.T) {
	vs := Variants("WIDGET-100 PK")

	if !contains(vs, "WIDGET100") {
		t.Errorf("Variants missing prefix+core form, got %v", vs)
	}
	if !contains(vs, "100PK") {
		t.Errorf("Variants missing core+marker form, got %v", vs)
	}
	// The bare core "100" is too short relative to the original.
	if contains(vs, "100") {
		t.Errorf("Variants kept fragment %q, got %v", "100", vs)
	}
}

func TestVariants_ShortOriginalKeepsEverything(t *testing.T) {
	vs := Variants("AB 12")

	for _, w := range []string{"AB 12", "AB12", "12"} {
		if !contains(vs, w) {
			t.Errorf("Variants missing %q, got %v", w, vs)
		}
	}
}

func TestVariants_Deterministic(t *testing.T) {
	inputs := []string{"AGM14NV-412341 4111 ea", "WIDGET-100 PK", "BOLT-10"}
	for _, in := range inputs {
		a := Variants(in)
		b := Variants(in)
		if len(a) != len(b) {
			t.Fatalf("Variants(%q) length differs between calls", in)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("Variants(%q)[%d] differs: %q vs %q", in, i, a[i], b[i])
			}
		}
	}
}

func TestVariantsLimit(t *testing.T) {
	vs := VariantsLimit("AGM14NV-412341 4111 ea", 2)
	if len(vs) != 2 {
		t.Fatalf("VariantsLimit returned %d variants, want 2", len(vs))
	}
	if vs[0] != "AGM14NV412341 4111 EA" {
		t.Errorf("VariantsLimit[0] = %q, want normalized original", vs[0])
	}
}

func TestVariants_Empty(t *testing.T) {
	if vs := Variants(""); vs != nil {
		t.Errorf("Variants(\"\") = %v, want nil", vs)
	}
	if vs := Variants("   "); vs != nil {
		t.Errorf("Variants(blank) = %v, want nil", vs)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
