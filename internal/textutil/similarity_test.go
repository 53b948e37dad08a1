package textutil

import "testing"

func TestRatio(t *testing.T) {
	if got := Ratio("caymus", "caymus"); got != 1 {
		t.Errorf("identical Ratio = %v, want 1", got)
	}
	if got := Ratio("", ""); got != 1 {
		t.Errorf("empty Ratio = %v, want 1", got)
	}
	if got := Ratio("abc", "xyz"); got != 0 {
		t.Errorf("disjoint Ratio = %v, want 0", got)
	}
	got := Ratio("caymus", "caymos")
	if got <= 0.7 || got >= 1 {
		t.Errorf("near-miss Ratio = %v, want in (0.7, 1)", got)
	}
}

func TestPartialRatio(t *testing.T) {
	if got := PartialRatio("caymus", "caymus cabernet sauvignon"); got != 1 {
		t.Errorf("substring PartialRatio = %v, want 1", got)
	}
	if got := PartialRatio("", "caymus"); got != 0 {
		t.Errorf("empty PartialRatio = %v, want 0", got)
	}
	full := Ratio("caymos", "caymus cabernet sauvignon")
	partial := PartialRatio("caymos", "caymus cabernet sauvignon")
	if partial <= full {
		t.Errorf("PartialRatio %v should exceed full Ratio %v for embedded fragment", partial, full)
	}
}

func TestTokenSortRatio(t *testing.T) {
	if got := TokenSortRatio("cabernet caymus", "caymus cabernet"); got != 1 {
		t.Errorf("reordered TokenSortRatio = %v, want 1", got)
	}
}

func TestMetaphoneCollapsesMisspellings(t *testing.T) {
	pairs := [][2]string{
		{"sauvignon", "sauvignun"},
		{"chardonnay", "shardonay"},
		{"philip", "filip"},
	}
	for _, pair := range pairs {
		a, b := Metaphone(pair[0]), Metaphone(pair[1])
		if a == "" || a != b {
			t.Errorf("Metaphone(%q)=%q, Metaphone(%q)=%q, want equal non-empty", pair[0], a, pair[1], b)
		}
	}
}

func TestMetaphoneKey(t *testing.T) {
	if got := MetaphoneKey("caymus cabernet"); got == "" {
		t.Fatal("MetaphoneKey returned empty for non-empty phrase")
	}
	if MetaphoneKey("caymus cabernet") != MetaphoneKey("caymus  cabernet") {
		t.Error("MetaphoneKey sensitive to whitespace")
	}
}
