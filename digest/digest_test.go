package digest

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("body{background:url(foo.svg)}"))
	b := Sum([]byte("body{background:url(foo.svg)}"))
	if a != b {
		t.Fatalf("Sum not deterministic: %q vs %q", a, b)
	}
}

func TestSum_HexLength(t *testing.T) {
	d := Sum([]byte("x"))
	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(d))
	}
	for _, c := range d {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("unexpected character %q in digest %q", c, d)
		}
	}
}

func TestSumString_MatchesSum(t *testing.T) {
	if SumString("hello") != Sum([]byte("hello")) {
		t.Fatal("SumString and Sum disagree for identical payloads")
	}
}

func TestSum_DistinctInputs(t *testing.T) {
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Fatal("distinct payloads produced identical digests")
	}
}
