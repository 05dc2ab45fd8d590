package sharelink

import (
	"strings"
	"testing"
)

func TestRoundTrip_Encrypted(t *testing.T) {
	link := Produce("https://share.example.com/v1", "abc123.html", "deadbeef")
	rec, err := Parse(link)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Filename != "abc123.html" {
		t.Fatalf("filename: got %q", rec.Filename)
	}
	if rec.Key != "deadbeef" {
		t.Fatalf("key: got %q", rec.Key)
	}
}

func TestRoundTrip_Plain(t *testing.T) {
	link := Produce("https://share.example.com", "abc123.html", "")
	if strings.Contains(link, "#") {
		t.Fatalf("plain link must not carry a fragment: %q", link)
	}
	rec, err := Parse(link)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Filename != "abc123.html" || rec.Key != "" {
		t.Fatalf("got %+v", rec)
	}
}

func TestProduce_TrimsTrailingSlash(t *testing.T) {
	link := Produce("https://share.example.com/", "f.html", "")
	if link != "https://share.example.com/f.html" {
		t.Fatalf("got %q", link)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, bad := range []string{"", "not a url", "relative/path.html", "https://host/"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q): expected error", bad)
		}
	}
}

func TestResolve_Continuity(t *testing.T) {
	link := Produce("https://share.example.com", "stable.html", "cafe01")
	f, k := Resolve(link)
	if f != "stable.html" || k != "cafe01" {
		t.Fatalf("got (%q, %q)", f, k)
	}
}

func TestResolve_FreshWhenMissingOrBroken(t *testing.T) {
	for _, in := range []string{"", "::::", "no-scheme"} {
		f, k := Resolve(in)
		if f != "" || k != "" {
			t.Fatalf("Resolve(%q): expected empty pair, got (%q, %q)", in, f, k)
		}
	}
}

func TestNewFilename_URLSafe(t *testing.T) {
	a := NewFilename()
	b := NewFilename()
	if a == b {
		t.Fatal("filenames must be unique")
	}
	if !strings.HasSuffix(a, ".html") || strings.Contains(a, "-") || strings.Contains(a, "/") {
		t.Fatalf("unexpected filename %q", a)
	}
}
