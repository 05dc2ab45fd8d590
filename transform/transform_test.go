package transform

import (
	"strings"
	"testing"
)

type mapResolver map[string]string

func (m mapResolver) ShareLink(target string) (string, bool) {
	link, ok := m[target]
	return link, ok
}

func mustParse(t *testing.T, in string) *Snapshot {
	t.Helper()
	s, err := ParseSnapshot(in)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	return s
}

func TestStripFrontmatter(t *testing.T) {
	s := mustParse(t, `<div class="frontmatter">title: x</div><p>body</p>`)
	New(Config{RemoveFrontmatter: true}).Apply(s, nil, nil)

	out := s.ContentHTML()
	if strings.Contains(out, "frontmatter") {
		t.Fatalf("frontmatter survived: %q", out)
	}
	if !strings.Contains(out, "<p>body</p>") {
		t.Fatalf("body lost: %q", out)
	}
}

func TestFrontmatterKeptWithoutFlag(t *testing.T) {
	s := mustParse(t, `<div class="frontmatter">title: x</div>`)
	New(Config{}).Apply(s, nil, nil)
	if !strings.Contains(s.ContentHTML(), "frontmatter") {
		t.Fatal("frontmatter removed although not requested")
	}
}

func TestCalloutIcon_TypeSpecificOverridesGeneric(t *testing.T) {
	rules := ParseRuleSet(`
		.callout { --callout-icon: lucide-pencil; }
		.callout[data-callout="warning"] { --callout-icon: lucide-alert-triangle; }
	`)

	s := mustParse(t, `<div class="callout" data-callout="warning">
		<div class="callout-title"><div class="callout-icon"><svg></svg></div>Watch out</div>
	</div>`)
	New(Config{}).Apply(s, rules, nil)

	out := s.ContentHTML()
	if !strings.Contains(out, `data-icon="alert-triangle"`) {
		t.Fatalf("expected vendor-stripped type icon, got %q", out)
	}
	if strings.Contains(out, "<svg>") {
		t.Fatalf("old icon markup survived: %q", out)
	}
}

func TestCalloutIcon_GenericFallback(t *testing.T) {
	rules := ParseRuleSet(`.callout { --callout-icon: lucide-pencil; }`)
	s := mustParse(t, `<div class="callout" data-callout="note"><div class="callout-title">Note</div></div>`)
	New(Config{}).Apply(s, rules, nil)

	if !strings.Contains(s.ContentHTML(), `data-icon="pencil"`) {
		t.Fatalf("expected generic fallback icon, got %q", s.ContentHTML())
	}
}

func TestCalloutIcon_NoRuleLeavesCalloutAlone(t *testing.T) {
	rules := ParseRuleSet(`body { color: red; }`)
	in := `<div class="callout" data-callout="note"><div class="callout-icon">keep</div></div>`
	s := mustParse(t, in)
	New(Config{}).Apply(s, rules, nil)

	if !strings.Contains(s.ContentHTML(), ">keep<") {
		t.Fatalf("fallback icon markup should stay without a rule: %q", s.ContentHTML())
	}
}

func TestInternalLink_RewrittenToShareLink(t *testing.T) {
	s := mustParse(t, `<p><a class="internal-link" href="Other Note">other</a></p>`)
	resolver := mapResolver{"Other Note": "https://share.example.com/abc.html#key"}
	New(Config{}).Apply(s, nil, resolver)

	out := s.ContentHTML()
	if !strings.Contains(out, `href="https://share.example.com/abc.html#key"`) {
		t.Fatalf("expected rewritten href, got %q", out)
	}
}

func TestInternalLink_UnpublishedDemotedToText(t *testing.T) {
	s := mustParse(t, `<p>see <a class="internal-link" href="Secret Note">the secret</a> here</p>`)
	New(Config{}).Apply(s, nil, mapResolver{})

	out := s.ContentHTML()
	if strings.Contains(out, "<a") {
		t.Fatalf("dead internal link survived: %q", out)
	}
	if !strings.Contains(out, "the secret") {
		t.Fatalf("rendered inner content lost: %q", out)
	}
}

func TestAnchorLink_ScrollActionAndHrefRemoved(t *testing.T) {
	s := mustParse(t, `<h2 data-heading="Usage">Usage</h2><p><a class="internal-link" href="#Usage">jump</a></p>`)
	New(Config{}).Apply(s, nil, nil)

	out := s.ContentHTML()
	if strings.Contains(out, `href=`) {
		t.Fatalf("anchor href must be removed: %q", out)
	}
	if !strings.Contains(out, "scrollIntoView") {
		t.Fatalf("expected scroll action, got %q", out)
	}
}

func TestAnchorLink_NoHeadingMatchIsInert(t *testing.T) {
	s := mustParse(t, `<p><a class="internal-link" href="#Nowhere">jump</a></p>`)
	New(Config{}).Apply(s, nil, nil)

	out := s.ContentHTML()
	if strings.Contains(out, "href=") || strings.Contains(out, "onclick") {
		t.Fatalf("expected inert link, got %q", out)
	}
	if !strings.Contains(out, ">jump</a>") {
		t.Fatalf("link text lost: %q", out)
	}
}

func TestExternalLink_TargetStripped(t *testing.T) {
	s := mustParse(t, `<p><a href="https://example.com" target="_blank" rel="noopener">ext</a></p>`)
	New(Config{}).Apply(s, nil, nil)

	out := s.ContentHTML()
	if strings.Contains(out, "target=") {
		t.Fatalf("target attribute survived: %q", out)
	}
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Fatalf("external href must stay: %q", out)
	}
}

func TestMedia_FoundAndRewritable(t *testing.T) {
	s := mustParse(t, `<img src="pic.png"><video src="clip.mp4"></video><img src="https://cdn/x.png">`)
	refs := s.Media()
	if len(refs) != 3 {
		t.Fatalf("media refs: got %d, want 3", len(refs))
	}
	refs[0].SetURL("https://cdn.example.com/pic.png")
	if !strings.Contains(s.ContentHTML(), `src="https://cdn.example.com/pic.png"`) {
		t.Fatalf("SetURL did not rewrite: %q", s.ContentHTML())
	}
}

func TestParagraphText(t *testing.T) {
	s := mustParse(t, `<h1>Title</h1><p>first part.</p><p>second part.</p>`)
	got := s.ParagraphText()
	if got != "first part. second part." {
		t.Fatalf("got %q", got)
	}
}

func TestParseRuleSet_MediaQueryFlattened(t *testing.T) {
	rs := ParseRuleSet(`@media (max-width: 600px) { .a { color: red; } .b { color: blue; } } .c { color: green; }`)
	if len(rs.Rules) != 3 {
		t.Fatalf("rules: got %d, want 3 (%+v)", len(rs.Rules), rs.Rules)
	}
	if rs.Rules[0].Selector != ".a" || rs.Rules[2].Selector != ".c" {
		t.Fatalf("unexpected order: %+v", rs.Rules)
	}
}

func TestCustomProp(t *testing.T) {
	r := Rule{Text: `--callout-icon-color: red; --callout-icon: 'lucide-zap'; color: blue`}
	if got := r.CustomProp("--callout-icon"); got != "lucide-zap" {
		t.Fatalf("got %q", got)
	}
	if got := (Rule{Text: "color: blue"}).CustomProp("--callout-icon"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestNormalizeTheme(t *testing.T) {
	styles := []ElementStyle{
		{Element: "body", Classes: []string{"theme-dark", "mod-windows"}},
		{Element: "div", Classes: []string{"workspace"}},
	}
	NormalizeTheme(styles, "light")
	if styles[0].Classes[0] != "theme-light" {
		t.Fatalf("got %v", styles[0].Classes)
	}
	if len(styles[1].Classes) != 1 {
		t.Fatalf("untouched element changed: %v", styles[1].Classes)
	}
}

func TestSanitize_StripsScripts(t *testing.T) {
	in := `<p class="x" style="color:red">ok</p><script>alert(1)</script><img src="a.png" onerror="x()">`
	out := Sanitize(in)
	if strings.Contains(out, "script") || strings.Contains(out, "onerror") {
		t.Fatalf("unsafe markup survived: %q", out)
	}
	if !strings.Contains(out, `class="x"`) || !strings.Contains(out, "a.png") {
		t.Fatalf("safe markup lost: %q", out)
	}
}
