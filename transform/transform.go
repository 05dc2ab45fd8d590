package transform

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocResolver resolves an internal link target to its stored share link.
// The second return is false when the target exists but has never been
// published (or does not exist) — such links are demoted to plain text.
type DocResolver interface {
	ShareLink(target string) (string, bool)
}

// Config controls the transformer.
type Config struct {
	// RemoveFrontmatter strips configured metadata containers.
	RemoveFrontmatter bool
	// FrontmatterClasses are the container classes treated as frontmatter.
	// Default: frontmatter, frontmatter-container, metadata-container.
	FrontmatterClasses []string
	// InternalLinkClass marks cross-document links. Default: internal-link.
	InternalLinkClass string
	// HeadingAttr carries a heading's anchor identity. Default: data-heading.
	HeadingAttr string
	// Logger for debug output.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if len(c.FrontmatterClasses) == 0 {
		c.FrontmatterClasses = []string{"frontmatter", "frontmatter-container", "metadata-container"}
	}
	if c.InternalLinkClass == "" {
		c.InternalLinkClass = "internal-link"
	}
	if c.HeadingAttr == "" {
		c.HeadingAttr = "data-heading"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Transformer applies the publish rewrites to a Snapshot. Steps run in a
// fixed order: frontmatter, callouts, internal links, external links.
type Transformer struct {
	cfg Config
}

// New creates a Transformer.
func New(cfg Config) *Transformer {
	cfg.defaults()
	return &Transformer{cfg: cfg}
}

// Apply runs every transform step on the snapshot.
func (t *Transformer) Apply(s *Snapshot, rules *StyleRuleSet, resolver DocResolver) {
	if t.cfg.RemoveFrontmatter {
		t.stripFrontmatter(s)
	}
	t.normalizeCallouts(s, rules)
	t.rewriteLinks(s, resolver)
}

func (t *Transformer) stripFrontmatter(s *Snapshot) {
	var doomed []*html.Node
	walk(s.doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			for _, class := range t.cfg.FrontmatterClasses {
				if hasClass(n, class) {
					doomed = append(doomed, n)
					return false
				}
			}
		}
		return true
	})
	for _, n := range doomed {
		detach(n)
	}
}

// normalizeCallouts resolves each callout's icon from the captured rule set
// and replaces any existing icon markup with a single normalized reference.
// Without a matching type-specific rule the generic .callout fallback holds;
// without any rule the callout keeps its fallback icon untouched.
func (t *Transformer) normalizeCallouts(s *Snapshot, rules *StyleRuleSet) {
	if rules == nil {
		return
	}
	walk(s.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		calloutType := getAttr(n, "data-callout")
		if calloutType == "" {
			return true
		}
		icon := calloutIcon(rules, calloutType)
		if icon == "" {
			return false
		}
		replaceIcon(n, icon)
		return false
	})
}

// calloutIcon searches the rule set: first the generic .callout rule as the
// fallback, then the first rule referencing this callout type. The vendor
// prefix is stripped so icon identity is stable across source themes.
func calloutIcon(rules *StyleRuleSet, calloutType string) string {
	icon := ""
	for _, r := range rules.Rules {
		if strings.Contains(r.Selector, ".callout") && !strings.Contains(r.Selector, "data-callout") {
			if v := r.CustomProp("--callout-icon"); v != "" {
				icon = v
				break
			}
		}
	}
	for _, r := range rules.Rules {
		if !selectorMatchesCallout(r.Selector, calloutType) {
			continue
		}
		if v := r.CustomProp("--callout-icon"); v != "" {
			icon = v
			break
		}
	}
	return strings.TrimPrefix(icon, "lucide-")
}

func selectorMatchesCallout(selector, calloutType string) bool {
	return strings.Contains(selector, `data-callout="`+calloutType+`"`) ||
		strings.Contains(selector, `data-callout='`+calloutType+`'`) ||
		strings.Contains(selector, `data-callout=`+calloutType+`]`)
}

// replaceIcon swaps the callout's icon markup for one normalized reference.
func replaceIcon(callout *html.Node, icon string) {
	var existing *html.Node
	walk(callout, func(n *html.Node) bool {
		if existing != nil {
			return false
		}
		if n.Type == html.ElementNode && hasClass(n, "callout-icon") {
			existing = n
			return false
		}
		return true
	})

	normalized := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "class", Val: "callout-icon"},
			{Key: "data-icon", Val: icon},
		},
	}

	if existing != nil && existing.Parent != nil {
		existing.Parent.InsertBefore(normalized, existing)
		existing.Parent.RemoveChild(existing)
		return
	}

	// No icon markup yet: prepend inside the callout title when present,
	// otherwise inside the callout itself.
	target := callout
	walk(callout, func(n *html.Node) bool {
		if n != callout && n.Type == html.ElementNode && hasClass(n, "callout-title") {
			target = n
			return false
		}
		return true
	})
	if target.FirstChild != nil {
		target.InsertBefore(normalized, target.FirstChild)
	} else {
		target.AppendChild(normalized)
	}
}

// rewriteLinks handles internal and external anchors:
//   - same-document heading anchors become client-side scroll actions with
//     the navigable href removed; no heading match leaves the link inert.
//   - cross-document links resolve to the target's share link, or demote to
//     their rendered inner content when the target was never published.
//   - external links lose their open-in-new-tab targeting.
func (t *Transformer) rewriteLinks(s *Snapshot, resolver DocResolver) {
	var internal, external []*html.Node
	walk(s.doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if hasClass(n, t.cfg.InternalLinkClass) {
				internal = append(internal, n)
			} else {
				external = append(external, n)
			}
			return false
		}
		return true
	})

	for _, a := range internal {
		href := getAttr(a, "href")
		switch {
		case strings.HasPrefix(href, "#"):
			t.rewriteAnchor(s, a, strings.TrimPrefix(href, "#"))
		default:
			target := href
			if target == "" {
				target = getAttr(a, "data-href")
			}
			link := ""
			ok := false
			if resolver != nil {
				link, ok = resolver.ShareLink(target)
			}
			if ok {
				setAttr(a, "href", link)
				removeAttr(a, "target")
			} else {
				// Never ship a dead internal link.
				t.cfg.Logger.Debug("transform: internal link demoted to text", "target", target)
				unwrap(a)
			}
		}
	}

	for _, a := range external {
		removeAttr(a, "target")
	}
}

func (t *Transformer) rewriteAnchor(s *Snapshot, a *html.Node, heading string) {
	removeAttr(a, "href")

	found := false
	walk(s.doc, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && getAttr(n, t.cfg.HeadingAttr) == heading {
			found = true
			return false
		}
		return true
	})
	if !found {
		// Inert, not broken: no href, no scroll action.
		return
	}

	setAttr(a, "onclick",
		`document.querySelector('[`+t.cfg.HeadingAttr+`="`+heading+`"]').scrollIntoView(true)`)
}
