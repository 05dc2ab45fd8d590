package transform

import "strings"

// Rule is one parsed style rule: a selector and its raw declaration text.
type Rule struct {
	Selector string
	Text     string
}

// StyleRuleSet is the ordered rule list aggregated from all active
// stylesheets at capture time, paired with the concatenated raw CSS used for
// asset scanning. Immutable once captured.
type StyleRuleSet struct {
	Rules  []Rule
	RawCSS string
}

// ParseRuleSet splits aggregated CSS into rules. At-rule groups (@media,
// @supports) are flattened: their inner rules join the list in order. This
// is a rule splitter, not a CSS parser — declaration text stays raw.
func ParseRuleSet(css string) *StyleRuleSet {
	rs := &StyleRuleSet{RawCSS: css}
	rs.Rules = splitRules(css)
	return rs
}

func splitRules(css string) []Rule {
	var rules []Rule
	i := 0
	for i < len(css) {
		open := strings.IndexByte(css[i:], '{')
		if open < 0 {
			break
		}
		selector := strings.TrimSpace(css[i : i+open])
		bodyStart := i + open + 1

		depth := 1
		j := bodyStart
		for j < len(css) && depth > 0 {
			switch css[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth > 0 {
				j++
			}
		}
		if depth != 0 {
			break // unterminated block
		}
		body := css[bodyStart:j]
		i = j + 1

		if strings.HasPrefix(selector, "@") && strings.Contains(body, "{") {
			rules = append(rules, splitRules(body)...)
			continue
		}
		rules = append(rules, Rule{Selector: selector, Text: strings.TrimSpace(body)})
	}
	return rules
}

// CustomProp extracts a CSS custom property value from a rule's declaration
// text, e.g. CustomProp("--callout-icon") on "--callout-icon: lucide-pencil;"
// returns "lucide-pencil".
func (r Rule) CustomProp(name string) string {
	text := r.Text
	for {
		idx := strings.Index(text, name)
		if idx < 0 {
			return ""
		}
		rest := text[idx+len(name):]
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, ":") {
			text = text[idx+len(name):]
			continue
		}
		val := rest[1:]
		if end := strings.IndexAny(val, ";}"); end >= 0 {
			val = val[:end]
		}
		return strings.Trim(strings.TrimSpace(val), `'"`)
	}
}

// ElementStyle is one DOM element's presentation snapshot (root, body,
// content container, layout pusher). Captured once; the only mutation is
// theme class normalization before template assembly.
type ElementStyle struct {
	Element string   `json:"element"`
	Classes []string `json:"classes"`
	Style   string   `json:"style"`
}

// NormalizeTheme rewrites theme classes in place so the published page
// carries exactly one of theme-light/theme-dark regardless of the capturing
// workspace's mode.
func NormalizeTheme(styles []ElementStyle, theme string) {
	want := "theme-" + theme
	for i := range styles {
		replaced := false
		for j, c := range styles[i].Classes {
			if c == "theme-light" || c == "theme-dark" {
				if replaced {
					styles[i].Classes = append(styles[i].Classes[:j], styles[i].Classes[j+1:]...)
					break
				}
				styles[i].Classes[j] = want
				replaced = true
			}
		}
	}
}
