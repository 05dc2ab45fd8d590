// Package transform rewrites a captured document tree into its publishable
// form: frontmatter stripped, callout icons normalized from stylesheet
// custom properties, internal links resolved against already-published
// documents or demoted to text, and external links defused.
package transform

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot is the parsed document tree for one pipeline run. It is owned
// exclusively by that run and discarded when the run completes or fails.
type Snapshot struct {
	doc *html.Node
}

// ParseSnapshot parses flattened render HTML into a Snapshot.
func ParseSnapshot(flattened string) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(flattened))
	if err != nil {
		return nil, fmt.Errorf("transform: parse snapshot: %w", err)
	}
	return &Snapshot{doc: doc}, nil
}

// ContentHTML serialises the snapshot's body content back to markup.
func (s *Snapshot) ContentHTML() string {
	body := findBody(s.doc)
	if body == nil {
		return renderNode(s.doc)
	}
	var sb strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(renderNode(c))
	}
	return sb.String()
}

// Text returns the snapshot's visible text.
func (s *Snapshot) Text() string {
	return collectText(s.doc)
}

// ParagraphText returns the concatenated text of all paragraph elements,
// space-joined, used for plain-publish description derivation.
func (s *Snapshot) ParagraphText() string {
	var parts []string
	walk(s.doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			if t := collectText(n); t != "" {
				parts = append(parts, t)
			}
			return false
		}
		return true
	})
	return strings.Join(parts, " ")
}

// HasClass reports whether any element in the snapshot carries the class.
func (s *Snapshot) HasClass(class string) bool {
	found := false
	walk(s.doc, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = true
			return false
		}
		return true
	})
	return found
}

// MediaRef is one media element referencing a (possibly vault-internal)
// resource.
type MediaRef struct {
	node *html.Node
	attr string
	// Locator is the reference as written in the document.
	Locator string
}

// SetURL rewrites the media element's reference to a resolved public URL.
func (m MediaRef) SetURL(url string) {
	setAttr(m.node, m.attr, url)
}

// Media returns every media element reference (img, video, audio, source,
// embed) in document order.
func (s *Snapshot) Media() []MediaRef {
	var refs []MediaRef
	walk(s.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Img, atom.Video, atom.Audio, atom.Source, atom.Embed:
			if src := getAttr(n, "src"); src != "" {
				refs = append(refs, MediaRef{node: n, attr: "src", Locator: src})
			}
		}
		return true
	})
	return refs
}

// --- node helpers ---

// walk visits nodes depth-first; visit returning false prunes the subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	walk(doc, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// unwrap replaces a node with its own children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// collectText extracts all visible text from a node subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return false
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		return true
	})
	return sb.String()
}
