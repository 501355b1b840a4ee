package testing

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// HTMLAssert runs structural assertions against a parsed HTML fragment.
type HTMLAssert struct {
	t    testing.TB
	root *html.Node
	raw  string
}

// NewHTMLAssert parses fragment. Parse failures are fatal.
func NewHTMLAssert(t testing.TB, fragment string) *HTMLAssert {
	t.Helper()
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return &HTMLAssert{t: t, root: root, raw: fragment}
}

// Find returns every element with the given tag whose attributes include
// all attrs, given as alternating key and value. An empty value matches
// any value.
func (h *HTMLAssert) Find(tag string, attrs ...string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag && matchAttrs(n, attrs) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.root)
	return out
}

// HasElement asserts at least one match for Find.
func (h *HTMLAssert) HasElement(tag string, attrs ...string) *html.Node {
	h.t.Helper()
	found := h.Find(tag, attrs...)
	if len(found) == 0 {
		h.t.Errorf("no <%s %v> in:\n%s", tag, attrs, h.raw)
		return nil
	}
	return found[0]
}

// NoElement asserts there is no match for Find.
func (h *HTMLAssert) NoElement(tag string, attrs ...string) {
	h.t.Helper()
	if found := h.Find(tag, attrs...); len(found) > 0 {
		h.t.Errorf("unexpected <%s %v> (%d matches)", tag, attrs, len(found))
	}
}

// Count returns the number of matches for Find.
func (h *HTMLAssert) Count(tag string, attrs ...string) int {
	return len(h.Find(tag, attrs...))
}

// HasText asserts that the document's text content contains text.
func (h *HTMLAssert) HasText(text string) {
	h.t.Helper()
	if !strings.Contains(Text(h.root), text) {
		h.t.Errorf("text %q not found", text)
	}
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated, whitespace-collapsed text under n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func matchAttrs(n *html.Node, attrs []string) bool {
	for i := 0; i+1 < len(attrs); i += 2 {
		val, ok := Attr(n, attrs[i])
		if !ok {
			return false
		}
		if attrs[i+1] != "" && val != attrs[i+1] {
			return false
		}
	}
	return true
}
