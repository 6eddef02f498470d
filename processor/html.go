package processor

import (
	"fmt"
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
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
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func hasClass(n *html.Node, class string) bool {
	v, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// HasMarker reports whether the element carries the attribute.
func HasMarker(n *html.Node, attr string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := getAttr(n, attr)
	return ok
}

// SetMarker sets a region marker on the element.
func SetMarker(n *html.Node, attr string) {
	if n != nil && n.Type == html.ElementNode {
		setAttr(n, attr, "true")
	}
}

// ClearMarker removes a region marker from the element.
func ClearMarker(n *html.Node, attr string) {
	if n != nil && n.Type == html.ElementNode {
		removeAttr(n, attr)
	}
}

// IsSubstitution reports whether n is a substitution node.
func IsSubstitution(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && hasClass(n, wordweave.ClassTranslated)
}

// skipElement applies the exclusion rules shared by scanning and
// replacement. The processed marker only excludes an element when
// withProcessed is set: a region stays open to its own deferred results.
func skipElement(n *html.Node, withProcessed bool) bool {
	if wordweave.IgnoredTags[n.Data] {
		return true
	}
	for _, c := range wordweave.SkipClasses {
		if hasClass(n, c) {
			return true
		}
	}
	if isHidden(n) || isEditable(n) {
		return true
	}
	return withProcessed && HasMarker(n, wordweave.AttrProcessed)
}

func isHidden(n *html.Node) bool {
	if _, ok := getAttr(n, "hidden"); ok {
		return true
	}
	if v, ok := getAttr(n, "aria-hidden"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return true
	}
	style, ok := getAttr(n, "style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func isEditable(n *html.Node) bool {
	v, ok := getAttr(n, "contenteditable")
	return ok && !strings.EqualFold(strings.TrimSpace(v), "false")
}

// Skipped reports whether n or any of its ancestors is excluded from
// scanning.
func Skipped(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && skipElement(p, true) {
			return true
		}
	}
	return false
}

// ExtractText returns the visible text under n: text nodes outside
// excluded subtrees, code-like pieces dropped, joined with a space and
// whitespace collapsed.
func ExtractText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.ElementNode:
			if c != n && skipElement(c, false) {
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(c.Data); t != "" && !wordweave.IsCodeText(t) {
				parts = append(parts, c.Data)
			}
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// directText reports whether n owns a text child longer than minLen characters.
func directText(n *html.Node, minLen int) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && wordweave.TextLength(c.Data) > minLen {
			return true
		}
	}
	return false
}

// ElementPath returns the structural path of n below <body>: tag names with
// "#id" when present and "[k]" for the k-th same-tag sibling (k > 1), e.g.
// "div#main>p[2]".
func ElementPath(n *html.Node) string {
	var parts []string
	for c := n; c != nil && c.Type == html.ElementNode && c.Data != "body" && c.Data != "html"; c = c.Parent {
		sel := c.Data
		if id, ok := getAttr(c, "id"); ok && id != "" {
			sel += "#" + id
		}
		if k := siblingIndex(c); k > 1 {
			sel += fmt.Sprintf("[%d]", k)
		}
		parts = append(parts, sel)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ">")
}

func siblingIndex(n *html.Node) int {
	k := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			k++
		}
	}
	return k
}

// IsAttached reports whether n still hangs off a document node.
func IsAttached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// contains reports whether root is n or one of its ancestors.
func contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
