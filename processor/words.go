package processor

import (
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
)

// minContextText is the shortest context worth a substitution.
const minContextText = 10

// WordContexts returns one segment per element under root that owns a text
// node containing one of words on a word boundary, skipping words that are
// already substituted somewhere under root. Processed regions are included.
// The segment text is the element's text, or its parent's when the element
// holds fewer than 30 characters. Segments are unique by fingerprint.
func WordContexts(root *html.Node, words []string) []wordweave.Segment {
	if root == nil || len(words) == 0 {
		return nil
	}
	applied := AppliedOriginals(root)
	var wanted []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" && !applied[strings.ToLower(w)] {
			wanted = append(wanted, w)
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []wordweave.Segment
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				if !skipElement(c, false) {
					walk(c)
				}
			case html.TextNode:
				if n.Type != html.ElementNode || wordweave.IsCodeText(strings.TrimSpace(c.Data)) || !hasAny(c.Data, wanted) {
					continue
				}
				seg, ok := contextSegment(n)
				if ok && !seen[seg.Fingerprint] {
					seen[seg.Fingerprint] = true
					out = append(out, seg)
				}
			}
		}
	}
	walk(root)
	return out
}

func contextSegment(n *html.Node) (wordweave.Segment, bool) {
	text := ExtractText(n)
	if wordweave.TextLength(text) < wordweave.MinContextLength && n.Parent != nil && n.Parent.Type == html.ElementNode {
		text = ExtractText(n.Parent)
	}
	if wordweave.TextLength(text) < minContextText {
		return wordweave.Segment{}, false
	}
	path := ElementPath(n)
	return wordweave.Segment{
		Node:        n,
		Text:        wordweave.TruncateText(text, wordweave.MaxSegmentLength),
		Fingerprint: wordweave.Fingerprint(text, path),
		Path:        path,
	}, true
}

func hasAny(text string, words []string) bool {
	for _, w := range words {
		if wordweave.IndexWord(text, w) >= 0 {
			return true
		}
	}
	return false
}
