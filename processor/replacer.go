package processor

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Replacer inserts and removes substitution nodes.
type Replacer struct {
	Style  wordweave.TranslationStyle
	logger *slog.Logger
}

// NewReplacer creates a replacer rendering substitutions in style.
func NewReplacer(style wordweave.TranslationStyle, logger *slog.Logger) *Replacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replacer{Style: style, logger: logger.With("component", "replacer")}
}

// Apply substitutes at most one occurrence of each replacement inside
// container, working from the highest position down, and returns the number
// applied. The text nodes are rescanned for every entry because each
// substitution splits one of them. An entry whose word cannot be found on a
// boundary outside existing substitutions is skipped.
//
// Apply does not look at the processed marker: applying the same entries
// again substitutes the next free occurrence. Callers keep a region from
// being resolved twice.
func (r *Replacer) Apply(container *html.Node, reps []wordweave.Replacement) int {
	if container == nil || len(reps) == 0 || !IsAttached(container) {
		return 0
	}

	sorted := make([]wordweave.Replacement, len(reps))
	copy(sorted, reps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	count := 0
	for _, rep := range sorted {
		if rep.Original == "" || rep.Translation == "" {
			continue
		}
		if r.applyOne(container, rep) {
			count++
		} else {
			r.logger.Debug("replacement skipped", "word", rep.Original)
		}
	}

	if count > 0 {
		setAttr(container, wordweave.AttrProcessed, "true")
	}
	return count
}

func (r *Replacer) applyOne(container *html.Node, rep wordweave.Replacement) bool {
	for _, tn := range textNodes(container) {
		if tn.Parent == nil || !contains(container, tn) {
			continue
		}
		i := wordweave.IndexWord(tn.Data, rep.Original)
		if i < 0 {
			continue
		}
		j := i + len(rep.Original)
		if j > len(tn.Data) || !strings.EqualFold(tn.Data[i:j], rep.Original) {
			continue
		}
		if insideSubstitution(container, tn) {
			continue
		}

		parent := tn.Parent
		before, matched, after := tn.Data[:i], tn.Data[i:j], tn.Data[j:]
		if before != "" {
			parent.InsertBefore(textNode(before), tn)
		}
		parent.InsertBefore(r.substitution(rep, matched), tn)
		if after != "" {
			parent.InsertBefore(textNode(after), tn)
		}
		parent.RemoveChild(tn)
		return true
	}
	return false
}

// substitution builds the node for rep. matched is the document text being
// replaced; it is what Restore puts back.
func (r *Replacer) substitution(rep wordweave.Replacement, matched string) *html.Node {
	span := element(atom.Span, wordweave.ClassTranslated)
	setAttr(span, wordweave.AttrOriginal, matched)
	setAttr(span, wordweave.AttrTranslation, rep.Translation)
	setAttr(span, wordweave.AttrPhonetic, rep.Phonetic)
	setAttr(span, wordweave.AttrDifficulty, string(rep.Difficulty.OrDefault()))
	if rep.Provenance != "" {
		setAttr(span, wordweave.AttrSource, string(rep.Provenance))
	}
	if rep.Lang != "" {
		setAttr(span, "lang", wordweave.ToHTMLLang(rep.Lang))
	}

	word := func(text string) *html.Node {
		n := element(atom.Span, wordweave.ClassWord)
		n.AppendChild(textNode(text))
		return n
	}
	original := func(text string) *html.Node {
		n := element(atom.Span, wordweave.ClassOriginal)
		n.AppendChild(textNode(text))
		return n
	}

	switch r.Style {
	case wordweave.StyleTranslationOnly:
		span.AppendChild(word(rep.Translation))
	case wordweave.StyleOriginalTranslation:
		span.AppendChild(original(matched))
		span.AppendChild(word("(" + rep.Translation + ")"))
	default:
		span.AppendChild(word(rep.Translation))
		span.AppendChild(original("(" + matched + ")"))
	}
	return span
}

// Restore replaces a substitution node with its original text and merges
// the text with its neighbours. It reports whether n was a substitution.
func Restore(n *html.Node) bool {
	if !IsSubstitution(n) || n.Parent == nil {
		return false
	}
	orig, _ := getAttr(n, wordweave.AttrOriginal)
	parent := n.Parent
	t := textNode(orig)
	parent.InsertBefore(t, n)
	parent.RemoveChild(n)
	mergeText(t)
	return true
}

// RestoreAll reverts every substitution under root and clears the processed
// and observing markers. It returns the number of substitutions removed.
func RestoreAll(root *html.Node) int {
	if root == nil {
		return 0
	}
	sel := goquery.NewDocumentFromNode(root).Selection
	count := restoreSelection(sel.Find("." + wordweave.ClassTranslated))

	for _, attr := range []string{wordweave.AttrProcessed, wordweave.AttrObserving} {
		sel.Find("[" + attr + "]").RemoveAttr(attr)
		if root.Type == html.ElementNode {
			removeAttr(root, attr)
		}
	}
	return count
}

// RestoreWord reverts the substitutions of one word under root, compared
// case-insensitively. Region markers are left alone.
func RestoreWord(root *html.Node, word string) int {
	if root == nil || word == "" {
		return 0
	}
	sel := goquery.NewDocumentFromNode(root).Selection.Find("." + wordweave.ClassTranslated)
	return restoreSelection(sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr(wordweave.AttrOriginal, ""), word)
	}))
}

func restoreSelection(sel *goquery.Selection) int {
	count := 0
	for _, n := range sel.Nodes {
		if Restore(n) {
			count++
		}
	}
	return count
}

// Substitutions returns the substitutions under root in document order.
// Position is the index of the substitution, not a text offset.
func Substitutions(root *html.Node) []wordweave.Replacement {
	if root == nil {
		return nil
	}
	var out []wordweave.Replacement
	goquery.NewDocumentFromNode(root).Find("." + wordweave.ClassTranslated).Each(func(i int, s *goquery.Selection) {
		out = append(out, wordweave.Replacement{
			Original:    s.AttrOr(wordweave.AttrOriginal, ""),
			Translation: s.AttrOr(wordweave.AttrTranslation, ""),
			Phonetic:    s.AttrOr(wordweave.AttrPhonetic, ""),
			Difficulty:  wordweave.Difficulty(s.AttrOr(wordweave.AttrDifficulty, "")),
			Position:    i,
			Lang:        s.AttrOr("lang", ""),
			Provenance:  wordweave.Provenance(s.AttrOr(wordweave.AttrSource, "")),
		})
	})
	return out
}

// AppliedOriginals returns the lowercased original words substituted under
// root.
func AppliedOriginals(root *html.Node) map[string]bool {
	applied := make(map[string]bool)
	for _, r := range Substitutions(root) {
		if r.Original != "" {
			applied[strings.ToLower(r.Original)] = true
		}
	}
	return applied
}

// textNodes returns the non-blank text nodes under root that a replacement
// may split, in document order. Substitutions and excluded subtrees are
// pruned.
func textNodes(root *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.TrimSpace(c.Data) != "" {
					nodes = append(nodes, c)
				}
			case html.ElementNode:
				if !skipElement(c, false) {
					walk(c)
				}
			}
		}
	}
	walk(root)
	return nodes
}

func insideSubstitution(root, n *html.Node) bool {
	for p := n.Parent; p != nil && p != root; p = p.Parent {
		if IsSubstitution(p) {
			return true
		}
	}
	return IsSubstitution(root)
}

func mergeText(t *html.Node) {
	parent := t.Parent
	if prev := t.PrevSibling; prev != nil && prev.Type == html.TextNode {
		prev.Data += t.Data
		parent.RemoveChild(t)
		t = prev
	}
	if next := t.NextSibling; next != nil && next.Type == html.TextNode {
		t.Data += next.Data
		parent.RemoveChild(next)
	}
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

func element(a atom.Atom, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}
