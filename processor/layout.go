package processor

import (
	"math"

	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
)

// DefaultMargin extends the viewport on both sides so regions just out of
// view are prepared ahead of scrolling.
const DefaultMargin = 500

// Viewport is the visible vertical window of a page, in layout units.
type Viewport struct {
	Top    float64
	Height float64
	Margin float64
}

// DefaultViewport is a first screen of a typical desktop window.
func DefaultViewport() Viewport {
	return Viewport{Top: 0, Height: 900, Margin: DefaultMargin}
}

// Intersects reports whether a box spanning [top, bottom] overlaps the
// viewport widened by its margin.
func (v Viewport) Intersects(top, bottom float64) bool {
	return bottom >= v.Top-v.Margin && top <= v.Top+v.Height+v.Margin
}

// Layout reports element boxes. ok is false for elements it cannot place.
type Layout interface {
	Box(n *html.Node) (top, bottom float64, ok bool)
}

// FlowLayout estimates element boxes by flowing text through fixed-width
// lines. Block elements start a new line; inline elements run on.
// It is a snapshot: rebuild it after the document changes shape.
type FlowLayout struct {
	LineHeight   float64
	CharsPerLine int
	BlockGap     float64

	boxes map[*html.Node][2]float64
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "dfn": true, "em": true, "i": true,
	"kbd": true, "label": true, "mark": true, "q": true, "s": true,
	"samp": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true,
}

// NewFlowLayout lays out the tree under root with 24-unit lines of 80
// characters and a 16-unit gap after each block.
func NewFlowLayout(root *html.Node) *FlowLayout {
	l := &FlowLayout{LineHeight: 24, CharsPerLine: 80, BlockGap: 16}
	l.Rebuild(root)
	return l
}

// Rebuild recomputes every box under root.
func (l *FlowLayout) Rebuild(root *html.Node) {
	l.boxes = make(map[*html.Node][2]float64)
	var y float64
	pending := 0

	flush := func() {
		if pending > 0 {
			lines := math.Ceil(float64(pending) / float64(l.CharsPerLine))
			y += lines * l.LineHeight
			pending = 0
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			pending += wordweave.TextLength(n.Data)
			return
		case html.ElementNode:
			if skipElement(n, false) && !IsSubstitution(n) {
				return
			}
			if inlineTags[n.Data] {
				top := y
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				l.boxes[n] = [2]float64{top, y + l.LineHeight}
				return
			}
			flush()
			top := y
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			flush()
			l.boxes[n] = [2]float64{top, y}
			y += l.BlockGap
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
}

// Box returns the estimated vertical extent of n.
func (l *FlowLayout) Box(n *html.Node) (top, bottom float64, ok bool) {
	b, ok := l.boxes[n]
	return b[0], b[1], ok
}

var _ Layout = (*FlowLayout)(nil)
