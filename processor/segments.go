package processor

import (
	"github.com/ZaguanLabs/wordweave"
	"golang.org/x/net/html"
)

// DefaultMaxSegments caps the segments returned by one FindSegments call.
const DefaultMaxSegments = 20

// SegmentOptions tunes FindSegments.
type SegmentOptions struct {
	// Viewport, when set, keeps only containers intersecting it.
	Viewport *Viewport
	// Layout places containers for the viewport filter. A FlowLayout of the
	// scanned tree is used when nil.
	Layout Layout
	// MaxSegments caps the result (default 20).
	MaxSegments int
	// Processed reports fingerprints that were already handled.
	Processed func(fingerprint string) bool
}

// FindContainers returns the block elements under root that directly own a
// text child longer than 10 characters, in document order. Excluded
// subtrees are pruned and a collected container is not descended into, so
// the result never nests.
func FindContainers(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if skipElement(c, true) {
				continue
			}
			if wordweave.BlockTags[c.Data] && directText(c, wordweave.MinDirectText) {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// NewSegment extracts the segment of a container. ok is false when the
// text is too short or looks like code.
func NewSegment(n *html.Node) (wordweave.Segment, bool) {
	text := ExtractText(n)
	if wordweave.TextLength(text) < wordweave.MinSegmentLength || wordweave.IsCodeText(text) {
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

// FindSegments returns the unprocessed segments under root, in document
// order, at most opts.MaxSegments of them.
func FindSegments(root *html.Node, opts SegmentOptions) []wordweave.Segment {
	limit := opts.MaxSegments
	if limit <= 0 {
		limit = DefaultMaxSegments
	}
	layout := opts.Layout
	if opts.Viewport != nil && layout == nil {
		layout = NewFlowLayout(root)
	}

	var segments []wordweave.Segment
	for _, c := range FindContainers(root) {
		if len(segments) >= limit {
			break
		}
		if opts.Viewport != nil && !InViewport(layout, *opts.Viewport, c) {
			continue
		}
		seg, ok := NewSegment(c)
		if !ok {
			continue
		}
		if opts.Processed != nil && opts.Processed(seg.Fingerprint) {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// InViewport reports whether the layout places n inside vp. Elements the
// layout cannot place count as outside.
func InViewport(layout Layout, vp Viewport, n *html.Node) bool {
	top, bottom, ok := layout.Box(n)
	return ok && vp.Intersects(top, bottom)
}
