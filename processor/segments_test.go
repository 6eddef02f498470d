package processor

import (
	"fmt"
	"strings"
	"testing"
)

const longText = "Photosynthesis converts light energy into chemical energy in plants."

func paragraphs(n int) string {
	var b strings.Builder
	for k := 0; k < n; k++ {
		fmt.Fprintf(&b, "<p>Paragraph number %02d explains photosynthesis and chemical energy.</p>", k)
	}
	return b.String()
}

func TestFindContainers(t *testing.T) {
	doc := mustParse(t, `<div id="root">`+
		`<div><p>This paragraph has plenty of direct text.</p><p>short</p></div>`+
		`<section>Section text that is long enough<p>nested paragraph text that is long</p></section>`+
		`<ul><li>List item text long enough</li></ul>`+
		`<div class="hljs"><p>highlighted code paragraph text</p></div>`+
		`<p data-wordweave-processed="true">Already processed paragraph text</p>`+
		`<script>var ignored = "a long string inside a script";</script>`+
		`</div>`)

	containers := FindContainers(doc.Root())
	var tags []string
	for _, c := range containers {
		tags = append(tags, c.Data)
	}
	if got := strings.Join(tags, ","); got != "p,section,li" {
		t.Errorf("containers = %s, want p,section,li", got)
	}
}

func TestFindContainers_Nil(t *testing.T) {
	if got := FindContainers(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestNewSegment(t *testing.T) {
	doc := mustParse(t, `<article><p id="long">`+longText+`</p><p id="short">Too short to matter at all.</p>`+
		`<p id="code">function handler(event) { return event.target.value.trim(); }</p></article>`)

	seg, ok := NewSegment(find(t, doc, "#long"))
	if !ok {
		t.Fatal("long paragraph should form a segment")
	}
	if seg.Text != longText {
		t.Errorf("Text = %q", seg.Text)
	}
	if seg.Path != "article>p#long" {
		t.Errorf("Path = %q", seg.Path)
	}
	if len(seg.Fingerprint) != 16 {
		t.Errorf("Fingerprint = %q", seg.Fingerprint)
	}

	if _, ok := NewSegment(find(t, doc, "#short")); ok {
		t.Error("short paragraph should be rejected")
	}
	if _, ok := NewSegment(find(t, doc, "#code")); ok {
		t.Error("code-like paragraph should be rejected")
	}
}

func TestNewSegment_FingerprintIncludesPath(t *testing.T) {
	doc := mustParse(t, `<p class="a">`+longText+`</p><p class="b">`+longText+`</p>`)

	a, _ := NewSegment(find(t, doc, ".a"))
	b, _ := NewSegment(find(t, doc, ".b"))
	if a.Fingerprint == b.Fingerprint {
		t.Error("identical text at different paths should fingerprint differently")
	}

	again, _ := NewSegment(find(t, doc, ".a"))
	if again.Fingerprint != a.Fingerprint {
		t.Error("fingerprint should be stable")
	}
}

func TestFindSegments_Cap(t *testing.T) {
	doc := mustParse(t, paragraphs(25))

	if got := len(FindSegments(doc.Root(), SegmentOptions{})); got != DefaultMaxSegments {
		t.Errorf("default cap: got %d segments, want %d", got, DefaultMaxSegments)
	}
	if got := len(FindSegments(doc.Root(), SegmentOptions{MaxSegments: 5})); got != 5 {
		t.Errorf("explicit cap: got %d segments, want 5", got)
	}
}

func TestFindSegments_SkipsProcessedFingerprints(t *testing.T) {
	doc := mustParse(t, paragraphs(3))
	first := FindSegments(doc.Root(), SegmentOptions{})
	if len(first) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(first))
	}

	done := map[string]bool{first[1].Fingerprint: true}
	rest := FindSegments(doc.Root(), SegmentOptions{Processed: func(fp string) bool { return done[fp] }})
	if len(rest) != 2 || rest[0].Fingerprint != first[0].Fingerprint || rest[1].Fingerprint != first[2].Fingerprint {
		t.Errorf("processed fingerprint should be skipped, got %+v", rest)
	}
}

func TestFindSegments_Viewport(t *testing.T) {
	doc := mustParse(t, paragraphs(30))

	// Each paragraph is one 24-unit line plus a 16-unit gap.
	tests := []struct {
		vp        Viewport
		wantFirst string
		wantCount int
	}{
		{Viewport{Top: 0, Height: 100}, "Paragraph number 00", 3},
		{Viewport{Top: 400, Height: 100}, "Paragraph number 10", 3},
		{Viewport{Top: 400, Height: 100, Margin: 40}, "Paragraph number 09", 5},
	}
	for _, tt := range tests {
		vp := tt.vp
		segs := FindSegments(doc.Root(), SegmentOptions{Viewport: &vp})
		if len(segs) != tt.wantCount {
			t.Errorf("viewport %+v: got %d segments, want %d", vp, len(segs), tt.wantCount)
			continue
		}
		if !strings.HasPrefix(segs[0].Text, tt.wantFirst) {
			t.Errorf("viewport %+v: first segment %q", vp, segs[0].Text)
		}
	}
}
