package processor

import (
	"testing"
)

func TestWordContexts(t *testing.T) {
	doc := mustParse(t, `<div id="outer">Short intro line for context.`+
		`<p id="a">The <b id="b">ephemeral</b> glow faded.</p></div>`+
		`<p id="c">Nothing ephemeral lasts forever in the world of ideas.</p>`+
		`<p id="d">Ephemerality is a different word entirely, sadly.</p>`+
		`<pre>ephemeral code</pre>`)

	segs := WordContexts(doc.Root(), []string{"Ephemeral"})
	if len(segs) != 2 {
		t.Fatalf("expected 2 contexts, got %+v", segs)
	}

	if segs[0].Node != find(t, doc, "#b") {
		t.Error("first context should belong to the element owning the text")
	}
	if segs[0].Text != "The ephemeral glow faded." {
		t.Errorf("short element should borrow its parent's text, got %q", segs[0].Text)
	}
	if segs[0].Path != "div#outer>p#a>b#b" {
		t.Errorf("path = %q", segs[0].Path)
	}
	if segs[1].Node != find(t, doc, "#c") {
		t.Error("second context should be #c")
	}
}

func TestWordContexts_SkipsSubstitutedWords(t *testing.T) {
	doc := mustParse(t, `<p>An <span class="wordweave-translated" data-original="ephemeral">短暂的(ephemeral)</span> moment and another ephemeral one.</p>`)

	if segs := WordContexts(doc.Root(), []string{"ephemeral"}); len(segs) != 0 {
		t.Errorf("already substituted words should be skipped, got %+v", segs)
	}
}

func TestWordContexts_IncludesProcessedRegions(t *testing.T) {
	doc := mustParse(t, `<p data-wordweave-processed="true">A resilient ecosystem recovers from drought quickly.</p>`)

	if segs := WordContexts(doc.Root(), []string{"resilient"}); len(segs) != 1 {
		t.Errorf("processed regions should still be searched, got %+v", segs)
	}
}

func TestWordContexts_Dedup(t *testing.T) {
	doc := mustParse(t, `<p id="p">A resilient city and a resilient <i>people</i> endure together.</p>`)

	segs := WordContexts(doc.Root(), []string{"resilient", "endure"})
	if len(segs) != 1 {
		t.Errorf("one element should yield one context, got %d", len(segs))
	}
}
