package processor

import "testing"

func TestViewport_Intersects(t *testing.T) {
	vp := Viewport{Top: 1000, Height: 800, Margin: 500}

	tests := []struct {
		top, bottom float64
		want        bool
	}{
		{1200, 1300, true},
		{400, 499, false},
		{400, 500, true},
		{2300, 2400, true},
		{2301, 2400, false},
	}
	for _, tt := range tests {
		if got := vp.Intersects(tt.top, tt.bottom); got != tt.want {
			t.Errorf("Intersects(%v, %v) = %v, want %v", tt.top, tt.bottom, got, tt.want)
		}
	}
}

func TestFlowLayout_Blocks(t *testing.T) {
	// 100 characters wrap onto two lines.
	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	doc := mustParse(t, `<p id="one">`+long+`</p><p id="two">short <b id="bold">bold</b></p><p id="gone" hidden>hidden</p>`)
	layout := NewFlowLayout(doc.Root())

	top, bottom, ok := layout.Box(find(t, doc, "#one"))
	if !ok || top != 0 || bottom != 48 {
		t.Errorf("#one box = [%v, %v] %v, want [0, 48]", top, bottom, ok)
	}

	top, bottom, ok = layout.Box(find(t, doc, "#two"))
	if !ok || top != 64 || bottom != 88 {
		t.Errorf("#two box = [%v, %v] %v, want [64, 88]", top, bottom, ok)
	}

	if top, _, ok := layout.Box(find(t, doc, "#bold")); !ok || top != 64 {
		t.Errorf("inline box should start on its line, got %v %v", top, ok)
	}

	if _, _, ok := layout.Box(find(t, doc, "#gone")); ok {
		t.Error("hidden element should not be placed")
	}
}

func TestInViewport_UnplacedElement(t *testing.T) {
	doc := mustParse(t, `<p id="p">text</p>`)
	layout := &FlowLayout{LineHeight: 24, CharsPerLine: 80}

	if InViewport(layout, DefaultViewport(), find(t, doc, "#p")) {
		t.Error("an element the layout never saw counts as outside")
	}
}
