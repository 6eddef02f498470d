package wordweave

import (
	"testing"
)

func TestDiffSegments_NoChanges(t *testing.T) {
	segs := []Segment{
		{Fingerprint: "fp1", Path: "p[1]", Text: "Plants convert light"},
		{Fingerprint: "fp2", Path: "p[2]", Text: "Roots absorb water"},
	}

	diff := DiffSegments(segs, segs)

	if diff.HasChanges() {
		t.Error("Expected no changes for identical scans")
	}

	if len(diff.Unchanged) != 2 {
		t.Errorf("Expected 2 unchanged, got %d", len(diff.Unchanged))
	}
}

func TestDiffSegments_AllNew(t *testing.T) {
	newSegs := []Segment{
		{Fingerprint: "fp1", Path: "p[1]"},
		{Fingerprint: "fp2", Path: "p[2]"},
	}

	diff := DiffSegments(nil, newSegs)

	if len(diff.Added) != 2 {
		t.Errorf("Expected 2 added, got %d", len(diff.Added))
	}

	if len(diff.Removed) != 0 {
		t.Errorf("Expected 0 removed, got %d", len(diff.Removed))
	}
}

func TestDiffSegments_Mixed(t *testing.T) {
	oldSegs := []Segment{
		{Fingerprint: "fp1", Path: "p[1]"},
		{Fingerprint: "fp2", Path: "p[2]"},
		{Fingerprint: "fp3", Path: "p[3]"},
	}
	newSegs := []Segment{
		{Fingerprint: "fp1", Path: "p[1]"},
		{Fingerprint: "fp2", Path: "p[2]"},
		{Fingerprint: "fp4", Path: "div>p[1]"},
	}

	diff := DiffSegments(oldSegs, newSegs)

	if len(diff.Unchanged) != 2 {
		t.Errorf("Expected 2 unchanged, got %d", len(diff.Unchanged))
	}
	if len(diff.Added) != 1 || diff.Added[0].Fingerprint != "fp4" {
		t.Errorf("Expected fp4 added, got %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Fingerprint != "fp3" {
		t.Errorf("Expected fp3 removed, got %+v", diff.Removed)
	}
}

func TestDiffSegmentsWithContext_DetectsModified(t *testing.T) {
	oldSegs := []Segment{
		{Fingerprint: "fp1", Path: "article>p[1]", Text: "Old paragraph text"},
		{Fingerprint: "fp2", Path: "article>p[2]", Text: "Gone paragraph"},
	}
	newSegs := []Segment{
		{Fingerprint: "fp9", Path: "article>p[1]", Text: "Edited paragraph text"},
		{Fingerprint: "fp8", Path: "aside>p[1]", Text: "Brand new paragraph"},
	}

	diff := DiffSegmentsWithContext(oldSegs, newSegs)

	if len(diff.Modified) != 1 {
		t.Fatalf("Expected 1 modified, got %d", len(diff.Modified))
	}
	if diff.Modified[0].Old.Fingerprint != "fp1" || diff.Modified[0].New.Fingerprint != "fp9" {
		t.Errorf("Unexpected pairing: %+v", diff.Modified[0])
	}
	if len(diff.Added) != 1 || diff.Added[0].Fingerprint != "fp8" {
		t.Errorf("Expected fp8 added, got %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Fingerprint != "fp2" {
		t.Errorf("Expected fp2 removed, got %+v", diff.Removed)
	}
}

func TestDiffResult_NeedsProcessing(t *testing.T) {
	diff := &DiffResult{
		Added:    []Segment{{Fingerprint: "a"}},
		Modified: []ModifiedSegment{{Old: Segment{Fingerprint: "o"}, New: Segment{Fingerprint: "n"}}},
		Removed:  []Segment{{Fingerprint: "r"}},
	}

	needs := diff.NeedsProcessing()
	if len(needs) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(needs))
	}
	if needs[0].Fingerprint != "a" || needs[1].Fingerprint != "n" {
		t.Errorf("Unexpected segments: %+v", needs)
	}
}

func TestDiffResult_Stats(t *testing.T) {
	diff := &DiffResult{
		Added:     []Segment{{}, {}},
		Removed:   []Segment{{}},
		Unchanged: []Segment{{}, {}, {}},
	}

	stats := diff.Stats()
	if stats.Added != 2 || stats.Removed != 1 || stats.Unchanged != 3 || stats.Modified != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
