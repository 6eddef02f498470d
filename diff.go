package wordweave

// DiffResult represents the difference between two scans of a document.
type DiffResult struct {
	// Added contains segments that are new (not in the previous scan).
	Added []Segment

	// Removed contains segments that disappeared from the document.
	Removed []Segment

	// Unchanged contains segments present in both scans.
	Unchanged []Segment

	// Modified pairs a removed and an added segment at the same structural
	// path: the container stayed, its text changed.
	Modified []ModifiedSegment
}

// ModifiedSegment represents a container whose text changed.
type ModifiedSegment struct {
	Old Segment
	New Segment
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
	Modified  int
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
	}
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// NeedsProcessing returns the segments that should be scheduled: new ones
// and the new side of modified ones.
func (d *DiffResult) NeedsProcessing() []Segment {
	result := make([]Segment, 0, len(d.Added)+len(d.Modified))
	result = append(result, d.Added...)
	for _, m := range d.Modified {
		result = append(result, m.New)
	}
	return result
}

// DiffSegments compares two scans by fingerprint. Output keeps scan order.
func DiffSegments(oldSegs, newSegs []Segment) *DiffResult {
	result := &DiffResult{}

	oldByFP := make(map[string]bool, len(oldSegs))
	newByFP := make(map[string]bool, len(newSegs))
	for _, s := range oldSegs {
		oldByFP[s.Fingerprint] = true
	}
	for _, s := range newSegs {
		newByFP[s.Fingerprint] = true
	}

	for _, s := range oldSegs {
		if newByFP[s.Fingerprint] {
			result.Unchanged = append(result.Unchanged, s)
		} else {
			result.Removed = append(result.Removed, s)
		}
	}
	for _, s := range newSegs {
		if !oldByFP[s.Fingerprint] {
			result.Added = append(result.Added, s)
		}
	}

	return result
}

// DiffSegmentsWithContext is DiffSegments that also pairs removed and added
// segments sharing a structural path into Modified.
func DiffSegmentsWithContext(oldSegs, newSegs []Segment) *DiffResult {
	result := DiffSegments(oldSegs, newSegs)
	if len(result.Added) == 0 || len(result.Removed) == 0 {
		return result
	}

	addedByPath := make(map[string]int, len(result.Added))
	for i, s := range result.Added {
		if _, dup := addedByPath[s.Path]; !dup && s.Path != "" {
			addedByPath[s.Path] = i
		}
	}

	matched := make(map[int]bool)
	var removed []Segment
	for _, old := range result.Removed {
		i, ok := addedByPath[old.Path]
		if !ok || matched[i] {
			removed = append(removed, old)
			continue
		}
		matched[i] = true
		result.Modified = append(result.Modified, ModifiedSegment{Old: old, New: result.Added[i]})
	}

	var added []Segment
	for i, s := range result.Added {
		if !matched[i] {
			added = append(added, s)
		}
	}
	result.Added = added
	result.Removed = removed

	return result
}
