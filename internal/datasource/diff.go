package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/filecanvas/pkg/model"
)

// SnapshotDiff describes how a session's nodes changed between two reads of
// the store, typically before and after another process wrote to it.
type SnapshotDiff struct {
	// Added holds IDs present only in the newer snapshot.
	Added []string
	// Removed holds IDs present only in the older snapshot.
	Removed []string
	// Moved holds IDs whose position or size changed.
	Moved []string
	// Changed holds IDs whose lock flag, file or stacking order changed.
	Changed     []string
	CountBefore int
	CountAfter  int
}

// HasChanges reports whether the snapshots differ.
func (d SnapshotDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Moved) > 0 || len(d.Changed) > 0
}

// Summary returns a one-line description such as "2 added, 1 moved".
func (d SnapshotDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d nodes)", d.CountAfter)
	}
	var parts []string
	for _, p := range []struct {
		n    int
		verb string
	}{
		{len(d.Added), "added"},
		{len(d.Removed), "removed"},
		{len(d.Moved), "moved"},
		{len(d.Changed), "changed"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.verb))
		}
	}
	return strings.Join(parts, ", ")
}

// DiffSnapshots compares two node lists by ID. UpdatedAt alone never counts
// as a change.
func DiffSnapshots(before, after []model.Node) SnapshotDiff {
	d := SnapshotDiff{CountBefore: len(before), CountAfter: len(after)}

	old := make(map[string]model.Node, len(before))
	for _, n := range before {
		old[n.ID] = n
	}
	seen := make(map[string]struct{}, len(after))
	for _, b := range after {
		seen[b.ID] = struct{}{}
		a, ok := old[b.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, b.ID)
		case a.Position != b.Position || a.Size != b.Size:
			d.Moved = append(d.Moved, b.ID)
		case a.IsLocked != b.IsLocked || a.ZIndex != b.ZIndex ||
			a.FileName != b.FileName || a.FileURL != b.FileURL || a.Checksum != b.Checksum:
			d.Changed = append(d.Changed, b.ID)
		}
	}
	for id := range old {
		if _, ok := seen[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Moved)
	sort.Strings(d.Changed)
	return d
}
