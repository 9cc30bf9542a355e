package filter

import "github.com/driftbase/syncmw/internal/changelog"

// FilterChanges returns the subset of changes whose table is accepted.
func (f *TableFilter) FilterChanges(changes []changelog.Change) []changelog.Change {
	out := make([]changelog.Change, 0, len(changes))
	for _, c := range changes {
		if f.Accept(c.Table).Included {
			out = append(out, c)
		}
	}
	return out
}
