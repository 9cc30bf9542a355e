package conflict

import "github.com/driftbase/syncmw/internal/changelog"

// PreferNonNullMerge merges field-by-field: the first non-null value
// wins, with local preferred when both sides have a value. Generalizes
// the teacher's "keep both" philosophy from whole files to individual
// columns.
func PreferNonNullMerge(local, remote changelog.Row) changelog.Row {
	out := make(changelog.Row, len(local)+len(remote))
	for k, v := range remote {
		out[k] = v
	}
	for k, v := range local {
		if existing, ok := out[k]; !ok || existing.IsNull() {
			out[k] = v
			continue
		}
		if !v.IsNull() {
			out[k] = v
		}
	}
	return out
}

// UnionMerge is for columns whose Value is itself a delimited set
// encoded as text (e.g. tags stored as a comma-separated string): it
// takes PreferNonNullMerge as a base, then for any column present with
// differing text on both sides, combines a deduplicated union instead
// of picking one side.
func UnionMerge(sep string) MergeStrategy {
	return func(local, remote changelog.Row) changelog.Row {
		out := PreferNonNullMerge(local, remote)
		for k, lv := range local {
			rv, ok := remote[k]
			if !ok || lv.Kind != changelog.KindText || rv.Kind != changelog.KindText {
				continue
			}
			if lv.Text == rv.Text {
				continue
			}
			out[k] = changelog.TextValue(unionStrings(lv.Text, rv.Text, sep))
		}
		return out
	}
}

func unionStrings(a, b, sep string) string {
	seen := make(map[string]bool)
	var order []string
	add := func(s string) {
		for _, part := range splitNonEmpty(s, sep) {
			if !seen[part] {
				seen[part] = true
				order = append(order, part)
			}
		}
	}
	add(a)
	add(b)

	out := ""
	for i, p := range order {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	if part := s[start:]; part != "" {
		out = append(out, part)
	}
	return out
}
