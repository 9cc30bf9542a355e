package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/driftbase/syncmw/internal/changelog"
)

// RewritePositional rewrites a query using $1, $2, ... positional
// markers into the driver's "?" placeholders, returning the arguments
// in call order. This lets callers write portable SQL ($N is the
// convention used across the gateway's Go call sites) while the actual
// execution still goes through database/sql's own parameter binding —
// RewritePositional only changes placeholder syntax, it never inlines
// values into the query text.
func RewritePositional(query string, args ...any) (string, []any, error) {
	var b strings.Builder
	ordered := make([]any, 0, len(args))

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' || i+1 >= len(query) || query[i+1] < '0' || query[i+1] > '9' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(query[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			return "", nil, fmt.Errorf("store: parameter $%s out of range (have %d args)", query[i+1:j], len(args))
		}
		b.WriteByte('?')
		ordered = append(ordered, args[n-1])
		i = j - 1
	}

	return b.String(), ordered, nil
}

// PreviewLiteral renders a value as a SQL literal for dry-run/logging
// display only, following simple escaping rules: strings are
// single-quoted with embedded quotes doubled, bytes render as a
// "\xHH..." hex literal, instants as quoted ISO-8601, booleans as
// bare true/false, null as the bare NULL keyword. This is never used
// to build a query that is actually executed.
func PreviewLiteral(v changelog.Value) string {
	switch v.Kind {
	case changelog.KindNull:
		return "NULL"
	case changelog.KindText:
		return "'" + strings.ReplaceAll(v.Text, "'", "''") + "'"
	case changelog.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case changelog.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case changelog.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "'" + v.String() + "'"
	}
}
