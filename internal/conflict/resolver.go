package conflict

import (
	"errors"

	"github.com/driftbase/syncmw/internal/changelog"
)

// Policy selects how a Conflict is resolved.
type Policy string

const (
	PolicyLocalWins  Policy = "local_wins"
	PolicyRemoteWins Policy = "remote_wins"
	PolicyLatestWins Policy = "latest_wins"
	PolicyMerge      Policy = "merge"
	PolicyManual     Policy = "manual"
)

// ErrRequiresManual is returned by Resolve when policy is
// PolicyManual: the caller must surface the conflict to an operator
// rather than apply a value.
var ErrRequiresManual = errors.New("conflict: resolution requires manual intervention")

// MergeStrategy combines two divergent rows into one.
type MergeStrategy func(local, remote changelog.Row) changelog.Row

// Resolver is the Conflict Resolver contract (C6).
type Resolver struct {
	merge MergeStrategy
}

// NewResolver builds a Resolver. merge is used only when policy is
// PolicyMerge; pass nil to use PreferNonNullMerge.
func NewResolver(merge MergeStrategy) *Resolver {
	if merge == nil {
		merge = PreferNonNullMerge
	}
	return &Resolver{merge: merge}
}

// Resolve applies policy to a single Conflict.
func (r *Resolver) Resolve(c Conflict, policy Policy) (changelog.Row, error) {
	switch policy {
	case PolicyLocalWins:
		return c.Local, nil
	case PolicyRemoteWins:
		return c.Remote, nil
	case PolicyLatestWins:
		// Ties favor remote - preserves the authority of the system
		// of record when producer clocks agree exactly.
		if c.LocalTS > c.RemoteTS {
			return c.Local, nil
		}
		return c.Remote, nil
	case PolicyMerge:
		return r.merge(c.Local, c.Remote), nil
	case PolicyManual:
		return nil, ErrRequiresManual
	default:
		return nil, errors.New("conflict: unknown resolution policy " + string(policy))
	}
}

// ResolveAll resolves every conflict in order, stopping at the first
// error (matching the teacher's fail-fast batch-write semantics: a
// partially resolved batch is not committed).
func (r *Resolver) ResolveAll(conflicts []Conflict, policy Policy) ([]changelog.Row, error) {
	out := make([]changelog.Row, 0, len(conflicts))
	for _, c := range conflicts {
		row, err := r.Resolve(c, policy)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
