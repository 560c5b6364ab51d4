package conflict

import (
	"fmt"

	"github.com/openmined/marksync/internal/bookmark"
)

// Resolve applies an automatic strategy to a single conflict.
// Manual resolutions go through ResolveManual; skip produces a resolution without a result.
func Resolve(c *Conflict, strategy Strategy) (Resolution, error) {
	switch strategy {
	case StrategyLocalWins:
		return Resolution{ConflictID: c.ID, Strategy: strategy, Result: c.Local.Clone()}, nil
	case StrategyRemoteWins:
		return Resolution{ConflictID: c.ID, Strategy: strategy, Result: c.Remote.Clone()}, nil
	case StrategyMerge:
		return Resolution{ConflictID: c.ID, Strategy: strategy, Result: Merge(c.Local, c.Remote)}, nil
	case StrategySkip:
		return Resolution{ConflictID: c.ID, Strategy: strategy}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
}

// ResolveManual applies a record chosen by an outside actor.
func ResolveManual(c *Conflict, result *bookmark.Record) (Resolution, error) {
	if err := bookmark.Validate(result); err != nil {
		return Resolution{}, err
	}
	if result.ID != c.ID {
		return Resolution{}, fmt.Errorf("%w: got %s, want %s", ErrIDMismatch, result.ID, c.ID)
	}
	return Resolution{ConflictID: c.ID, Strategy: StrategyManual, Result: result.Clone()}, nil
}

// ResolveAll resolves every conflict with one automatic strategy.
// The strategy is checked before any conflict is touched so the batch never fails halfway.
func ResolveAll(conflicts []*Conflict, strategy Strategy) (*BatchResult, error) {
	if !strategy.Automatic() {
		return nil, fmt.Errorf("%w: %q cannot be applied in batch", ErrInvalidStrategy, strategy)
	}

	result := &BatchResult{Resolved: make([]Resolution, 0, len(conflicts))}
	for _, c := range conflicts {
		// cannot fail: strategy is automatic
		res, _ := Resolve(c, strategy)
		result.Resolved = append(result.Resolved, res)
	}
	result.ResolvedCount = len(result.Resolved)
	return result, nil
}

// Merge builds a field level union of both sides.
// The side with the later DateModified wins each field it has a value for, local wins an exact tie.
// Only stored timestamps are compared, so merging the same pair always yields the same record.
func Merge(local, remote *bookmark.Record) *bookmark.Record {
	winner, other := local, remote
	if remote.DateModified.After(local.DateModified) {
		winner, other = remote, local
	}

	merged := winner.Clone()
	merged.Title = pick(winner.Title, other.Title)
	merged.ParentID = pick(winner.ParentID, other.ParentID)
	if merged.Kind == bookmark.KindLeaf {
		merged.URL = pick(winner.URL, other.URL)
	}

	// DateModified stays the winner's, which is the later of both
	switch {
	case merged.DateAdded.IsZero():
		merged.DateAdded = other.DateAdded
	case !other.DateAdded.IsZero() && other.DateAdded.Before(merged.DateAdded):
		merged.DateAdded = other.DateAdded
	}
	return merged
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
