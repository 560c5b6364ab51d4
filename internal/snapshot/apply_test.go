package snapshot

import (
	"testing"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/conflict"
	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	current := Set{
		Local:    []*bookmark.Record{leaf("l-new", "L", "https://l", 0), leaf("both", "Local", "https://x", 5), leaf("skip", "A", "https://s", 0), leaf("rm-remote", "R", "https://r", 0)},
		Remote:   []*bookmark.Record{leaf("r-new", "R", "https://r2", 0), leaf("both", "Remote", "https://x", 1), leaf("skip", "B", "https://s", 0), leaf("rm-local", "D", "https://d", 0)},
		Baseline: []*bookmark.Record{leaf("both", "Base", "https://x", 0), leaf("skip", "Base", "https://s", 0), leaf("rm-local", "D", "https://d", 0), leaf("rm-remote", "R", "https://r", 0)},
	}
	cs := changes.Diff(current.Local, current.Remote, current.Baseline)
	assert.Len(t, cs.Removed, 2)

	local := cs.Modified[0].Local
	resolutions := []conflict.Resolution{
		{ConflictID: "both", Strategy: conflict.StrategyLocalWins, Result: local},
		{ConflictID: "skip", Strategy: conflict.StrategySkip},
	}

	next := Apply(current, cs, resolutions)

	assert.Equal(t, []string{"both", "l-new", "r-new", "skip"}, recordIDs(next.Local))
	assert.Equal(t, []string{"both", "l-new", "r-new", "skip"}, recordIDs(next.Remote))
	assert.Equal(t, []string{"both", "l-new", "r-new", "skip"}, recordIDs(next.Baseline))

	// the skipped pair stays diverged against its old baseline
	assert.Equal(t, "A", next.Local[3].Title)
	assert.Equal(t, "B", next.Remote[3].Title)
	assert.Equal(t, "Base", next.Baseline[3].Title)
	assert.Equal(t, "Local", next.Baseline[0].Title)

	// inputs untouched
	assert.Len(t, current.Local, 4)
	assert.Equal(t, "Remote", current.Remote[1].Title)
}

func TestApply_EditBeatsDelete(t *testing.T) {
	current := Set{
		Local:    []*bookmark.Record{},
		Remote:   []*bookmark.Record{leaf("x", "Edited remotely", "https://new", 2)},
		Baseline: []*bookmark.Record{leaf("x", "Original", "https://old", 0)},
	}
	cs := changes.Diff(current.Local, current.Remote, current.Baseline)
	assert.Empty(t, cs.Removed)

	next := Apply(current, cs, nil)

	assert.Equal(t, []string{"x"}, recordIDs(next.Local))
	assert.Equal(t, []string{"x"}, recordIDs(next.Remote))
	assert.Equal(t, "Edited remotely", next.Local[0].Title)
	assert.Equal(t, "https://new", next.Remote[0].URL)
	assert.Equal(t, "https://new", next.Baseline[0].URL)
}
