package snapshot

import (
	"sort"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
	"github.com/openmined/marksync/internal/conflict"
)

// Set is the three snapshots of one scope.
type Set struct {
	Local    []*bookmark.Record `json:"local"`
	Remote   []*bookmark.Record `json:"remote"`
	Baseline []*bookmark.Record `json:"baseline"`
}

// Apply returns the snapshots after a sync cycle has been carried out.
//
// New records are copied to the side missing them, removals are propagated to
// the side still holding the record, and every resolution with a result is
// written to both sides. Modified pairs without a result stay diverged and keep
// their old baseline. Every record equal on both sides ends up in the baseline.
// The inputs are not modified.
func Apply(current Set, cs *changes.ChangeSet, resolutions []conflict.Resolution) Set {
	local := cloneIndex(current.Local)
	remote := cloneIndex(current.Remote)
	baseline := cloneIndex(current.Baseline)

	for _, r := range cs.Added {
		remote[r.ID] = r.Clone()
	}
	for _, r := range cs.RemoteAdded {
		local[r.ID] = r.Clone()
	}
	for _, rm := range cs.Removed {
		delete(local, rm.ID)
		delete(remote, rm.ID)
		delete(baseline, rm.ID)
	}
	for _, res := range resolutions {
		if res.Result == nil {
			continue
		}
		local[res.ConflictID] = res.Result.Clone()
		remote[res.ConflictID] = res.Result.Clone()
	}

	for id, l := range local {
		if r, ok := remote[id]; ok && bookmark.ContentEqual(l, r) {
			baseline[id] = l.Clone()
		}
	}

	return Set{
		Local:    sorted(local),
		Remote:   sorted(remote),
		Baseline: sorted(baseline),
	}
}

func cloneIndex(records []*bookmark.Record) map[string]*bookmark.Record {
	out := make(map[string]*bookmark.Record, len(records))
	for _, r := range records {
		out[r.ID] = r.Clone()
	}
	return out
}

func sorted(index map[string]*bookmark.Record) []*bookmark.Record {
	out := make([]*bookmark.Record, 0, len(index))
	for _, r := range index {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
