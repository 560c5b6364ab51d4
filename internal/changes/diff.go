package changes

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/marksync/internal/bookmark"
)

// snapshot is an id-indexed view of a record set with precomputed fingerprints.
type snapshot struct {
	records      map[string]*bookmark.Record
	fingerprints map[string]bookmark.Digest
}

func index(records []*bookmark.Record) *snapshot {
	return &snapshot{
		records:      bookmark.Index(records),
		fingerprints: bookmark.FingerprintAll(records),
	}
}

// Diff computes the ChangeSet between the local and remote snapshots.
// The baseline is the last snapshot known to be fully synced; it decides whether a
// record present on only one side is new or was deleted from the other side.
// A record deleted on one side but edited on the other is never removed: the edited
// copy is reported as added so it is restored to the side that deleted it.
//
// Diff is pure and runs in linear time. Records must have been validated by the caller.
func Diff(local, remote, baseline []*bookmark.Record) *ChangeSet {
	localSnap := index(local)
	remoteSnap := index(remote)
	baseSnap := index(baseline)

	allIDs := mapset.NewThreadUnsafeSetWithSize[string](len(local) + len(remote))
	for id := range localSnap.records {
		allIDs.Add(id)
	}
	for id := range remoteSnap.records {
		allIDs.Add(id)
	}

	cs := NewChangeSet()

	for id := range allIDs.Iter() {
		l, localExists := localSnap.records[id]
		r, remoteExists := remoteSnap.records[id]
		_, synced := baseSnap.records[id]

		switch {
		case localExists && !remoteExists && !synced:
			cs.Added = append(cs.Added, l)
		case localExists && !remoteExists && synced:
			// previously synced, gone remotely. A local edit since the last sync wins over the removal.
			if editedSince(baseSnap, localSnap, id) {
				cs.Added = append(cs.Added, l)
				continue
			}
			cs.Removed = append(cs.Removed, Removal{ID: id, Side: SideRemote})
		case remoteExists && !localExists && !synced:
			cs.RemoteAdded = append(cs.RemoteAdded, r)
		case remoteExists && !localExists && synced:
			if editedSince(baseSnap, remoteSnap, id) {
				cs.RemoteAdded = append(cs.RemoteAdded, r)
				continue
			}
			cs.Removed = append(cs.Removed, Removal{ID: id, Side: SideLocal})
		default:
			localFP := localSnap.fingerprints[id]
			remoteFP := remoteSnap.fingerprints[id]
			if localFP == remoteFP {
				cs.Unchanged++
				continue
			}
			cs.Modified = append(cs.Modified, ModifiedPair{
				ID:      id,
				Local:   l,
				Remote:  r,
				Changed: changedSide(baseSnap, id, localFP, remoteFP),
			})
		}
	}

	sortChangeSet(cs)
	return cs
}

// editedSince reports whether the surviving copy of id no longer matches the baseline.
func editedSince(base, side *snapshot, id string) bool {
	return base.fingerprints[id] != side.fingerprints[id]
}

func changedSide(base *snapshot, id string, localFP, remoteFP bookmark.Digest) Side {
	baseFP, ok := base.fingerprints[id]
	switch {
	case !ok:
		return SideBoth
	case baseFP == localFP:
		return SideRemote
	case baseFP == remoteFP:
		return SideLocal
	default:
		return SideBoth
	}
}

// sortChangeSet orders every slice by id so equal inputs always produce equal output.
func sortChangeSet(cs *ChangeSet) {
	sort.Slice(cs.Added, func(i, j int) bool { return cs.Added[i].ID < cs.Added[j].ID })
	sort.Slice(cs.RemoteAdded, func(i, j int) bool { return cs.RemoteAdded[i].ID < cs.RemoteAdded[j].ID })
	sort.Slice(cs.Removed, func(i, j int) bool { return cs.Removed[i].ID < cs.Removed[j].ID })
	sort.Slice(cs.Modified, func(i, j int) bool { return cs.Modified[i].ID < cs.Modified[j].ID })
}
