package changes

import "github.com/openmined/marksync/internal/bookmark"

// Side names one of the two snapshots being reconciled.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
	SideBoth   Side = "both"
)

// Removal is a record that was synced before and is now missing from one side.
// Side is the snapshot the record disappeared from.
type Removal struct {
	ID   string `json:"id"`
	Side Side   `json:"side"`
}

// ModifiedPair is a record present on both sides with differing fingerprints.
type ModifiedPair struct {
	ID     string           `json:"id"`
	Local  *bookmark.Record `json:"local"`
	Remote *bookmark.Record `json:"remote"`
	// Changed reports which side diverged from the baseline.
	// A pair without a baseline entry is reported as SideBoth.
	Changed Side `json:"changed"`
}

// ChangeSet is the result of diffing a local and a remote snapshot against the last synced baseline.
// It is derived on every cycle and never persisted.
type ChangeSet struct {
	// Added holds records only present locally that were never synced, or that were
	// edited locally after the remote side deleted them.
	Added []*bookmark.Record `json:"added"`
	// RemoteAdded is Added for the remote side.
	RemoteAdded []*bookmark.Record `json:"remoteAdded"`
	Removed     []Removal          `json:"removed"`
	Modified    []ModifiedPair     `json:"modified"`
	Unchanged   int                `json:"unchanged"`
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:       make([]*bookmark.Record, 0),
		RemoteAdded: make([]*bookmark.Record, 0),
		Removed:     make([]Removal, 0),
		Modified:    make([]ModifiedPair, 0),
	}
}

// HasChanges returns true if the cycle has anything to apply.
func (c *ChangeSet) HasChanges() bool {
	return len(c.Added) > 0 ||
		len(c.RemoteAdded) > 0 ||
		len(c.Removed) > 0 ||
		len(c.Modified) > 0
}

// RemovedIDs returns the ids of all removals regardless of side.
func (c *ChangeSet) RemovedIDs() []string {
	ids := make([]string, 0, len(c.Removed))
	for _, r := range c.Removed {
		ids = append(ids, r.ID)
	}
	return ids
}

// Equal reports whether two change sets describe the same cycle: the same ids in
// every slice, with equal content on both sides of each record.
func (c *ChangeSet) Equal(o *ChangeSet) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Unchanged != o.Unchanged ||
		!sameRecords(c.Added, o.Added) ||
		!sameRecords(c.RemoteAdded, o.RemoteAdded) ||
		len(c.Removed) != len(o.Removed) ||
		len(c.Modified) != len(o.Modified) {
		return false
	}
	for i := range c.Removed {
		if c.Removed[i] != o.Removed[i] {
			return false
		}
	}
	for i, m := range c.Modified {
		n := o.Modified[i]
		if m.ID != n.ID || m.Changed != n.Changed ||
			!bookmark.ContentEqual(m.Local, n.Local) ||
			!bookmark.ContentEqual(m.Remote, n.Remote) {
			return false
		}
	}
	return true
}

func sameRecords(a, b []*bookmark.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !bookmark.ContentEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
