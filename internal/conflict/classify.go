package conflict

import (
	"sort"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
)

// fieldDiff records which fingerprinted field classes differ between two records.
type fieldDiff struct {
	title  bool
	url    bool
	folder bool
}

func diffFields(local, remote *bookmark.Record) fieldDiff {
	return fieldDiff{
		title:  bookmark.Normalize(local.Title) != bookmark.Normalize(remote.Title),
		url:    bookmark.Normalize(local.URL) != bookmark.Normalize(remote.URL),
		folder: bookmark.Normalize(local.ParentID) != bookmark.Normalize(remote.ParentID),
	}
}

func (d fieldDiff) severity() Severity {
	switch {
	case d.url:
		return SeverityHigh
	case d.title:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (d fieldDiff) conflictType() Type {
	switch {
	case d.title && d.url && d.folder:
		return TypeMixed
	case d.url:
		return TypeURL
	case d.title:
		return TypeTitle
	default:
		return TypeFolder
	}
}

// Classify derives severity and type of a modified pair from its field level diff.
// Fields are compared in the same normalized form the fingerprint uses.
func Classify(pair changes.ModifiedPair) *Conflict {
	d := diffFields(pair.Local, pair.Remote)
	return &Conflict{
		ID:       pair.ID,
		Local:    pair.Local,
		Remote:   pair.Remote,
		Severity: d.severity(),
		Type:     d.conflictType(),
		Changed:  pair.Changed,
	}
}

// ClassifyAll classifies every modified pair of a change set.
// The result is ordered by severity, most severe first, then by id.
func ClassifyAll(cs *changes.ChangeSet) []*Conflict {
	out := make([]*Conflict, 0, len(cs.Modified))
	for _, pair := range cs.Modified {
		out = append(out, Classify(pair))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
