package bookmark

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRecord = errors.New("invalid bookmark record")
)

// Kind distinguishes bookmarks from the folders that contain them.
type Kind string

const (
	KindLeaf   Kind = "leaf"
	KindFolder Kind = "folder"
)

func (k Kind) Valid() bool {
	return k == KindLeaf || k == KindFolder
}

// Record is a single node of a bookmark tree as seen by one snapshot.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	ParentID     string    `json:"parentId"`
	DateAdded    time.Time `json:"dateAdded"`
	DateModified time.Time `json:"dateModified"`
	Kind         Kind      `json:"kind"`
}

// Clone returns a shallow copy. Records hold no reference fields, so the copy is independent.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%s %q)", r.Kind, r.ID, r.Title)
}

// Validate checks the shape of a record coming from a snapshot store.
func Validate(r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidRecord, r.ID, r.Kind)
	}
	if r.Kind == KindFolder && r.URL != "" {
		return fmt.Errorf("%w: folder %s has a url", ErrInvalidRecord, r.ID)
	}
	if r.ParentID == r.ID {
		return fmt.Errorf("%w: %s is its own parent", ErrInvalidRecord, r.ID)
	}
	return nil
}

// ValidateAll validates every record and rejects duplicate ids.
func ValidateAll(records []*Record) error {
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if err := Validate(r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidRecord, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// Index maps records by id. Later duplicates overwrite earlier ones.
func Index(records []*Record) map[string]*Record {
	idx := make(map[string]*Record, len(records))
	for _, r := range records {
		idx[r.ID] = r
	}
	return idx
}
