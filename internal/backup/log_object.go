package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openmined/marksync/internal/blob"
	"github.com/openmined/marksync/internal/codec"
)

const (
	objectLogVersion = 1
	maxWriteAttempts = 3
)

var ErrLogConflict = errors.New("backup log changed concurrently")

type objectDoc struct {
	Version int       `json:"version"`
	Backups []*Record `json:"backups"`
}

// ObjectLog keeps the whole backup log as one JSON document in object storage.
// Writes are conditional on the ETag read just before, or on the object still
// being absent when none was read, so a write either lands in full or not at all.
type ObjectLog struct {
	client blob.Client
	key    string
	mu     sync.Mutex
}

func NewObjectLog(client blob.Client, key string) *ObjectLog {
	if key == "" {
		key = "marksync/backups.json"
	}
	return &ObjectLog{client: client, key: key}
}

// Key is the object key of the log document.
func (o *ObjectLog) Key() string {
	return o.key
}

func (o *ObjectLog) Append(ctx context.Context, rec *Record) error {
	c := *rec
	return o.update(ctx, func(records []*Record) ([]*Record, bool) {
		return append(records, &c), true
	})
}

func (o *ObjectLog) List(ctx context.Context) ([]*Record, error) {
	doc, _, err := o.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Backups, nil
}

func (o *ObjectLog) Remove(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var removed int
	err := o.update(ctx, func(records []*Record) ([]*Record, bool) {
		var kept []*Record
		kept, removed = filterOut(records, ids)
		return kept, removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (o *ObjectLog) Close() error {
	return nil
}

// update runs a read-modify-write cycle, retrying when another writer got there first.
func (o *ObjectLog) update(ctx context.Context, fn func([]*Record) ([]*Record, bool)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		doc, etag, err := o.read(ctx)
		if err != nil {
			return err
		}

		next, changed := fn(doc.Backups)
		if !changed {
			return nil
		}

		err = o.write(ctx, &objectDoc{Version: objectLogVersion, Backups: next}, etag)
		if err == nil {
			return nil
		}
		if !errors.Is(err, blob.ErrPreconditionFailed) {
			return err
		}
		slog.Warn("backup log write conflict", "key", o.key, "attempt", attempt)
	}
	return fmt.Errorf("%w: %s", ErrLogConflict, o.key)
}

func (o *ObjectLog) read(ctx context.Context) (*objectDoc, string, error) {
	resp, err := o.client.GetObject(ctx, o.key)
	if errors.Is(err, blob.ErrNotFound) {
		return &objectDoc{Version: objectLogVersion}, "", nil
	} else if err != nil {
		return nil, "", fmt.Errorf("read backup log: %w", err)
	}
	defer resp.Body.Close()

	var doc objectDoc
	if err := codec.Decode(resp.Body, &doc); err != nil {
		return nil, "", fmt.Errorf("decode backup log: %w", err)
	}
	if doc.Version != objectLogVersion {
		return nil, "", fmt.Errorf("backup log %s: unsupported version %d", o.key, doc.Version)
	}
	return &doc, resp.ETag, nil
}

func (o *ObjectLog) write(ctx context.Context, doc *objectDoc, etag string) error {
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode backup log: %w", err)
	}
	params := &blob.PutObjectParams{
		Key:     o.key,
		Size:    int64(len(data)),
		Body:    bytes.NewReader(data),
		IfMatch: etag,
	}
	if etag == "" {
		params.IfNoneMatch = "*"
	}
	_, err = o.client.PutObject(ctx, params)
	return err
}

var _ LogBackend = (*ObjectLog)(nil)
