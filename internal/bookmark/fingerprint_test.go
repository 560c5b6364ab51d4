package bookmark

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	r := &Record{ID: "1", Title: "Go", URL: "https://go.dev", ParentID: "bar", Kind: KindLeaf}
	first := Fingerprint(r)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(r))
	}
	assert.Len(t, string(first), 64)
}

func TestFingerprint_FieldOrderIndependent(t *testing.T) {
	var a, b Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"Go","url":"https://go.dev","parentId":"bar","kind":"leaf"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"leaf","parentId":"bar","url":"https://go.dev","title":"Go","id":"1"}`), &b))

	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))
}

func TestFingerprint_IgnoresTimestamps(t *testing.T) {
	a := &Record{ID: "1", Title: "Go", DateModified: time.Unix(100, 0), DateAdded: time.Unix(1, 0), Kind: KindLeaf}
	b := a.Clone()
	b.DateModified = time.Unix(999, 0)
	b.DateAdded = time.Unix(2, 0)

	assert.True(t, ContentEqual(a, b))
}

func TestFingerprint_Normalization(t *testing.T) {
	// "é" precomposed vs "e" + combining acute
	a := &Record{ID: "1", Title: "caf\u00e9 ", Kind: KindLeaf}
	b := &Record{ID: "1", Title: " cafe\u0301", Kind: KindLeaf}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	a := &Record{ID: "1", Title: "ab", URL: "c", Kind: KindLeaf}
	b := &Record{ID: "1", Title: "a", URL: "bc", Kind: KindLeaf}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_CoveredFields(t *testing.T) {
	base := &Record{ID: "1", Title: "Go", URL: "https://go.dev", ParentID: "bar", Kind: KindLeaf}

	title := base.Clone()
	title.Title = "Golang"
	url := base.Clone()
	url.URL = "https://golang.org"
	parent := base.Clone()
	parent.ParentID = "other"

	for _, changed := range []*Record{title, url, parent} {
		assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))
	}
}

func TestFingerprint_PanicsWithoutID(t *testing.T) {
	assert.Panics(t, func() { Fingerprint(&Record{Title: "x"}) })
	assert.Panics(t, func() { Fingerprint(nil) })
}

func TestFingerprintAll(t *testing.T) {
	records := []*Record{
		{ID: "a", Title: "A", Kind: KindLeaf},
		{ID: "b", Title: "B", Kind: KindFolder},
	}
	fps := FingerprintAll(records)
	assert.Len(t, fps, 2)
	assert.Equal(t, Fingerprint(records[1]), fps["b"])
}
