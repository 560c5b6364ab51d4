package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, c Client, key, body, ifMatch string) (*PutObjectResponse, error) {
	t.Helper()
	return c.PutObject(context.Background(), &PutObjectParams{
		Key:     key,
		Size:    int64(len(body)),
		Body:    strings.NewReader(body),
		IfMatch: ifMatch,
	})
}

func TestMemoryClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	resp, err := put(t, c, "backups/a.json", "hello", "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ETag)

	obj, err := c.GetObject(ctx, "backups/a.json")
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, resp.ETag, obj.ETag)

	_, err = c.GetObject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClient_IfMatch(t *testing.T) {
	c := NewMemoryClient()

	_, err := put(t, c, "log.json", "v1", "nope")
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	first, err := put(t, c, "log.json", "v1", "")
	require.NoError(t, err)

	_, err = put(t, c, "log.json", "v2", first.ETag)
	require.NoError(t, err)

	// stale etag
	_, err = put(t, c, "log.json", "v3", first.ETag)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestMemoryClient_IfNoneMatch(t *testing.T) {
	c := NewMemoryClient()
	create := func(body string) error {
		_, err := c.PutObject(context.Background(), &PutObjectParams{
			Key:         "log.json",
			Size:        int64(len(body)),
			Body:        strings.NewReader(body),
			IfNoneMatch: "*",
		})
		return err
	}

	require.NoError(t, create("v1"))
	assert.ErrorIs(t, create("v2"), ErrPreconditionFailed)

	obj, err := c.GetObject(context.Background(), "log.json")
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "v1", string(data))
}

func TestMemoryClient_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	for _, k := range []string{"b/2", "a/1", "b/1"} {
		_, err := put(t, c, k, k, "")
		require.NoError(t, err)
	}

	objs, err := c.ListObjects(ctx, "b/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "b/1", objs[0].Key)

	ok, err := c.DeleteObject(ctx, "b/1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.DeleteObject(ctx, "b/1")
	require.NoError(t, err)
	assert.False(t, ok)
}
