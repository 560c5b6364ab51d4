package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	etag         string
	lastModified time.Time
}

// MemoryClient keeps objects in process memory. It backs dry runs and tests.
type MemoryClient struct {
	objects map[string]*memoryObject
	mu      sync.RWMutex
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string]*memoryObject)}
}

func (m *MemoryClient) GetObject(_ context.Context, key string) (*GetObjectResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &GetObjectResponse{
		Body:         io.NopCloser(bytes.NewReader(obj.data)),
		ETag:         obj.etag,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
	}, nil
}

func (m *MemoryClient) PutObject(_ context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.objects[params.Key]
	if params.IfMatch != "" && (!exists || cur.etag != params.IfMatch) {
		return nil, fmt.Errorf("%w: %s", ErrPreconditionFailed, params.Key)
	}
	if params.IfNoneMatch == "*" && exists {
		return nil, fmt.Errorf("%w: %s exists", ErrPreconditionFailed, params.Key)
	}

	obj := &memoryObject{
		data:         data,
		etag:         fmt.Sprintf("%x", md5.Sum(data)),
		lastModified: time.Now().UTC(),
	}
	m.objects[params.Key] = obj

	return &PutObjectResponse{
		Key:          params.Key,
		ETag:         obj.etag,
		Size:         int64(len(data)),
		LastModified: obj.lastModified,
	}, nil
}

func (m *MemoryClient) DeleteObject(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[key]
	delete(m.objects, key)
	return ok, nil
}

func (m *MemoryClient) ListObjects(_ context.Context, prefix string) ([]*ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ObjectInfo, 0, len(m.objects))
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, &ObjectInfo{
			Key:          key,
			ETag:         obj.etag,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

var _ Client = (*MemoryClient)(nil)
