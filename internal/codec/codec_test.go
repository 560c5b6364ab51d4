package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
	Tags []string  `json:"tags,omitempty"`
}

func TestCodec_RoundTrip(t *testing.T) {
	in := sample{ID: "x", At: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	data, err := MarshalIndent(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"id\"")

	var out sample
	require.NoError(t, Decode(strings.NewReader(string(data)), &out))
	assert.True(t, in.At.Equal(out.At))
	assert.Equal(t, in.ID, out.ID)
}
