package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	t.Helper()
	v, r, b := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = v, r, b
	})
}

func TestCurrent(t *testing.T) {
	restore(t)
	Version, Revision, BuildDate = "1.0.0", "abc123", "2025-01-01T00:00:00Z"

	info := Current()
	assert.Equal(t, "marksync", info.App)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.String(), "1.0.0 (abc123; go"))
	assert.True(t, strings.HasSuffix(Detailed(), "; 2025-01-01T00:00:00Z)"))
	assert.True(t, strings.HasPrefix(DetailedWithApp(), "marksync 1.0.0 "))
	assert.True(t, strings.HasPrefix(UserAgent(), "marksync/1.0.0 (abc123; "))
}

func TestFillFromBuildInfo(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abcdef1234567890"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2025-12-12T01:00:00Z"},
		{Key: "GOOS", Value: "linux"},
	}

	t.Run("dev build", func(t *testing.T) {
		restore(t)
		Version, Revision, BuildDate = devVersion, devRevision, ""

		fillFromBuildInfo("v9.9.9", settings)
		assert.Equal(t, "9.9.9", Version)
		assert.Equal(t, "abcdef1234567890-dirty", Revision)
		assert.Equal(t, "2025-12-12T01:00:00Z", BuildDate)
	})

	t.Run("devel module version", func(t *testing.T) {
		restore(t)
		Version = devVersion

		fillFromBuildInfo("(devel)", nil)
		assert.Equal(t, devVersion, Version)
	})

	t.Run("ldflags win", func(t *testing.T) {
		restore(t)
		Version, Revision, BuildDate = "1.2.3", "deadbeef", "from-ldflags"

		fillFromBuildInfo("v9.9.9", settings)
		assert.Equal(t, "1.2.3", Version)
		assert.Equal(t, "deadbeef", Revision)
		assert.Equal(t, "from-ldflags", BuildDate)
	})
}
