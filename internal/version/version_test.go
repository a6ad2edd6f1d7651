package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, s, b string) { Version, GitSHA, BuildTime = v, s, b }(Version, GitSHA, BuildTime)

	assert.Equal(t, "meshseg dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "0123456789abcdef0123", "2026-10-01T00:00:00Z"
	assert.Equal(t, "meshseg 1.2.0 (0123456789ab, built 2026-10-01T00:00:00Z)", String())
}
