package version

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeIdentifiers(t *testing.T) {
	assert.Equal(t, runtime.Version(), RuntimeVersion())
	assert.Equal(t, runtime.GOOS, Platform())
}

func TestGetVersionPrefersLdflags(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3", GetVersion())

	Version = "dev"
	assert.True(t, strings.HasPrefix(GetVersion(), "dev") || strings.HasPrefix(GetVersion(), "v"))
}

func TestGetShortVersion(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version = "v1.2.3"
	GitCommit = "abcdef0123456"
	assert.Equal(t, "v1.2.3 (abcdef0)", GetShortVersion())

	Version = "dev"
	assert.Equal(t, "dev-abcdef0", GetShortVersion())
}

func TestParseBuildTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02 03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseBuildTime(tt.input)))
		})
	}
}

func TestGetDetailedVersion(t *testing.T) {
	detailed := GetDetailedVersion()

	assert.Contains(t, detailed, "Version: ")
	assert.Contains(t, detailed, "Go: "+runtime.Version())
	assert.Contains(t, detailed, "Platform: "+runtime.GOOS+"/"+runtime.GOARCH)
}
