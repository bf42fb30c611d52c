package version

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	got := getVersion()
	if got == "" {
		t.Fatal("getVersion() returned empty string")
	}
	if got != strings.TrimSpace(got) {
		t.Errorf("getVersion() = %q, contains surrounding whitespace", got)
	}
	if parts := strings.SplitN(got, ".", 3); len(parts) < 3 {
		t.Errorf("getVersion() = %q, expected MAJOR.MINOR.PATCH", got)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "formats all fields",
			info: Info{Version: "1.0.0", GitCommit: "abc1234", BuildDate: "2026-01-10T15:04:05Z"},
			want: "Version:    1.0.0\nGit Commit: abc1234\nBuild Date: 2026-01-10T15:04:05Z",
		},
		{
			name: "handles unknown values",
			info: Info{Version: "0.1.0", GitCommit: "unknown", BuildDate: "unknown"},
			want: "Version:    0.1.0\nGit Commit: unknown\nBuild Date: unknown",
		},
		{
			name: "handles dirty commit",
			info: Info{Version: "1.0.0-alpha.1", GitCommit: "def5678-dirty", BuildDate: "2026-01-10T16:00:00Z"},
			want: "Version:    1.0.0-alpha.1\nGit Commit: def5678-dirty\nBuild Date: 2026-01-10T16:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("Info.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("Get().Version is empty, expected embedded version")
	}
	if info.GitCommit == "" {
		t.Error("Get().GitCommit is empty, expected value or 'unknown'")
	}
	if info.BuildDate == "" {
		t.Error("Get().BuildDate is empty, expected value or 'unknown'")
	}
}
