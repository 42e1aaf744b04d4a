package version

import (
	"strings"
	"testing"
)

func TestCompileTimeValuesWin(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })

	Version, Commit, Date = "v1.2.3", "0123456789abcdef", "2024-03-01"
	if got := GetFullVersion(); got != "v1.2.3 (0123456, built 2024-03-01)" {
		t.Fatalf("GetFullVersion = %q", got)
	}
	info := GetInfo()
	if info.Version != "v1.2.3" || info.Commit != "0123456789abcdef" || info.Date != "2024-03-01" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestDefaultsAreNonEmpty(t *testing.T) {
	if GetVersion() == "" || GetCommit() == "" || GetBuildDate() == "" {
		t.Fatal("version helpers must never return empty strings")
	}
	if strings.TrimSpace(GetFullVersion()) == "" {
		t.Fatal("full version is empty")
	}
}
