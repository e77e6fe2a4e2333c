package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "1.2.0",
		GitCommit: "0123456789abcdef",
		BuildDate: "2026-01-02 03:04",
		GoVersion: "go1.24.11",
		Platform:  "linux/arm64",
	}
	got := info.String()
	want := "qaspar 1.2.0 (commit 0123456, built 2026-01-02 03:04, go1.24.11 linux/arm64)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	info.GitCommit = "unknown"
	if !strings.Contains(info.String(), "commit unknown") {
		t.Errorf("short commits should be kept: %q", info.String())
	}
}
