package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"cffi/internal/layout"
	"cffi/internal/version"
)

func TestCollectBuildInfo(t *testing.T) {
	oldCommit := version.GitCommit
	t.Cleanup(func() { version.GitCommit = oldCommit })
	version.GitCommit = " abc123 "

	info := collectBuildInfo(true, false)
	if info.GitCommit != "abc123" || info.BuildDate != "" {
		t.Fatalf("commit=%q date=%q", info.GitCommit, info.BuildDate)
	}
	if info.Target != layout.Host().Triple || info.PtrSize != layout.Host().PtrSize {
		t.Fatalf("target = %s/%d", info.Target, info.PtrSize)
	}

	if got := collectBuildInfo(false, true).BuildDate; got != "unknown" && got != version.BuildDate {
		t.Fatalf("BuildDate = %q", got)
	}
}

func TestRenderBuildInfo(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	renderBuildInfo(&buf, buildInfo{Version: "1.2.3", Target: "amd64-linux", PtrSize: 8, Go: "go1.25.1"})
	out := buf.String()
	for _, want := range []string{"cffi 1.2.3\n", "native calls: unavailable", "amd64-linux (8-byte pointers, go1.25.1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "commit:") {
		t.Errorf("commit printed without being requested:\n%s", out)
	}
}
