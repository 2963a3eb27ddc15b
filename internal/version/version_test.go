package version

import (
	"testing"

	"github.com/fatih/color"
)

func plainColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestString(t *testing.T) {
	plainColors(t)
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	tests := []struct {
		name                 string
		commit, date, native string
		want                 string
	}{
		{"bare", "", "", "", "cffi 1.2.3"},
		{"commit", "abc123", "", "", "cffi 1.2.3 (abc123)"},
		{"full", "abc123", "2026-01-15", "libffi", "cffi 1.2.3 (abc123) built 2026-01-15\nnative calls: libffi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, GitCommit, BuildDate = "1.2.3", tt.commit, tt.date
			if got := String(tt.native); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyledKeepsText(t *testing.T) {
	plainColors(t)
	for _, v := range []string{"0.3.0-dev", "1.2.3", "2.0", "1.0.0-rc.1"} {
		if got := Styled(v); got != v {
			t.Errorf("Styled(%q) = %q", v, got)
		}
	}
}

func TestStyledColorsNumbers(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	got := Styled("1.2.3-dev")
	if got == "1.2.3-dev" {
		t.Fatal("expected escape codes around version numbers")
	}
	if want := "-dev"; got[len(got)-len(want):] != want {
		t.Errorf("pre-release suffix should stay plain, got %q", got)
	}
}
