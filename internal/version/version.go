package version

import (
	"strings"

	"github.com/fatih/color"
)

// Build metadata, overridable via -ldflags "-X cffi/internal/version.Version=...".
var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var partColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Styled colors the major, minor and patch numbers of v for terminal output.
// The pre-release suffix stays plain.
func Styled(v string) string {
	core, pre, hasPre := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	for i, p := range parts {
		if i < len(partColors) {
			parts[i] = partColors[i].Sprint(p)
		}
	}
	out := strings.Join(parts, ".")
	if hasPre {
		out += "-" + pre
	}
	return out
}

// String собирает строку баннера; пустые поля пропускаются.
func String(native string) string {
	var b strings.Builder
	b.WriteString("cffi ")
	b.WriteString(Styled(Version))
	if GitCommit != "" {
		b.WriteString(" (" + GitCommit + ")")
	}
	if BuildDate != "" {
		b.WriteString(" built " + BuildDate)
	}
	if native != "" {
		b.WriteString("\nnative calls: " + native)
	}
	return b.String()
}
