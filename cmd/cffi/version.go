package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"cffi/internal/layout"
	"cffi/internal/native"
	"cffi/internal/version"
)

// buildInfo is what `cffi version` reports. Commit and date are filled only
// when asked for.
type buildInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Native    bool   `json:"native_calls"`
	Target    string `json:"target"`
	PtrSize   int    `json:"pointer_size"`
	Go        string `json:"go"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show cffi build information and the host ABI",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := collectBuildInfo(versionShowHash || versionShowFull, versionShowDate || versionShowFull)
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "pretty":
			renderBuildInfo(out, info)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func collectBuildInfo(withHash, withDate bool) buildInfo {
	host := layout.Host()
	info := buildInfo{
		Tool:    "cffi",
		Version: orDefault(version.Version, "dev"),
		Native:  native.Available,
		Target:  host.Triple,
		PtrSize: host.PtrSize,
		Go:      runtime.Version(),
	}
	if withHash {
		info.GitCommit = orDefault(version.GitCommit, "unknown")
	}
	if withDate {
		info.BuildDate = orDefault(version.BuildDate, "unknown")
	}
	return info
}

func renderBuildInfo(out io.Writer, info buildInfo) {
	fmt.Fprintf(out, "cffi %s\n", version.Styled(info.Version))
	fmt.Fprintf(out, "native calls: %s\n", nativeStatus(info.Native))
	fmt.Fprintf(out, "target:       %s (%d-byte pointers, %s)\n", info.Target, info.PtrSize, info.Go)
	if info.GitCommit != "" {
		fmt.Fprintf(out, "commit:       %s\n", info.GitCommit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "built:        %s\n", info.BuildDate)
	}
}

func nativeStatus(ok bool) string {
	if ok {
		return "libffi"
	}
	return "unavailable (built without cgo)"
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
