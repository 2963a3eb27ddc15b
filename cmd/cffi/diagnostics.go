package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cffi/internal/diag"
	"cffi/internal/diagfmt"
	"cffi/internal/source"
)

// writeDiagnostics prints a bag in the chosen format, capped by
// --max-diagnostics. Pretty output goes to stderr, JSON to w.
func writeDiagnostics(cmd *cobra.Command, w io.Writer, bag *diag.Bag, fs *source.FileSet, format string) error {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	switch format {
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			Max:              maxDiagnostics,
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "pretty", "":
		if bag.Len() == 0 {
			return nil
		}
		shown := diag.NewBag(maxDiagnostics)
		for _, d := range bag.Items() {
			if !shown.Add(d) {
				break
			}
		}
		diagfmt.Pretty(os.Stderr, shown, fs, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			Context:   2,
			PathMode:  diagfmt.PathModeRelative,
			ShowNotes: true,
			ShowFixes: true,
		})
		if hidden := bag.Len() - shown.Len() + bag.Dropped(); hidden > 0 {
			fmt.Fprintf(os.Stderr, "... %d more diagnostics not shown\n", hidden)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}
